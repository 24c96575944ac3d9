// Package picker holds the sticker picker's non-visual state: which pack the
// category sidebar has selected and the settings panel behind the cog.
package picker

import (
	"errors"
	"sync"
)

const (
	RecentStickersID    = "recent"
	RecentStickersTitle = "Recently Used"
)

// ErrUnknownPack is returned by SelectByID for an id the sidebar does not list.
var ErrUnknownPack = errors.New("unknown sticker pack")

// Category is one entry in the sidebar.
type Category struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	IconURL string `json:"iconUrl,omitempty"`
}

// RecentPack is the pseudo-pack of recently used stickers. It is always
// listed first and is selected initially.
var RecentPack = Category{ID: RecentStickersID, Name: RecentStickersTitle}

// Sidebar tracks the active category.
type Sidebar struct {
	mu       sync.RWMutex
	packs    []Category
	active   Category
	onSelect func(Category)
}

// NewSidebar lists packs after RecentPack. onSelect, if set, is called each
// time the selection actually changes.
func NewSidebar(packs []Category, onSelect func(Category)) *Sidebar {
	return &Sidebar{
		packs:    append([]Category(nil), packs...),
		active:   RecentPack,
		onSelect: onSelect,
	}
}

// Packs returns RecentPack followed by the sidebar's packs.
func (s *Sidebar) Packs() []Category {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Category, 0, len(s.packs)+1)
	out = append(out, RecentPack)
	return append(out, s.packs...)
}

// Active returns the selected category.
func (s *Sidebar) Active() Category {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

// IsActive reports whether id is the selected category.
func (s *Sidebar) IsActive(id string) bool {
	return s.Active().ID == id
}

// Select makes cat active. Selecting the already active category does
// nothing and returns false.
func (s *Sidebar) Select(cat Category) bool {
	s.mu.Lock()
	if s.active.ID == cat.ID {
		s.mu.Unlock()
		return false
	}
	s.active = cat
	onSelect := s.onSelect
	s.mu.Unlock()

	if onSelect != nil {
		onSelect(cat)
	}
	return true
}

// SelectByID selects a listed category by id.
func (s *Sidebar) SelectByID(id string) (bool, error) {
	for _, cat := range s.Packs() {
		if cat.ID == id {
			return s.Select(cat), nil
		}
	}
	return false, ErrUnknownPack
}

// SetPacks replaces the listed packs. If the active pack disappears the
// selection falls back to RecentPack without notifying.
func (s *Sidebar) SetPacks(packs []Category) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.packs = append([]Category(nil), packs...)
	if s.active.ID == RecentStickersID {
		return
	}
	for _, p := range s.packs {
		if p.ID == s.active.ID {
			s.active = p
			return
		}
	}
	s.active = RecentPack
}
