package i18n

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/text/language"
)

// RegionSource supplies the saved region code. *morestickers.Store satisfies it.
type RegionSource interface {
	Region(ctx context.Context) (string, error)
}

// Localizer translates interface strings for one region. The region is
// owned by the Localizer and only changes through SetRegion or Reload.
type Localizer struct {
	source RegionSource
	bundle *Bundle

	mu     sync.RWMutex
	region string
	tag    language.Tag
}

// New returns a Localizer set to the base locale. Call Reload to pick up the
// saved region.
func New(source RegionSource, bundle *Bundle) *Localizer {
	return &Localizer{
		source: source,
		bundle: bundle,
		region: BaseLocale,
		tag:    language.Make(BaseLocale),
	}
}

// Reload re-reads the region from the source. On error the current region is
// kept.
func (l *Localizer) Reload(ctx context.Context) error {
	if l.source == nil {
		return nil
	}
	region, err := l.source.Region(ctx)
	if err != nil {
		return fmt.Errorf("reload region: %w", err)
	}
	l.SetRegion(region)
	return nil
}

// SetRegion switches the active region without persisting it.
func (l *Localizer) SetRegion(region string) {
	tag := l.bundle.Match(region)

	l.mu.Lock()
	defer l.mu.Unlock()
	l.region = region
	l.tag = tag
}

// Region returns the region last set or loaded.
func (l *Localizer) Region() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.region
}

// Localize returns the translation of text for the active region, or text
// itself when there is none.
func (l *Localizer) Localize(text string) string {
	l.mu.RLock()
	tag := l.tag
	l.mu.RUnlock()

	if translated, ok := l.bundle.Lookup(tag, text); ok {
		return translated
	}
	return text
}

// Localizef translates format and formats it with args for the active
// region.
func (l *Localizer) Localizef(format string, args ...interface{}) string {
	l.mu.RLock()
	tag := l.tag
	l.mu.RUnlock()

	return l.bundle.Printer(tag).Sprintf(format, args...)
}

// SupportedRegions lists the region codes that have a string table.
func (l *Localizer) SupportedRegions() []string {
	tags := l.bundle.Tags()
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		out = append(out, tag.String())
	}
	return out
}
