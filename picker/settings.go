package picker

import (
	"context"
	"fmt"
)

// LanguageOption is one entry of the language selector.
type LanguageOption struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// LanguageOptions lists the selectable regions.
func LanguageOptions() []LanguageOption {
	return []LanguageOption{
		{Value: "en", Label: "English"},
		{Value: "ja", Label: "Japanese"},
	}
}

// Preferences is the subset of *morestickers.Store the settings panel uses.
type Preferences interface {
	Region(ctx context.Context) (string, error)
	SetRegion(ctx context.Context, region string) error
	ResizeSwitchState(ctx context.Context) (bool, error)
	SetResizeSwitchState(ctx context.Context, state bool) error
}

// RegionReloader re-reads the region after it changes. *i18n.Localizer
// satisfies it.
type RegionReloader interface {
	Reload(ctx context.Context) error
}

// SettingsState is what the panel shows.
type SettingsState struct {
	Region   string `json:"region"`
	NoResize bool   `json:"noResize"`
}

// Settings backs the picker's language selector and "No Resize" switch.
type Settings struct {
	prefs     Preferences
	localizer RegionReloader
}

// NewSettings returns a Settings. localizer may be nil.
func NewSettings(prefs Preferences, localizer RegionReloader) *Settings {
	return &Settings{prefs: prefs, localizer: localizer}
}

// State loads the persisted settings.
func (s *Settings) State(ctx context.Context) (SettingsState, error) {
	region, err := s.prefs.Region(ctx)
	if err != nil {
		return SettingsState{}, fmt.Errorf("load region: %w", err)
	}
	noResize, err := s.prefs.ResizeSwitchState(ctx)
	if err != nil {
		return SettingsState{}, fmt.Errorf("load resize state: %w", err)
	}
	return SettingsState{Region: region, NoResize: noResize}, nil
}

// ChangeLanguage persists region and refreshes the localizer. An empty
// selection is ignored.
func (s *Settings) ChangeLanguage(ctx context.Context, region string) error {
	if region == "" {
		return nil
	}
	if err := s.prefs.SetRegion(ctx, region); err != nil {
		return fmt.Errorf("save region: %w", err)
	}
	if s.localizer != nil {
		if err := s.localizer.Reload(ctx); err != nil {
			return fmt.Errorf("reload localizer: %w", err)
		}
	}
	return nil
}

// SetNoResize persists the "No Resize" switch.
func (s *Settings) SetNoResize(ctx context.Context, noResize bool) error {
	if err := s.prefs.SetResizeSwitchState(ctx, noResize); err != nil {
		return fmt.Errorf("save resize state: %w", err)
	}
	return nil
}
