package config

// Theme names.
const (
	ThemeAuto  = "auto"
	ThemeLight = "light"
	ThemeDark  = "dark"
)

// UIConfig holds terminal UI configuration.
type UIConfig struct {
	// RefreshInterval is how often the dashboard reloads dumpsters.
	RefreshInterval string `yaml:"refresh_interval"`

	// Theme is auto, light or dark.
	Theme string `yaml:"theme"`
}
