// Package config provides the YAML configuration model with full
// load/save behavior, including first-run config creation and 0600
// permissions on the config file.
package config

import (
	"errors"
	"io/fs"
	"math/rand"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// CategoryConfig describes one category folder records belong to, and the
// color its calendar instances are rendered in.
type CategoryConfig struct {
	// Path is the category folder path, relative to the data directory
	// (e.g. "calendar/work").
	Path string `yaml:"path" json:"path"`
	// Color is the category's background color as "#rrggbb".
	Color string `yaml:"color" json:"color"`
}

// ICSConfig describes a read-only external ICS subscription.
type ICSConfig struct {
	URL   string `yaml:"url" json:"url"`
	ID    string `yaml:"id" json:"id"`
	Name  string `yaml:"name" json:"name"`
	Color string `yaml:"color" json:"color"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the API.
	Listen string `yaml:"listen" json:"listen"`

	// DataDir is the root directory of the record store.
	DataDir string `yaml:"data_dir" json:"data_dir"`

	// RefreshCron schedules the periodic reload+expansion cycle
	// (e.g. "*/5 * * * *").
	RefreshCron string `yaml:"refresh" json:"refresh"`

	// Categories is the ordered list of category folders. The first
	// entry is the default target for new records.
	Categories []CategoryConfig `yaml:"categories" json:"categories"`

	// ShowCompletedInSidebar keeps completed tasks visible in the
	// sidebar aggregation.
	ShowCompletedInSidebar bool `yaml:"show_completed_in_sidebar" json:"show_completed_in_sidebar"`

	// TaskSidebarPosition is "left" or "right".
	TaskSidebarPosition string `yaml:"task_sidebar_position" json:"task_sidebar_position"`

	// ICS is the list of subscribed external calendars (read-only).
	ICS []ICSConfig `yaml:"ics" json:"ics"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all
	// endpoints except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultColors is the palette new categories draw from.
var DefaultColors = []string{
	"#3a86ff", "#ff006e", "#fb5607", "#ffbe0b", "#8338ec", "#3a5a40", "#2ec4b6",
}

// PickColor returns a palette color not yet used by the given categories,
// falling back to a random palette entry when all are taken.
func PickColor(existing []CategoryConfig) string {
	used := make(map[string]bool, len(existing))
	for _, c := range existing {
		used[c.Color] = true
	}
	var free []string
	for _, c := range DefaultColors {
		if !used[c] {
			free = append(free, c)
		}
	}
	if len(free) == 0 {
		free = DefaultColors
	}
	return free[rand.Intn(len(free))]
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:      "127.0.0.1:8080",
		DataDir:     "./data",
		RefreshCron: "*/5 * * * *",
		Categories: []CategoryConfig{
			{Path: "calendar-data", Color: DefaultColors[0]},
		},
		ShowCompletedInSidebar: true,
		TaskSidebarPosition:    "right",
		ICS:                    []ICSConfig{},
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = "127.0.0.1:8080"
	}
	if c.DataDir == "" {
		c.DataDir = "./data"
	}
	if c.RefreshCron == "" {
		c.RefreshCron = "*/5 * * * *"
	}
	switch c.TaskSidebarPosition {
	case "left", "right":
	default:
		c.TaskSidebarPosition = "right"
	}
	if c.Categories == nil {
		c.Categories = []CategoryConfig{}
	}
	for i := range c.Categories {
		if c.Categories[i].Color == "" {
			c.Categories[i].Color = PickColor(c.Categories[:i])
		}
	}
	if c.ICS == nil {
		c.ICS = []ICSConfig{}
	}
}

// DefaultCategory returns the category new records fall back to when none
// is specified: the first configured one. ok is false when no category
// with a non-empty path exists.
func (c *Config) DefaultCategory() (CategoryConfig, bool) {
	for _, cat := range c.Categories {
		if cat.Path != "" {
			return cat, true
		}
	}
	return CategoryConfig{}, false
}

// CategoryByPath finds the configured category with the given path.
func (c *Config) CategoryByPath(path string) (CategoryConfig, bool) {
	for _, cat := range c.Categories {
		if cat.Path == path {
			return cat, true
		}
	}
	return CategoryConfig{}, false
}

// Load loads configuration from the given YAML path.
//
// If the file does not exist, a default config is written there (creating
// the parent directory) and returned.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()
	return &cfg, nil
}

// Save writes the configuration atomically (temp file + rename) with 0600
// permissions, creating the parent directory as needed.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".obbycal-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// Save delegates to the package-level Save.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
