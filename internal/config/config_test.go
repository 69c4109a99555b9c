package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"obbycal/internal/config"
)

func Test_Load_Creates_Default_Config_On_First_Run(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg, err := config.Load(path)
	require.NoError(t, err)
	require.FileExists(t, path)
	require.Empty(t, cmp.Diff(config.DefaultConfig(), cfg))

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func Test_Load_Normalizes_Partial_Configs(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yaml")
	partial := "data_dir: /tmp/obby\ncategories:\n  - path: work\n"
	require.NoError(t, os.WriteFile(path, []byte(partial), 0o600))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	require.Equal(t, "/tmp/obby", cfg.DataDir)
	require.Equal(t, "127.0.0.1:8080", cfg.Listen)
	require.Equal(t, "*/5 * * * *", cfg.RefreshCron)
	require.Equal(t, "right", cfg.TaskSidebarPosition)
	require.NotEmpty(t, cfg.Categories[0].Color, "missing colors are filled from the palette")
}

func Test_Save_Load_Round_Trips(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := config.DefaultConfig()
	cfg.Categories = append(cfg.Categories, config.CategoryConfig{Path: "work", Color: "#ff006e"})
	cfg.BasicAuth = &config.BasicAuthConfig{Username: "u", Password: "p"}

	require.NoError(t, cfg.Save(path))

	got, err := config.Load(path)
	require.NoError(t, err)
	require.Empty(t, cmp.Diff(cfg, got))
}

func Test_DefaultCategory_Skips_Empty_Paths(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{Categories: []config.CategoryConfig{
		{Path: ""},
		{Path: "work", Color: "#3a86ff"},
	}}
	def, ok := cfg.DefaultCategory()
	require.True(t, ok)
	require.Equal(t, "work", def.Path)

	empty := &config.Config{}
	_, ok = empty.DefaultCategory()
	require.False(t, ok)
}

func Test_PickColor_Prefers_Unused_Palette_Entries(t *testing.T) {
	t.Parallel()

	var used []config.CategoryConfig
	for _, c := range config.DefaultColors[:len(config.DefaultColors)-1] {
		used = append(used, config.CategoryConfig{Color: c})
	}
	// One palette slot left; it must be picked.
	last := config.DefaultColors[len(config.DefaultColors)-1]
	require.Equal(t, last, config.PickColor(used))
}
