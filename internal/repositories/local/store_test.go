package local

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cochaviz/buildgate/internal/models"
	"github.com/cochaviz/buildgate/internal/validation"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestSettingsRoundTrip(t *testing.T) {
	store := NewStore(t.TempDir())

	_, err := store.LoadSettings()
	assert.True(t, errors.Is(err, ErrNotFound))

	require.NoError(t, store.SaveSettings(models.BuildSettings{CurrentConfig: "release"}))

	settings, err := store.LoadSettings()
	require.NoError(t, err)
	assert.Equal(t, "release", settings.CurrentConfig)
}

func TestLoadConfig(t *testing.T) {
	root := t.TempDir()
	store := NewStore(root)
	writeFile(t, filepath.Join(root, "buildgate", "configs", "release.yaml"), `
id: release
storefront: steam
cheats_enabled: false
target: StandaloneWindows64
build_path: build/Game.exe
development: true
`)

	config, err := store.LoadConfig("release")
	require.NoError(t, err)
	assert.Equal(t, models.BuildConfig{
		ID:          "release",
		Storefront:  models.StorefrontSteam,
		Target:      models.StandaloneWindows64,
		BuildPath:   "build/Game.exe",
		Development: true,
	}, config)

	_, err = store.LoadConfig("missing")
	assert.True(t, errors.Is(err, ErrNotFound))

	_, err = store.LoadConfig("../escape")
	assert.Error(t, err)
	assert.False(t, errors.Is(err, ErrNotFound))
}

func TestLoadConfigRejectsUnknownFields(t *testing.T) {
	root := t.TempDir()
	store := NewStore(root)
	writeFile(t, filepath.Join(root, "buildgate", "configs", "typo.yaml"), "id: typo\nbuild_pth: build/x.exe\n")

	_, err := store.LoadConfig("typo")
	assert.Error(t, err)
}

func TestSaveAndListConfigs(t *testing.T) {
	store := NewStore(t.TempDir())

	require.NoError(t, store.SaveConfig("release", models.NewBuildConfig("release")))
	require.NoError(t, store.SaveConfig("dev", models.NewBuildConfig("dev")))

	refs, err := store.ListConfigs()
	require.NoError(t, err)
	assert.Equal(t, []string{"dev", "release"}, refs)

	config, err := store.LoadConfig("dev")
	require.NoError(t, err)
	assert.Equal(t, models.NewBuildConfig("dev"), config)
}

func TestScenes(t *testing.T) {
	root := t.TempDir()
	store := NewStore(root)

	scenes, err := store.Scenes()
	require.NoError(t, err)
	assert.Empty(t, scenes)

	writeFile(t, filepath.Join(root, "buildgate", "scenes.yaml"), "")
	scenes, err = store.Scenes()
	require.NoError(t, err)
	assert.Empty(t, scenes)

	require.NoError(t, store.SaveScenes([]models.Scene{
		{Path: "Scenes/Boot.unity", Enabled: true},
		{Path: "Scenes/Test.unity"},
	}))
	scenes, err = store.Scenes()
	require.NoError(t, err)
	assert.Equal(t, []string{"Scenes/Boot.unity"}, models.EnabledScenePaths(scenes))
}

func TestEnumerateContentEntities(t *testing.T) {
	root := t.TempDir()
	store := NewStore(root)
	writeFile(t, filepath.Join(root, "data", "weapons", "sword.yaml"), "id: sword\ndamage: 4\ndamage_message: Slashes\n")
	writeFile(t, filepath.Join(root, "data", "spells", "fireball.yml"), "id: fireball\ndamage: 5\n")
	writeFile(t, filepath.Join(root, "data", "broken.yaml"), "id: [unterminated\n")
	writeFile(t, filepath.Join(root, "data", "empty.yaml"), "")
	writeFile(t, filepath.Join(root, "data", "README.md"), "# not content\n")

	entries, err := store.EnumerateContentEntities()
	require.NoError(t, err)

	identities := make([]string, 0, len(entries))
	for _, entry := range entries {
		identities = append(identities, entry.Identity)
	}
	assert.Equal(t, []string{
		"data/broken.yaml",
		"data/empty.yaml",
		"data/spells/fireball.yml",
		"data/weapons/sword.yaml",
	}, identities)

	assert.Error(t, entries[0].LoadErr)
	assert.Nil(t, entries[0].Entity)
	assert.Error(t, entries[1].LoadErr)
	assert.Equal(t, models.DamageRecord{ID: "fireball", Damage: 5}, entries[2].Entity)

	summary := validation.ValidateAll(entries, nil)
	assert.Len(t, summary.Failures, 3)
}

func TestEnumerateWithoutDataDirectory(t *testing.T) {
	entries, err := NewStore(t.TempDir()).EnumerateContentEntities()

	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestEnumerateIsDeterministic(t *testing.T) {
	root := t.TempDir()
	store := NewStore(root)
	writeFile(t, filepath.Join(root, "data", "b.yaml"), "id: b\ndamage: 1\n")
	writeFile(t, filepath.Join(root, "data", "a.yaml"), "damage: 0\n")

	first := validation.ValidateAll(validation.Collect(store.EnumerateContentEntities), nil)
	second := validation.ValidateAll(validation.Collect(store.EnumerateContentEntities), nil)

	assert.Equal(t, first, second)
	assert.False(t, first.Passed())
}
