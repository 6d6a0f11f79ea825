package embedded

import (
	"testing"
	"testing/fstest"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cochaviz/buildgate/internal/models"
)

func TestRepositoryHasEntries(t *testing.T) {
	repo, err := NewTemplateRepository()
	require.NoError(t, err)

	names := repo.ListAll()
	assert.Contains(t, names, "windows64")
	assert.IsIncreasing(t, names)
}

func TestEveryTemplateIsValidOnceNamed(t *testing.T) {
	repo, err := NewTemplateRepository()
	require.NoError(t, err)

	for _, name := range repo.ListAll() {
		config, err := repo.Get(name, "release")
		require.NoError(t, err, name)
		assert.Equal(t, "release", config.ID)

		outcome := config.Validate()
		assert.True(t, outcome.Valid(), "%s: %v", name, outcome.Messages)
	}
}

func TestDefaultTemplateMatchesAuthoringDefaults(t *testing.T) {
	repo, err := NewTemplateRepository()
	require.NoError(t, err)

	config, err := repo.Get("windows64", "release")
	require.NoError(t, err)
	assert.Equal(t, models.NewBuildConfig("release"), config)
}

func TestFilterByTarget(t *testing.T) {
	repo, err := NewTemplateRepository()
	require.NoError(t, err)

	assert.Equal(t, []string{"android"}, repo.FilterByTarget(models.Android))
	assert.ElementsMatch(t, []string{"steam-dev", "windows64"}, repo.FilterByTarget(models.StandaloneWindows64))
	assert.Empty(t, repo.FilterByTarget(models.NoTarget))
}

func TestGetUnknownTemplate(t *testing.T) {
	repo, err := NewTemplateRepository()
	require.NoError(t, err)

	_, err = repo.Get("switch", "release")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTemplateNotFound))
	assert.Contains(t, errors.FlattenHints(err), "windows64")
}

func TestLoadTemplatesRejectsUnknownFields(t *testing.T) {
	fsys := fstest.MapFS{
		"templates/bad.yaml": {Data: []byte("target: WebGL\nplatform: web\n")},
	}

	_, err := loadTemplates(fsys, "templates")
	assert.Error(t, err)
}
