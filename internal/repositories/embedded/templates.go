// Package embedded provides the build config templates shipped with buildgate.
package embedded

import (
	"bytes"
	"embed"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"

	"github.com/cochaviz/buildgate/internal/models"
)

//go:embed templates/*.yaml
var templateFS embed.FS

// ErrTemplateNotFound is returned for unknown template names.
var ErrTemplateNotFound = errors.New("template not found")

// TemplateRepository contains the built-in build config templates, keyed by
// file name without extension. Templates carry no ID.
type TemplateRepository struct {
	templates map[string]models.BuildConfig
	order     []string
}

// NewTemplateRepository parses every embedded template.
func NewTemplateRepository() (*TemplateRepository, error) {
	return loadTemplates(templateFS, "templates")
}

func loadTemplates(fsys fs.FS, dir string) (*TemplateRepository, error) {
	files, err := fs.Glob(fsys, path.Join(dir, "*.yaml"))
	if err != nil {
		return nil, errors.Wrap(err, "list templates")
	}
	sort.Strings(files)

	repo := &TemplateRepository{templates: make(map[string]models.BuildConfig, len(files))}
	for _, file := range files {
		data, err := fs.ReadFile(fsys, file)
		if err != nil {
			return nil, errors.Wrapf(err, "read template %s", file)
		}

		var config models.BuildConfig
		decoder := yaml.NewDecoder(bytes.NewReader(data))
		decoder.KnownFields(true)
		if err := decoder.Decode(&config); err != nil {
			return nil, errors.Wrapf(err, "decode template %s", file)
		}

		name := strings.TrimSuffix(path.Base(file), ".yaml")
		repo.templates[name] = config
		repo.order = append(repo.order, name)
	}
	return repo, nil
}

// Get returns a copy of the template called name with its ID set to id.
func (r *TemplateRepository) Get(name, id string) (models.BuildConfig, error) {
	config, ok := r.templates[name]
	if !ok {
		return models.BuildConfig{}, errors.WithHint(
			errors.Wrapf(ErrTemplateNotFound, "%q", name),
			"available templates: "+strings.Join(r.ListAll(), ", "),
		)
	}
	config.ID = id
	return config, nil
}

// ListAll returns every template name, sorted.
func (r *TemplateRepository) ListAll() []string {
	return append([]string(nil), r.order...)
}

// FilterByTarget returns the names of templates building for target.
func (r *TemplateRepository) FilterByTarget(target models.BuildTarget) []string {
	var names []string
	for _, name := range r.order {
		if r.templates[name].Target == target {
			names = append(names, name)
		}
	}
	return names
}
