package local

import (
	"bytes"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"

	"github.com/cochaviz/buildgate/internal/models"
	"github.com/cochaviz/buildgate/internal/validation"
)

// ErrNotFound marks lookups of documents that do not exist.
var ErrNotFound = errors.New("not found")

var errEmptyDocument = errors.New("document is empty")

// Default layout of a project directory.
const (
	DefaultSettingsDir = "buildgate"
	DefaultDataDir     = "data"

	settingsFile = "settings.yaml"
	scenesFile   = "scenes.yaml"
	configsDir   = "configs"
)

// Store reads settings, presets, scenes and content records from YAML documents
// under BaseDir.
type Store struct {
	BaseDir     string
	SettingsDir string
	DataDir     string
}

// NewStore returns a store over root using the default layout.
func NewStore(root string) *Store {
	return &Store{
		BaseDir:     root,
		SettingsDir: DefaultSettingsDir,
		DataDir:     DefaultDataDir,
	}
}

func (s *Store) Root() string {
	return s.BaseDir
}

// SettingsPath returns the location of the build settings document.
func (s *Store) SettingsPath() string {
	return filepath.Join(s.BaseDir, s.settingsDir(), settingsFile)
}

// ConfigPath returns the location of the preset document named ref.
func (s *Store) ConfigPath(ref string) string {
	return filepath.Join(s.BaseDir, s.settingsDir(), configsDir, ref+".yaml")
}

// LoadSettings reads the build settings document.
func (s *Store) LoadSettings() (models.BuildSettings, error) {
	var settings models.BuildSettings
	if err := readDocument(s.SettingsPath(), &settings); err != nil {
		return models.BuildSettings{}, err
	}
	return settings, nil
}

// SaveSettings writes the build settings document.
func (s *Store) SaveSettings(settings models.BuildSettings) error {
	return writeDocument(s.SettingsPath(), settings)
}

// LoadConfig reads the preset named ref.
func (s *Store) LoadConfig(ref string) (models.BuildConfig, error) {
	if err := checkRef(ref); err != nil {
		return models.BuildConfig{}, err
	}
	var config models.BuildConfig
	if err := readDocument(s.ConfigPath(ref), &config); err != nil {
		return models.BuildConfig{}, err
	}
	return config, nil
}

// SaveConfig writes config as the preset named ref.
func (s *Store) SaveConfig(ref string, config models.BuildConfig) error {
	if err := checkRef(ref); err != nil {
		return err
	}
	return writeDocument(s.ConfigPath(ref), config)
}

// ListConfigs returns the names of every stored preset, sorted.
func (s *Store) ListConfigs() ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(s.BaseDir, s.settingsDir(), configsDir))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "list build configs")
	}

	var refs []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}
		refs = append(refs, strings.TrimSuffix(entry.Name(), ".yaml"))
	}
	sort.Strings(refs)
	return refs, nil
}

// Scenes returns the project's scene list. A project without a scene list has
// no scenes.
func (s *Store) Scenes() ([]models.Scene, error) {
	var scenes []models.Scene
	err := readDocument(filepath.Join(s.BaseDir, s.settingsDir(), scenesFile), &scenes)
	if errors.IsAny(err, ErrNotFound, errEmptyDocument) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return scenes, nil
}

// SaveScenes writes the project's scene list.
func (s *Store) SaveScenes(scenes []models.Scene) error {
	return writeDocument(filepath.Join(s.BaseDir, s.settingsDir(), scenesFile), scenes)
}

// EnumerateContentEntities loads every YAML document under the data directory.
// A document that cannot be read or decoded becomes an entry with LoadErr set;
// the walk continues past it.
func (s *Store) EnumerateContentEntities() ([]validation.Entry, error) {
	dataDir := s.DataPath()
	if _, err := os.Stat(dataDir); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "open data directory %s", dataDir)
	}

	var entries []validation.Entry
	err := filepath.WalkDir(dataDir, func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if path == dataDir {
				return walkErr
			}
			entries = append(entries, validation.Entry{Identity: s.identity(path), LoadErr: walkErr})
			if entry != nil && entry.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if entry.IsDir() || !isYAML(entry.Name()) {
			return nil
		}

		var record models.DamageRecord
		if err := readDocument(path, &record); err != nil {
			entries = append(entries, validation.Entry{Identity: s.identity(path), LoadErr: err})
			return nil
		}
		entries = append(entries, validation.Entry{Identity: s.identity(path), Entity: record})
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "walk data directory %s", dataDir)
	}
	return entries, nil
}

// identity returns the slash separated path of a document relative to the root.
func (s *Store) identity(path string) string {
	rel, err := filepath.Rel(s.BaseDir, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

func (s *Store) settingsDir() string {
	if s.SettingsDir == "" {
		return DefaultSettingsDir
	}
	return s.SettingsDir
}

// DataPath returns the data directory, resolved against BaseDir unless absolute.
func (s *Store) DataPath() string {
	dir := s.DataDir
	if dir == "" {
		dir = DefaultDataDir
	}
	if filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(s.BaseDir, dir)
}

func checkRef(ref string) error {
	if strings.TrimSpace(ref) == "" {
		return errors.New("config reference is required")
	}
	if strings.ContainsAny(ref, `/\`) || ref == "." || ref == ".." {
		return errors.Newf("invalid config reference %q", ref)
	}
	return nil
}

func isYAML(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".yaml" || ext == ".yml"
}

// readDocument decodes the YAML document at path into out, rejecting unknown
// fields and empty documents.
func readDocument(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return errors.Mark(errors.Wrapf(err, "%s", path), ErrNotFound)
		}
		return errors.Wrapf(err, "read %s", path)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return errors.Wrapf(errEmptyDocument, "%s", path)
	}

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(out); err != nil {
		return errors.Wrapf(err, "decode %s", path)
	}
	return nil
}

func writeDocument(path string, value any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrapf(err, "create %s", filepath.Dir(path))
	}

	var buf bytes.Buffer
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(value); err != nil {
		return errors.Wrapf(err, "encode %s", path)
	}
	if err := encoder.Close(); err != nil {
		return errors.Wrapf(err, "encode %s", path)
	}

	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return errors.Wrapf(err, "write %s", path)
	}
	return nil
}
