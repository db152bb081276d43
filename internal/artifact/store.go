package artifact

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/ppiankov/revsent/internal/classify"
	"github.com/ppiankov/revsent/internal/model"
	"github.com/ppiankov/revsent/internal/vectorize"
)

const (
	// CurrentFilename is the stable alias of the most recently published model
	CurrentFilename = "best_sentiment_model.gob.gz"

	fileExt = ".gob.gz"
)

// Store manages artifacts in one directory. The directory is created on the
// first write, not by NewStore.
type Store struct {
	dir string
	mu  sync.Mutex
}

// NewStore returns a store rooted at dir
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the store directory
func (s *Store) Dir() string {
	return s.dir
}

// VersionedFilename returns "{kind}_v{version}.gob.gz"
func VersionedFilename(kind model.ModelKind, version int) string {
	return fmt.Sprintf("%s_v%d%s", kind, version, fileExt)
}

// ParseFilename extracts kind and version from a versioned filename
func ParseFilename(name string) (model.ModelKind, int, bool) {
	if !strings.HasSuffix(name, fileExt) {
		return "", 0, false
	}
	stem := strings.TrimSuffix(name, fileExt)

	idx := strings.LastIndex(stem, "_v")
	if idx <= 0 {
		return "", 0, false
	}
	version, err := strconv.Atoi(stem[idx+2:])
	if err != nil || version <= 0 {
		return "", 0, false
	}
	kind, err := model.ParseModelKind(stem[:idx])
	if err != nil || string(kind) != stem[:idx] {
		return "", 0, false
	}
	return kind, version, true
}

// Path returns the versioned artifact path inside the store
func (s *Store) Path(kind model.ModelKind, version int) string {
	return filepath.Join(s.dir, VersionedFilename(kind, version))
}

// CurrentPath returns the path of the published alias
func (s *Store) CurrentPath() string {
	return filepath.Join(s.dir, CurrentFilename)
}

// SidecarPath returns "{kind}_v{version}{suffix}" inside the store
func (s *Store) SidecarPath(kind model.ModelKind, version int, suffix string) string {
	return filepath.Join(s.dir, fmt.Sprintf("%s_v%d%s", kind, version, suffix))
}

// LatestVersion returns the highest stored version for kind, or 0
func (s *Store) LatestVersion(kind model.ModelKind) (int, error) {
	versions, err := s.scan()
	if err != nil {
		return 0, err
	}
	return versions[kind], nil
}

// PersistVersioned writes the next version of kind and returns its path and version
func (s *Store) PersistVersioned(kind model.ModelKind, vec *vectorize.TfidfVectorizer, clf classify.Classifier, meta Metadata) (string, int, error) {
	if clf != nil && clf.Kind() != kind {
		return "", 0, fmt.Errorf("persist artifact: classifier is %s, not %s", clf.Kind(), kind)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	versions, err := s.scan()
	if err != nil {
		return "", 0, err
	}
	version := versions[kind] + 1
	meta.Version = version

	path := s.Path(kind, version)
	if _, err := save(path, vec, clf, meta); err != nil {
		return "", 0, err
	}
	return path, version, nil
}

// PublishCurrent writes the stable alias consumed by serving
func (s *Store) PublishCurrent(vec *vectorize.TfidfVectorizer, clf classify.Classifier, meta Metadata) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.CurrentPath()
	if _, err := save(path, vec, clf, meta); err != nil {
		return "", err
	}
	return path, nil
}

// List returns the metadata of every versioned artifact, ordered by kind then version.
// Unreadable files are skipped.
func (s *Store) List() ([]Metadata, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read model directory: %w", err)
	}

	var out []Metadata
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if _, _, ok := ParseFilename(entry.Name()); !ok {
			continue
		}
		meta, err := ReadMetadata(filepath.Join(s.dir, entry.Name()))
		if err != nil {
			continue
		}
		out = append(out, *meta)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Kind != out[j].Kind {
			return out[i].Kind < out[j].Kind
		}
		return out[i].Version < out[j].Version
	})
	return out, nil
}

// scan returns the latest version per kind found in the directory
func (s *Store) scan() (map[model.ModelKind]int, error) {
	versions := make(map[model.ModelKind]int)

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return versions, nil
		}
		return nil, fmt.Errorf("read model directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		kind, version, ok := ParseFilename(entry.Name())
		if !ok {
			continue
		}
		if version > versions[kind] {
			versions[kind] = version
		}
	}
	return versions, nil
}
