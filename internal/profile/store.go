package profile

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	jsoniter "github.com/json-iterator/go"
)

const DefaultKey = "default"

var (
	ErrNotFound   = errors.New("profile not found")
	ErrInvalidKey = errors.New("invalid profile key")

	json     = jsoniter.ConfigCompatibleWithStandardLibrary
	keyRegex = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)
)

// Store loads and saves profiles by user key.
type Store interface {
	// Load returns the decoded profile and the raw stored document.
	Load(key string) (*Profile, []byte, error)
	Save(key string, p *Profile) error
}

// FileStore keeps one JSON document per key under a directory. Writes are
// serialized and atomic; the last write wins.
type FileStore struct {
	dir string
	mu  sync.Mutex
}

func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

func (s *FileStore) path(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		key = DefaultKey
	}
	if !keyRegex.MatchString(key) || strings.Trim(key, ".") == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return filepath.Join(s.dir, key+".json"), nil
}

func (s *FileStore) Load(key string) (*Profile, []byte, error) {
	path, err := s.path(key)
	if err != nil {
		return nil, nil, err
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil, fmt.Errorf("profile %q: %w", key, ErrNotFound)
		}
		return nil, nil, fmt.Errorf("reading profile %q: %w", key, err)
	}

	p, err := Decode(raw)
	if err != nil {
		return nil, nil, fmt.Errorf("profile %q: %w", key, err)
	}

	return p, raw, nil
}

func (s *FileStore) Save(key string, p *Profile) error {
	if p == nil {
		return errors.New("profile is required")
	}

	path, err := s.path(key)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding profile: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("creating profile dir: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("saving profile %q: %w", key, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("saving profile %q: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("saving profile %q: %w", key, err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("saving profile %q: %w", key, err)
	}

	return nil
}

// Decode parses a profile document. A document without a name and without
// any section is rejected.
func Decode(raw []byte) (*Profile, error) {
	var p Profile
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("decoding profile: %w", err)
	}

	if strings.TrimSpace(p.Name) == "" && len(p.Education) == 0 && len(p.Experience) == 0 && len(p.Achievements) == 0 {
		return nil, errors.New("decoding profile: document has no name and no sections")
	}

	return &p, nil
}
