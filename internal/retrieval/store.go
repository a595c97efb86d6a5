package retrieval

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

const (
	defaultCacheTTL = 10 * time.Minute
	indexFileExt    = ".json"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Store keeps indexes as JSON files under a directory and caches decoded
// indexes in memory. Saving an index replaces the cached copy.
type Store struct {
	dir    string
	cache  *cache.Cache
	logger *zap.Logger
}

func NewStore(dir string, ttl time.Duration, logger *zap.Logger) *Store {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Store{
		dir:    dir,
		cache:  cache.New(ttl, 2*ttl),
		logger: logger,
	}
}

func (s *Store) path(name string) string {
	return filepath.Join(s.dir, name+indexFileExt)
}

// Load returns the named index or ErrIndexNotFound.
func (s *Store) Load(name string) (*Index, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("empty index name: %w", ErrIndexNotFound)
	}

	if x, found := s.cache.Get(name); found {
		return x.(*Index), nil
	}

	data, err := os.ReadFile(s.path(name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("index %s: %w", name, ErrIndexNotFound)
		}
		return nil, fmt.Errorf("reading index %s: %w", name, err)
	}

	var idx Index
	if err := json.Unmarshal(data, &idx); err != nil {
		return nil, fmt.Errorf("decoding index %s: %w", name, err)
	}

	s.cache.Set(name, &idx, cache.DefaultExpiration)
	s.logger.Debug("index loaded", zap.String("index", name), zap.Int("chunks", len(idx.Chunks)))

	return &idx, nil
}

// Exists reports whether the named index is available.
func (s *Store) Exists(name string) bool {
	if _, found := s.cache.Get(name); found {
		return true
	}
	_, err := os.Stat(s.path(name))
	return err == nil
}

// Save writes the index atomically and refreshes the cache.
func (s *Store) Save(idx *Index) error {
	if idx == nil || strings.TrimSpace(idx.Name) == "" {
		return errors.New("index name is required")
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("creating index dir: %w", err)
	}

	data, err := json.Marshal(idx)
	if err != nil {
		return fmt.Errorf("encoding index %s: %w", idx.Name, err)
	}

	if err := writeFileAtomic(s.path(idx.Name), data); err != nil {
		return fmt.Errorf("writing index %s: %w", idx.Name, err)
	}

	s.cache.Set(idx.Name, idx, cache.DefaultExpiration)
	s.logger.Info("index saved",
		zap.String("index", idx.Name),
		zap.Int("chunks", len(idx.Chunks)),
		zap.String("path", s.path(idx.Name)),
	)

	return nil
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmp.Name(), path)
}
