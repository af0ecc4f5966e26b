// Package persistence stores small JSON state documents on disk, one
// file per key. It backs checkpoint/resume state for long-running jobs.
package persistence

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"regexp"

	"github.com/fillbot/gofill/pkg/logger"
)

// Service hands out stores bound to a namespaced key.
type Service interface {
	NewStore(prefix, id, tag string) Store
}

// Store persists a single JSON document.
type Store interface {
	Save(data any) error
	Load(data any) error
}

// ErrNotExists is returned by Load when nothing has been saved under
// the store's key yet.
var ErrNotExists = errors.New("persistence: data does not exist")

// JSONFileService keeps one pretty-printed JSON file per store under
// baseDir.
type JSONFileService struct {
	baseDir string
}

func NewJSONFileService(baseDir string) *JSONFileService {
	return &JSONFileService{
		baseDir: baseDir,
	}
}

// NewStore returns the store for key "prefix:id:tag".
func (s *JSONFileService) NewStore(prefix, id, tag string) Store {
	return &JSONFileStore{
		service: s,
		key:     prefix + ":" + id + ":" + tag,
	}
}

// JSONFileStore is a Store backed by a single file.
type JSONFileStore struct {
	service *JSONFileService
	key     string
}

var keySanitizer = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

func (s *JSONFileStore) filePath() string {
	safe := keySanitizer.ReplaceAllString(s.key, "_")
	return filepath.Join(s.service.baseDir, safe+".json")
}

// Save writes the document atomically: marshal to a temp file in the
// same directory, then rename over the target.
func (s *JSONFileStore) Save(data any) error {
	logger.Debugf("[persistence] save key=%s", s.key)
	if err := os.MkdirAll(s.service.baseDir, 0o755); err != nil {
		return err
	}

	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return err
	}

	path := s.filePath()
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Load reads the document into data. A missing or empty file reports
// ErrNotExists.
func (s *JSONFileStore) Load(data any) error {
	logger.Debugf("[persistence] load key=%s", s.key)
	b, err := os.ReadFile(s.filePath())
	if err != nil {
		if os.IsNotExist(err) {
			return ErrNotExists
		}
		return err
	}
	if len(b) == 0 {
		return ErrNotExists
	}
	return json.Unmarshal(b, data)
}
