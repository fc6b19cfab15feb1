package hook

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/gitvan-dev/gitvan/pkg/logger"
)

var baselineLog = logger.New("hook:baseline")

// FileBaselineStore persists ResultDelta baselines as a flat JSON file.
// No library in the dependency pack offers an embedded key-value store
// suited to a handful of string->string entries, so this is plain
// encoding/json over a single file, guarded by a mutex for concurrent
// evaluations within one process.
type FileBaselineStore struct {
	path string
	mu   sync.Mutex
	data map[string]string
}

// NewFileBaselineStore loads path if it exists, or starts empty.
func NewFileBaselineStore(path string) (*FileBaselineStore, error) {
	s := &FileBaselineStore{path: path, data: make(map[string]string)}
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, err
	}
	if len(raw) == 0 {
		return s, nil
	}
	if err := json.Unmarshal(raw, &s.data); err != nil {
		return nil, err
	}
	return s, nil
}

// Get implements predicate.BaselineStore.
func (s *FileBaselineStore) Get(baselineID string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	hash, ok := s.data[baselineID]
	return hash, ok
}

// Put records hash as baselineID's current baseline and persists the
// change to disk immediately. Callers invoke this only after a
// receipt has been durably written (spec §4.3: "the new hash is
// persisted... after successful receipt write; failures to persist
// leave the baseline unchanged").
func (s *FileBaselineStore) Put(baselineID, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[baselineID] = hash

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	encoded, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(s.path, encoded, 0o644); err != nil {
		baselineLog.Printf("persist baseline %s: %v", baselineID, err)
		return err
	}
	return nil
}
