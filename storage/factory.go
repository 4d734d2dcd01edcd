package storage

import (
	"fmt"
	"path/filepath"

	"github.com/lixenwraith/synth-evolve/parameter"
)

// Backend names accepted by NewStore
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// NewStore creates an uninitialized store of the given kind rooted at dir
func NewStore(kind, dir string) (Store, error) {
	switch kind {
	case BackendMemory:
		return NewMemoryStore(), nil
	case "", BackendFile:
		return NewFileStore(dir), nil
	case BackendSQLite:
		return NewSQLiteStore(filepath.Join(dir, parameter.SQLiteFileName)), nil
	default:
		return nil, fmt.Errorf("unsupported store backend: %s", kind)
	}
}
