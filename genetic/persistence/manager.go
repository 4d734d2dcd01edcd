package persistence

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// ErrNoSnapshot is returned by Load when no snapshot with the given name exists
var ErrNoSnapshot = errors.New("population snapshot not found")

// Manager handles save/load for population snapshots
type Manager struct {
	basePath string
}

// NewManager creates a manager with the given base directory
func NewManager(basePath string) *Manager {
	return &Manager{basePath: basePath}
}

// FilePath returns the path for a named snapshot
func (m *Manager) FilePath(name string) string {
	return filepath.Join(m.basePath, name+".toml")
}

// Exists checks if a snapshot file exists
func (m *Manager) Exists(name string) bool {
	_, err := os.Stat(m.FilePath(name))
	return err == nil
}

// Save writes a snapshot to disk through a temp file and rename
func (m *Manager) Save(name string, dto PopulationDTO) error {
	if err := os.MkdirAll(m.basePath, 0755); err != nil {
		return err
	}

	data, err := toml.Marshal(dto)
	if err != nil {
		return fmt.Errorf("encode snapshot %s: %w", name, err)
	}

	path := m.FilePath(name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Load reads a snapshot from disk
func (m *Manager) Load(name string) (PopulationDTO, error) {
	var dto PopulationDTO

	data, err := os.ReadFile(m.FilePath(name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return dto, ErrNoSnapshot
		}
		return dto, err
	}

	if err := toml.Unmarshal(data, &dto); err != nil {
		return dto, fmt.Errorf("decode snapshot %s: %w", name, err)
	}

	return dto, nil
}

// List returns snapshot names in the base directory
func (m *Manager) List() ([]string, error) {
	entries, err := os.ReadDir(m.basePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".toml") {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), ".toml"))
	}
	return names, nil
}
