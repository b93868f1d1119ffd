package analysis

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// ModelStore persists derived models as JSON files, one per name.
type ModelStore struct {
	dataDir string
}

// NewModelStore creates a new model store rooted at dataDir
func NewModelStore(dataDir string) *ModelStore {
	return &ModelStore{dataDir: dataDir}
}

func (s *ModelStore) path(name string) string {
	return filepath.Join(s.dataDir, fmt.Sprintf("%s.json", name))
}

// Load reads the model saved under name.
func (s *ModelStore) Load(name string) (*Model, error) {
	file, err := os.Open(s.path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrModelNotFound, name)
		}
		return nil, fmt.Errorf("failed to open model file: %w", err)
	}
	defer file.Close()

	var m Model
	if err := json.NewDecoder(file).Decode(&m); err != nil {
		return nil, fmt.Errorf("failed to decode model: %w", err)
	}

	return &m, nil
}

// Save writes m under name, creating directories as needed.
func (s *ModelStore) Save(name string, m *Model) error {
	if m == nil {
		return fmt.Errorf("model is required")
	}

	filePath := s.path(name)
	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return fmt.Errorf("failed to create model directory: %w", err)
	}

	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create model file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(m); err != nil {
		return fmt.Errorf("failed to encode model: %w", err)
	}

	return nil
}
