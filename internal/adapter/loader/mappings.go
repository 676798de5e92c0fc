package loader

import (
	"fmt"
	"os"

	"github.com/couchcryptid/meteorite-playback/internal/domain"
)

// LoadClassMappings reads a superclass mapping file (YAML or JSON).
func LoadClassMappings(path string) (domain.ClassMappings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, unavailable("read class mappings", path, err)
	}
	m, err := domain.ParseClassMappings(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}
