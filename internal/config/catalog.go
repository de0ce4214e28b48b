package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kirillkom/athlete-rag/internal/core/domain"
)

type catalogFile struct {
	Entities []string `yaml:"entities"`
}

// LoadEntityCatalog reads the athlete roster from a YAML file of the form
//
//	entities:
//	  - Manny Pacquiao
//	  - Nonito Donaire
//
// An empty path yields the built-in roster.
func LoadEntityCatalog(path string) (*domain.EntityCatalog, error) {
	if strings.TrimSpace(path) == "" {
		return domain.NewEntityCatalog(domain.DefaultEntities...)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read entity catalog: %w", err)
	}
	var file catalogFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse entity catalog %s: %w", path, err)
	}
	if len(file.Entities) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "entity catalog", fmt.Errorf("%s lists no entities", path))
	}
	return domain.NewEntityCatalog(file.Entities...)
}
