package vocabulary

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/spigell/hh-matcher/internal/apperr"
)

//go:embed synonyms.yaml
var defaultTable []byte

// Table is the on-disk vocabulary: synonym entries plus cross-script translations.
type Table struct {
	Synonyms     []Entry           `yaml:"synonyms"`
	Translations map[string]string `yaml:"translations"`
}

// Entry is one equivalence class of skill spellings.
type Entry struct {
	Canonical string   `yaml:"canonical"`
	Forms     []string `yaml:"forms"`
}

// DefaultTable returns the vocabulary compiled into the binary.
func DefaultTable() (*Table, error) {
	return ParseTable(defaultTable)
}

// LoadTable reads a vocabulary from path. An empty path yields the default table.
func LoadTable(path string) (*Table, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return DefaultTable()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading vocabulary %q: %w", apperr.ErrConfiguration, path, err)
	}

	table, err := ParseTable(data)
	if err != nil {
		return nil, fmt.Errorf("vocabulary %q: %w", path, err)
	}

	return table, nil
}

// ParseTable decodes a YAML vocabulary document.
func ParseTable(data []byte) (*Table, error) {
	var table Table
	if err := yaml.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("%w: decoding vocabulary: %w", apperr.ErrConfiguration, err)
	}
	return &table, nil
}
