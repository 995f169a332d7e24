package flexmatch

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed default_catalog.yaml
var defaultCatalogYAML []byte

// Command describes the known phrasings and vocabulary of one assistant
// command. Entries relying solely on variations may have empty keyword sets;
// the keyword tiers then simply never fire.
type Command struct {
	Variations      []string `yaml:"variations"`
	PrimaryKeywords []string `yaml:"primary_keywords"`
	ContextKeywords []string `yaml:"context_keywords"`
	MinConfidence   float64  `yaml:"min_confidence"`
}

// Catalog maps command identifiers to their definitions. It is populated once
// at startup and never mutated afterwards.
type Catalog map[string]Command

// DefaultCatalog returns the catalog embedded in the binary.
func DefaultCatalog() (Catalog, error) {
	return parseCatalog(defaultCatalogYAML)
}

// LoadCatalog reads a catalog from a YAML file. An empty path falls back to
// the embedded default.
func LoadCatalog(path string) (Catalog, error) {
	if path == "" {
		return DefaultCatalog()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog file: %w", err)
	}
	return parseCatalog(data)
}

func parseCatalog(data []byte) (Catalog, error) {
	var raw map[string]Command
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing catalog: %w", err)
	}

	catalog := make(Catalog, len(raw))
	for id, cmd := range raw {
		if err := validateCommand(id, cmd); err != nil {
			return nil, err
		}
		// Variations are compared against normalized messages, so store them
		// normalized. This also makes accent-dropped catalog entries and
		// accent-dropped messages meet in the same canonical form.
		normalized := make([]string, len(cmd.Variations))
		for i, v := range cmd.Variations {
			normalized[i] = Normalize(v)
		}
		cmd.Variations = normalized
		catalog[id] = cmd
	}

	return catalog, nil
}

func validateCommand(id string, cmd Command) error {
	if cmd.MinConfidence < 0 || cmd.MinConfidence > 1 {
		return fmt.Errorf("command %q: min_confidence %v outside [0,1]", id, cmd.MinConfidence)
	}
	if len(cmd.Variations) == 0 && len(cmd.PrimaryKeywords) == 0 {
		return fmt.Errorf("command %q: needs at least one variation or primary keyword", id)
	}
	return nil
}
