package triage

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/opencivic/civictriage/internal/models"
)

// Rules is an optional keyword-table override, loaded once at startup.
// Categories absent from the file keep their built-in keyword lists.
type Rules struct {
	Keywords map[models.Category][]string `yaml:"keywords"`
}

// LoadRules reads a YAML rules file and merges it over the built-in
// keyword table. The returned table is handed to NewWithKeywords and
// never mutated afterwards.
func LoadRules(path string) (map[models.Category][]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules file: %w", err)
	}

	var rules Rules
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("parse rules file: %w", err)
	}

	merged := make(map[models.Category][]string, len(defaultKeywords))
	for category, words := range defaultKeywords {
		merged[category] = words
	}
	for category, words := range rules.Keywords {
		if !category.Valid() {
			return nil, fmt.Errorf("rules file references unknown category %q", category)
		}
		if len(words) == 0 {
			return nil, fmt.Errorf("rules file has empty keyword list for category %q", category)
		}
		merged[category] = words
	}

	return merged, nil
}
