package catalog

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed flags.yaml
var standardFlags []byte

// StandardItems returns the bundled International Code of Signals catalog.
func StandardItems() ([]Item, error) {
	return ParseItems(standardFlags)
}

// ParseItems decodes a YAML catalog and checks every entry.
func ParseItems(data []byte) ([]Item, error) {
	var items []Item
	if err := yaml.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	if err := normalize(items); err != nil {
		return nil, err
	}
	return items, nil
}

func normalize(items []Item) error {
	keys := make(map[string]struct{}, len(items))
	orders := make(map[int]string, len(items))

	for i := range items {
		it := &items[i]
		it.Key = strings.TrimSpace(it.Key)
		if it.Key == "" {
			return fmt.Errorf("catalog entry %d: missing key", i)
		}
		if it.Name == "" {
			return fmt.Errorf("catalog entry %q: missing name", it.Key)
		}

		t, err := ParseType(string(it.Type))
		if err != nil {
			return fmt.Errorf("catalog entry %q: %w", it.Key, err)
		}
		it.Type = t

		d, err := ParseDifficulty(string(it.Difficulty))
		if err != nil {
			return fmt.Errorf("catalog entry %q: %w", it.Key, err)
		}
		it.Difficulty = d

		if _, dup := keys[it.Key]; dup {
			return fmt.Errorf("catalog entry %q: duplicate key", it.Key)
		}
		keys[it.Key] = struct{}{}

		if other, dup := orders[it.Order]; dup {
			return fmt.Errorf("catalog entries %q and %q share order %d", other, it.Key, it.Order)
		}
		orders[it.Order] = it.Key

		if it.ImagePath == "" {
			it.ImagePath = DefaultImagePath(it.Type, it.Key)
		}
		if it.Colors == nil {
			it.Colors = []string{}
		}
	}
	return nil
}
