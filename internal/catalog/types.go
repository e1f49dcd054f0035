package catalog

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Type classifies a signal flag.
type Type string

const (
	TypeFlagLetter     Type = "flag-letter"
	TypeFlagNumber     Type = "flag-number"
	TypePennantNumber  Type = "pennant-number"
	TypeSpecialPennant Type = "special-pennant"
	TypeSubstitute     Type = "substitute"
)

// Types lists every classification in declaration order.
var Types = []Type{TypeFlagLetter, TypeFlagNumber, TypePennantNumber, TypeSpecialPennant, TypeSubstitute}

// ParseType validates a raw classification value.
func ParseType(raw string) (Type, error) {
	switch t := Type(strings.TrimSpace(raw)); t {
	case TypeFlagLetter, TypeFlagNumber, TypePennantNumber, TypeSpecialPennant, TypeSubstitute:
		return t, nil
	default:
		return "", fmt.Errorf("unknown flag type %q", raw)
	}
}

// Difficulty is an optional learning tier.
type Difficulty string

const (
	DifficultyNone         Difficulty = ""
	DifficultyBeginner     Difficulty = "beginner"
	DifficultyIntermediate Difficulty = "intermediate"
	DifficultyAdvanced     Difficulty = "advanced"
)

// ParseDifficulty accepts an empty value as "no tier".
func ParseDifficulty(raw string) (Difficulty, error) {
	switch d := Difficulty(strings.TrimSpace(raw)); d {
	case DifficultyNone, DifficultyBeginner, DifficultyIntermediate, DifficultyAdvanced:
		return d, nil
	default:
		return "", fmt.Errorf("unknown difficulty %q", raw)
	}
}

// Item is one reference flag. Empty Pattern, Tips and Phonetic mean absent.
type Item struct {
	ID          uuid.UUID  `json:"id" yaml:"-"`
	Key         string     `json:"key" yaml:"key"`
	Type        Type       `json:"type" yaml:"type"`
	Category    string     `json:"category" yaml:"category"`
	Name        string     `json:"name" yaml:"name"`
	Meaning     string     `json:"meaning" yaml:"meaning"`
	Description string     `json:"description" yaml:"description"`
	ImagePath   string     `json:"image_path" yaml:"image_path"`
	Colors      []string   `json:"colors" yaml:"colors"`
	Pattern     string     `json:"pattern,omitempty" yaml:"pattern"`
	Tips        string     `json:"tips,omitempty" yaml:"tips"`
	Phonetic    string     `json:"phonetic,omitempty" yaml:"phonetic"`
	Difficulty  Difficulty `json:"difficulty,omitempty" yaml:"difficulty"`
	Order       int        `json:"order" yaml:"order"`
}

// DefaultImagePath is where the static asset for a flag lives when the
// catalog entry does not name one.
func DefaultImagePath(t Type, key string) string {
	return fmt.Sprintf("/signals/flags/%ss/%s.svg", t, key)
}
