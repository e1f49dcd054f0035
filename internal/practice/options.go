package practice

import (
	"fmt"

	"github.com/gokatarajesh/flag-practice/internal/catalog"
	"github.com/gokatarajesh/flag-practice/internal/practice/shuffle"
	"github.com/gokatarajesh/flag-practice/internal/practice/similarity"
)

const distractorCount = shuffle.OptionCount - 1

// MinCatalogSize is the smallest catalog that can produce a question.
const MinCatalogSize = shuffle.OptionCount

func optionID(i int) string { return fmt.Sprintf("opt_%d", i) }

func similarityKind(mode Mode) similarity.Kind {
	switch mode {
	case ModeMatch:
		return similarity.Visual
	case ModeLearn:
		return similarity.Semantic
	default:
		panic(fmt.Sprintf("practice: unhandled mode %q", mode))
	}
}

// BuildOptions builds the four options for target, placing the correct
// answer at slot and the three most similar pool items in the other slots.
// It returns the options and the id of the correct one.
func BuildOptions(target catalog.Item, pool []catalog.Item, mode Mode, slot int) ([]Option, string, error) {
	if len(pool) < MinCatalogSize {
		return nil, "", fmt.Errorf("%w: need at least %d flags, have %d", ErrDataIntegrity, MinCatalogSize, len(pool))
	}
	if slot < 0 || slot >= shuffle.OptionCount {
		return nil, "", fmt.Errorf("%w: answer slot %d out of range", ErrGeneration, slot)
	}
	if mode != ModeLearn && mode != ModeMatch {
		return nil, "", &ValidationError{Field: "mode", Message: fmt.Sprintf("unknown mode %q", mode)}
	}

	ranked := similarity.Rank(similarityKind(mode), target, pool)
	var distractors []catalog.Item
	if len(ranked) >= distractorCount {
		distractors = make([]catalog.Item, 0, distractorCount)
		for _, r := range ranked[:distractorCount] {
			distractors = append(distractors, r.Item)
		}
	} else {
		others := make([]catalog.Item, 0, len(pool))
		for _, it := range pool {
			if it.Key != target.Key {
				others = append(others, it)
			}
		}
		picked, err := shuffle.Sample(others, min(distractorCount, len(others)))
		if err != nil {
			return nil, "", fmt.Errorf("%w: %v", ErrGeneration, err)
		}
		distractors = picked
	}
	if len(distractors) < distractorCount {
		return nil, "", fmt.Errorf("%w: only %d distractors available for %q", ErrGeneration, len(distractors), target.Key)
	}

	options := make([]Option, shuffle.OptionCount)
	options[slot] = optionFor(target, mode)
	next := 0
	for i := range options {
		if i == slot {
			continue
		}
		options[i] = optionFor(distractors[next], mode)
		next++
	}
	for i := range options {
		options[i].ID = optionID(i)
	}

	correct := optionID(slot)
	if err := ValidateOptions(options, correct, mode); err != nil {
		return nil, "", err
	}
	return options, correct, nil
}

func optionFor(it catalog.Item, mode Mode) Option {
	if mode == ModeMatch {
		return Option{Value: it.Key, ImagePath: it.ImagePath}
	}
	return Option{Label: it.Name, Value: it.Key}
}

// ValidateOptions checks the structural rules every generated question obeys:
// four options with distinct values, the correct id among them, and each
// option carrying what its mode renders (a label for learn, an image for match).
func ValidateOptions(options []Option, correct string, mode Mode) error {
	if len(options) != shuffle.OptionCount {
		return fmt.Errorf("%w: expected %d options, got %d", ErrGeneration, shuffle.OptionCount, len(options))
	}

	values := make(map[string]struct{}, len(options))
	hasCorrect := false
	for i, o := range options {
		if o.ID == "" || o.Value == "" {
			return fmt.Errorf("%w: option %d missing id or value", ErrGeneration, i)
		}
		switch mode {
		case ModeLearn:
			if o.Label == "" {
				return fmt.Errorf("%w: option %d missing label", ErrGeneration, i)
			}
		case ModeMatch:
			if o.ImagePath == "" {
				return fmt.Errorf("%w: option %d missing image", ErrGeneration, i)
			}
		}
		if _, dup := values[o.Value]; dup {
			return fmt.Errorf("%w: duplicate option value %q", ErrGeneration, o.Value)
		}
		values[o.Value] = struct{}{}
		if o.ID == correct {
			hasCorrect = true
		}
	}
	if !hasCorrect {
		return fmt.Errorf("%w: correct answer %q not among options", ErrGeneration, correct)
	}
	return nil
}
