// Package similarity scores how easily two flags can be confused, either by
// how they look or by what they are called.
package similarity

import (
	"sort"
	"strings"

	"github.com/gokatarajesh/flag-practice/internal/catalog"
)

// Kind selects the scoring function.
type Kind int

const (
	// Visual compares colors, pattern and type. Used for match-mode distractors.
	Visual Kind = iota
	// Semantic compares names and type. Used for learn-mode distractors.
	Semantic
)

func (k Kind) String() string {
	switch k {
	case Visual:
		return "visual"
	case Semantic:
		return "semantic"
	default:
		return "unknown"
	}
}

const (
	visualColorWeight   = 0.5
	visualPatternWeight = 0.3
	visualTypeWeight    = 0.2

	semanticNameWeight = 0.7
	semanticTypeWeight = 0.3
)

// Score returns the similarity of a and b under kind, in [0, 1].
func Score(kind Kind, a, b catalog.Item) float64 {
	if kind == Semantic {
		return SemanticScore(a, b)
	}
	return VisualScore(a, b)
}

// VisualScore weighs color overlap, pattern and type.
func VisualScore(a, b catalog.Item) float64 {
	if a.Key == b.Key {
		return 0
	}
	return visualColorWeight*ColorSimilarity(a.Colors, b.Colors) +
		visualPatternWeight*PatternSimilarity(a.Pattern, b.Pattern) +
		visualTypeWeight*TypeSimilarity(a, b)
}

// SemanticScore weighs name confusion and type.
func SemanticScore(a, b catalog.Item) float64 {
	if a.Key == b.Key {
		return 0
	}
	return semanticNameWeight*NameSimilarity(a.Name, b.Name) +
		semanticTypeWeight*TypeSimilarity(a, b)
}

// ColorSimilarity is the Jaccard index of two color sets, compared without case.
func ColorSimilarity(a, b []string) float64 {
	setA, setB := colorSet(a), colorSet(b)
	if len(setA) == 0 && len(setB) == 0 {
		return 1
	}
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}

	intersection := 0
	for c := range setA {
		if _, ok := setB[c]; ok {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	return float64(intersection) / float64(union)
}

func colorSet(colors []string) map[string]struct{} {
	set := make(map[string]struct{}, len(colors))
	for _, c := range colors {
		c = strings.ToLower(strings.TrimSpace(c))
		if c != "" {
			set[c] = struct{}{}
		}
	}
	return set
}

// PatternSimilarity treats two missing patterns as neutral.
func PatternSimilarity(a, b string) float64 {
	a, b = strings.ToLower(a), strings.ToLower(b)
	switch {
	case a == "" && b == "":
		return 0.5
	case a == "" || b == "":
		return 0
	case a == b:
		return 1
	default:
		return 0.3
	}
}

// TypeSimilarity is 1 for the same type, 0.5 for a shared category.
func TypeSimilarity(a, b catalog.Item) float64 {
	switch {
	case a.Type == b.Type:
		return 1
	case a.Category == b.Category:
		return 0.5
	default:
		return 0
	}
}

// NameSimilarity is a cheap heuristic for names a learner is likely to mix up.
func NameSimilarity(a, b string) float64 {
	a, b = strings.ToLower(a), strings.ToLower(b)
	if a == "" || b == "" {
		return 0
	}
	ra, rb := []rune(a), []rune(b)

	score := 0.0
	if ra[0] == rb[0] {
		score += 0.4
	}

	diff := len(ra) - len(rb)
	if diff < 0 {
		diff = -diff
	}
	switch {
	case diff == 0:
		score += 0.3
	case diff <= 2:
		score += 0.15
	}

	if strings.Contains(b, prefix(ra, 3)) || strings.Contains(a, prefix(rb, 3)) {
		score += 0.3
	}

	if score > 1 {
		return 1
	}
	return score
}

func prefix(r []rune, n int) string {
	if len(r) < n {
		return string(r)
	}
	return string(r[:n])
}

// Scored pairs a candidate with its similarity to a target.
type Scored struct {
	Item  catalog.Item
	Score float64
}

// Rank scores every candidate against target and sorts them best first. The
// target itself is dropped. Equal scores keep the candidates' input order.
func Rank(kind Kind, target catalog.Item, candidates []catalog.Item) []Scored {
	ranked := make([]Scored, 0, len(candidates))
	for _, c := range candidates {
		if c.Key == target.Key {
			continue
		}
		ranked = append(ranked, Scored{Item: c, Score: Score(kind, target, c)})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	return ranked
}
