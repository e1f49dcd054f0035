package practice

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/flag-practice/internal/catalog"
	"github.com/gokatarajesh/flag-practice/internal/practice/shuffle"
)

const (
	defaultWarnThreshold    = 2 * time.Second
	defaultMaxSessionLength = 100
)

// CatalogReader is the slice of the catalog the engine depends on.
type CatalogReader interface {
	List(ctx context.Context) ([]catalog.Item, error)
	GetByID(ctx context.Context, id uuid.UUID) (catalog.Item, error)
}

// GeneratorOptions tunes question generation.
type GeneratorOptions struct {
	WarnThreshold    time.Duration
	MaxSessionLength int
}

// Generator builds the immutable question sequence of a new session.
type Generator struct {
	catalog CatalogReader
	opts    GeneratorOptions
	metrics *Metrics
	logger  zerolog.Logger
	now     func() time.Time
}

func NewGenerator(reader CatalogReader, opts GeneratorOptions, metrics *Metrics, logger zerolog.Logger) *Generator {
	if opts.WarnThreshold <= 0 {
		opts.WarnThreshold = defaultWarnThreshold
	}
	if opts.MaxSessionLength <= 0 {
		opts.MaxSessionLength = defaultMaxSessionLength
	}
	return &Generator{
		catalog: reader,
		opts:    opts,
		metrics: metrics,
		logger:  logger.With().Str("component", "practice_generator").Logger(),
		now:     time.Now,
	}
}

// CreateRequest carries the learner's session choices.
type CreateRequest struct {
	Mode   Mode   `json:"mode" validate:"required,oneof=learn match"`
	Length Length `json:"length"`
	Seed   *int64 `json:"seed,omitempty"`
}

// Validate checks mode and length bounds and stores the normalized mode.
func (r *CreateRequest) Validate(maxLength int) error {
	mode, err := ParseMode(string(r.Mode))
	if err != nil {
		return err
	}
	r.Mode = mode
	if r.Length.All {
		return nil
	}
	if r.Length.Count <= 0 {
		return &ValidationError{Field: "length", Message: "length must be positive"}
	}
	if r.Length.Count > maxLength {
		return &ValidationError{Field: "length", Message: fmt.Sprintf("length must not exceed %d", maxLength)}
	}
	return nil
}

// GeneratedSet is the output of one generation run.
type GeneratedSet struct {
	FlagIDs   []uuid.UUID
	Questions []Question
	Duration  time.Duration
}

// Generate selects items and builds one question per item. Any failure
// discards the whole set.
func (g *Generator) Generate(ctx context.Context, req CreateRequest) (*GeneratedSet, error) {
	if err := req.Validate(g.opts.MaxSessionLength); err != nil {
		return nil, err
	}

	start := g.now()
	items, err := g.catalog.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	if len(items) < MinCatalogSize {
		return nil, fmt.Errorf("%w: need at least %d flags, have %d", ErrDataIntegrity, MinCatalogSize, len(items))
	}

	selected, err := g.selectItems(items, req)
	if err != nil {
		return nil, err
	}

	var positions []int
	if req.Seed != nil {
		positions = shuffle.DistributeAnswerPositionsSeeded(*req.Seed, len(selected))
	} else {
		positions = shuffle.DistributeAnswerPositions(len(selected))
	}

	set := &GeneratedSet{
		FlagIDs:   make([]uuid.UUID, len(selected)),
		Questions: make([]Question, len(selected)),
	}
	for i, target := range selected {
		options, correct, err := BuildOptions(target, items, req.Mode, positions[i])
		if err != nil {
			if !errors.Is(err, ErrDataIntegrity) && !errors.Is(err, ErrGeneration) && !errors.Is(err, ErrValidation) {
				err = fmt.Errorf("%w: %v", ErrGeneration, err)
			}
			return nil, fmt.Errorf("question %d (%s): %w", i, target.Key, err)
		}
		set.FlagIDs[i] = target.ID
		set.Questions[i] = Question{
			FlagID:        target.ID,
			Mode:          req.Mode,
			Options:       options,
			CorrectAnswer: correct,
		}
	}

	set.Duration = g.now().Sub(start)
	g.metrics.generation(req.Mode, set.Duration)
	event := g.logger.Debug()
	if set.Duration > g.opts.WarnThreshold {
		event = g.logger.Warn().Dur("threshold_ms", g.opts.WarnThreshold)
	}
	event.
		Str("mode", string(req.Mode)).
		Int("questions", len(set.Questions)).
		Dur("duration_ms", set.Duration).
		Msg("session questions generated")

	return set, nil
}

func (g *Generator) selectItems(items []catalog.Item, req CreateRequest) ([]catalog.Item, error) {
	if req.Length.All {
		return items, nil
	}
	count := min(req.Length.Count, len(items))
	var (
		picked []catalog.Item
		err    error
	)
	if req.Seed != nil {
		picked, err = shuffle.SampleSeeded(*req.Seed, items, count)
	} else {
		picked, err = shuffle.Sample(items, count)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGeneration, err)
	}
	return picked, nil
}
