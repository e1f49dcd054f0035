package catalog

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ErrItemNotFound is returned when a key or id does not resolve.
var ErrItemNotFound = errors.New("catalog item not found")

// Store persists catalog items.
type Store interface {
	ListItems(ctx context.Context) ([]Item, error)
	UpsertItems(ctx context.Context, items []Item) (SeedResult, error)
}

// ItemCache fronts the store. Get returns nil, nil on a miss.
type ItemCache interface {
	Get(ctx context.Context) ([]Item, error)
	Set(ctx context.Context, items []Item) error
	Invalidate(ctx context.Context) error
}

// SeedResult counts what an upsert did.
type SeedResult struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
}

// Service is the read side of the flag catalog plus the seeding entry point.
type Service struct {
	store  Store
	cache  ItemCache
	logger zerolog.Logger
}

// NewService wires a catalog service. cache may be nil.
func NewService(store Store, cache ItemCache, logger zerolog.Logger) *Service {
	return &Service{
		store:  store,
		cache:  cache,
		logger: logger.With().Str("component", "catalog").Logger(),
	}
}

// List returns every item in canonical order.
func (s *Service) List(ctx context.Context) ([]Item, error) {
	if s.cache != nil {
		cached, err := s.cache.Get(ctx)
		if err != nil {
			s.logger.Warn().Err(err).Msg("catalog cache read failed")
		} else if cached != nil {
			return cached, nil
		}
	}

	items, err := s.store.ListItems(ctx)
	if err != nil {
		return nil, fmt.Errorf("list catalog: %w", err)
	}
	sortByOrder(items)

	if s.cache != nil {
		if err := s.cache.Set(ctx, items); err != nil {
			s.logger.Warn().Err(err).Msg("catalog cache write failed")
		}
	}
	return items, nil
}

// Get looks an item up by key.
func (s *Service) Get(ctx context.Context, key string) (Item, error) {
	items, err := s.List(ctx)
	if err != nil {
		return Item{}, err
	}
	for _, it := range items {
		if it.Key == key {
			return it, nil
		}
	}
	return Item{}, fmt.Errorf("%w: key %q", ErrItemNotFound, key)
}

// GetByID looks an item up by id.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (Item, error) {
	items, err := s.List(ctx)
	if err != nil {
		return Item{}, err
	}
	for _, it := range items {
		if it.ID == id {
			return it, nil
		}
	}
	return Item{}, fmt.Errorf("%w: id %s", ErrItemNotFound, id)
}

// ListByType filters the catalog to one classification.
func (s *Service) ListByType(ctx context.Context, t Type) ([]Item, error) {
	return s.filter(ctx, func(it Item) bool { return it.Type == t })
}

// ListByCategory filters the catalog to one category.
func (s *Service) ListByCategory(ctx context.Context, category string) ([]Item, error) {
	return s.filter(ctx, func(it Item) bool { return it.Category == category })
}

func (s *Service) filter(ctx context.Context, keep func(Item) bool) ([]Item, error) {
	items, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Item, 0, len(items))
	for _, it := range items {
		if keep(it) {
			out = append(out, it)
		}
	}
	return out, nil
}

// Seed upserts items by key and drops the cached catalog.
func (s *Service) Seed(ctx context.Context, items []Item) (SeedResult, error) {
	if err := normalize(items); err != nil {
		return SeedResult{}, err
	}
	res, err := s.store.UpsertItems(ctx, items)
	if err != nil {
		return SeedResult{}, fmt.Errorf("seed catalog: %w", err)
	}
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx); err != nil {
			s.logger.Warn().Err(err).Msg("catalog cache invalidate failed")
		}
	}
	s.logger.Info().Int("created", res.Created).Int("updated", res.Updated).Msg("catalog seeded")
	return res, nil
}

func sortByOrder(items []Item) {
	sort.SliceStable(items, func(i, j int) bool { return items[i].Order < items[j].Order })
}
