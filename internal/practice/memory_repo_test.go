package practice

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gokatarajesh/flag-practice/internal/catalog"
)

// memoryRepo is an in-memory Repository with the same conditional-write
// semantics as the Postgres implementation.
type memoryRepo struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]Session
	advances int
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{sessions: map[uuid.UUID]Session{}}
}

func (r *memoryRepo) CreateIfNoActive(_ context.Context, s *Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.sessions {
		if existing.UserID == s.UserID && existing.Status == StatusActive {
			return ErrConflict
		}
	}
	r.sessions[s.ID] = *s
	return nil
}

func (r *memoryRepo) Get(_ context.Context, id uuid.UUID) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return &s, nil
}

func (r *memoryRepo) FindActive(_ context.Context, userID uuid.UUID) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.sessions {
		if s.UserID == userID && s.Status == StatusActive {
			found := s
			return &found, nil
		}
	}
	return nil, nil
}

func (r *memoryRepo) ListByUser(_ context.Context, userID uuid.UUID) ([]Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Session
	for _, s := range r.sessions {
		if s.UserID == userID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	return out, nil
}

func (r *memoryRepo) Advance(_ context.Context, id uuid.UUID, expectedIndex int, p Progress) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if s.Status != StatusActive || s.CurrentIndex != expectedIndex || s.Questions.At(p.QuestionIndex).Answered() {
		return fmt.Errorf("%w: session changed concurrently", ErrSequence)
	}
	r.sessions[id] = p.Apply(s)
	r.advances++
	return nil
}

func (r *memoryRepo) Abandon(_ context.Context, id uuid.UUID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if s.Status != StatusActive {
		return errSessionInactive
	}
	s.Status = StatusAbandoned
	s.CompletedAt = &at
	r.sessions[id] = s
	return nil
}

func (r *memoryRepo) put(s Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.ID] = s
}

// staticCatalog serves a fixed item list.
type staticCatalog struct {
	items []catalog.Item
	err   error
}

func (c *staticCatalog) List(context.Context) ([]catalog.Item, error) {
	if c.err != nil {
		return nil, c.err
	}
	out := make([]catalog.Item, len(c.items))
	copy(out, c.items)
	return out, nil
}

func (c *staticCatalog) GetByID(_ context.Context, id uuid.UUID) (catalog.Item, error) {
	for _, it := range c.items {
		if it.ID == id {
			return it, nil
		}
	}
	return catalog.Item{}, catalog.ErrItemNotFound
}

func newItem(key, name string, t catalog.Type, order int, colors ...string) catalog.Item {
	return catalog.Item{
		ID:        uuid.New(),
		Key:       key,
		Type:      t,
		Category:  string(t),
		Name:      name,
		Meaning:   name + " meaning",
		ImagePath: catalog.DefaultImagePath(t, key),
		Colors:    colors,
		Order:     order,
	}
}

func fourItems() []catalog.Item {
	return []catalog.Item{
		newItem("alpha", "Alpha", catalog.TypeFlagLetter, 1, "white", "blue"),
		newItem("bravo", "Bravo", catalog.TypeFlagLetter, 2, "red"),
		newItem("charlie", "Charlie", catalog.TypeFlagLetter, 3, "blue", "white", "red"),
		newItem("delta", "Delta", catalog.TypeFlagLetter, 4, "yellow", "blue"),
	}
}

func standardItems() []catalog.Item {
	items, err := catalog.StandardItems()
	if err != nil {
		panic(err)
	}
	for i := range items {
		items[i].ID = uuid.New()
	}
	return items
}
