package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/greecode/admin-portal/internal/errs"
	"github.com/greecode/admin-portal/internal/model"
)

// MemoryConcernRepository keeps concerns in process memory. Used when no database is configured.
type MemoryConcernRepository struct {
	mu     sync.RWMutex
	nextID uint64
	items  map[uint64]*model.Concern
}

// NewMemoryConcernRepository returns an empty store; ids start at 1.
func NewMemoryConcernRepository() *MemoryConcernRepository {
	return &MemoryConcernRepository{items: make(map[uint64]*model.Concern)}
}

func (r *MemoryConcernRepository) Create(_ context.Context, c *model.Concern) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	c.ID = r.nextID
	now := time.Now().UTC()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
	for i := range c.Messages {
		c.Messages[i].ConcernID = c.ID
	}
	r.items[c.ID] = c.Clone()
	return nil
}

func (r *MemoryConcernRepository) GetByID(_ context.Context, id uint64) (*model.Concern, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.items[id]
	if !ok {
		return nil, errs.ErrConcernNotFound
	}
	return c.Clone(), nil
}

// ListByStatus returns copies, newest first.
func (r *MemoryConcernRepository) ListByStatus(_ context.Context, status model.ConcernStatus) ([]model.Concern, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]model.Concern, 0)
	for _, c := range r.items {
		if c.Status == status {
			out = append(out, *c.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r *MemoryConcernRepository) ListAll(_ context.Context) ([]model.Concern, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]model.Concern, 0, len(r.items))
	for _, c := range r.items {
		out = append(out, *c.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *MemoryConcernRepository) CountByStatus(_ context.Context) (map[model.ConcernStatus]int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := map[model.ConcernStatus]int64{
		model.ConcernStatusPending: 0,
		model.ConcernStatusActive:  0,
		model.ConcernStatusClosed:  0,
	}
	for _, c := range r.items {
		out[c.Status]++
	}
	return out, nil
}

// SaveTransition stores c when the held version still equals expectedVersion.
func (r *MemoryConcernRepository) SaveTransition(_ context.Context, c *model.Concern, expectedVersion int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.items[c.ID]
	if !ok {
		return errs.ErrConcernNotFound
	}
	if cur.Version != expectedVersion {
		return errs.ErrConcurrentUpdate
	}
	next := cur.Clone()
	next.Status = c.Status
	next.ClosedReason = c.ClosedReason
	next.ClosedSummary = c.ClosedSummary
	next.ClosedAt = c.ClosedAt
	next.Version = expectedVersion + 1
	next.UpdatedAt = time.Now().UTC()
	r.items[c.ID] = next

	c.Version = next.Version
	c.UpdatedAt = next.UpdatedAt
	return nil
}

// AppendMessage stores c with its new message under the same version check.
func (r *MemoryConcernRepository) AppendMessage(_ context.Context, c *model.Concern, m *model.Message, expectedVersion int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.items[c.ID]
	if !ok {
		return errs.ErrConcernNotFound
	}
	if cur.Version != expectedVersion || cur.Status != model.ConcernStatusActive {
		return errs.ErrConcurrentUpdate
	}
	next := cur.Clone()
	next.Messages = append(next.Messages, *m)
	next.Version = expectedVersion + 1
	next.UpdatedAt = time.Now().UTC()
	r.items[c.ID] = next

	c.Version = next.Version
	c.UpdatedAt = next.UpdatedAt
	return nil
}
