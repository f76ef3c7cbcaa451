package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/greecode/admin-portal/internal/errs"
	"github.com/greecode/admin-portal/internal/model"
	"gorm.io/gorm"
)

// ConcernRepository persists concerns. Mutations are conditional on the version the caller read;
// a mismatch returns errs.ErrConcurrentUpdate and changes nothing.
type ConcernRepository interface {
	Create(ctx context.Context, c *model.Concern) error
	GetByID(ctx context.Context, id uint64) (*model.Concern, error)
	ListByStatus(ctx context.Context, status model.ConcernStatus) ([]model.Concern, error)
	ListAll(ctx context.Context) ([]model.Concern, error)
	CountByStatus(ctx context.Context) (map[model.ConcernStatus]int64, error)
	SaveTransition(ctx context.Context, c *model.Concern, expectedVersion int64) error
	AppendMessage(ctx context.Context, c *model.Concern, m *model.Message, expectedVersion int64) error
}

// GormConcernRepository keeps concerns and their messages in PostgreSQL.
type GormConcernRepository struct {
	db *gorm.DB
}

// NewGormConcernRepository expects the schema from the embedded migrations.
func NewGormConcernRepository(db *gorm.DB) *GormConcernRepository {
	return &GormConcernRepository{db: db}
}

func orderedMessages(tx *gorm.DB) *gorm.DB {
	return tx.Order("seq ASC")
}

func (r *GormConcernRepository) Create(ctx context.Context, c *model.Concern) error {
	return r.db.WithContext(ctx).Create(c).Error
}

// GetByID loads a concern with its messages in Seq order.
func (r *GormConcernRepository) GetByID(ctx context.Context, id uint64) (*model.Concern, error) {
	var c model.Concern
	if err := r.db.WithContext(ctx).Preload("Messages", orderedMessages).First(&c, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.ErrConcernNotFound
		}
		return nil, err
	}
	return &c, nil
}

// ListByStatus returns concerns in one status, newest first.
func (r *GormConcernRepository) ListByStatus(ctx context.Context, status model.ConcernStatus) ([]model.Concern, error) {
	var items []model.Concern
	err := r.db.WithContext(ctx).
		Preload("Messages", orderedMessages).
		Where("status = ?", status).
		Order("created_at DESC, id DESC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *GormConcernRepository) ListAll(ctx context.Context) ([]model.Concern, error) {
	var items []model.Concern
	if err := r.db.WithContext(ctx).Preload("Messages", orderedMessages).Order("id ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// CountByStatus counts concerns per status with one GROUP BY.
func (r *GormConcernRepository) CountByStatus(ctx context.Context) (map[model.ConcernStatus]int64, error) {
	var rows []struct {
		Status model.ConcernStatus
		N      int64
	}
	err := r.db.WithContext(ctx).Model(&model.Concern{}).
		Select("status, count(*) AS n").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := map[model.ConcernStatus]int64{
		model.ConcernStatusPending: 0,
		model.ConcernStatusActive:  0,
		model.ConcernStatusClosed:  0,
	}
	for _, row := range rows {
		out[row.Status] = row.N
	}
	return out, nil
}

// SaveTransition writes status and close fields only if the row still has expectedVersion,
// then bumps the version.
func (r *GormConcernRepository) SaveTransition(ctx context.Context, c *model.Concern, expectedVersion int64) error {
	now := time.Now().UTC()
	res := r.db.WithContext(ctx).Model(&model.Concern{}).
		Where("id = ? AND version = ?", c.ID, expectedVersion).
		Updates(map[string]interface{}{
			"status":         c.Status,
			"closed_reason":  c.ClosedReason,
			"closed_summary": c.ClosedSummary,
			"closed_at":      c.ClosedAt,
			"version":        expectedVersion + 1,
			"updated_at":     now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return r.missingOrStale(ctx, c.ID)
	}
	c.Version = expectedVersion + 1
	c.UpdatedAt = now
	return nil
}

// AppendMessage inserts m and bumps the concern version in one transaction. The concern must
// still be active and at expectedVersion.
func (r *GormConcernRepository) AppendMessage(ctx context.Context, c *model.Concern, m *model.Message, expectedVersion int64) error {
	now := time.Now().UTC()
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Concern{}).
			Where("id = ? AND version = ? AND status = ?", c.ID, expectedVersion, model.ConcernStatusActive).
			Updates(map[string]interface{}{
				"version":    expectedVersion + 1,
				"updated_at": now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errs.ErrConcurrentUpdate
		}
		return tx.Create(m).Error
	})
	if err != nil {
		if errors.Is(err, errs.ErrConcurrentUpdate) {
			return r.missingOrStale(ctx, c.ID)
		}
		return fmt.Errorf("append message: %w", err)
	}
	c.Version = expectedVersion + 1
	c.UpdatedAt = now
	return nil
}

func (r *GormConcernRepository) missingOrStale(ctx context.Context, id uint64) error {
	var n int64
	if err := r.db.WithContext(ctx).Model(&model.Concern{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return errs.ErrConcernNotFound
	}
	return errs.ErrConcurrentUpdate
}
