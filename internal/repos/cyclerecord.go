package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/glancehq/glance-backend/internal/logger"
	"github.com/glancehq/glance-backend/internal/types"
)

type CycleRecordRepo interface {
	Create(ctx context.Context, tx *gorm.DB, rec *types.CycleRecord) (*types.CycleRecord, error)
	ListRecent(ctx context.Context, tx *gorm.DB, limit int) ([]*types.CycleRecord, error)
}

type cycleRecordRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCycleRecordRepo(db *gorm.DB, baseLog *logger.Logger) CycleRecordRepo {
	repoLog := baseLog.With("repo", "CycleRecordRepo")
	return &cycleRecordRepo{db: db, log: repoLog}
}

func (r *cycleRecordRepo) Create(ctx context.Context, tx *gorm.DB, rec *types.CycleRecord) (*types.CycleRecord, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	if err := transaction.WithContext(ctx).Create(rec).Error; err != nil {
		return nil, err
	}
	return rec, nil
}

func (r *cycleRecordRepo) ListRecent(ctx context.Context, tx *gorm.DB, limit int) ([]*types.CycleRecord, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if limit <= 0 {
		limit = 50
	}
	var out []*types.CycleRecord
	if err := transaction.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
