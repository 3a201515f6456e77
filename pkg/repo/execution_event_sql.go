package repo

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/plugin/dbresolver"

	"github.com/joripage/matching-core/pkg/model"
)

const bulkInsertBatch = 500

var onConflictDoNothing = clause.OnConflict{DoNothing: true}

type ExecutionEventSQLRepo struct {
	db *gorm.DB
}

func NewExecutionEventSQLRepo(db *gorm.DB) *ExecutionEventSQLRepo {
	return &ExecutionEventSQLRepo{
		db: db,
	}
}

func (r *ExecutionEventSQLRepo) dbWithContext(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx)
}

func (r *ExecutionEventSQLRepo) Create(ctx context.Context, record *model.ExecutionEvent) (*model.ExecutionEvent, error) {
	return record, r.dbWithContext(ctx).Clauses(onConflictDoNothing).Create(record).Error
}

// BulkCreate ignores rows whose event id already exists, so a redelivered
// batch is harmless.
func (r *ExecutionEventSQLRepo) BulkCreate(ctx context.Context, records []*model.ExecutionEvent) ([]*model.ExecutionEvent, error) {
	if len(records) == 0 {
		return records, nil
	}
	return records, r.dbWithContext(ctx).
		Clauses(onConflictDoNothing).
		CreateInBatches(records, bulkInsertBatch).Error
}

// FindByOrder returns every event where orderID was the taker or the maker.
func (r *ExecutionEventSQLRepo) FindByOrder(ctx context.Context, symbol string, orderID int64) ([]*model.ExecutionEvent, error) {
	var out []*model.ExecutionEvent
	err := findByOrder(r.dbWithContext(ctx).Clauses(dbresolver.Read), symbol, orderID).Find(&out).Error
	return out, err
}

func findByOrder(db *gorm.DB, symbol string, orderID int64) *gorm.DB {
	return db.Where("symbol = ? AND (taker_order_id = ? OR maker_order_id = ?)", symbol, orderID, orderID).
		Order("event_time, seq")
}
