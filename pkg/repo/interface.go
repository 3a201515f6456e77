package repo

import (
	"context"

	"github.com/joripage/matching-core/pkg/model"
)

type IExecutionEvent interface {
	Create(ctx context.Context, record *model.ExecutionEvent) (*model.ExecutionEvent, error)
	BulkCreate(ctx context.Context, records []*model.ExecutionEvent) ([]*model.ExecutionEvent, error)
	FindByOrder(ctx context.Context, symbol string, orderID int64) ([]*model.ExecutionEvent, error)
}
