package worker

import (
	"context"

	"go.uber.org/zap"

	"github.com/joripage/matching-core/pkg/eventlog"
	kafkawrapper "github.com/joripage/matching-core/pkg/kafka_wrapper"
	"github.com/joripage/matching-core/pkg/logging"
	"github.com/joripage/matching-core/pkg/model"
	"github.com/joripage/matching-core/pkg/repo"
)

type consumer interface {
	Run(ctx context.Context, handler func(context.Context, []kafkawrapper.Message) error) error
}

// Worker persists execution events consumed from Kafka.
type Worker struct {
	executionEvent repo.IExecutionEvent
	logger         *zap.Logger
}

func NewWorker(repo repo.IRepo, logger *zap.Logger) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worker{
		executionEvent: repo.ExecutionEvent(),
		logger:         logger,
	}
}

func (w *Worker) Start(ctx context.Context, cg consumer) error {
	return cg.Run(ctx, w.HandleBatch)
}

// HandleBatch stores every event of the batch in one insert. Undecodable
// messages are logged and skipped; a storage error fails the whole batch so
// the consumer retries it.
func (w *Worker) HandleBatch(ctx context.Context, msgs []kafkawrapper.Message) error {
	ctx = logging.NewRequest(ctx)
	logger := logging.FromContext(ctx, w.logger)

	var records []*model.ExecutionEvent
	for _, msg := range msgs {
		events, err := eventlog.Decode(msg.Value)
		if err != nil {
			logger.Error("skip execution message",
				zap.Int("partition", msg.Partition), zap.Int64("offset", msg.Offset), zap.Error(err))
			continue
		}
		records = append(records, events...)
	}
	if len(records) == 0 {
		return nil
	}

	if _, err := w.executionEvent.BulkCreate(ctx, records); err != nil {
		logger.Warn("store execution events", zap.Int("records", len(records)), zap.Error(err))
		return err
	}
	logger.Debug("stored execution events", zap.Int("messages", len(msgs)), zap.Int("records", len(records)))
	return nil
}
