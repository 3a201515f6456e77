package eventlog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/joripage/matching-core/pkg/engine"
	kafkawrapper "github.com/joripage/matching-core/pkg/kafka_wrapper"
	"github.com/joripage/matching-core/pkg/model"
	"github.com/joripage/matching-core/pkg/response"
)

const HeaderSymbol = "symbol"

type batchPublisher interface {
	PublishBatch(ctx context.Context, msgs []kafkawrapper.Message) error
}

// Publisher ships the execution events of processed commands to Kafka. Each
// command becomes one message holding its events; the symbol is the key so
// a symbol's events stay ordered within a partition.
type Publisher struct {
	producer batchPublisher
	topic    string
	logger   *zap.Logger
	now      func() time.Time
}

func NewPublisher(producer *kafkawrapper.Producer, topic string, logger *zap.Logger) *Publisher {
	return newPublisher(producer, topic, logger)
}

func newPublisher(producer batchPublisher, topic string, logger *zap.Logger) *Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{producer: producer, topic: topic, logger: logger, now: time.Now}
}

// Encode builds the Kafka messages for a batch of processed commands.
// Commands without events are skipped.
func (p *Publisher) Encode(cmds []*engine.Command, resps []*response.CommandResponse) ([]kafkawrapper.Message, error) {
	ts := p.now()
	msgs := make([]kafkawrapper.Message, 0, len(cmds))
	for i, cmd := range cmds {
		events := model.FromResponse(cmd, resps[i], ts)
		if len(events) == 0 {
			continue
		}
		value, err := json.Marshal(events)
		if err != nil {
			return nil, fmt.Errorf("encode events of %s: %w", cmd, err)
		}
		msgs = append(msgs, kafkawrapper.Message{
			Topic:   p.topic,
			Key:     kafkawrapper.HashKey(cmd.Symbol),
			Value:   value,
			Headers: map[string]string{HeaderSymbol: cmd.Symbol},
		})
	}
	return msgs, nil
}

func (p *Publisher) Publish(ctx context.Context, cmds []*engine.Command, resps []*response.CommandResponse) error {
	msgs, err := p.Encode(cmds, resps)
	if err != nil {
		return err
	}
	if len(msgs) == 0 {
		return nil
	}
	if err := p.producer.PublishBatch(ctx, msgs); err != nil {
		return fmt.Errorf("publish %d execution messages: %w", len(msgs), err)
	}
	p.logger.Debug("published execution events", zap.Int("messages", len(msgs)))
	return nil
}

// Decode is the inverse of Encode for a single message value.
func Decode(value []byte) ([]*model.ExecutionEvent, error) {
	var events []*model.ExecutionEvent
	if err := json.Unmarshal(value, &events); err != nil {
		return nil, fmt.Errorf("decode execution events: %w", err)
	}
	return events, nil
}
