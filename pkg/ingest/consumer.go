package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"

	"github.com/joripage/matching-core/pkg/engine"
	"github.com/joripage/matching-core/pkg/logging"
	"github.com/joripage/matching-core/pkg/response"
)

type Config struct {
	Stream         string
	CommandSubject string
	Durable        string
	FetchBatch     int
	FetchMaxWait   time.Duration
}

// Processor is satisfied by *engine.Manager.
type Processor interface {
	Process(cmd *engine.Command) (*response.CommandResponse, error)
}

// BatchCallback runs after every fetched batch with the commands that were
// processed successfully, in processing order.
type BatchCallback func(ctx context.Context, cmds []*engine.Command, resps []*response.CommandResponse)

type message interface {
	Data() []byte
	Ack() error
}

// CommandConsumer pulls order commands from a JetStream durable consumer and
// feeds them to the engine from a single goroutine.
type CommandConsumer struct {
	js        jetstream.JetStream
	cfg       Config
	processor Processor
	callbacks []BatchCallback
	logger    *zap.Logger
}

func NewCommandConsumer(js jetstream.JetStream, cfg Config, processor Processor, logger *zap.Logger) *CommandConsumer {
	if cfg.FetchBatch <= 0 {
		cfg.FetchBatch = 256
	}
	if cfg.FetchMaxWait <= 0 {
		cfg.FetchMaxWait = 500 * time.Millisecond
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CommandConsumer{
		js:        js,
		cfg:       cfg,
		processor: processor,
		logger:    logger,
	}
}

func (c *CommandConsumer) OnBatch(cb BatchCallback) {
	c.callbacks = append(c.callbacks, cb)
}

// Connect dials NATS and returns a JetStream handle.
func Connect(url string, logger *zap.Logger) (*nats.Conn, jetstream.JetStream, error) {
	nc, err := nats.Connect(url,
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("nats disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			logger.Info("nats reconnected")
		}),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, nil, fmt.Errorf("jetstream: %w", err)
	}
	return nc, js, nil
}

// EnsureStream creates the command stream if it does not exist yet.
func EnsureStream(ctx context.Context, js jetstream.JetStream, stream, subject string) error {
	_, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      stream,
		Subjects:  []string{subject},
		Storage:   jetstream.FileStorage,
		Retention: jetstream.LimitsPolicy,
		MaxAge:    72 * time.Hour,
	})
	if err != nil {
		return fmt.Errorf("create stream %s: %w", stream, err)
	}
	return nil
}

// Run fetches and processes batches until ctx is done.
func (c *CommandConsumer) Run(ctx context.Context) error {
	cons, err := c.js.CreateOrUpdateConsumer(ctx, c.cfg.Stream, jetstream.ConsumerConfig{
		Durable:       c.cfg.Durable,
		FilterSubject: c.cfg.CommandSubject,
		AckPolicy:     jetstream.AckExplicitPolicy,
		DeliverPolicy: jetstream.DeliverAllPolicy,
		AckWait:       30 * time.Second,
	})
	if err != nil {
		return fmt.Errorf("create consumer %s: %w", c.cfg.Durable, err)
	}

	c.logger.Info("consuming commands",
		zap.String("stream", c.cfg.Stream), zap.String("subject", c.cfg.CommandSubject), zap.String("durable", c.cfg.Durable))

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		batch, err := cons.Fetch(c.cfg.FetchBatch, jetstream.FetchMaxWait(c.cfg.FetchMaxWait))
		if err != nil {
			c.logger.Warn("fetch commands", zap.Error(err))
			select {
			case <-time.After(200 * time.Millisecond):
			case <-ctx.Done():
				return ctx.Err()
			}
			continue
		}

		msgs := make([]message, 0, c.cfg.FetchBatch)
		for msg := range batch.Messages() {
			msgs = append(msgs, msg)
		}
		if err := batch.Error(); err != nil && !errors.Is(err, nats.ErrTimeout) {
			c.logger.Warn("fetch batch", zap.Error(err))
		}

		c.handleBatch(ctx, msgs)
	}
}

func (c *CommandConsumer) handleBatch(ctx context.Context, msgs []message) {
	if len(msgs) == 0 {
		return
	}

	ctx = logging.NewRequest(ctx)
	logger := logging.FromContext(ctx, c.logger)

	cmds := make([]*engine.Command, 0, len(msgs))
	resps := make([]*response.CommandResponse, 0, len(msgs))
	for _, msg := range msgs {
		cmd, resp := c.handle(msg, logger)
		if resp != nil {
			cmds = append(cmds, cmd)
			resps = append(resps, resp)
		}
	}

	for _, cb := range c.callbacks {
		cb(ctx, cmds, resps)
	}
}

// handle processes one message. Poison messages are acked and dropped so they
// are not redelivered forever.
func (c *CommandConsumer) handle(msg message, logger *zap.Logger) (*engine.Command, *response.CommandResponse) {
	defer func() {
		if err := msg.Ack(); err != nil {
			logger.Warn("ack command", zap.Error(err))
		}
	}()

	cmd := &engine.Command{}
	if err := json.Unmarshal(msg.Data(), cmd); err != nil {
		logger.Error("malformed command", zap.ByteString("data", msg.Data()), zap.Error(err))
		return nil, nil
	}

	resp, err := c.processor.Process(cmd)
	if err != nil {
		logger.Error("process command", zap.Stringer("cmd", cmd), zap.Error(err))
		return nil, nil
	}
	if !resp.Success() {
		logger.Debug("command rejected", zap.Stringer("cmd", cmd), zap.Stringer("result", resp.ResultCode))
	}
	return cmd, resp
}
