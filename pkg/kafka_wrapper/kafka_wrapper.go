// Package kafkawrapper publishes messages to Kafka and runs a pool of workers
// consuming a topic in batches.
package kafkawrapper

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"io"
	"math"
	"math/rand"
	"sync"
	"time"

	kafka "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

var (
	ErrProducerNotInitialized = errors.New("producer not initialized")
	ErrConsumerNotInitialized = errors.New("consumer not initialized")
)

type Message struct {
	Topic     string
	Partition int
	Offset    int64
	Key       []byte
	Value     []byte
	Time      time.Time
	Headers   map[string]string
	Raw       kafka.Message
}

type ProducerConfig struct {
	Brokers      []string
	Balancer     kafka.Balancer
	BatchSize    int
	BatchBytes   int64
	BatchTimeout time.Duration
	RequiredAcks kafka.RequiredAcks
	// Async makes Publish return before the broker acknowledges. Delivery
	// errors are then only logged.
	Async bool
}

type Producer struct {
	w      *kafka.Writer
	logger *zap.Logger
}

func NewProducer(cfg ProducerConfig, logger *zap.Logger) *Producer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Balancer == nil {
		cfg.Balancer = &kafka.Hash{}
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = 100
	}
	if cfg.BatchBytes == 0 {
		cfg.BatchBytes = 1 << 20
	}
	if cfg.BatchTimeout == 0 {
		cfg.BatchTimeout = 50 * time.Millisecond
	}
	p := &Producer{logger: logger}
	p.w = &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Balancer:               cfg.Balancer,
		BatchSize:              cfg.BatchSize,
		BatchBytes:             cfg.BatchBytes,
		BatchTimeout:           cfg.BatchTimeout,
		AllowAutoTopicCreation: true,
		RequiredAcks:           cfg.RequiredAcks,
		Async:                  cfg.Async,
	}
	if cfg.Async {
		p.w.Completion = func(messages []kafka.Message, err error) {
			if err != nil {
				logger.Error("async publish failed", zap.Int("messages", len(messages)), zap.Error(err))
			}
		}
	}
	return p
}

func (p *Producer) Publish(ctx context.Context, topic string, key []byte, value []byte, headers map[string]string) error {
	if p == nil || p.w == nil {
		return ErrProducerNotInitialized
	}
	return p.w.WriteMessages(ctx, newMessage(topic, key, value, headers))
}

// PublishBatch writes all messages in one call. The writer still splits them
// by partition.
func (p *Producer) PublishBatch(ctx context.Context, msgs []Message) error {
	if p == nil || p.w == nil {
		return ErrProducerNotInitialized
	}
	out := make([]kafka.Message, len(msgs))
	for i, m := range msgs {
		out[i] = newMessage(m.Topic, m.Key, m.Value, m.Headers)
	}
	return p.w.WriteMessages(ctx, out...)
}

func (p *Producer) Close() error {
	if p == nil || p.w == nil {
		return nil
	}
	return p.w.Close()
}

func newMessage(topic string, key, value []byte, headers map[string]string) kafka.Message {
	var kh []kafka.Header
	for k, v := range headers {
		kh = append(kh, kafka.Header{Key: k, Value: []byte(v)})
	}
	return kafka.Message{
		Topic:   topic,
		Key:     key,
		Value:   value,
		Headers: kh,
		Time:    time.Now(),
	}
}

type ConsumerConfig struct {
	Brokers     []string
	GroupID     string
	Topic       string
	WorkerCount int
	MaxRetries  int
	BackoffMin  time.Duration
	BackoffMax  time.Duration
	DLQTopic    string
	// DisableCommit leaves offsets uncommitted after a handled batch.
	DisableCommit bool
	// max messages per batch
	BatchSize int
	// max time spent filling a batch
	BatchTimeout time.Duration
}

func (cfg *ConsumerConfig) setDefaults() {
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 4
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.BackoffMin == 0 {
		cfg.BackoffMin = 100 * time.Millisecond
	}
	if cfg.BackoffMax == 0 {
		cfg.BackoffMax = 10 * time.Second
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = 50
	}
	if cfg.BatchTimeout == 0 {
		cfg.BatchTimeout = 200 * time.Millisecond
	}
}

// messageReader is the part of *kafka.Reader the consumer group drives.
type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type ConsumerGroup struct {
	r          messageReader
	cfg        ConsumerConfig
	prodForDLQ *Producer
	logger     *zap.Logger
	workers    sync.WaitGroup
}

func NewConsumerGroup(cfg ConsumerConfig, logger *zap.Logger) (*ConsumerGroup, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Topic == "" || cfg.GroupID == "" {
		return nil, fmt.Errorf("consumer group needs topic and group id, got %q/%q", cfg.Topic, cfg.GroupID)
	}
	cfg.setDefaults()

	rd := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		GroupID:     cfg.GroupID,
		Topic:       cfg.Topic,
		StartOffset: kafka.FirstOffset,
		MaxWait:     500 * time.Millisecond,
		MinBytes:    1,
		MaxBytes:    10 << 20,
	})

	var prod *Producer
	if cfg.DLQTopic != "" {
		prod = NewProducer(ProducerConfig{Brokers: cfg.Brokers, RequiredAcks: kafka.RequireAll}, logger)
	}

	return &ConsumerGroup{r: rd, cfg: cfg, prodForDLQ: prod, logger: logger}, nil
}

// Close waits for workers still finishing a batch, then closes the reader.
func (cg *ConsumerGroup) Close() error {
	if cg == nil {
		return nil
	}
	cg.workers.Wait()
	if cg.prodForDLQ != nil {
		_ = cg.prodForDLQ.Close()
	}
	if cg.r != nil {
		return cg.r.Close()
	}
	return nil
}

// Run (batch mode): handler receives []Message at a time. A batch that still
// fails after MaxRetries is sent to the DLQ topic, when configured, and
// committed.
func (cg *ConsumerGroup) Run(ctx context.Context, handler func(context.Context, []Message) error) error {
	if cg == nil || cg.r == nil {
		return ErrConsumerNotInitialized
	}

	batches := make(chan []kafka.Message, cg.cfg.WorkerCount)
	go cg.fill(ctx, batches)

	// buffered: workers may exit after Run has returned
	done := make(chan struct{}, cg.cfg.WorkerCount)
	for i := 0; i < cg.cfg.WorkerCount; i++ {
		cg.workers.Add(1)
		go func(workerID int) {
			defer cg.workers.Done()
			defer func() { done <- struct{}{} }()
			for ms := range batches {
				if !cg.handle(ctx, workerID, ms, handler) {
					return
				}
			}
		}(i)
	}

	var workerExited int
	for {
		select {
		case <-done:
			workerExited++
			if workerExited == cg.cfg.WorkerCount {
				return ctx.Err()
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// fill groups fetched messages into batches of at most BatchSize, flushing a
// partial batch once BatchTimeout passes without it filling up.
func (cg *ConsumerGroup) fill(ctx context.Context, batches chan<- []kafka.Message) {
	defer close(batches)

	fetched := make(chan kafka.Message)
	go func() {
		defer close(fetched)
		for {
			m, err := cg.r.FetchMessage(ctx)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, io.EOF) {
					return
				}
				cg.logger.Warn("kafka fetch failed", zap.String("topic", cg.cfg.Topic), zap.Error(err))
				select {
				case <-time.After(200 * time.Millisecond):
				case <-ctx.Done():
					return
				}
				continue
			}
			select {
			case fetched <- m:
			case <-ctx.Done():
				return
			}
		}
	}()

	var buf []kafka.Message
	flush := func() bool {
		if len(buf) == 0 {
			return true
		}
		select {
		case batches <- buf:
			buf = nil
			return true
		case <-ctx.Done():
			return false
		}
	}

	timer := time.NewTimer(cg.cfg.BatchTimeout)
	defer timer.Stop()
	for {
		select {
		case m, ok := <-fetched:
			if !ok {
				flush()
				return
			}
			buf = append(buf, m)
			if len(buf) >= cg.cfg.BatchSize && !flush() {
				return
			}
		case <-timer.C:
			if !flush() {
				return
			}
			timer.Reset(cg.cfg.BatchTimeout)
		case <-ctx.Done():
			return
		}
	}
}

func (cg *ConsumerGroup) handle(ctx context.Context, workerID int, ms []kafka.Message, handler func(context.Context, []Message) error) bool {
	wrapped := make([]Message, len(ms))
	for i, m := range ms {
		wrapped[i] = wrapMessage(m)
	}

	for attempt := 1; ; attempt++ {
		err := handler(ctx, wrapped)
		if err == nil {
			break
		}
		cg.logger.Warn("batch handler failed",
			zap.Int("worker", workerID), zap.Int("attempt", attempt), zap.Int("messages", len(ms)), zap.Error(err))

		if attempt > cg.cfg.MaxRetries {
			if cg.prodForDLQ != nil {
				for _, m := range ms {
					if err := cg.prodForDLQ.Publish(ctx, cg.cfg.DLQTopic, m.Key, m.Value, headersToMap(m.Headers)); err != nil {
						cg.logger.Error("dlq publish failed", zap.String("topic", cg.cfg.DLQTopic), zap.Error(err))
					}
				}
			}
			break
		}

		select {
		case <-time.After(backoffDuration(cg.cfg.BackoffMin, cg.cfg.BackoffMax, attempt)):
		case <-ctx.Done():
			return false
		}
	}

	if !cg.cfg.DisableCommit {
		if err := cg.r.CommitMessages(ctx, ms...); err != nil {
			cg.logger.Warn("commit failed", zap.Int("worker", workerID), zap.Error(err))
		}
	}
	return true
}

func wrapMessage(m kafka.Message) Message {
	return Message{
		Topic:     m.Topic,
		Partition: m.Partition,
		Offset:    m.Offset,
		Key:       m.Key,
		Value:     m.Value,
		Time:      m.Time,
		Headers:   headersToMap(m.Headers),
		Raw:       m,
	}
}

func headersToMap(hs []kafka.Header) map[string]string {
	out := map[string]string{}
	for _, h := range hs {
		out[h.Key] = string(h.Value)
	}
	return out
}

// backoffDuration returns a jittered exponential delay capped at max.
func backoffDuration(min, max time.Duration, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	pow := math.Pow(2, float64(attempt-1))
	d := time.Duration(float64(min) * pow)
	if d > max {
		d = max
	}
	if d > 0 {
		d = time.Duration(rand.Int63n(int64(d)))
	}
	return d
}

// HashKey turns a string into a fixed 8 byte partition key.
func HashKey(s string) []byte {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	sum := h.Sum64()
	b := make([]byte, 8)
	for i := 0; i < 8; i++ {
		b[i] = byte(sum >> (56 - 8*i))
	}
	return b
}
