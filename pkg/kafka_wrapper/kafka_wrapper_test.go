package kafkawrapper

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	kafka "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

func TestHashKey(t *testing.T) {
	a := HashKey("XBT_USD")
	if len(a) != 8 {
		t.Fatalf("len = %d", len(a))
	}
	if string(a) != string(HashKey("XBT_USD")) {
		t.Fatal("hash key is not deterministic")
	}
	if string(a) == string(HashKey("ETH_USD")) {
		t.Fatal("different symbols share a key")
	}
}

func TestBackoffDuration(t *testing.T) {
	min, max := 10*time.Millisecond, 50*time.Millisecond
	for attempt := 0; attempt < 10; attempt++ {
		d := backoffDuration(min, max, attempt)
		if d < 0 || d >= max {
			t.Fatalf("attempt %d: %v out of [0,%v)", attempt, d, max)
		}
	}
	if d := backoffDuration(0, max, 3); d != 0 {
		t.Fatalf("zero min gave %v", d)
	}
}

func TestWrapMessage(t *testing.T) {
	m := wrapMessage(kafka.Message{
		Topic:     "execution-events",
		Partition: 3,
		Offset:    42,
		Key:       []byte("k"),
		Value:     []byte("v"),
		Headers:   []kafka.Header{{Key: "symbol", Value: []byte("XBT_USD")}},
	})
	if m.Partition != 3 || m.Offset != 42 || string(m.Value) != "v" {
		t.Fatalf("unexpected message %+v", m)
	}
	if m.Headers["symbol"] != "XBT_USD" {
		t.Fatalf("headers = %v", m.Headers)
	}
}

func TestNilProducer(t *testing.T) {
	var p *Producer
	if err := p.Publish(context.Background(), "t", nil, nil, nil); !errors.Is(err, ErrProducerNotInitialized) {
		t.Fatalf("err = %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestNewConsumerGroupValidates(t *testing.T) {
	if _, err := NewConsumerGroup(ConsumerConfig{Brokers: []string{"localhost:9092"}}, nil); err == nil {
		t.Fatal("expected error for missing topic")
	}

	cg, err := NewConsumerGroup(ConsumerConfig{Brokers: []string{"localhost:9092"}, Topic: "t", GroupID: "g"}, nil)
	if err != nil {
		t.Fatalf("new consumer: %v", err)
	}
	defer cg.Close()
	if cg.cfg.WorkerCount != 4 || cg.cfg.BatchSize != 50 {
		t.Fatalf("defaults not applied: %+v", cg.cfg)
	}
}

type stubReader struct {
	mu        sync.Mutex
	pending   []kafka.Message
	committed int
	closed    bool
}

func (r *stubReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.pending) > 0 {
		m := r.pending[0]
		r.pending = r.pending[1:]
		r.mu.Unlock()
		return m, nil
	}
	r.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *stubReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.committed += len(msgs)
	return nil
}

func (r *stubReader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func TestWorkerFinishingAfterRunReturns(t *testing.T) {
	reader := &stubReader{pending: []kafka.Message{{Topic: "t", Value: []byte("1")}}}
	cfg := ConsumerConfig{Topic: "t", GroupID: "g", WorkerCount: 2, BatchSize: 1}
	cfg.setDefaults()
	cg := &ConsumerGroup{r: reader, cfg: cfg, logger: zap.NewNop()}

	entered := make(chan struct{})
	release := make(chan struct{})
	handler := func(context.Context, []Message) error {
		close(entered)
		<-release
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	runErr := make(chan error, 1)
	go func() { runErr <- cg.Run(ctx, handler) }()

	select {
	case <-entered:
	case <-time.After(2 * time.Second):
		t.Fatal("handler never called")
	}

	cancel()
	select {
	case err := <-runErr:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("run err = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("run did not return after cancel")
	}

	// the busy worker completes its batch after Run is gone
	close(release)

	closed := make(chan error, 1)
	go func() { closed <- cg.Close() }()
	select {
	case err := <-closed:
		if err != nil {
			t.Fatalf("close: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("workers still running after their batch finished")
	}

	reader.mu.Lock()
	defer reader.mu.Unlock()
	if reader.committed != 1 || !reader.closed {
		t.Fatalf("committed=%d closed=%v", reader.committed, reader.closed)
	}
}
