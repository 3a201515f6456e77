package engine

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/joripage/matching-core/pkg/orderbook"
	"github.com/joripage/matching-core/pkg/response"
)

type ResultCallback func(cmd *Command, resp *response.CommandResponse)

type ManagerConfig struct {
	ValidateState bool
}

// Manager routes commands to one Engine per symbol. Commands for the same
// symbol must be serialised by the caller; different symbols may be processed
// in parallel.
type Manager struct {
	engines   sync.Map
	callbacks []ResultCallback
	cfg       *ManagerConfig
	logger    *zap.Logger
}

func NewManager(cfg *ManagerConfig, logger *zap.Logger) *Manager {
	if cfg == nil {
		cfg = &ManagerConfig{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		cfg:    cfg,
		logger: logger,
	}
}

func (m *Manager) Register(spec *orderbook.SymbolSpec) (*Engine, error) {
	e := New(spec, m.logger.With(zap.String("symbol", spec.Symbol)), orderbook.WithValidation(m.cfg.ValidateState))
	if _, loaded := m.engines.LoadOrStore(spec.Symbol, e); loaded {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateSymbol, spec.Symbol)
	}
	return e, nil
}

func (m *Manager) Engine(symbol string) (*Engine, bool) {
	v, ok := m.engines.Load(symbol)
	if !ok {
		return nil, false
	}
	return v.(*Engine), true
}

// Symbols lists the registered symbols in no particular order.
func (m *Manager) Symbols() []string {
	var out []string
	m.engines.Range(func(k, _ any) bool {
		out = append(out, k.(string))
		return true
	})
	return out
}

// RegisterResultCallback must be called before commands are processed.
func (m *Manager) RegisterResultCallback(cb ResultCallback) {
	m.callbacks = append(m.callbacks, cb)
}

func (m *Manager) Process(cmd *Command) (*response.CommandResponse, error) {
	e, ok := m.Engine(cmd.Symbol)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSymbol, cmd.Symbol)
	}

	resp, err := e.Process(cmd)
	if err != nil {
		return nil, err
	}

	for _, cb := range m.callbacks {
		cb(cmd, resp)
	}
	return resp, nil
}
