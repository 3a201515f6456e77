package engine

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/joripage/matching-core/pkg/orderbook"
	"github.com/joripage/matching-core/pkg/response"
)

// Engine drives a single order book and encodes every command outcome into a
// reused buffer. It is not safe for concurrent use.
type Engine struct {
	book   *orderbook.OrderBook
	enc    *response.Encoder
	logger *zap.Logger
}

func New(spec *orderbook.SymbolSpec, logger *zap.Logger, opts ...orderbook.Option) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	enc := response.NewEncoder()
	opts = append([]orderbook.Option{orderbook.WithLogger(logger)}, opts...)
	return &Engine{
		book:   orderbook.NewOrderBook(spec, enc, opts...),
		enc:    enc,
		logger: logger,
	}
}

// ProcessRaw runs cmd and returns the encoded outcome. The slice is only
// valid until the next call.
func (e *Engine) ProcessRaw(cmd *Command) []byte {
	e.enc.Begin()
	e.enc.SetResultCode(e.dispatch(cmd))
	return e.enc.Bytes()
}

func (e *Engine) Process(cmd *Command) (*response.CommandResponse, error) {
	resp, err := response.ReadResult(e.ProcessRaw(cmd))
	if err != nil {
		return nil, fmt.Errorf("decode result of %s: %w", cmd, err)
	}
	return resp, nil
}

func (e *Engine) dispatch(cmd *Command) orderbook.ResultCode {
	switch cmd.Type {
	case CommandPlace:
		place, err := cmd.placeCommand()
		if err != nil {
			e.logger.Debug("invalid place command", zap.Stringer("cmd", cmd), zap.Error(err))
			if errors.Is(err, ErrUnknownOrderType) {
				return orderbook.ResultUnsupportedOrderType
			}
			return orderbook.ResultUnsupportedCommand
		}
		return e.book.NewOrder(place)
	case CommandCancel:
		return e.book.CancelOrder(&orderbook.CancelCommand{OrderID: cmd.OrderID, UID: cmd.UID})
	case CommandReduce:
		return e.book.ReduceOrder(&orderbook.ReduceCommand{OrderID: cmd.OrderID, UID: cmd.UID, Size: cmd.Size})
	case CommandMove:
		return e.book.MoveOrder(&orderbook.MoveCommand{OrderID: cmd.OrderID, UID: cmd.UID, NewPrice: cmd.Price})
	case CommandReset:
		e.logger.Info("reset book", zap.String("symbol", e.Symbol()))
		e.book.Reset()
		return orderbook.ResultSuccess
	}
	e.logger.Debug("unsupported command", zap.String("type", string(cmd.Type)))
	return orderbook.ResultUnsupportedCommand
}

func (e *Engine) L2(depth int) *orderbook.L2MarketData {
	return e.book.L2MarketDataSnapshot(depth)
}

// Book exposes the underlying book for queries. Mutating it directly bypasses
// the encoder.
func (e *Engine) Book() *orderbook.OrderBook {
	return e.book
}

func (e *Engine) Symbol() string {
	return e.book.Spec().Symbol
}
