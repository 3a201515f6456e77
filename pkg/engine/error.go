package engine

import "errors"

var (
	ErrUnknownSymbol      = errors.New("unknown symbol")
	ErrDuplicateSymbol    = errors.New("symbol already registered")
	ErrUnknownCommandType = errors.New("unknown command type")
	ErrUnknownAction      = errors.New("unknown order action")
	ErrUnknownOrderType   = errors.New("unknown order type")
)
