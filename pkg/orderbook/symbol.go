package orderbook

import "fmt"

type SymbolType uint8

const (
	SymbolTypeCurrencyExchangePair SymbolType = 0
	SymbolTypeFuturesContract      SymbolType = 1
)

// SymbolSpec describes the instrument a book trades. Only Type changes
// matching behaviour; the rest is carried for callers.
type SymbolSpec struct {
	SymbolID    int32
	Symbol      string
	Type        SymbolType
	BaseScaleK  int64
	QuoteScaleK int64
}

func (s *SymbolSpec) exchangeMode() bool {
	return s != nil && s.Type == SymbolTypeCurrencyExchangePair
}

func (t SymbolType) String() string {
	switch t {
	case SymbolTypeCurrencyExchangePair:
		return "EXCHANGE"
	case SymbolTypeFuturesContract:
		return "FUTURES"
	}
	return fmt.Sprintf("SYMBOL_TYPE(%d)", uint8(t))
}
