package fixgateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

var (
	ErrPriceLimit = errors.New("price limit violation")
	ErrTickSize   = errors.New("invalid tick size")
)

// RiskRule vets the book price of a new or amended limit order.
type RiskRule interface {
	Check(symbol string, price int64) error
}

// PriceBand bounds prices in book units. A zero Ceil means no upper bound.
type PriceBand struct {
	Floor int64
	Ceil  int64
}

type LimitPriceRule struct {
	bands map[string]PriceBand
}

func NewLimitPriceRule(bands map[string]PriceBand) *LimitPriceRule {
	return &LimitPriceRule{bands: bands}
}

func (r *LimitPriceRule) Check(symbol string, price int64) error {
	band, ok := r.bands[symbol]
	if !ok {
		return nil
	}
	if price < band.Floor || (band.Ceil > 0 && price > band.Ceil) {
		return fmt.Errorf("%w: %d outside [%d, %d]", ErrPriceLimit, price, band.Floor, band.Ceil)
	}
	return nil
}

type TickSizeTier struct {
	MaxPrice int64 `json:"maxPrice"` // 0 = no limit
	Step     int64 `json:"step"`
}

// TickSizeRule holds the tiered tick sizes of every symbol. Tiers are
// checked in order and the first one covering the price applies.
type TickSizeRule struct {
	Config map[string][]TickSizeTier
}

func NewTickSizeRuleFromFile(path string) (*TickSizeRule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg map[string][]TickSizeTier
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse tick sizes %s: %w", path, err)
	}
	for symbol, tiers := range cfg {
		for _, t := range tiers {
			if t.Step <= 0 {
				return nil, fmt.Errorf("tick sizes %s: symbol %s has step %d", path, symbol, t.Step)
			}
		}
	}

	return &TickSizeRule{Config: cfg}, nil
}

func (r *TickSizeRule) Check(symbol string, price int64) error {
	tiers, ok := r.Config[symbol]
	if !ok { // no config -> no rule
		return nil
	}

	for _, t := range tiers {
		if t.MaxPrice == 0 || price <= t.MaxPrice {
			if price%t.Step != 0 {
				return fmt.Errorf("%w: %d is not a multiple of %d", ErrTickSize, price, t.Step)
			}
			return nil
		}
	}
	return nil
}
