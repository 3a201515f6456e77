package fixgateway

import (
	"time"

	"github.com/quickfixgo/enum"
	"github.com/quickfixgo/quickfix"
	"github.com/shopspring/decimal"
)

// NewOrderSingle is the version independent form of a FIX NewOrderSingle.
type NewOrderSingle struct {
	SessionID quickfix.SessionID

	Account      string
	ClOrdID      string
	Symbol       string
	OrdType      enum.OrdType
	Price        decimal.Decimal
	TimeInForce  enum.TimeInForce
	Side         enum.Side
	TransactTime time.Time
	OrderQty     decimal.Decimal
}

type OrderCancelRequest struct {
	SessionID quickfix.SessionID

	OrigClOrdID string
	ClOrdID     string
	Account     string
	Symbol      string
	Side        enum.Side
}

type OrderCancelReplaceRequest struct {
	SessionID quickfix.SessionID

	OrigClOrdID string
	ClOrdID     string
	Account     string
	Symbol      string
	Side        enum.Side
	OrdType     enum.OrdType
	Price       decimal.Decimal
	OrderQty    decimal.Decimal
}

// ExecReport carries everything needed to build an ExecutionReport in any
// supported FIX version.
type ExecReport struct {
	OrderID      string
	ExecID       string
	ClOrdID      string
	OrigClOrdID  string
	ExecType     enum.ExecType
	OrdStatus    enum.OrdStatus
	OrdRejReason enum.OrdRejReason
	Account      string
	Symbol       string
	Side         enum.Side
	TimeInForce  enum.TimeInForce
	Price        decimal.Decimal
	OrderQty     decimal.Decimal
	LastQty      decimal.Decimal
	LastPx       decimal.Decimal
	LeavesQty    decimal.Decimal
	CumQty       decimal.Decimal
	AvgPx        decimal.Decimal
	Text         string
	TransactTime time.Time
}

type CancelReject struct {
	OrderID          string
	ClOrdID          string
	OrigClOrdID      string
	OrdStatus        enum.OrdStatus
	CxlRejResponseTo enum.CxlRejResponseTo
	CxlRejReason     enum.CxlRejReason
	Text             string
}

// Reporter delivers outbound messages to a session.
type Reporter interface {
	ExecutionReport(sessionID quickfix.SessionID, r *ExecReport)
	CancelReject(sessionID quickfix.SessionID, r *CancelReject)
}

// fixOrder tracks a live order accepted through the gateway. It is only
// touched from the goroutine serving its symbol.
type fixOrder struct {
	sessionID   quickfix.SessionID
	orderID     int64
	uid         int64
	clOrdID     string
	account     string
	symbol      string
	side        enum.Side
	timeInForce enum.TimeInForce
	price       decimal.Decimal
	orderQty    decimal.Decimal
	cumQty      decimal.Decimal
	cumNotional decimal.Decimal
}

func (o *fixOrder) leavesQty() decimal.Decimal {
	return o.orderQty.Sub(o.cumQty)
}

func (o *fixOrder) avgPx() decimal.Decimal {
	if o.cumQty.IsZero() {
		return decimal.Zero
	}
	return o.cumNotional.DivRound(o.cumQty, 8)
}

func (o *fixOrder) status() enum.OrdStatus {
	switch {
	case o.cumQty.IsZero():
		return enum.OrdStatus_NEW
	case o.leavesQty().IsPositive():
		return enum.OrdStatus_PARTIALLY_FILLED
	}
	return enum.OrdStatus_FILLED
}
