package fixgateway

import (
	"github.com/quickfixgo/enum"
	"github.com/quickfixgo/field"
	er42 "github.com/quickfixgo/fix42/executionreport"
	nos42 "github.com/quickfixgo/fix42/newordersingle"
	ocj42 "github.com/quickfixgo/fix42/ordercancelreject"
	ocrr42 "github.com/quickfixgo/fix42/ordercancelreplacerequest"
	ocr42 "github.com/quickfixgo/fix42/ordercancelrequest"
	er44 "github.com/quickfixgo/fix44/executionreport"
	nos44 "github.com/quickfixgo/fix44/newordersingle"
	ocj44 "github.com/quickfixgo/fix44/ordercancelreject"
	ocrr44 "github.com/quickfixgo/fix44/ordercancelreplacerequest"
	ocr44 "github.com/quickfixgo/fix44/ordercancelrequest"
	"github.com/quickfixgo/quickfix"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const maxScale = 8

// scaleOf is the number of decimal places to print v with.
func scaleOf(v decimal.Decimal) int32 {
	s := -v.Exponent()
	if s < 0 {
		return 0
	}
	if s > maxScale {
		return maxScale
	}
	return s
}

func fromNewOrderSingle44(msg nos44.NewOrderSingle, sessionID quickfix.SessionID) *NewOrderSingle {
	clOrdID, _ := msg.GetClOrdID()
	symbol, _ := msg.GetSymbol()
	side, _ := msg.GetSide()
	ordType, _ := msg.GetOrdType()
	price, _ := msg.GetPrice()
	orderQty, _ := msg.GetOrderQty()
	account, _ := msg.GetAccount()
	timeInForce, _ := msg.GetTimeInForce()
	transactTime, _ := msg.GetTransactTime()

	return &NewOrderSingle{
		SessionID:    sessionID,
		Account:      account,
		ClOrdID:      clOrdID,
		Symbol:       symbol,
		OrdType:      ordType,
		Price:        price,
		TimeInForce:  timeInForce,
		Side:         side,
		TransactTime: transactTime,
		OrderQty:     orderQty,
	}
}

func fromNewOrderSingle42(msg nos42.NewOrderSingle, sessionID quickfix.SessionID) *NewOrderSingle {
	clOrdID, _ := msg.GetClOrdID()
	symbol, _ := msg.GetSymbol()
	side, _ := msg.GetSide()
	ordType, _ := msg.GetOrdType()
	price, _ := msg.GetPrice()
	orderQty, _ := msg.GetOrderQty()
	account, _ := msg.GetAccount()
	timeInForce, _ := msg.GetTimeInForce()
	transactTime, _ := msg.GetTransactTime()

	return &NewOrderSingle{
		SessionID:    sessionID,
		Account:      account,
		ClOrdID:      clOrdID,
		Symbol:       symbol,
		OrdType:      ordType,
		Price:        price,
		TimeInForce:  timeInForce,
		Side:         side,
		TransactTime: transactTime,
		OrderQty:     orderQty,
	}
}

func fromOrderCancelRequest44(msg ocr44.OrderCancelRequest, sessionID quickfix.SessionID) *OrderCancelRequest {
	origClOrdID, _ := msg.GetOrigClOrdID()
	clOrdID, _ := msg.GetClOrdID()
	account, _ := msg.GetAccount()
	symbol, _ := msg.GetSymbol()
	side, _ := msg.GetSide()

	return &OrderCancelRequest{
		SessionID:   sessionID,
		OrigClOrdID: origClOrdID,
		ClOrdID:     clOrdID,
		Account:     account,
		Symbol:      symbol,
		Side:        side,
	}
}

func fromOrderCancelRequest42(msg ocr42.OrderCancelRequest, sessionID quickfix.SessionID) *OrderCancelRequest {
	origClOrdID, _ := msg.GetOrigClOrdID()
	clOrdID, _ := msg.GetClOrdID()
	account, _ := msg.GetAccount()
	symbol, _ := msg.GetSymbol()
	side, _ := msg.GetSide()

	return &OrderCancelRequest{
		SessionID:   sessionID,
		OrigClOrdID: origClOrdID,
		ClOrdID:     clOrdID,
		Account:     account,
		Symbol:      symbol,
		Side:        side,
	}
}

func fromOrderCancelReplaceRequest44(msg ocrr44.OrderCancelReplaceRequest, sessionID quickfix.SessionID) *OrderCancelReplaceRequest {
	origClOrdID, _ := msg.GetOrigClOrdID()
	clOrdID, _ := msg.GetClOrdID()
	account, _ := msg.GetAccount()
	symbol, _ := msg.GetSymbol()
	side, _ := msg.GetSide()
	ordType, _ := msg.GetOrdType()
	price, _ := msg.GetPrice()
	orderQty, _ := msg.GetOrderQty()

	return &OrderCancelReplaceRequest{
		SessionID:   sessionID,
		OrigClOrdID: origClOrdID,
		ClOrdID:     clOrdID,
		Account:     account,
		Symbol:      symbol,
		Side:        side,
		OrdType:     ordType,
		Price:       price,
		OrderQty:    orderQty,
	}
}

func fromOrderCancelReplaceRequest42(msg ocrr42.OrderCancelReplaceRequest, sessionID quickfix.SessionID) *OrderCancelReplaceRequest {
	origClOrdID, _ := msg.GetOrigClOrdID()
	clOrdID, _ := msg.GetClOrdID()
	account, _ := msg.GetAccount()
	symbol, _ := msg.GetSymbol()
	side, _ := msg.GetSide()
	ordType, _ := msg.GetOrdType()
	price, _ := msg.GetPrice()
	orderQty, _ := msg.GetOrderQty()

	return &OrderCancelReplaceRequest{
		SessionID:   sessionID,
		OrigClOrdID: origClOrdID,
		ClOrdID:     clOrdID,
		Account:     account,
		Symbol:      symbol,
		Side:        side,
		OrdType:     ordType,
		Price:       price,
		OrderQty:    orderQty,
	}
}

func toExecutionReport44(r *ExecReport) er44.ExecutionReport {
	msg := er44.New(
		field.NewOrderID(r.OrderID),
		field.NewExecID(r.ExecID),
		field.NewExecType(r.ExecType),
		field.NewOrdStatus(r.OrdStatus),
		field.NewSide(r.Side),
		field.NewLeavesQty(r.LeavesQty, scaleOf(r.LeavesQty)),
		field.NewCumQty(r.CumQty, scaleOf(r.CumQty)),
		field.NewAvgPx(r.AvgPx, scaleOf(r.AvgPx)),
	)

	msg.SetClOrdID(r.ClOrdID)
	if r.OrigClOrdID != "" {
		msg.SetOrigClOrdID(r.OrigClOrdID)
	}
	if r.Account != "" {
		msg.SetAccount(r.Account)
	}
	msg.SetSymbol(r.Symbol)
	msg.SetOrderQty(r.OrderQty, scaleOf(r.OrderQty))
	if !r.Price.IsZero() {
		msg.SetPrice(r.Price, scaleOf(r.Price))
	}
	if r.TimeInForce != "" {
		msg.SetTimeInForce(r.TimeInForce)
	}
	if r.LastQty.IsPositive() {
		msg.SetLastQty(r.LastQty, scaleOf(r.LastQty))
		msg.SetLastPx(r.LastPx, scaleOf(r.LastPx))
	}
	if r.OrdRejReason != "" {
		msg.SetOrdRejReason(r.OrdRejReason)
	}
	if r.Text != "" {
		msg.SetText(r.Text)
	}
	msg.SetTransactTime(r.TransactTime)
	return msg
}

// execType42 maps trade reports to the FIX 4.2 partial fill and fill types.
func execType42(r *ExecReport) enum.ExecType {
	if r.ExecType != enum.ExecType_TRADE {
		return r.ExecType
	}
	if r.OrdStatus == enum.OrdStatus_FILLED {
		return enum.ExecType_FILL
	}
	return enum.ExecType_PARTIAL_FILL
}

func toExecutionReport42(r *ExecReport) er42.ExecutionReport {
	msg := er42.New(
		field.NewOrderID(r.OrderID),
		field.NewExecID(r.ExecID),
		field.NewExecTransType(enum.ExecTransType_NEW),
		field.NewExecType(execType42(r)),
		field.NewOrdStatus(r.OrdStatus),
		field.NewSymbol(r.Symbol),
		field.NewSide(r.Side),
		field.NewLeavesQty(r.LeavesQty, scaleOf(r.LeavesQty)),
		field.NewCumQty(r.CumQty, scaleOf(r.CumQty)),
		field.NewAvgPx(r.AvgPx, scaleOf(r.AvgPx)),
	)

	msg.SetClOrdID(r.ClOrdID)
	if r.OrigClOrdID != "" {
		msg.SetOrigClOrdID(r.OrigClOrdID)
	}
	if r.Account != "" {
		msg.SetAccount(r.Account)
	}
	msg.SetOrderQty(r.OrderQty, scaleOf(r.OrderQty))
	if !r.Price.IsZero() {
		msg.SetPrice(r.Price, scaleOf(r.Price))
	}
	if r.TimeInForce != "" {
		msg.SetTimeInForce(r.TimeInForce)
	}
	if r.LastQty.IsPositive() {
		msg.SetLastShares(r.LastQty, scaleOf(r.LastQty))
		msg.SetLastPx(r.LastPx, scaleOf(r.LastPx))
	}
	if r.OrdRejReason != "" {
		msg.SetOrdRejReason(r.OrdRejReason)
	}
	if r.Text != "" {
		msg.SetText(r.Text)
	}
	msg.SetTransactTime(r.TransactTime)
	return msg
}

func toCancelReject44(r *CancelReject) ocj44.OrderCancelReject {
	msg := ocj44.New(
		field.NewOrderID(r.OrderID),
		field.NewClOrdID(r.ClOrdID),
		field.NewOrigClOrdID(r.OrigClOrdID),
		field.NewOrdStatus(r.OrdStatus),
		field.NewCxlRejResponseTo(r.CxlRejResponseTo),
	)
	msg.SetCxlRejReason(r.CxlRejReason)
	if r.Text != "" {
		msg.SetText(r.Text)
	}
	return msg
}

func toCancelReject42(r *CancelReject) ocj42.OrderCancelReject {
	msg := ocj42.New(
		field.NewOrderID(r.OrderID),
		field.NewClOrdID(r.ClOrdID),
		field.NewOrigClOrdID(r.OrigClOrdID),
		field.NewOrdStatus(r.OrdStatus),
		field.NewCxlRejResponseTo(r.CxlRejResponseTo),
	)
	msg.SetCxlRejReason(r.CxlRejReason)
	if r.Text != "" {
		msg.SetText(r.Text)
	}
	return msg
}

// SessionReporter sends reports back over the FIX session they belong to,
// in the session's FIX version.
type SessionReporter struct {
	logger *zap.Logger
}

func NewSessionReporter(logger *zap.Logger) *SessionReporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionReporter{logger: logger}
}

func (s *SessionReporter) ExecutionReport(sessionID quickfix.SessionID, r *ExecReport) {
	var msg quickfix.Messagable
	if sessionID.BeginString == quickfix.BeginStringFIX42 {
		msg = toExecutionReport42(r)
	} else {
		msg = toExecutionReport44(r)
	}
	s.send(msg, sessionID)
}

func (s *SessionReporter) CancelReject(sessionID quickfix.SessionID, r *CancelReject) {
	var msg quickfix.Messagable
	if sessionID.BeginString == quickfix.BeginStringFIX42 {
		msg = toCancelReject42(r)
	} else {
		msg = toCancelReject44(r)
	}
	s.send(msg, sessionID)
}

func (s *SessionReporter) send(msg quickfix.Messagable, sessionID quickfix.SessionID) {
	if err := quickfix.SendToTarget(msg, sessionID); err != nil {
		s.logger.Warn("send to target", zap.Stringer("session", sessionID), zap.Error(err))
	}
}
