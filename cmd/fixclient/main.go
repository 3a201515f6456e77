package main

import (
	"flag"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/quickfixgo/enum"
	"github.com/quickfixgo/field"
	fix44er "github.com/quickfixgo/fix44/executionreport"
	fix44nos "github.com/quickfixgo/fix44/newordersingle"
	fix44ocrr "github.com/quickfixgo/fix44/ordercancelreplacerequest"
	fix44ocr "github.com/quickfixgo/fix44/ordercancelrequest"
	"github.com/quickfixgo/quickfix"
	"github.com/quickfixgo/quickfix/log/file"
	"github.com/shopspring/decimal"
)

var symbol string

// InitiatorApp runs a short scripted session against the matcher: rest a
// sell, cross part of it with an IOC buy, amend the rest, then cancel it.
type InitiatorApp struct {
	*quickfix.MessageRouter
}

func newInitiatorApp() *InitiatorApp {
	app := &InitiatorApp{MessageRouter: quickfix.NewMessageRouter()}
	app.AddRoute(fix44er.Route(app.onExecutionReport))
	return app
}

func (a *InitiatorApp) OnCreate(sessionID quickfix.SessionID) {}

func (a *InitiatorApp) OnLogon(sessionID quickfix.SessionID) {
	log.Println("Logon success", sessionID)
	go runScenario(sessionID)
}

func (a *InitiatorApp) OnLogout(sessionID quickfix.SessionID)                       {}
func (a *InitiatorApp) ToAdmin(msg *quickfix.Message, sessionID quickfix.SessionID) {}
func (a *InitiatorApp) ToApp(msg *quickfix.Message, sessionID quickfix.SessionID) error {
	return nil
}
func (a *InitiatorApp) FromAdmin(msg *quickfix.Message, sessionID quickfix.SessionID) quickfix.MessageRejectError {
	return nil
}
func (a *InitiatorApp) FromApp(msg *quickfix.Message, sessionID quickfix.SessionID) quickfix.MessageRejectError {
	if err := a.Route(msg, sessionID); err != nil {
		log.Println("unhandled", msg.String())
	}
	return nil
}

func (a *InitiatorApp) onExecutionReport(msg fix44er.ExecutionReport, sessionID quickfix.SessionID) quickfix.MessageRejectError {
	clOrdID, _ := msg.GetClOrdID()
	execType, _ := msg.GetExecType()
	ordStatus, _ := msg.GetOrdStatus()
	cumQty, _ := msg.GetCumQty()
	leavesQty, _ := msg.GetLeavesQty()
	text, _ := msg.GetText()
	log.Printf("exec report clOrdID=%s execType=%s status=%s cum=%s leaves=%s %s",
		clOrdID, execType, ordStatus, cumQty, leavesQty, text)
	return nil
}

func newOrder(sessionID quickfix.SessionID, account string, side enum.Side, tif enum.TimeInForce, px, qty int64) string {
	clOrdID := randSeq(17)
	order := fix44nos.New(
		field.NewClOrdID(clOrdID),
		field.NewSide(side),
		field.NewTransactTime(time.Now()),
		field.NewOrdType(enum.OrdType_LIMIT))
	order.SetSymbol(symbol)
	order.SetAccount(account)
	order.SetPrice(decimal.NewFromInt(px), 0)
	order.SetOrderQty(decimal.NewFromInt(qty), 0)
	order.SetTimeInForce(tif)
	send(order, sessionID)
	return clOrdID
}

func runScenario(sessionID quickfix.SessionID) {
	sellID := newOrder(sessionID, "seller", enum.Side_SELL, enum.TimeInForce_DAY, 14700, 500)
	time.Sleep(100 * time.Millisecond)

	newOrder(sessionID, "buyer", enum.Side_BUY, enum.TimeInForce_IMMEDIATE_OR_CANCEL, 14800, 200)
	time.Sleep(100 * time.Millisecond)

	replaceID := randSeq(17)
	replace := fix44ocrr.New(
		field.NewOrigClOrdID(sellID),
		field.NewClOrdID(replaceID),
		field.NewSide(enum.Side_SELL),
		field.NewTransactTime(time.Now()),
		field.NewOrdType(enum.OrdType_LIMIT))
	replace.SetSymbol(symbol)
	replace.SetAccount("seller")
	replace.SetPrice(decimal.NewFromInt(14750), 0)
	replace.SetOrderQty(decimal.NewFromInt(400), 0)
	send(replace, sessionID)
	time.Sleep(100 * time.Millisecond)

	cancel := fix44ocr.New(
		field.NewOrigClOrdID(replaceID),
		field.NewClOrdID(randSeq(17)),
		field.NewSide(enum.Side_SELL),
		field.NewTransactTime(time.Now()))
	cancel.SetSymbol(symbol)
	cancel.SetAccount("seller")
	send(cancel, sessionID)
}

func send(msg quickfix.Messagable, sessionID quickfix.SessionID) {
	if err := quickfix.SendToTarget(msg, sessionID); err != nil {
		log.Println("send", err)
	}
}

func main() {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "./config/fixclient.cfg", "FIX initiator config")
	flag.StringVar(&symbol, "symbol", "XBT_USD", "symbol to trade")
	flag.Parse()
	log.Println("cfgPath:", cfgPath)

	cfg, err := os.Open(cfgPath)
	if err != nil {
		log.Fatal(err)
	}
	defer cfg.Close() // nolint

	settings, err := quickfix.ParseSettings(cfg)
	if err != nil {
		log.Fatal(err)
	}

	storeFactory := quickfix.NewMemoryStoreFactory()
	logFactory, _ := file.NewLogFactory(settings)
	initiator, err := quickfix.NewInitiator(newInitiatorApp(), storeFactory, settings, logFactory)
	if err != nil {
		log.Fatal(err)
	}
	if err := initiator.Start(); err != nil {
		log.Fatal(err)
	}
	log.Println("Initiator started...")

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	initiator.Stop()
}

var letters = []rune("abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ")

func randSeq(n int) string {
	b := make([]rune, n)
	for i := range b {
		b[i] = letters[rand.Intn(len(letters))]
	}
	return string(b)
}
