package fixgateway

import (
	"bytes"
	"fmt"
	"os"

	"github.com/joripage/go_util/pkg/shardqueue"
	nos42 "github.com/quickfixgo/fix42/newordersingle"
	ocrr42 "github.com/quickfixgo/fix42/ordercancelreplacerequest"
	ocr42 "github.com/quickfixgo/fix42/ordercancelrequest"
	nos44 "github.com/quickfixgo/fix44/newordersingle"
	ocrr44 "github.com/quickfixgo/fix44/ordercancelreplacerequest"
	ocr44 "github.com/quickfixgo/fix44/ordercancelrequest"
	"github.com/quickfixgo/quickfix"
	"github.com/quickfixgo/quickfix/log/file"
	"github.com/quickfixgo/tag"
	"go.uber.org/zap"
)

// Application implements the quickfix.Application interface
type Application struct {
	*quickfix.MessageRouter
	cfg        AppConfig
	quitEvent  chan bool
	dispatcher chan *inboundMsg
	shardQueue *shardqueue.Shardqueue

	gateway *Gateway
	logger  *zap.Logger
}

// AppConfig selects how inbound messages reach the gateway. With neither
// option set, messages are handled on the session goroutine, which is only
// safe with a single session.
type AppConfig struct {
	EnableQueue      bool
	EnableShardQueue bool
	ShardCount       int
}

type inboundMsg struct {
	msg       *quickfix.Message
	sessionID quickfix.SessionID
}

const (
	defaultShards = 16
	queueSize     = 1_000_000
)

func newApplication(cfg AppConfig, gateway *Gateway, logger *zap.Logger) *Application {
	app := &Application{
		MessageRouter: quickfix.NewMessageRouter(),
		cfg:           cfg,
		quitEvent:     make(chan bool, 1),
		gateway:       gateway,
		logger:        logger,
	}

	app.AddRoute(nos44.Route(app.onNewOrderSingle44))
	app.AddRoute(ocr44.Route(app.onOrderCancelRequest44))
	app.AddRoute(ocrr44.Route(app.onOrderCancelReplaceRequest44))
	app.AddRoute(nos42.Route(app.onNewOrderSingle42))
	app.AddRoute(ocr42.Route(app.onOrderCancelRequest42))
	app.AddRoute(ocrr42.Route(app.onOrderCancelReplaceRequest42))

	if app.cfg.EnableShardQueue {
		shards := app.cfg.ShardCount
		if shards <= 0 {
			shards = defaultShards
		}
		app.shardQueue = shardqueue.NewShardQueue(shards, queueSize)
		app.shardQueue.Start(func(msg interface{}) error {
			if v, ok := msg.(*inboundMsg); ok {
				app.route(v)
			}
			return nil
		})
	} else if app.cfg.EnableQueue {
		app.dispatcher = make(chan *inboundMsg, queueSize)
		go app.runDispatcher()
	}

	return app
}

// Acceptor runs the FIX acceptor until Stop is called.
type Acceptor struct {
	app *Application
}

func Start(configFilepath string, cfg AppConfig, gateway *Gateway, logger *zap.Logger) (*Acceptor, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	data, err := os.ReadFile(configFilepath)
	if err != nil {
		return nil, fmt.Errorf("read fix config %s: %w", configFilepath, err)
	}

	appSettings, err := quickfix.ParseSettings(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse fix config: %w", err)
	}

	app := newApplication(cfg, gateway, logger)

	logFactory, err := file.NewLogFactory(appSettings)
	if err != nil {
		return nil, fmt.Errorf("fix log factory: %w", err)
	}
	acceptor, err := quickfix.NewAcceptor(app, quickfix.NewMemoryStoreFactory(), appSettings, logFactory)
	if err != nil {
		return nil, fmt.Errorf("unable to create acceptor: %w", err)
	}

	if err := acceptor.Start(); err != nil {
		return nil, fmt.Errorf("unable to start FIX acceptor: %w", err)
	}

	go func() {
		<-app.quitEvent
		acceptor.Stop()
	}()

	return &Acceptor{app: app}, nil
}

func (a *Acceptor) Stop() {
	select {
	case a.app.quitEvent <- true:
	default:
	}
}

// OnCreate implemented as part of Application interface
func (a *Application) OnCreate(sessionID quickfix.SessionID) {}

// OnLogon implemented as part of Application interface
func (a *Application) OnLogon(sessionID quickfix.SessionID) {
	a.logger.Info("fix logon", zap.Stringer("session", sessionID))
}

// OnLogout implemented as part of Application interface
func (a *Application) OnLogout(sessionID quickfix.SessionID) {
	a.logger.Info("fix logout", zap.Stringer("session", sessionID))
}

// ToAdmin implemented as part of Application interface
func (a *Application) ToAdmin(msg *quickfix.Message, sessionID quickfix.SessionID) {}

// ToApp implemented as part of Application interface
func (a *Application) ToApp(msg *quickfix.Message, sessionID quickfix.SessionID) error {
	return nil
}

// FromAdmin implemented as part of Application interface
func (a *Application) FromAdmin(msg *quickfix.Message, sessionID quickfix.SessionID) quickfix.MessageRejectError {
	return nil
}

// FromApp implemented as part of Application interface, uses Router on incoming application messages
func (a *Application) FromApp(msg *quickfix.Message, sessionID quickfix.SessionID) quickfix.MessageRejectError {
	if a.cfg.EnableShardQueue {
		a.shardQueue.Shard(routingKey(msg, sessionID), &inboundMsg{msg, sessionID})
		return nil
	} else if a.cfg.EnableQueue {
		a.dispatcher <- &inboundMsg{msg, sessionID}
		return nil
	}

	return a.Route(msg, sessionID)
}

// routingKey keeps every message of a symbol on the same shard, which the
// book requires.
func routingKey(msg *quickfix.Message, sessionID quickfix.SessionID) string {
	if symbol, err := msg.Body.GetString(tag.Symbol); err == nil && symbol != "" {
		return symbol
	}

	if msgType, err := msg.Header.GetString(tag.MsgType); err == nil {
		return "MSGTYPE:" + msgType
	}

	return sessionID.String()
}

func (a *Application) runDispatcher() {
	for msg := range a.dispatcher {
		a.route(msg)
	}
}

func (a *Application) route(in *inboundMsg) {
	if err := a.Route(in.msg, in.sessionID); err != nil {
		a.logger.Warn("route error", zap.Stringer("session", in.sessionID), zap.Error(err))
	}
}

func (a *Application) onNewOrderSingle44(msg nos44.NewOrderSingle, sessionID quickfix.SessionID) quickfix.MessageRejectError {
	a.gateway.OnNewOrderSingle(fromNewOrderSingle44(msg, sessionID))
	return nil
}

func (a *Application) onOrderCancelRequest44(msg ocr44.OrderCancelRequest, sessionID quickfix.SessionID) quickfix.MessageRejectError {
	a.gateway.OnOrderCancelRequest(fromOrderCancelRequest44(msg, sessionID))
	return nil
}

func (a *Application) onOrderCancelReplaceRequest44(msg ocrr44.OrderCancelReplaceRequest, sessionID quickfix.SessionID) quickfix.MessageRejectError {
	a.gateway.OnOrderCancelReplaceRequest(fromOrderCancelReplaceRequest44(msg, sessionID))
	return nil
}

func (a *Application) onNewOrderSingle42(msg nos42.NewOrderSingle, sessionID quickfix.SessionID) quickfix.MessageRejectError {
	a.gateway.OnNewOrderSingle(fromNewOrderSingle42(msg, sessionID))
	return nil
}

func (a *Application) onOrderCancelRequest42(msg ocr42.OrderCancelRequest, sessionID quickfix.SessionID) quickfix.MessageRejectError {
	a.gateway.OnOrderCancelRequest(fromOrderCancelRequest42(msg, sessionID))
	return nil
}

func (a *Application) onOrderCancelReplaceRequest42(msg ocrr42.OrderCancelReplaceRequest, sessionID quickfix.SessionID) quickfix.MessageRejectError {
	a.gateway.OnOrderCancelReplaceRequest(fromOrderCancelReplaceRequest42(msg, sessionID))
	return nil
}
