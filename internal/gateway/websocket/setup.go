package websocket

import (
	"context"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/kandev/executorconfig/internal/common/logger"
	"github.com/kandev/executorconfig/internal/events/bus"
	ws "github.com/kandev/executorconfig/pkg/websocket"
)

// Path is where the upgrade handler is mounted.
const Path = "/ws"

// Gateway serves executor config actions over WebSocket and pushes session
// notifications from the event bus to subscribed clients.
type Gateway struct {
	Hub        *Hub
	Dispatcher *ws.Dispatcher
	Handler    *Handler

	eventBus bus.EventBus
	logger   *logger.Logger
}

// NewGateway wires a hub and dispatcher. Action handlers are registered on
// Dispatcher by the executorconfig handlers package.
func NewGateway(eventBus bus.EventBus, log *logger.Logger) *Gateway {
	dispatcher := ws.NewDispatcher()
	RegisterHealthHandler(dispatcher)
	hub := NewHub(dispatcher, log)

	return &Gateway{
		Hub:        hub,
		Dispatcher: dispatcher,
		Handler:    NewHandler(hub, log),
		eventBus:   eventBus,
		logger:     log.WithFields(zap.String("component", "ws-gateway")),
	}
}

// Listen forwards executor config events to the hub until ctx is done.
func (g *Gateway) Listen(ctx context.Context) *ExecutorConfigBroadcaster {
	return RegisterExecutorConfigNotifications(ctx, g.eventBus, g.Hub, g.logger)
}

// Run listens for events and serves the hub until ctx is done.
func (g *Gateway) Run(ctx context.Context) error {
	g.Listen(ctx)
	g.logger.Debug("serving executor config actions", zap.Strings("actions", g.Dispatcher.Actions()))
	g.Hub.Run(ctx)
	return nil
}

// Mount adds the upgrade route.
func (g *Gateway) Mount(router gin.IRoutes) {
	router.GET(Path, g.Handler.HandleConnection)
}
