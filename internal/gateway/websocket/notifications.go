package websocket

import (
	"context"

	"go.uber.org/zap"

	"github.com/kandev/executorconfig/internal/common/logger"
	"github.com/kandev/executorconfig/internal/events"
	"github.com/kandev/executorconfig/internal/events/bus"
	ws "github.com/kandev/executorconfig/pkg/websocket"
)

// sessionActions maps bus subjects to the notification pushed to the
// subscribers of the session named in the event.
var sessionActions = map[string]string{
	events.ExecutorConfigUpdated:   ws.ActionExecutorConfigUpdated,
	events.ExecutorConfigReset:     ws.ActionExecutorConfigReset,
	events.ExecutorConfigSubmitted: ws.ActionExecutorConfigSubmitted,
}

// ExecutorConfigBroadcaster forwards executor config events from the bus to
// WebSocket clients.
type ExecutorConfigBroadcaster struct {
	hub          *Hub
	subscription bus.Subscription
	logger       *logger.Logger
}

// RegisterExecutorConfigNotifications subscribes to executor config events
// until ctx is done.
func RegisterExecutorConfigNotifications(ctx context.Context, eventBus bus.EventBus, hub *Hub, log *logger.Logger) *ExecutorConfigBroadcaster {
	b := &ExecutorConfigBroadcaster{
		hub:    hub,
		logger: log.WithFields(zap.String("component", "ws-executor-config-broadcaster")),
	}
	if eventBus == nil {
		return b
	}

	sub, err := eventBus.Subscribe(events.ExecutorConfigWildcard, b.handle)
	if err != nil {
		b.logger.Error("failed to subscribe to events",
			zap.String("subject", events.ExecutorConfigWildcard),
			zap.Error(err))
		return b
	}
	b.subscription = sub

	go func() {
		<-ctx.Done()
		b.Close()
	}()
	return b
}

func (b *ExecutorConfigBroadcaster) handle(_ context.Context, event *bus.Event) error {
	if event.Type == events.ExecutorProfilesReloaded {
		msg, err := ws.NewNotification(ws.ActionExecutorProfilesUpdated, event.Data)
		if err != nil {
			b.logger.Error("failed to build websocket notification", zap.Error(err))
			return nil
		}
		b.hub.Broadcast(msg)
		return nil
	}

	action, ok := sessionActions[event.Type]
	if !ok {
		return nil
	}
	sessionID := event.SessionID()
	if sessionID == "" {
		return nil
	}
	msg, err := ws.NewNotification(action, event.Data)
	if err != nil {
		b.logger.Error("failed to build websocket notification", zap.String("action", action), zap.Error(err))
		return nil
	}
	b.hub.BroadcastToSession(sessionID, msg)
	return nil
}

// Close drops the bus subscription.
func (b *ExecutorConfigBroadcaster) Close() {
	if b.subscription != nil && b.subscription.IsValid() {
		_ = b.subscription.Unsubscribe()
	}
}
