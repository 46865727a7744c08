package bus

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kandev/executorconfig/internal/common/logger"
)

func receive(t *testing.T, ch <-chan *Event) *Event {
	t.Helper()
	select {
	case e := <-ch:
		return e
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return nil
	}
}

func TestMemoryBusExactAndWildcard(t *testing.T) {
	b := NewMemoryEventBus(logger.Nop())
	defer b.Close()

	exact := make(chan *Event, 1)
	single := make(chan *Event, 1)
	tail := make(chan *Event, 2)

	_, err := b.Subscribe("executorconfig.persisted", func(_ context.Context, e *Event) error { exact <- e; return nil })
	require.NoError(t, err)
	_, err = b.Subscribe("executorconfig.*", func(_ context.Context, e *Event) error { single <- e; return nil })
	require.NoError(t, err)
	_, err = b.Subscribe("executorconfig.>", func(_ context.Context, e *Event) error { tail <- e; return nil })
	require.NoError(t, err)

	ev := NewEvent("executorconfig.persisted", "test", map[string]interface{}{"session_id": "s1"})
	require.NoError(t, b.Publish(context.Background(), "executorconfig.persisted", ev))

	assert.Equal(t, ev.ID, receive(t, exact).ID)
	assert.Equal(t, ev.ID, receive(t, single).ID)
	assert.Equal(t, ev.ID, receive(t, tail).ID)

	require.NoError(t, b.Publish(context.Background(), "executorconfig.session.closed", NewEvent("x", "test", nil)))
	assert.Equal(t, "x", receive(t, tail).Type)
	assert.Empty(t, single)
}

func TestMemoryBusUnsubscribe(t *testing.T) {
	b := NewMemoryEventBus(logger.Nop())
	defer b.Close()

	got := make(chan *Event, 1)
	sub, err := b.Subscribe("a.b", func(_ context.Context, e *Event) error { got <- e; return nil })
	require.NoError(t, err)
	assert.True(t, sub.IsValid())

	require.NoError(t, sub.Unsubscribe())
	assert.False(t, sub.IsValid())
	require.NoError(t, b.Publish(context.Background(), "a.b", NewEvent("t", "test", nil)))

	select {
	case <-got:
		t.Fatal("unsubscribed handler was called")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestMemoryBusClosed(t *testing.T) {
	b := NewMemoryEventBus(logger.Nop())
	assert.True(t, b.IsConnected())
	b.Close()
	assert.False(t, b.IsConnected())
	assert.Error(t, b.Publish(context.Background(), "a", NewEvent("t", "test", nil)))
	_, err := b.Subscribe("a", func(context.Context, *Event) error { return nil })
	assert.Error(t, err)
}

func TestCompilePattern(t *testing.T) {
	assert.Nil(t, compilePattern("a.b"))
	assert.True(t, matches("a.x.c", "a.*.c", compilePattern("a.*.c")))
	assert.False(t, matches("a.x.y.c", "a.*.c", compilePattern("a.*.c")))
	assert.True(t, matches("a.x.y", "a.>", compilePattern("a.>")))
	assert.False(t, matches("a", "a.>", compilePattern("a.>")))
}

func TestNewSessionEvent(t *testing.T) {
	ev := NewSessionEvent("executorconfig.reset", "test",
		SessionRef{SessionID: "s1", ContextID: "ws-1", Scope: "global"},
		map[string]interface{}{"from": "A:DEFAULT"})

	assert.Equal(t, "s1", ev.SessionID())
	assert.Equal(t, "ws-1", ev.Data[KeyContextID])
	assert.Equal(t, "global", ev.Data[KeyScope])
	assert.Equal(t, "A:DEFAULT", ev.Data["from"])
	assert.NotEmpty(t, ev.ID)

	assert.Empty(t, NewEvent("executorconfig.profiles.reloaded", "test", nil).SessionID())
	var nilEvent *Event
	assert.Empty(t, nilEvent.SessionID())
}
