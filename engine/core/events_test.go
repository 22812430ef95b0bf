package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type listener struct {
	name     string
	received []EventContext
	handle   bool
}

func (l *listener) onEvent(context EventContext) bool {
	l.received = append(l.received, context)
	return l.handle
}

func TestEventBusFire(t *testing.T) {
	bus := NewEventBus()
	first := &listener{name: "first", handle: true}
	second := &listener{name: "second"}

	assert.True(t, bus.Register(EventCodeResized, second, second.onEvent))
	assert.True(t, bus.Register(EventCodeResized, first, first.onEvent))
	assert.False(t, bus.Register(EventCodeResized, first, first.onEvent))

	handled := bus.Fire(EventContext{Code: EventCodeResized, Data: ResizeEvent{Width: 800, Height: 600}})
	assert.True(t, handled)
	assert.Len(t, second.received, 1)
	assert.Len(t, first.received, 1)
	assert.Equal(t, ResizeEvent{Width: 800, Height: 600}, first.received[0].Data)

	assert.True(t, bus.Unregister(EventCodeResized, first))
	assert.False(t, bus.Unregister(EventCodeResized, first))
	assert.False(t, bus.Fire(EventContext{Code: EventCodeResized}))
	assert.Len(t, second.received, 2)
	assert.Len(t, first.received, 1)

	assert.False(t, bus.Fire(EventContext{Code: EventCodeApplicationQuit}))
	bus.Shutdown()
	assert.False(t, bus.Fire(EventContext{Code: EventCodeResized}))
	assert.Len(t, second.received, 2)
}

func TestInputProcessKey(t *testing.T) {
	bus := NewEventBus()
	keys := &listener{}
	bus.Register(EventCodeKeyPressed, keys, keys.onEvent)
	bus.Register(EventCodeKeyReleased, keys, keys.onEvent)

	in := NewInput(bus)
	in.ProcessKey(KeyEscape, true)
	in.ProcessKey(KeyEscape, true)
	assert.True(t, in.IsKeyDown(KeyEscape))
	assert.False(t, in.WasKeyDown(KeyEscape))

	in.Update()
	assert.True(t, in.WasKeyDown(KeyEscape))
	in.ProcessKey(KeyEscape, false)
	assert.True(t, in.IsKeyUp(KeyEscape))

	in.ProcessKey(KeyUnknown, true)

	if assert.Len(t, keys.received, 2) {
		assert.Equal(t, EventCodeKeyPressed, keys.received[0].Code)
		assert.Equal(t, KeyEvent{KeyCode: KeyEscape}, keys.received[0].Data)
		assert.Equal(t, EventCodeKeyReleased, keys.received[1].Code)
	}
}
