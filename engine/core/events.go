package core

import "sync"

// System internal event codes. Application should use codes beyond MaxEventCode.
type EventCode uint16

const (
	// Shuts the application down on the next tick.
	EventCodeApplicationQuit EventCode = iota + 1
	// Keyboard key pressed. Data is a KeyEvent.
	EventCodeKeyPressed
	// Keyboard key released. Data is a KeyEvent.
	EventCodeKeyReleased
	// Framebuffer resized by the OS. Data is a ResizeEvent.
	EventCodeResized
	// The swapchain was rebuilt after a resize or an out of date present. Data is a ResizeEvent.
	EventCodeSwapchainRecreated

	MaxEventCode EventCode = 0xFF
)

type EventContext struct {
	Code   EventCode
	Sender interface{}
	Data   interface{}
}

type KeyEvent struct {
	KeyCode KeyCode
}

type ResizeEvent struct {
	Width  uint32
	Height uint32
}

// Should return true if handled.
type FnOnEvent func(context EventContext) bool

type registeredEvent struct {
	listener interface{}
	callback FnOnEvent
}

// EventBus dispatches events synchronously on the goroutine that fires them.
type EventBus struct {
	mu         sync.Mutex
	registered map[EventCode][]registeredEvent
}

func NewEventBus() *EventBus {
	return &EventBus{registered: make(map[EventCode][]registeredEvent)}
}

/**
 * Register to listen for when events are sent with the provided code. A listener registers
 * at most once per code, a second registration returns false.
 */
func (eb *EventBus) Register(code EventCode, listener interface{}, onEvent FnOnEvent) bool {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	for _, e := range eb.registered[code] {
		if e.listener == listener {
			LogWarn("listener already registered for event code %d", code)
			return false
		}
	}
	eb.registered[code] = append(eb.registered[code], registeredEvent{listener: listener, callback: onEvent})
	return true
}

// Unregister removes the registration of listener for code. It returns false if there was none.
func (eb *EventBus) Unregister(code EventCode, listener interface{}) bool {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	events := eb.registered[code]
	for i, e := range events {
		if e.listener == listener {
			eb.registered[code] = append(events[:i:i], events[i+1:]...)
			return true
		}
	}
	return false
}

/**
 * Fires an event to listeners of its code. If a listener returns true the event is
 * considered handled and is not passed on to any more listeners.
 */
func (eb *EventBus) Fire(context EventContext) bool {
	eb.mu.Lock()
	events := append([]registeredEvent(nil), eb.registered[context.Code]...)
	eb.mu.Unlock()

	for _, e := range events {
		if e.callback(context) {
			return true
		}
	}
	return false
}

// Shutdown drops every registration.
func (eb *EventBus) Shutdown() {
	eb.mu.Lock()
	eb.registered = make(map[EventCode][]registeredEvent)
	eb.mu.Unlock()
}
