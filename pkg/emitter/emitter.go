// Package emitter provides the listener registry wallet providers use to
// deliver account and disconnect notifications.
package emitter

import (
	"sync"

	walletsession "github.com/x402-foundation/walletsession"
)

type listener struct {
	id      walletsession.ListenerID
	handler walletsession.EventHandler
}

// Emitter implements walletsession.EventSource. Emit delivers events serially:
// a second Emit waits until every handler of the first has returned.
type Emitter struct {
	mu        sync.Mutex
	nextID    walletsession.ListenerID
	listeners map[walletsession.EventName][]listener

	dispatchMu sync.Mutex
}

// New creates an empty Emitter
func New() *Emitter {
	return &Emitter{
		listeners: make(map[walletsession.EventName][]listener),
	}
}

// On registers handler for name and returns its removal handle
func (e *Emitter) On(name walletsession.EventName, handler walletsession.EventHandler) walletsession.ListenerID {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.nextID++
	e.listeners[name] = append(e.listeners[name], listener{id: e.nextID, handler: handler})
	return e.nextID
}

// RemoveListener detaches the handler registered under id
func (e *Emitter) RemoveListener(name walletsession.EventName, id walletsession.ListenerID) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	registered := e.listeners[name]
	for i, l := range registered {
		if l.id != id {
			continue
		}
		e.listeners[name] = append(registered[:i:i], registered[i+1:]...)
		if len(e.listeners[name]) == 0 {
			delete(e.listeners, name)
		}
		return true
	}
	return false
}

// ListenerCount returns how many handlers are registered for name
func (e *Emitter) ListenerCount(name walletsession.EventName) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.listeners[name])
}

// Emit calls every handler registered for ev.Name in registration order.
// Handlers must not call Emit themselves.
func (e *Emitter) Emit(ev walletsession.Event) {
	e.dispatchMu.Lock()
	defer e.dispatchMu.Unlock()

	e.mu.Lock()
	handlers := make([]walletsession.EventHandler, 0, len(e.listeners[ev.Name]))
	for _, l := range e.listeners[ev.Name] {
		handlers = append(handlers, l.handler)
	}
	e.mu.Unlock()

	for _, handler := range handlers {
		handler(ev)
	}
}
