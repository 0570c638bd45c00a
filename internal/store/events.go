package store

import "sync"

// Event is a message published by the store. Subscribers switch on the
// concrete type.
type Event interface {
	EventName() string
}

// ViewUpdated carries the current page after any change to records or view
// state.
type ViewUpdated struct {
	Page Page `json:"page"`
}

// Level is the severity of a Notice.
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// Notice is a user-facing message.
type Notice struct {
	Level Level  `json:"level"`
	Text  string `json:"text"`
}

// ViewSwitched is published when the store changes the active view on its
// own, e.g. after loading a snapshot.
type ViewSwitched struct {
	View View `json:"view"`
}

// EditCleared is published when the record being edited is no longer
// being edited.
type EditCleared struct{}

func (ViewUpdated) EventName() string  { return "view-updated" }
func (Notice) EventName() string       { return "notice" }
func (ViewSwitched) EventName() string { return "view-switched" }
func (EditCleared) EventName() string  { return "edit-cleared" }

// Dispatcher fans events out to subscribers synchronously, in subscription
// order. Subscribers must not call back into the store.
type Dispatcher struct {
	mu   sync.RWMutex
	next int
	subs []subscription
}

type subscription struct {
	id int
	fn func(Event)
}

// NewDispatcher returns a dispatcher with no subscribers.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{}
}

// Subscribe registers fn and returns a function that removes it.
func (d *Dispatcher) Subscribe(fn func(Event)) (unsubscribe func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	id := d.next
	d.next++
	d.subs = append(d.subs, subscription{id: id, fn: fn})

	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		for i, s := range d.subs {
			if s.id == id {
				d.subs = append(d.subs[:i:i], d.subs[i+1:]...)
				return
			}
		}
	}
}

// Publish delivers events to every subscriber.
func (d *Dispatcher) Publish(events ...Event) {
	d.mu.RLock()
	subs := make([]subscription, len(d.subs))
	copy(subs, d.subs)
	d.mu.RUnlock()

	for _, e := range events {
		for _, s := range subs {
			s.fn(e)
		}
	}
}
