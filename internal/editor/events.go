package editor

import (
	"context"
	"sync"

	"inkpost/internal/models"
)

// EventKind identifies a user action that carries files into the editor.
type EventKind string

const (
	EventDrop  EventKind = "drop"
	EventPaste EventKind = "paste"
	EventPick  EventKind = "pick"
)

// Event is one drop, paste or file-picker action.
type Event struct {
	Kind  EventKind
	Files []models.File
	Text  string
}

// Handler reacts to an event on b. Returning handled=true stops the
// default behaviour and later handlers.
type Handler func(ctx context.Context, b *Buffer, ev Event) (handled bool, err error)

// Subscription is one registered handler. Close removes it.
type Subscription struct {
	id      uint64
	kind    EventKind
	handler Handler
	buffer  *Buffer
	once    sync.Once
}

// Close unregisters the handler. It is safe to call more than once.
func (s *Subscription) Close() error {
	if s == nil {
		return nil
	}
	s.once.Do(func() {
		s.buffer.unsubscribe(s.id)
	})
	return nil
}

// SubscriptionGroup closes a set of subscriptions together.
type SubscriptionGroup struct {
	mu   sync.Mutex
	subs []*Subscription
}

func (g *SubscriptionGroup) Add(sub *Subscription) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.subs = append(g.subs, sub)
}

// Close closes every subscription in the group.
func (g *SubscriptionGroup) Close() error {
	g.mu.Lock()
	subs := g.subs
	g.subs = nil
	g.mu.Unlock()
	for _, sub := range subs {
		_ = sub.Close()
	}
	return nil
}

// Subscribe registers h for events of kind. Handlers run in registration order.
func (b *Buffer) Subscribe(kind EventKind, h Handler) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	sub := &Subscription{id: b.nextID, kind: kind, handler: h, buffer: b}
	b.subs = append(b.subs, sub)
	return sub
}

// SubscriberCount returns how many handlers are registered for kind.
func (b *Buffer) SubscriberCount(kind EventKind) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	count := 0
	for _, sub := range b.subs {
		if sub.kind == kind {
			count++
		}
	}
	return count
}

func (b *Buffer) unsubscribe(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, sub := range b.subs {
		if sub.id == id {
			b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
			return
		}
	}
}

// Drop delivers dropped files to the drop handlers.
func (b *Buffer) Drop(ctx context.Context, files []models.File) error {
	_, err := b.dispatch(ctx, Event{Kind: EventDrop, Files: files})
	return err
}

// Paste delivers clipboard content. Unhandled text is inserted as typing.
func (b *Buffer) Paste(ctx context.Context, text string, files []models.File) error {
	handled, err := b.dispatch(ctx, Event{Kind: EventPaste, Files: files, Text: text})
	if err != nil || handled || text == "" {
		return err
	}
	return b.Input(text)
}

// Pick delivers files chosen through the toolbar file picker.
func (b *Buffer) Pick(ctx context.Context, files []models.File) error {
	_, err := b.dispatch(ctx, Event{Kind: EventPick, Files: files})
	return err
}

func (b *Buffer) dispatch(ctx context.Context, ev Event) (bool, error) {
	b.mu.Lock()
	if b.readOnly {
		b.mu.Unlock()
		return false, ErrReadOnly
	}
	handlers := make([]Handler, 0, len(b.subs))
	for _, sub := range b.subs {
		if sub.kind == ev.Kind {
			handlers = append(handlers, sub.handler)
		}
	}
	b.mu.Unlock()

	for _, h := range handlers {
		handled, err := h(ctx, b, ev)
		if err != nil {
			return handled, err
		}
		if handled {
			return true, nil
		}
	}
	return false, nil
}
