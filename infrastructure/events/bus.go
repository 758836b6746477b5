// Package events carries typed notifications between the parts of one
// session workspace.
package events

import (
	"reflect"
	"slices"
	"sync"
)

// DatabaseSelected is published when the user picks a document database.
type DatabaseSelected struct {
	Name string
}

// HistoryLoaded is published when a past question is loaded into the chat
// view.
type HistoryLoaded struct {
	Database string
	Question string
	Answer   string
}

// Upload channels.
const (
	ChannelDatabase = "database"
	ChannelS3       = "s3"
)

// UploadSucceeded is published for every upload that reaches done.
type UploadSucceeded struct {
	Channel string
	Target  string
	File    string
}

type subscriber struct {
	id int
	fn func(any)
}

// Bus delivers messages synchronously to subscribers of the message type,
// in subscription order. The zero value is ready to use.
type Bus struct {
	mu     sync.RWMutex
	nextID int
	subs   map[reflect.Type][]subscriber
}

// Subscribe registers fn for messages of type T and returns a function that
// removes it.
func Subscribe[T any](b *Bus, fn func(T)) (unsubscribe func()) {
	t := reflect.TypeFor[T]()
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.subs == nil {
		b.subs = make(map[reflect.Type][]subscriber)
	}
	b.nextID++
	id := b.nextID
	b.subs[t] = append(b.subs[t], subscriber{id: id, fn: func(v any) { fn(v.(T)) }})

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			b.subs[t] = slices.DeleteFunc(b.subs[t], func(s subscriber) bool { return s.id == id })
		})
	}
}

// Publish delivers msg to every subscriber of T. Handlers run on the
// caller's goroutine after the bus lock is released, so they may publish.
func Publish[T any](b *Bus, msg T) int {
	b.mu.RLock()
	subs := slices.Clone(b.subs[reflect.TypeFor[T]()])
	b.mu.RUnlock()
	for _, s := range subs {
		s.fn(msg)
	}
	return len(subs)
}
