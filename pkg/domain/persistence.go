package domain

import "context"

// Transaction exposes the mutations a keyed store applies atomically. Reads
// observe the pending state, including writes made earlier in the same
// transaction.
type Transaction interface {
	Read(path string) (any, bool, error)
	Set(path string, value any) error
	Update(path string, fields map[string]any) error
	Delete(path string) error
	GenerateKey(parent string) string
}

// Event carries the value at a watched path after a committed change. Exists
// is false when nothing is stored there.
type Event struct {
	Path   string
	Value  any
	Exists bool
}

// Watcher delivers an Event immediately after creation and again after every
// commit touching the watched subtree, an ancestor, or a descendant. Events
// coalesce: a slow consumer receives the latest value, never a stale one.
// The channel is closed once the watcher is cancelled.
type Watcher interface {
	Events() <-chan Event
	Cancel()
	Done() <-chan struct{}
}

// KeyedStore is a tree-structured key/value store with push-on-change
// subscriptions.
type KeyedStore interface {
	// Write overwrites the value at path; a nil value deletes it.
	Write(ctx context.Context, path string, value any) error
	// Update merges fields into the value at path. Field keys may be relative
	// multi-segment paths and nil values delete. All fields apply atomically.
	Update(ctx context.Context, path string, fields map[string]any) error
	// Read returns a deep copy of the value at path.
	Read(ctx context.Context, path string) (any, bool, error)
	// GenerateKey returns an identifier unique under parent without writing.
	GenerateKey(parent string) string
	// RunInTransaction applies every mutation made by fn in a single commit.
	RunInTransaction(ctx context.Context, fn func(Transaction) error) error
	// Watch subscribes to changes of the subtree at path.
	Watch(ctx context.Context, path string) (Watcher, error)
}

// PersistentStore is a KeyedStore backed by a durable medium.
type PersistentStore interface {
	KeyedStore
	Close() error
}

// SubscribeFunc adapts Watch to the callback form: fn runs for the initial
// value and for every change until the returned cancel function is called or
// ctx ends. Callbacks run sequentially on a dedicated goroutine.
func SubscribeFunc(ctx context.Context, store KeyedStore, path string, fn func(Event)) (func(), error) {
	w, err := store.Watch(ctx, path)
	if err != nil {
		return nil, err
	}
	go func() {
		for ev := range w.Events() {
			fn(ev)
		}
	}()
	return w.Cancel, nil
}
