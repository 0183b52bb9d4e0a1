package memory

import (
	"context"
	"sync"

	"roomtrack/pkg/domain"
)

// watcher is a coalescing mailbox: commits overwrite the pending event and
// poke notify without blocking; run forwards the latest event to out.
type watcher struct {
	store  *Store
	path   string
	segs   []string
	out    chan domain.Event
	notify chan struct{}
	done   chan struct{}
	once   sync.Once

	mu         sync.Mutex
	pending    domain.Event
	hasPending bool
}

// Watch subscribes to the subtree at path. The current value is delivered
// first; later events follow commit order.
func (s *Store) Watch(ctx context.Context, path string) (domain.Watcher, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	segs, err := domain.SplitPath(path)
	if err != nil {
		return nil, err
	}
	w := &watcher{
		store:  s,
		path:   domain.JoinPath(segs...),
		segs:   segs,
		out:    make(chan domain.Event),
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrClosed
	}
	s.watchers[w] = struct{}{}
	w.offer(w.eventAt(s.root))
	s.mu.Unlock()

	go w.run(ctx)
	return w, nil
}

// WatcherCount reports the number of live watchers.
func (s *Store) WatcherCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.watchers)
}

// notifyLocked offers the new value to every watcher related to a changed
// path. Callers hold s.mu.
func (s *Store) notifyLocked(changed [][]string) {
	for w := range s.watchers {
		for _, segs := range changed {
			if domain.IsRelated(w.segs, segs) {
				w.offer(w.eventAt(s.root))
				break
			}
		}
	}
}

func (s *Store) removeWatcher(w *watcher) {
	s.mu.Lock()
	delete(s.watchers, w)
	s.mu.Unlock()
}

func (w *watcher) eventAt(root map[string]any) domain.Event {
	v, ok := lookup(root, w.segs)
	return domain.Event{Path: w.path, Value: v, Exists: ok}
}

func (w *watcher) offer(ev domain.Event) {
	w.mu.Lock()
	w.pending = ev
	w.hasPending = true
	w.mu.Unlock()
	select {
	case w.notify <- struct{}{}:
	default:
	}
}

func (w *watcher) take() (domain.Event, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.hasPending {
		return domain.Event{}, false
	}
	ev := w.pending
	w.pending = domain.Event{}
	w.hasPending = false
	return ev, true
}

func (w *watcher) run(ctx context.Context) {
	defer close(w.out)
	for {
		select {
		case <-w.done:
			return
		case <-ctx.Done():
			w.Cancel()
			return
		case <-w.notify:
		}
		ev, ok := w.take()
		if !ok {
			continue
		}
		// committed trees are immutable; clone so consumers may mutate freely
		ev.Value = deepClone(ev.Value)
		select {
		case w.out <- ev:
		case <-w.done:
			return
		case <-ctx.Done():
			w.Cancel()
			return
		}
	}
}

func (w *watcher) Events() <-chan domain.Event { return w.out }

func (w *watcher) Done() <-chan struct{} { return w.done }

func (w *watcher) Cancel() {
	w.once.Do(func() {
		close(w.done)
		w.store.removeWatcher(w)
	})
}
