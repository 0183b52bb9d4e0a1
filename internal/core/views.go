package core

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"roomtrack/pkg/domain"
)

// SubscriptionState is the lifecycle of a view subscription. The only
// transition is subscribed to unsubscribed.
type SubscriptionState int32

const (
	SubscriptionSubscribed SubscriptionState = iota
	SubscriptionUnsubscribed
)

func (s SubscriptionState) String() string {
	if s == SubscriptionSubscribed {
		return "subscribed"
	}
	return "unsubscribed"
}

// Subscription streams derived snapshots of a store subtree. The current
// snapshot is delivered first; a slow consumer only ever sees the latest.
type Subscription[T any] struct {
	updates  chan T
	done     chan struct{}
	cancel   context.CancelFunc
	onClose  func()
	state    atomic.Int32
	stopOnce sync.Once
}

// Updates delivers snapshots until the subscription ends, then closes.
func (s *Subscription[T]) Updates() <-chan T { return s.updates }

// Done is closed once the subscription has stopped delivering.
func (s *Subscription[T]) Done() <-chan struct{} { return s.done }

// State reports the current lifecycle state.
func (s *Subscription[T]) State() SubscriptionState {
	return SubscriptionState(s.state.Load())
}

// Cancel stops delivery and waits for the pump to exit, so no emission
// happens after it returns. Stored state is never touched.
func (s *Subscription[T]) Cancel() {
	s.stopOnce.Do(func() {
		s.state.Store(int32(SubscriptionUnsubscribed))
		s.cancel()
	})
	<-s.done
}

// subscribe watches path and pumps fn's snapshots to a new subscription. fn
// returning false skips the event.
func subscribe[T any](ctx context.Context, s *Service, view, path string, fn func(context.Context, domain.Event) (T, bool)) (*Subscription[T], error) {
	ctx, cancel := context.WithCancel(ctx)
	w, err := s.store.Watch(ctx, path)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("watch %s: %w", path, err)
	}
	sub := &Subscription[T]{
		updates: make(chan T),
		done:    make(chan struct{}),
		cancel:  cancel,
	}
	if obs, ok := s.metrics.(SubscriptionObserver); ok {
		obs.SubscriptionOpened(view)
		sub.onClose = func() { obs.SubscriptionClosed(view) }
	}
	s.logger.Debug("subscription opened", "view", view, "path", path)
	go sub.pump(ctx, w, fn)
	return sub, nil
}

func (s *Subscription[T]) pump(ctx context.Context, w domain.Watcher, fn func(context.Context, domain.Event) (T, bool)) {
	defer func() {
		s.state.Store(int32(SubscriptionUnsubscribed))
		w.Cancel()
		if s.onClose != nil {
			s.onClose()
		}
		close(s.updates)
		close(s.done)
	}()
	var (
		pending T
		ready   bool
	)
	events := w.Events()
	for {
		var out chan<- T
		if ready {
			out = s.updates
		}
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if v, keep := fn(ctx, ev); keep {
				pending, ready = v, true
			}
		case out <- pending:
			var zero T
			pending, ready = zero, false
		}
	}
}

// SubscribeItems streams the full item list in key order.
func (s *Service) SubscribeItems(ctx context.Context) (*Subscription[[]domain.Item], error) {
	return subscribe(ctx, s, "items", itemsPath, func(_ context.Context, ev domain.Event) ([]domain.Item, bool) {
		items, err := domain.DecodeChildren[domain.Item](ev.Value)
		if err != nil {
			s.logger.Warn("skipping undecodable items snapshot", "error", err)
			return nil, false
		}
		return items, true
	})
}

// SubscribeMovements streams the movement log, newest first.
func (s *Service) SubscribeMovements(ctx context.Context) (*Subscription[[]domain.Movement], error) {
	return subscribe(ctx, s, "movements", movementsPath, func(_ context.Context, ev domain.Event) ([]domain.Movement, bool) {
		movements, err := domain.DecodeChildren[domain.Movement](ev.Value)
		if err != nil {
			s.logger.Warn("skipping undecodable movements snapshot", "error", err)
			return nil, false
		}
		sortMovements(movements)
		return movements, true
	})
}

// RoomInventory is one emission of the room view. Err carries a failed item
// read or, in strict mode, ErrUnresolvedItems naming Missing.
type RoomInventory struct {
	Room    domain.Location `json:"room"`
	Items   []domain.Item   `json:"items"`
	Missing []string        `json:"missing,omitempty"`
	Err     error           `json:"-"`
}

// SubscribeRoomInventory watches the room's index and, on every change,
// re-reads /items to resolve the indexed IDs into records.
func (s *Service) SubscribeRoomInventory(ctx context.Context, room domain.Location) (*Subscription[RoomInventory], error) {
	room = indexRoom(room)
	return subscribe(ctx, s, "room", domain.RoomIndexPath(room), func(ctx context.Context, ev domain.Event) (RoomInventory, bool) {
		return s.resolveRoom(ctx, room, ev.Value), true
	})
}

// RoomInventory reads the room's current contents once.
func (s *Service) RoomInventory(ctx context.Context, room domain.Location) (RoomInventory, error) {
	room = indexRoom(room)
	index, _, err := s.store.Read(ctx, domain.RoomIndexPath(room))
	if err != nil {
		return RoomInventory{}, fmt.Errorf("read %s index: %w", room, err)
	}
	inv := s.resolveRoom(ctx, room, index)
	return inv, inv.Err
}

func (s *Service) resolveRoom(ctx context.Context, room domain.Location, index any) RoomInventory {
	inv := RoomInventory{Room: room, Items: []domain.Item{}}
	ids := domain.SortedKeys(index)
	if len(ids) == 0 {
		return inv
	}
	raw, _, err := s.store.Read(ctx, itemsPath)
	if err != nil {
		inv.Err = fmt.Errorf("read items for %s: %w", room, err)
		return inv
	}
	all, _ := raw.(map[string]any)
	var missing []string
	for _, id := range ids {
		rec, ok := all[id]
		if !ok {
			missing = append(missing, id)
			continue
		}
		var item domain.Item
		if err := domain.Decode(rec, &item); err != nil {
			inv.Err = fmt.Errorf("decode item %s: %w", id, err)
			return inv
		}
		inv.Items = append(inv.Items, item)
	}
	if len(missing) > 0 {
		s.logger.Warn("room index references missing items", "room", room, "ids", missing)
		if s.resolution == ResolutionStrict {
			inv.Missing = missing
			inv.Err = ErrUnresolvedItems{Room: room, IDs: missing}
		}
	}
	return inv
}
