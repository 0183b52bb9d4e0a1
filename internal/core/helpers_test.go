package core

import (
	"context"
	"sync"
	"testing"
	"time"

	"roomtrack/internal/infra/persistence/memory"
	"roomtrack/pkg/domain"
)

var fixedNow = time.Date(2024, 10, 1, 8, 30, 0, 0, time.UTC)

func fixedClock() Clock { return ClockFunc(func() time.Time { return fixedNow }) }

func newTestService(t *testing.T, opts ...ServiceOption) (*Service, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	t.Cleanup(func() { _ = store.Close() })
	opts = append([]ServiceOption{WithClock(fixedClock())}, opts...)
	return NewService(store, opts...), store
}

type captureLogger struct {
	mu    sync.Mutex
	calls []string
}

func (c *captureLogger) add(s string) {
	c.mu.Lock()
	c.calls = append(c.calls, s)
	c.mu.Unlock()
}

func (c *captureLogger) Debug(msg string, _ ...any) { c.add("d:" + msg) }
func (c *captureLogger) Info(msg string, _ ...any)  { c.add("i:" + msg) }
func (c *captureLogger) Warn(msg string, _ ...any)  { c.add("w:" + msg) }
func (c *captureLogger) Error(msg string, _ ...any) { c.add("e:" + msg) }

func (c *captureLogger) has(prefix string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, call := range c.calls {
		if len(call) >= len(prefix) && call[:len(prefix)] == prefix {
			return true
		}
	}
	return false
}

func readRoomIDs(t *testing.T, store domain.KeyedStore, room domain.Location) []string {
	t.Helper()
	raw, _, err := store.Read(context.Background(), domain.RoomIndexPath(room))
	if err != nil {
		t.Fatalf("read %s index: %v", room, err)
	}
	return domain.SortedKeys(raw)
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func recv[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v, ok := <-ch:
		if !ok {
			t.Fatalf("subscription closed unexpectedly")
		}
		return v
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for emission")
	}
	var zero T
	return zero
}

// recvUntil drains emissions until pred holds, tolerating coalesced
// intermediate snapshots.
func recvUntil[T any](t *testing.T, ch <-chan T, pred func(T) bool) T {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case v, ok := <-ch:
			if !ok {
				t.Fatalf("subscription closed unexpectedly")
			}
			if pred(v) {
				return v
			}
		case <-deadline:
			t.Fatalf("condition never observed")
		}
	}
}

type captureAuditRecorder struct {
	mu      sync.Mutex
	entries []AuditEntry
}

func (c *captureAuditRecorder) Record(_ context.Context, entry AuditEntry) {
	c.mu.Lock()
	c.entries = append(c.entries, entry)
	c.mu.Unlock()
}

func (c *captureAuditRecorder) has(op string, status AuditStatus, match func(AuditEntry) bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range c.entries {
		if e.Operation == op && e.Status == status && (match == nil || match(e)) {
			return true
		}
	}
	return false
}

type metricsCall struct {
	op      string
	success bool
}

type captureMetricsRecorder struct {
	mu     sync.Mutex
	calls  []metricsCall
	opened map[string]int
	closed map[string]int
}

func (c *captureMetricsRecorder) Observe(_ context.Context, op string, success bool, _ time.Duration) {
	c.mu.Lock()
	c.calls = append(c.calls, metricsCall{op: op, success: success})
	c.mu.Unlock()
}

func (c *captureMetricsRecorder) SubscriptionOpened(view string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.opened == nil {
		c.opened = map[string]int{}
	}
	c.opened[view]++
}

func (c *captureMetricsRecorder) SubscriptionClosed(view string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed == nil {
		c.closed = map[string]int{}
	}
	c.closed[view]++
}

func (c *captureMetricsRecorder) has(op string, success bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, call := range c.calls {
		if call.op == op && call.success == success {
			return true
		}
	}
	return false
}

func (c *captureMetricsRecorder) counts(view string) (int, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.opened[view], c.closed[view]
}

type captureTracer struct {
	mu    sync.Mutex
	spans []metricsCall
}

type captureSpan struct {
	tracer *captureTracer
	op     string
}

func (c *captureTracer) Start(ctx context.Context, op string) (context.Context, TraceSpan) {
	return ctx, captureSpan{tracer: c, op: op}
}

func (s captureSpan) End(err error) {
	s.tracer.mu.Lock()
	s.tracer.spans = append(s.tracer.spans, metricsCall{op: s.op, success: err == nil})
	s.tracer.mu.Unlock()
}

func (c *captureTracer) has(op string, success bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, s := range c.spans {
		if s.op == op && s.success == success {
			return true
		}
	}
	return false
}
