// Package memory provides the in-memory keyed tree store. Durable backends
// embed it and persist its buckets from a commit hook.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"roomtrack/pkg/domain"

	"github.com/google/uuid"
)

// Compile-time contract assertion ensuring the store satisfies the domain interface.
var _ domain.PersistentStore = (*Store)(nil)

// Snapshot maps each top-level bucket to its subtree.
type Snapshot map[string]any

// CommitHook runs inside a commit, before the new state becomes visible.
// dirty lists the top-level buckets touched by the commit. Returning an error
// aborts the commit.
type CommitHook func(ctx context.Context, dirty []string, next Snapshot) error

// Option configures a Store.
type Option func(*Store)

// WithKeyGenerator overrides the generated-key source (tests).
func WithKeyGenerator(fn func() string) Option {
	return func(s *Store) { s.keyFn = fn }
}

// WithCommitHook installs a hook invoked for every non-empty commit.
func WithCommitHook(hook CommitHook) Option {
	return func(s *Store) { s.hook = hook }
}

// Store is a copy-on-write tree. Committed trees are never mutated in place,
// so a commit swaps the root pointer and readers clone from a stable tree.
type Store struct {
	mu       sync.RWMutex
	root     map[string]any
	keyFn    func() string
	hook     CommitHook
	watchers map[*watcher]struct{}
	closed   bool
}

// NewStore constructs an empty in-memory store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		root:     map[string]any{},
		keyFn:    newKey,
		watchers: make(map[*watcher]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// newKey returns a UUIDv7 string; lexical order follows creation order.
func newKey() string {
	return uuid.Must(uuid.NewV7()).String()
}

// SetCommitHook replaces the commit hook.
func (s *Store) SetCommitHook(hook CommitHook) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hook = hook
}

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("store closed")

// ExportState clones the current tree for external persistence.
func (s *Store) ExportState() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return snapshotOf(s.root)
}

// ImportState replaces the tree with the provided snapshot without notifying
// watchers. It is intended for hydration before the store is shared.
func (s *Store) ImportState(snapshot Snapshot) error {
	root := map[string]any{}
	for bucket, value := range snapshot {
		v, err := domain.Normalize(value)
		if err != nil {
			return fmt.Errorf("import %s: %w", bucket, err)
		}
		if v != nil {
			root[bucket] = v
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.root = root
	return nil
}

// GenerateKey returns an identifier unique under parent. Keys are globally
// unique so parent only documents intent.
func (s *Store) GenerateKey(_ string) string {
	return s.keyFn()
}

// Read returns a deep copy of the value stored at path.
func (s *Store) Read(ctx context.Context, path string) (any, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	segs, err := domain.SplitPath(path)
	if err != nil {
		return nil, false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, false, ErrClosed
	}
	v, ok := lookup(s.root, segs)
	return deepClone(v), ok, nil
}

// Write overwrites the value at path; nil deletes.
func (s *Store) Write(ctx context.Context, path string, value any) error {
	return s.RunInTransaction(ctx, func(tx domain.Transaction) error {
		return tx.Set(path, value)
	})
}

// Update merges fields into the value at path in one commit.
func (s *Store) Update(ctx context.Context, path string, fields map[string]any) error {
	return s.RunInTransaction(ctx, func(tx domain.Transaction) error {
		return tx.Update(path, fields)
	})
}

// RunInTransaction executes fn against a pending copy of the tree and commits
// all of its mutations at once. Nothing is committed when fn or the commit
// hook fails.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx domain.Transaction) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	tx := &transaction{store: s, root: s.root, dirty: make(map[string]struct{})}
	if err := fn(tx); err != nil {
		return err
	}
	if len(tx.changed) == 0 {
		return nil
	}
	if s.hook != nil {
		if err := s.hook(ctx, tx.dirtyBuckets(), snapshotOf(tx.root)); err != nil {
			return fmt.Errorf("commit: %w", err)
		}
	}
	s.root = tx.root
	s.notifyLocked(tx.changed)
	return nil
}

// Close cancels every watcher. Further operations fail with ErrClosed.
func (s *Store) Close() error {
	s.mu.Lock()
	s.closed = true
	ws := make([]*watcher, 0, len(s.watchers))
	for w := range s.watchers {
		ws = append(ws, w)
	}
	s.mu.Unlock()
	for _, w := range ws {
		w.Cancel()
	}
	return nil
}

type transaction struct {
	store   *Store
	root    map[string]any
	dirty   map[string]struct{}
	changed [][]string
}

func (tx *transaction) Read(path string) (any, bool, error) {
	segs, err := domain.SplitPath(path)
	if err != nil {
		return nil, false, err
	}
	v, ok := lookup(tx.root, segs)
	return deepClone(v), ok, nil
}

func (tx *transaction) Set(path string, value any) error {
	segs, err := domain.SplitPath(path)
	if err != nil {
		return err
	}
	v, err := domain.Normalize(value)
	if err != nil {
		return fmt.Errorf("set %s: %w", path, err)
	}
	return tx.apply(segs, v)
}

func (tx *transaction) Update(path string, fields map[string]any) error {
	base, err := domain.SplitPath(path)
	if err != nil {
		return err
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	type write struct {
		segs  []string
		value any
	}
	writes := make([]write, 0, len(keys))
	for _, k := range keys {
		rel, err := domain.SplitPath(k)
		if err != nil {
			return err
		}
		if len(rel) == 0 {
			return fmt.Errorf("%w: empty update key under %s", domain.ErrInvalidPath, path)
		}
		v, err := domain.Normalize(fields[k])
		if err != nil {
			return fmt.Errorf("update %s/%s: %w", path, k, err)
		}
		segs := append(append([]string(nil), base...), rel...)
		writes = append(writes, write{segs: segs, value: v})
	}
	for _, w := range writes {
		if err := tx.apply(w.segs, w.value); err != nil {
			return err
		}
	}
	return nil
}

func (tx *transaction) Delete(path string) error {
	return tx.Set(path, nil)
}

func (tx *transaction) GenerateKey(parent string) string {
	return tx.store.GenerateKey(parent)
}

func (tx *transaction) apply(segs []string, value any) error {
	if len(segs) == 0 {
		next := map[string]any{}
		if value != nil {
			m, ok := value.(map[string]any)
			if !ok {
				return fmt.Errorf("%w: root must hold an object", domain.ErrInvalidPath)
			}
			next = m
		}
		for k := range tx.root {
			tx.dirty[k] = struct{}{}
		}
		for k := range next {
			tx.dirty[k] = struct{}{}
		}
		tx.root = next
	} else {
		next := assign(tx.root, segs, value)
		if next == nil {
			next = map[string]any{}
		}
		tx.root = next
		tx.dirty[segs[0]] = struct{}{}
	}
	tx.changed = append(tx.changed, segs)
	return nil
}

func (tx *transaction) dirtyBuckets() []string {
	out := make([]string, 0, len(tx.dirty))
	for b := range tx.dirty {
		out = append(out, b)
	}
	sort.Strings(out)
	return out
}

// lookup walks segs from node.
func lookup(node map[string]any, segs []string) (any, bool) {
	if len(segs) == 0 {
		if len(node) == 0 {
			return nil, false
		}
		return node, true
	}
	var cur any = node
	for _, seg := range segs {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[seg]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// assign returns a copy of node with value stored at segs. Maps along the
// path are shallow-copied; empty maps collapse to nil so deletes prune their
// parents.
func assign(node map[string]any, segs []string, value any) map[string]any {
	next := make(map[string]any, len(node)+1)
	for k, v := range node {
		next[k] = v
	}
	head := segs[0]
	if len(segs) == 1 {
		if value == nil {
			delete(next, head)
		} else {
			next[head] = value
		}
	} else {
		child, _ := node[head].(map[string]any)
		if updated := assign(child, segs[1:], value); updated == nil {
			delete(next, head)
		} else {
			next[head] = updated
		}
	}
	if len(next) == 0 {
		return nil
	}
	return next
}

func deepClone(v any) any {
	switch t := v.(type) {
	case map[string]any:
		cp := make(map[string]any, len(t))
		for k, child := range t {
			cp[k] = deepClone(child)
		}
		return cp
	case []any:
		cp := make([]any, len(t))
		for i, child := range t {
			cp[i] = deepClone(child)
		}
		return cp
	default:
		return v
	}
}

func snapshotOf(root map[string]any) Snapshot {
	out := make(Snapshot, len(root))
	for k, v := range root {
		out[k] = deepClone(v)
	}
	return out
}
