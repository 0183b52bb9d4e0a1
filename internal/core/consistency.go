package core

import (
	"context"
	"fmt"

	"roomtrack/pkg/domain"
)

// snapshotView is a domain.RuleView over one read of the whole tree.
type snapshotView struct {
	items     []domain.Item
	byID      map[string]domain.Item
	movements []domain.Movement
	rooms     map[domain.Location][]string
}

func newSnapshotView(root any) (*snapshotView, error) {
	tree, _ := root.(map[string]any)
	v := &snapshotView{
		byID:  make(map[string]domain.Item),
		rooms: make(map[domain.Location][]string),
	}
	items, _ := tree[domain.BucketItems].(map[string]any)
	for _, id := range domain.SortedKeys(items) {
		var item domain.Item
		if err := domain.Decode(items[id], &item); err != nil {
			return nil, fmt.Errorf("decode item %s: %w", id, err)
		}
		if item.ID == "" {
			item.ID = id
		}
		v.items = append(v.items, item)
		v.byID[id] = item
	}
	movements, err := domain.DecodeChildren[domain.Movement](tree[domain.BucketMovements])
	if err != nil {
		return nil, fmt.Errorf("decode movements: %w", err)
	}
	v.movements = movements
	rooms, _ := tree[domain.BucketRooms].(map[string]any)
	for _, room := range domain.Locations {
		entry, _ := rooms[room.Key()].(map[string]any)
		v.rooms[room] = domain.SortedKeys(entry["items"])
	}
	return v, nil
}

func (v *snapshotView) ListItems() []domain.Item         { return v.items }
func (v *snapshotView) ListMovements() []domain.Movement { return v.movements }

func (v *snapshotView) FindItem(id string) (domain.Item, bool) {
	item, ok := v.byID[id]
	return item, ok
}

func (v *snapshotView) RoomMembers(room domain.Location) []string { return v.rooms[room] }

// CheckConsistency evaluates the rules engine over one snapshot of the
// inventory. Violations are reported in the result; err is reserved for read
// and evaluation failures.
func (s *Service) CheckConsistency(ctx context.Context) (domain.Result, error) {
	var result domain.Result
	err := s.run(ctx, "check_consistency", entityDataset, func(ctx context.Context) (string, error) {
		root, _, err := s.store.Read(ctx, "/")
		if err != nil {
			return "", fmt.Errorf("read tree: %w", err)
		}
		view, err := newSnapshotView(root)
		if err != nil {
			return "", err
		}
		result, err = s.rules.Evaluate(ctx, view)
		return "", err
	})
	if err != nil {
		return domain.Result{}, err
	}
	if len(result.Violations) > 0 {
		s.logger.Warn("inventory inconsistencies found", "violations", len(result.Violations), "blocking", result.HasBlocking())
	}
	return result, nil
}
