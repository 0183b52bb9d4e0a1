package core

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"roomtrack/pkg/domain"
)

var (
	itemsPath     = domain.JoinPath(domain.BucketItems)
	movementsPath = domain.JoinPath(domain.BucketMovements)
	roomsPath     = domain.JoinPath(domain.BucketRooms)
)

// indexRoom maps a location to the room index it is recorded under. Anything
// other than Room A lands in Room B, matching the stored tree contract.
func indexRoom(l domain.Location) domain.Location {
	if l == domain.RoomA {
		return domain.RoomA
	}
	return domain.RoomB
}

// AddItem creates an item in location (Room A when empty) and indexes it in
// that room. Both writes land in one commit. Duplicate RFID tags are allowed.
func (s *Service) AddItem(ctx context.Context, rfidTag, name string, location domain.Location) (domain.Item, error) {
	if location == "" {
		location = domain.RoomA
	}
	var created domain.Item
	err := s.run(ctx, "add_item", entityItem, func(ctx context.Context) (string, error) {
		now := s.now()
		err := s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			item, err := addItemTx(tx, rfidTag, name, location, now)
			created = item
			return err
		})
		if err != nil {
			return "", fmt.Errorf("add item %s: %w", rfidTag, err)
		}
		return created.ID, nil
	})
	if err != nil {
		return domain.Item{}, err
	}
	s.logger.Info("item added", "id", created.ID, "rfidTag", rfidTag, "location", location)
	return created, nil
}

func addItemTx(tx domain.Transaction, rfidTag, name string, location domain.Location, now time.Time) (domain.Item, error) {
	id := tx.GenerateKey(itemsPath)
	item := domain.Item{
		ID:              id,
		RFIDTag:         rfidTag,
		Name:            name,
		CurrentLocation: location,
		LastUpdated:     domain.Millis(now),
	}
	if err := tx.Set(domain.ItemPath(id), item); err != nil {
		return domain.Item{}, err
	}
	if err := tx.Set(domain.RoomMemberPath(indexRoom(location), id), true); err != nil {
		return domain.Item{}, err
	}
	return item, nil
}

// RecordMovement appends a movement, patches the item's location and moves
// its room index entry from one room to the other, all in one commit. The
// caller vouches that the item exists and that from differs from to.
func (s *Service) RecordMovement(ctx context.Context, itemID, itemName, rfidTag string, from, to domain.Location) (string, error) {
	var movementID string
	err := s.run(ctx, "record_movement", entityMovement, func(ctx context.Context) (string, error) {
		if err := domain.ValidateKey(itemID); err != nil {
			return "", fmt.Errorf("record movement: %w", err)
		}
		now := s.now()
		err := s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			id, err := recordMovementTx(tx, itemID, itemName, rfidTag, from, to, now)
			movementID = id
			return err
		})
		if err != nil {
			return "", fmt.Errorf("record movement for %s: %w", itemID, err)
		}
		return movementID, nil
	})
	if err != nil {
		return "", err
	}
	s.logger.Info("movement recorded", "id", movementID, "itemId", itemID, "from", from, "to", to)
	return movementID, nil
}

func recordMovementTx(tx domain.Transaction, itemID, itemName, rfidTag string, from, to domain.Location, now time.Time) (string, error) {
	ts := domain.Millis(now)
	id := tx.GenerateKey(movementsPath)
	mv := domain.Movement{
		ID:           id,
		ItemID:       itemID,
		ItemName:     itemName,
		RFIDTag:      rfidTag,
		FromLocation: from,
		ToLocation:   to,
		Timestamp:    ts,
	}
	if err := tx.Set(domain.MovementPath(id), mv); err != nil {
		return "", err
	}
	if err := tx.Update(domain.ItemPath(itemID), map[string]any{
		"currentLocation": to,
		"lastUpdated":     ts,
	}); err != nil {
		return "", err
	}
	if err := tx.Delete(domain.RoomMemberPath(indexRoom(from), itemID)); err != nil {
		return "", err
	}
	if err := tx.Set(domain.RoomMemberPath(indexRoom(to), itemID), true); err != nil {
		return "", err
	}
	return id, nil
}

// GetItem returns the item stored under id.
func (s *Service) GetItem(ctx context.Context, id string) (domain.Item, error) {
	if strings.TrimSpace(id) == "" {
		return domain.Item{}, domain.ErrNotFound{Path: itemsPath + "/"}
	}
	if err := domain.ValidateKey(id); err != nil {
		return domain.Item{}, fmt.Errorf("get item: %w", err)
	}
	raw, ok, err := s.store.Read(ctx, domain.ItemPath(id))
	if err != nil {
		return domain.Item{}, fmt.Errorf("read item %s: %w", id, err)
	}
	if !ok {
		return domain.Item{}, domain.ErrNotFound{Path: domain.ItemPath(id)}
	}
	var item domain.Item
	if err := domain.Decode(raw, &item); err != nil {
		return domain.Item{}, err
	}
	if item.ID == "" {
		item.ID = id
	}
	return item, nil
}

// FindItemByRFID returns the first item in key order carrying tag.
func (s *Service) FindItemByRFID(ctx context.Context, tag string) (domain.Item, error) {
	var found domain.Item
	err := s.run(ctx, "find_item_by_rfid", entityItem, func(ctx context.Context) (string, error) {
		items, err := s.ListItems(ctx)
		if err != nil {
			return "", err
		}
		for _, item := range items {
			if item.RFIDTag == tag {
				found = item
				return item.ID, nil
			}
		}
		return "", domain.ErrNotFound{Path: itemsPath + "?rfidTag=" + tag}
	})
	return found, err
}

// ListItems returns every item in key order.
func (s *Service) ListItems(ctx context.Context) ([]domain.Item, error) {
	raw, _, err := s.store.Read(ctx, itemsPath)
	if err != nil {
		return nil, fmt.Errorf("read items: %w", err)
	}
	return domain.DecodeChildren[domain.Item](raw)
}

// ListMovements returns the movement log, newest first.
func (s *Service) ListMovements(ctx context.Context) ([]domain.Movement, error) {
	raw, _, err := s.store.Read(ctx, movementsPath)
	if err != nil {
		return nil, fmt.Errorf("read movements: %w", err)
	}
	movements, err := domain.DecodeChildren[domain.Movement](raw)
	if err != nil {
		return nil, err
	}
	sortMovements(movements)
	return movements, nil
}

// sortMovements orders by timestamp descending; equal timestamps keep key order.
func sortMovements(ms []domain.Movement) {
	sort.SliceStable(ms, func(i, j int) bool { return ms[i].Timestamp > ms[j].Timestamp })
}

// ScanResult reports what a reader scan did.
type ScanResult struct {
	Item       domain.Item     `json:"item"`
	From       domain.Location `json:"fromLocation"`
	To         domain.Location `json:"toLocation"`
	Moved      bool            `json:"moved"`
	MovementID string          `json:"movementId,omitempty"`
}

// ProcessScan handles a tag read by the reader installed in readerLocation.
// A tag already in that room records nothing; otherwise the item moves from
// its current room to the reader's.
func (s *Service) ProcessScan(ctx context.Context, tag string, readerLocation domain.Location) (ScanResult, error) {
	item, err := s.FindItemByRFID(ctx, tag)
	if err != nil {
		return ScanResult{}, err
	}
	result := ScanResult{Item: item, From: item.CurrentLocation, To: readerLocation}
	if item.CurrentLocation == readerLocation {
		s.logger.Info("scan without movement", "rfidTag", tag, "location", readerLocation)
		return result, nil
	}
	id, err := s.RecordMovement(ctx, item.ID, item.Name, item.RFIDTag, item.CurrentLocation, readerLocation)
	if err != nil {
		return ScanResult{}, err
	}
	result.Moved = true
	result.MovementID = id
	return result, nil
}

// ErrUnresolvedItems is reported by the strict room view when the room index
// names items that have no record.
type ErrUnresolvedItems struct {
	Room domain.Location
	IDs  []string
}

func (e ErrUnresolvedItems) Error() string {
	return fmt.Sprintf("%s index references %d missing items: %s", e.Room, len(e.IDs), strings.Join(e.IDs, ", "))
}

// IsUnresolvedItems reports whether err wraps ErrUnresolvedItems.
func IsUnresolvedItems(err error) bool {
	var target ErrUnresolvedItems
	return errors.As(err, &target)
}
