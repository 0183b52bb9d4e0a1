package core

import (
	"context"
	"fmt"
	"time"

	"roomtrack/pkg/domain"
)

// DemoSummary describes the outcome of seeding the demo dataset.
type DemoSummary struct {
	Items              int    `json:"items"`
	Movements          int    `json:"movements"`
	AlreadyInitialized bool   `json:"alreadyInitialized"`
	Message            string `json:"message"`
}

var demoCatalog = []struct {
	rfidTag  string
	name     string
	location domain.Location
}{
	{"RFID001", "Glass Box #1", domain.RoomA},
	{"RFID002", "Glass Box #2", domain.RoomA},
	{"RFID003", "Product Package A", domain.RoomA},
	{"RFID004", "Electronics Box", domain.RoomB},
	{"RFID005", "Medical Supplies", domain.RoomA},
	{"RFID006", "Tool Kit", domain.RoomB},
	{"RFID007", "Spare Parts Container", domain.RoomA},
	{"RFID008", "Documents Box", domain.RoomB},
}

// demoHistory picks items by position in the freshly written item list.
// History entries are written as records only; item locations stay as seeded.
var demoHistory = []struct {
	index int
	from  domain.Location
	to    domain.Location
	ago   time.Duration
}{
	{3, domain.RoomA, domain.RoomB, time.Hour},
	{5, domain.RoomA, domain.RoomB, 30 * time.Minute},
	{7, domain.RoomA, domain.RoomB, 10 * time.Minute},
}

const demoAlreadyInitialized = "Data already exists"

// InitializeDemoData seeds the demo catalog and history when no items exist.
// Any existing item makes it a no-op; it never merges.
func (s *Service) InitializeDemoData(ctx context.Context) (DemoSummary, error) {
	return s.seedDemo(ctx, "initialize_demo_data", false)
}

// ResetDemoData clears items, movements and room indices and seeds the demo
// dataset again, all in one commit.
func (s *Service) ResetDemoData(ctx context.Context) (DemoSummary, error) {
	return s.seedDemo(ctx, "reset_demo_data", true)
}

func (s *Service) seedDemo(ctx context.Context, op string, reset bool) (DemoSummary, error) {
	var summary DemoSummary
	err := s.run(ctx, op, entityDataset, func(ctx context.Context) (string, error) {
		now := s.now()
		err := s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			if reset {
				for _, p := range []string{itemsPath, movementsPath, roomsPath} {
					if err := tx.Delete(p); err != nil {
						return err
					}
				}
			}
			var err error
			summary, err = seedDemoTx(tx, now)
			return err
		})
		if err != nil {
			return "", fmt.Errorf("seed demo data: %w", err)
		}
		return "", nil
	})
	if err != nil {
		return DemoSummary{}, err
	}
	s.logger.Info("demo data", "items", summary.Items, "movements", summary.Movements, "alreadyInitialized", summary.AlreadyInitialized)
	return summary, nil
}

func seedDemoTx(tx domain.Transaction, now time.Time) (DemoSummary, error) {
	if _, exists, err := tx.Read(itemsPath); err != nil {
		return DemoSummary{}, err
	} else if exists {
		return DemoSummary{AlreadyInitialized: true, Message: demoAlreadyInitialized}, nil
	}
	for _, c := range demoCatalog {
		if _, err := addItemTx(tx, c.rfidTag, c.name, c.location, now); err != nil {
			return DemoSummary{}, err
		}
	}

	raw, _, err := tx.Read(itemsPath)
	if err != nil {
		return DemoSummary{}, err
	}
	items, err := domain.DecodeChildren[domain.Item](raw)
	if err != nil {
		return DemoSummary{}, err
	}
	written := 0
	for _, h := range demoHistory {
		if h.index >= len(items) {
			continue
		}
		item := items[h.index]
		id := tx.GenerateKey(movementsPath)
		mv := domain.Movement{
			ID:           id,
			ItemID:       item.ID,
			ItemName:     item.Name,
			RFIDTag:      item.RFIDTag,
			FromLocation: h.from,
			ToLocation:   h.to,
			Timestamp:    domain.Millis(now.Add(-h.ago)),
		}
		if err := tx.Set(domain.MovementPath(id), mv); err != nil {
			return DemoSummary{}, err
		}
		written++
	}
	return DemoSummary{
		Items:     len(demoCatalog),
		Movements: written,
		Message:   fmt.Sprintf("Demo data initialized with %d items and movement history!", len(demoCatalog)),
	}, nil
}
