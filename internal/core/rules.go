package core

import (
	"context"
	"fmt"

	"roomtrack/pkg/domain"
)

// NewDefaultRulesEngine builds a rules engine with the built-in consistency
// checks.
func NewDefaultRulesEngine() *domain.RulesEngine {
	engine := domain.NewRulesEngine()
	engine.Register(NewRoomIndexRule())
	engine.Register(NewDanglingIndexRule())
	engine.Register(NewMovementItemRule())
	return engine
}

// NewRoomIndexRule flags items that are not indexed in exactly the room
// matching their current location.
func NewRoomIndexRule() domain.Rule { return roomIndexRule{} }

type roomIndexRule struct{}

func (roomIndexRule) Name() string { return "room_index" }

func (roomIndexRule) Evaluate(_ context.Context, view domain.RuleView) (domain.Result, error) {
	indexed := make(map[string][]domain.Location)
	for _, room := range domain.Locations {
		for _, id := range view.RoomMembers(room) {
			indexed[id] = append(indexed[id], room)
		}
	}
	res := domain.Result{}
	for _, item := range view.ListItems() {
		rooms := indexed[item.ID]
		want := indexRoom(item.CurrentLocation)
		switch {
		case len(rooms) == 0:
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     "room_index",
				Severity: domain.SeverityBlock,
				Message:  fmt.Sprintf("item %s (%s) is not indexed in any room", item.Name, item.ID),
				Entity:   entityItem,
				EntityID: item.ID,
			})
		case len(rooms) > 1:
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     "room_index",
				Severity: domain.SeverityBlock,
				Message:  fmt.Sprintf("item %s (%s) is indexed in both rooms", item.Name, item.ID),
				Entity:   entityItem,
				EntityID: item.ID,
			})
		case rooms[0] != want:
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     "room_index",
				Severity: domain.SeverityBlock,
				Message:  fmt.Sprintf("item %s (%s) is in %s but indexed in %s", item.Name, item.ID, item.CurrentLocation, rooms[0]),
				Entity:   entityItem,
				EntityID: item.ID,
			})
		}
	}
	return res, nil
}

// NewDanglingIndexRule flags room index entries without an item record.
func NewDanglingIndexRule() domain.Rule { return danglingIndexRule{} }

type danglingIndexRule struct{}

func (danglingIndexRule) Name() string { return "dangling_index" }

func (danglingIndexRule) Evaluate(_ context.Context, view domain.RuleView) (domain.Result, error) {
	res := domain.Result{}
	for _, room := range domain.Locations {
		for _, id := range view.RoomMembers(room) {
			if _, ok := view.FindItem(id); ok {
				continue
			}
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     "dangling_index",
				Severity: domain.SeverityWarn,
				Message:  fmt.Sprintf("%s index references missing item %s", room, id),
				Entity:   entityItem,
				EntityID: id,
			})
		}
	}
	return res, nil
}

// NewMovementItemRule notes movements whose item no longer exists. The log is
// append-only, so these are informational.
func NewMovementItemRule() domain.Rule { return movementItemRule{} }

type movementItemRule struct{}

func (movementItemRule) Name() string { return "movement_item" }

func (movementItemRule) Evaluate(_ context.Context, view domain.RuleView) (domain.Result, error) {
	res := domain.Result{}
	for _, mv := range view.ListMovements() {
		if _, ok := view.FindItem(mv.ItemID); ok {
			continue
		}
		res.Violations = append(res.Violations, domain.Violation{
			Rule:     "movement_item",
			Severity: domain.SeverityLog,
			Message:  fmt.Sprintf("movement %s references missing item %s (%s)", mv.ID, mv.ItemID, mv.ItemName),
			Entity:   entityMovement,
			EntityID: mv.ID,
		})
	}
	return res, nil
}
