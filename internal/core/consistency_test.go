package core

import (
	"context"
	"errors"
	"testing"

	"roomtrack/pkg/domain"
)

func violationsFor(res domain.Result, rule string) []domain.Violation {
	var out []domain.Violation
	for _, v := range res.Violations {
		if v.Rule == rule {
			out = append(out, v)
		}
	}
	return out
}

func TestCheckConsistencyCleanInventory(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	if _, err := svc.InitializeDemoData(ctx); err != nil {
		t.Fatalf("seed: %v", err)
	}
	res, err := svc.CheckConsistency(ctx)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if len(res.Violations) != 0 {
		t.Fatalf("expected no violations, got %+v", res.Violations)
	}
}

func TestCheckConsistencyEmptyStore(t *testing.T) {
	svc, _ := newTestService(t)
	res, err := svc.CheckConsistency(context.Background())
	if err != nil || len(res.Violations) != 0 {
		t.Fatalf("expected clean empty store, got %+v (%v)", res, err)
	}
}

func TestCheckConsistencyFlagsDoubleIndex(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	item, err := svc.AddItem(ctx, "RFID1", "Crate", domain.RoomA)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	// a concurrent writer left the item in both indexes
	if err := store.Write(ctx, domain.RoomMemberPath(domain.RoomB, item.ID), true); err != nil {
		t.Fatalf("write: %v", err)
	}
	res, err := svc.CheckConsistency(ctx)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	got := violationsFor(res, "room_index")
	if len(got) != 1 || got[0].EntityID != item.ID || got[0].Severity != domain.SeverityBlock {
		t.Fatalf("expected one blocking room_index violation, got %+v", res.Violations)
	}
	if !res.HasBlocking() {
		t.Fatalf("expected blocking result")
	}
}

func TestCheckConsistencyFlagsWrongAndMissingIndex(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	moved, _ := svc.AddItem(ctx, "RFID1", "Crate", domain.RoomA)
	orphan, _ := svc.AddItem(ctx, "RFID2", "Box", domain.RoomB)
	err := store.Update(ctx, "/", map[string]any{
		"items/" + moved.ID + "/currentLocation": domain.RoomB,
		"rooms/roomB/items/" + orphan.ID:          nil,
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	res, err := svc.CheckConsistency(ctx)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	got := violationsFor(res, "room_index")
	if len(got) != 2 {
		t.Fatalf("expected two room_index violations, got %+v", res.Violations)
	}
	ids := []string{got[0].EntityID, got[1].EntityID}
	if !contains(ids, moved.ID) || !contains(ids, orphan.ID) {
		t.Fatalf("unexpected entities %v", ids)
	}
}

func TestCheckConsistencyDanglingIndexAndMovements(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	item, _ := svc.AddItem(ctx, "RFID1", "Crate", domain.RoomA)
	if _, err := svc.RecordMovement(ctx, item.ID, item.Name, item.RFIDTag, domain.RoomA, domain.RoomB); err != nil {
		t.Fatalf("move: %v", err)
	}
	if err := store.Write(ctx, domain.ItemPath(item.ID), nil); err != nil {
		t.Fatalf("delete item: %v", err)
	}
	res, err := svc.CheckConsistency(ctx)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	dangling := violationsFor(res, "dangling_index")
	if len(dangling) != 1 || dangling[0].Severity != domain.SeverityWarn {
		t.Fatalf("expected one dangling index warning, got %+v", res.Violations)
	}
	refs := violationsFor(res, "movement_item")
	if len(refs) != 1 || refs[0].Severity != domain.SeverityLog {
		t.Fatalf("expected one movement_item log entry, got %+v", res.Violations)
	}
	if res.HasBlocking() {
		t.Fatalf("dangling references must not block")
	}
}

type failingRule struct{}

func (failingRule) Name() string { return "failing" }

func (failingRule) Evaluate(context.Context, domain.RuleView) (domain.Result, error) {
	return domain.Result{}, errors.New("boom")
}

func TestCheckConsistencyCustomEngineAndAudit(t *testing.T) {
	audit := &captureAuditRecorder{}
	engine := domain.NewRulesEngine()
	engine.Register(failingRule{})
	svc, _ := newTestService(t, WithRulesEngine(engine), WithAuditRecorder(audit))
	_, err := svc.CheckConsistency(context.Background())
	if err == nil {
		t.Fatalf("expected rule error")
	}
	if !audit.has("check_consistency", AuditStatusError, nil) {
		t.Fatalf("expected failed check audited")
	}
}

func TestDefaultRulesEngineRules(t *testing.T) {
	names := NewDefaultRulesEngine().Rules()
	want := []string{"room_index", "dangling_index", "movement_item"}
	if len(names) != len(want) {
		t.Fatalf("expected %v, got %v", want, names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, names)
		}
	}
}
