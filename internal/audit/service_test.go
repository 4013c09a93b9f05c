package audit

import (
	"context"
	"encoding/json"
	"testing"
)

func TestService_AppendRequiresType(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)

	if err := svc.Append(context.Background(), Event{GroupID: "grp-1"}); err == nil {
		t.Fatalf("expected error for missing type")
	}
	if err := svc.Append(context.Background(), Event{Type: EventTypeTopUp}); err == nil {
		t.Fatalf("expected error for tenant event without group")
	}
}

func TestService_CallbackDroppedNeedsNoGroup(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)

	if err := svc.LogCallbackDropped(context.Background(), "CA404", "ringing"); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	evs := repo.Events()
	if len(evs) != 1 {
		t.Fatalf("expected 1 event")
	}
	if evs[0].Type != EventTypeCallbackDropped || evs[0].CorrelationID != "CA404" {
		t.Fatalf("unexpected event: %+v", evs[0])
	}
	if evs[0].ID == "" || evs[0].CreatedAt.IsZero() {
		t.Fatalf("expected id and timestamp to be filled")
	}
}

func TestService_LogTopUp(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)

	if err := svc.LogTopUp(context.Background(), "grp-1", "admin-1", "admin", "1.2.3.4", "25"); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	evs := repo.Events()
	if len(evs) != 1 || evs[0].Type != EventTypeTopUp || evs[0].GroupID != "grp-1" {
		t.Fatalf("unexpected events: %+v", evs)
	}
}

func TestService_MetadataIsValidJSON(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)

	// Values flow in from provider callbacks and admin input; quotes and
	// backslashes must survive the encoding intact.
	raw := `in-progress" <extra>\`
	if err := svc.LogCallbackDropped(context.Background(), "CA500", raw); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if err := svc.LogTopUp(context.Background(), "grp-1", "admin-1", "admin", "1.2.3.4", "25"); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	dropped := repo.EventsOfType(EventTypeCallbackDropped)
	if len(dropped) != 1 {
		t.Fatalf("expected one dropped-callback event, got %d", len(dropped))
	}
	var meta map[string]string
	if err := json.Unmarshal([]byte(dropped[0].Metadata), &meta); err != nil {
		t.Fatalf("metadata is not valid JSON: %v (%s)", err, dropped[0].Metadata)
	}
	if meta["raw_status"] != raw {
		t.Fatalf("raw status mangled: %q", meta["raw_status"])
	}

	topups := repo.EventsOfType(EventTypeTopUp)
	if len(topups) != 1 {
		t.Fatalf("expected one top-up event, got %d", len(topups))
	}
	if err := json.Unmarshal([]byte(topups[0].Metadata), &meta); err != nil {
		t.Fatalf("metadata is not valid JSON: %v (%s)", err, topups[0].Metadata)
	}
	if meta["amount"] != "25" {
		t.Fatalf("unexpected amount: %q", meta["amount"])
	}
}
