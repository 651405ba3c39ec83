package store

import (
	"testing"
	"time"

	"github.com/oakledger/beacon/internal/backend/database"
	"github.com/oakledger/beacon/internal/model"
)

func setupTestDB(t *testing.T) (*NotificationStore, *PushStore) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewNotificationStore(db), NewPushStore(db)
}

func TestNotificationInsertAndList(t *testing.T) {
	ns, _ := setupTestDB(t)

	silent := true
	stored, err := ns.Insert(model.Record{
		UserID:   "user-1",
		Type:     "balance_update",
		Text:     "ignored by clients",
		Silent:   &silent,
		Action:   "refresh",
		Target:   "wallet",
		Metadata: map[string]string{"amount": "125.50"},
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if stored.ID == "" {
		t.Error("expected generated id")
	}
	if stored.CreatedAt.IsZero() {
		t.Error("expected created_at to be set")
	}

	records, err := ns.ListByUser("user-1", 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("len = %d, want 1", len(records))
	}
	got := records[0]
	if got.Silent == nil || !*got.Silent {
		t.Error("expected silent = true after round trip")
	}
	if got.Metadata["amount"] != "125.50" {
		t.Errorf("metadata amount = %q, want %q", got.Metadata["amount"], "125.50")
	}
	if got.Action != "refresh" || got.Target != "wallet" {
		t.Errorf("action/target = %q/%q, want refresh/wallet", got.Action, got.Target)
	}
}

func TestNotificationListOrderAndLimit(t *testing.T) {
	ns, _ := setupTestDB(t)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		_, err := ns.Insert(model.Record{
			ID:        string(rune('a' + i)),
			UserID:    "user-1",
			Text:      "item",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
	}

	records, err := ns.ListByUser("user-1", 3)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("len = %d, want 3", len(records))
	}
	if records[0].ID != "e" || records[2].ID != "c" {
		t.Errorf("order = %q..%q, want e..c", records[0].ID, records[2].ID)
	}
}

func TestNotificationPage(t *testing.T) {
	ns, _ := setupTestDB(t)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 7; i++ {
		_, err := ns.Insert(model.Record{
			UserID:    "user-1",
			Text:      "item",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
	}

	records, total, err := ns.Page("user-1", 5, 5)
	if err != nil {
		t.Fatalf("page: %v", err)
	}
	if total != 7 {
		t.Errorf("total = %d, want 7", total)
	}
	if len(records) != 2 {
		t.Errorf("len = %d, want 2", len(records))
	}
}

func TestPageExcludesSilent(t *testing.T) {
	ns, _ := setupTestDB(t)

	if _, err := ns.Insert(model.Record{ID: "visible", UserID: "user-1", Text: "Payment received"}); err != nil {
		t.Fatalf("insert visible: %v", err)
	}
	explicit := false
	if _, err := ns.Insert(model.Record{ID: "explicit", UserID: "user-1", Text: "Recharge approved", Silent: &explicit}); err != nil {
		t.Fatalf("insert explicit visible: %v", err)
	}
	silent := true
	if _, err := ns.Insert(model.Record{
		ID:     "silent",
		UserID: "user-1",
		Type:   "data_refresh",
		Silent: &silent,
		Target: "balance",
	}); err != nil {
		t.Fatalf("insert silent: %v", err)
	}

	records, total, err := ns.Page("user-1", 0, 10)
	if err != nil {
		t.Fatalf("page: %v", err)
	}
	if total != 2 {
		t.Errorf("total = %d, want 2", total)
	}
	for _, r := range records {
		if r.ID == "silent" {
			t.Error("silent record returned in page")
		}
	}
	if len(records) != 2 {
		t.Errorf("len = %d, want 2", len(records))
	}

	// List still returns silent rows; the feed snapshot needs them.
	all, err := ns.ListByUser("user-1", 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("list len = %d, want 3", len(all))
	}
}

func TestNotificationSetRead(t *testing.T) {
	ns, _ := setupTestDB(t)

	for _, id := range []string{"n1", "n2", "n3"} {
		if _, err := ns.Insert(model.Record{ID: id, UserID: "user-1", Text: "item"}); err != nil {
			t.Fatalf("insert %s: %v", id, err)
		}
	}
	if _, err := ns.Insert(model.Record{ID: "other", UserID: "user-2", Text: "item"}); err != nil {
		t.Fatalf("insert other: %v", err)
	}

	if err := ns.SetRead("user-1", []string{"n1", "n3", "other"}, true); err != nil {
		t.Fatalf("set read: %v", err)
	}

	records, err := ns.ListByUser("user-1", 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	readByID := make(map[string]bool)
	for _, r := range records {
		readByID[r.ID] = r.Read
	}
	if !readByID["n1"] || readByID["n2"] || !readByID["n3"] {
		t.Errorf("read flags = %v, want n1 and n3 only", readByID)
	}

	others, err := ns.ListByUser("user-2", 0)
	if err != nil {
		t.Fatalf("list other: %v", err)
	}
	if others[0].Read {
		t.Error("other user's record should be untouched")
	}
}

func TestPushSubscriptionLifecycle(t *testing.T) {
	_, ps := setupTestDB(t)

	sub := model.PushSubscription{
		Endpoint:  "https://push.example.com/sub-1",
		P256dhKey: "p256dh",
		AuthKey:   "auth",
		UserAgent: "beacon/1.0",
	}
	if err := ps.Upsert("user-1", sub); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	subs, err := ps.ListActiveByUser("user-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(subs) != 1 || !subs[0].Active {
		t.Fatalf("subs = %+v, want one active", subs)
	}

	if err := ps.Deactivate(sub.Endpoint); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	subs, err = ps.ListActiveByUser("user-1")
	if err != nil {
		t.Fatalf("list after deactivate: %v", err)
	}
	if len(subs) != 0 {
		t.Errorf("len = %d, want 0 after deactivate", len(subs))
	}

	// Re-registering the same endpoint reactivates it.
	if err := ps.Upsert("user-1", sub); err != nil {
		t.Fatalf("re-upsert: %v", err)
	}
	subs, err = ps.ListActiveByUser("user-1")
	if err != nil {
		t.Fatalf("list after re-upsert: %v", err)
	}
	if len(subs) != 1 {
		t.Errorf("len = %d, want 1 after re-upsert", len(subs))
	}
}
