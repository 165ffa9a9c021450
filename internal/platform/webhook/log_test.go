package webhook

import (
	"context"
	"fmt"
	"testing"
)

func TestRingLog_NewestFirstAndOwnerScoped(t *testing.T) {
	ctx := context.Background()
	r := NewRingLog(10)
	for i := 0; i < 4; i++ {
		owner := "a"
		if i%2 == 1 {
			owner = "b"
		}
		r.Record(ctx, &Delivery{ID: fmt.Sprint(i), Owner: owner})
	}

	items, total, _ := r.List(ctx, "a", 10, 0)
	if total != 2 {
		t.Fatalf("expected 2 deliveries for a, got %d", total)
	}
	if items[0].ID != "2" || items[1].ID != "0" {
		t.Errorf("expected newest first, got %s,%s", items[0].ID, items[1].ID)
	}
}

func TestRingLog_DropsOldest(t *testing.T) {
	ctx := context.Background()
	r := NewRingLog(3)
	for i := 0; i < 5; i++ {
		r.Record(ctx, &Delivery{ID: fmt.Sprint(i), Owner: "a"})
	}

	items, total, _ := r.List(ctx, "a", 10, 0)
	if total != 3 {
		t.Fatalf("expected capacity-bounded total 3, got %d", total)
	}
	if items[0].ID != "4" || items[2].ID != "2" {
		t.Errorf("unexpected window %s..%s", items[0].ID, items[2].ID)
	}
}

func TestRingLog_Paging(t *testing.T) {
	ctx := context.Background()
	r := NewRingLog(10)
	for i := 0; i < 5; i++ {
		r.Record(ctx, &Delivery{ID: fmt.Sprint(i), Owner: "a"})
	}

	items, total, _ := r.List(ctx, "a", 2, 2)
	if total != 5 || len(items) != 2 || items[0].ID != "2" {
		t.Errorf("unexpected page %d %v", total, items)
	}
	items, _, _ = r.List(ctx, "a", 2, 10)
	if len(items) != 0 {
		t.Errorf("expected empty page past the end, got %d", len(items))
	}
}

func TestRingLog_RecordCopies(t *testing.T) {
	ctx := context.Background()
	r := NewRingLog(2)
	d := &Delivery{ID: "x", Owner: "a", Status: StatusFailed}
	r.Record(ctx, d)
	d.Status = StatusSuccess

	items, _, _ := r.List(ctx, "a", 1, 0)
	if items[0].Status != StatusFailed {
		t.Error("stored delivery must not alias the caller's value")
	}
}
