package store

import (
	"context"
	"testing"
	"time"

	"tripnav/internal/model"
)

func TestMemoryRoadsAndAttractions(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	added, err := m.AddRoads(ctx, []model.RoadIn{
		{CityA: "A", CityB: "B", Distance: 5},
		{CityA: "B", CityB: "C", Distance: 5},
	})
	if err != nil || added != 2 {
		t.Fatalf("AddRoads: added=%d err=%v", added, err)
	}
	roads, err := m.ListRoads(ctx)
	if err != nil || len(roads) != 2 {
		t.Fatalf("ListRoads: %v %v", roads, err)
	}

	if _, err := m.AddAttractions(ctx, []model.AttractionIn{{Name: "Bridge", City: "B"}}); err != nil {
		t.Fatalf("AddAttractions: %v", err)
	}
	attractions, err := m.ListAttractions(ctx)
	if err != nil || len(attractions) != 1 || attractions[0].City != "B" {
		t.Fatalf("ListAttractions: %v %v", attractions, err)
	}
}

func TestMemoryPlanHistory(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	id, err := m.SavePlan(ctx, model.PlanRecord{
		Algorithm: "exact", Start: "A", End: "D",
		Route: []string{"A", "B", "C", "D"}, Distance: 15, Status: "completed",
	})
	if err != nil || id == "" {
		t.Fatalf("SavePlan: id=%q err=%v", id, err)
	}
	rec, err := m.GetPlan(ctx, id)
	if err != nil || rec.Distance != 15 {
		t.Fatalf("GetPlan: %v %v", rec, err)
	}
	if _, err := m.GetPlan(ctx, "missing"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	items, next, err := m.ListPlans(ctx, "", 10)
	if err != nil || len(items) != 1 || next != "" {
		t.Fatalf("ListPlans: items=%d next=%q err=%v", len(items), next, err)
	}
}

func TestMemoryPlanCursor(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		if _, err := m.SavePlan(ctx, model.PlanRecord{Algorithm: "greedy", Status: "completed"}); err != nil {
			t.Fatalf("SavePlan: %v", err)
		}
	}
	first, next, err := m.ListPlans(ctx, "", 2)
	if err != nil || len(first) != 2 || next == "" {
		t.Fatalf("page 1: n=%d next=%q err=%v", len(first), next, err)
	}
	second, _, err := m.ListPlans(ctx, next, 2)
	if err != nil || len(second) != 2 {
		t.Fatalf("page 2: n=%d err=%v", len(second), err)
	}
	if second[0].ID == first[0].ID || second[0].ID == first[1].ID {
		t.Fatalf("pages overlap")
	}
}

func TestMemorySubscriptionsAndDeliveries(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	sub, err := m.CreateSubscription(ctx, model.SubscriptionRequest{
		URL: "https://example.invalid/hook", Events: []string{"plan.completed"}, Secret: "shh",
	})
	if err != nil {
		t.Fatalf("CreateSubscription: %v", err)
	}
	subs, err := m.GetSubscriptionsForEvent(ctx, "plan.completed")
	if err != nil || len(subs) != 1 {
		t.Fatalf("GetSubscriptionsForEvent: %v %v", subs, err)
	}
	if subs, _ := m.GetSubscriptionsForEvent(ctx, "other.event"); len(subs) != 0 {
		t.Fatalf("unexpected match for other.event")
	}

	id, err := m.EnqueueWebhook(ctx, sub.ID, "plan.completed", sub.URL, sub.Secret, []byte(`{}`))
	if err != nil {
		t.Fatalf("EnqueueWebhook: %v", err)
	}
	due, err := m.FetchDueWebhookDeliveries(ctx, 10)
	if err != nil || len(due) != 1 || due[0].ID != id {
		t.Fatalf("FetchDue: %v %v", due, err)
	}

	// Retry path: delivery stays pending but is scheduled for later.
	later := time.Now().Add(time.Hour)
	if err := m.MarkWebhookDelivery(ctx, id, false, &later, "timeout", 0, 12); err != nil {
		t.Fatalf("MarkWebhookDelivery: %v", err)
	}
	if due, _ := m.FetchDueWebhookDeliveries(ctx, 10); len(due) != 0 {
		t.Fatalf("delivery should not be due yet")
	}

	if err := m.MarkWebhookDelivery(ctx, id, true, nil, "", 200, 34); err != nil {
		t.Fatalf("MarkWebhookDelivery success: %v", err)
	}
	if err := m.DeleteSubscription(ctx, sub.ID); err != nil {
		t.Fatalf("DeleteSubscription: %v", err)
	}
	if err := m.DeleteSubscription(ctx, sub.ID); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
