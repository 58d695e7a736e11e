package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"tripnav/internal/model"
)

// Memory is a simple in-memory store used when no DATABASE_URL is set.
type Memory struct {
	mu          sync.Mutex
	roads       []model.RoadIn
	attractions map[string]string // name -> city
	plans       map[string]model.PlanRecord
	planOrder   []string // insertion order, for cursor pagination
	subs        []model.Subscription
	deliveries  map[string]*memDelivery
	deliveryIDs []string
}

// memDelivery augments WebhookDelivery with scheduling state.
type memDelivery struct {
	WebhookDelivery
	NextAttemptAt time.Time
	LastError     string
	ResponseCode  int
	LatencyMs     int
	DeliveredAt   *time.Time
}

func NewMemory() *Memory {
	return &Memory{
		attractions: map[string]string{},
		plans:       map[string]model.PlanRecord{},
		deliveries:  map[string]*memDelivery{},
	}
}

func (m *Memory) AddRoads(ctx context.Context, roads []model.RoadIn) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.roads = append(m.roads, roads...)
	return len(roads), nil
}

func (m *Memory) ListRoads(ctx context.Context) ([]model.RoadIn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.RoadIn, len(m.roads))
	copy(out, m.roads)
	return out, nil
}

func (m *Memory) AddAttractions(ctx context.Context, attractions []model.AttractionIn) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range attractions {
		m.attractions[a.Name] = a.City
	}
	return len(attractions), nil
}

func (m *Memory) ListAttractions(ctx context.Context) ([]model.AttractionIn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.attractions))
	for n := range m.attractions {
		names = append(names, n)
	}
	sort.Strings(names)
	out := make([]model.AttractionIn, 0, len(names))
	for _, n := range names {
		out = append(out, model.AttractionIn{Name: n, City: m.attractions[n]})
	}
	return out, nil
}

func (m *Memory) SavePlan(ctx context.Context, rec model.PlanRecord) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.CreatedAt == "" {
		rec.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	}
	m.plans[rec.ID] = rec
	m.planOrder = append(m.planOrder, rec.ID)
	return rec.ID, nil
}

func (m *Memory) GetPlan(ctx context.Context, id string) (model.PlanRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.plans[id]
	if !ok {
		return model.PlanRecord{}, ErrNotFound
	}
	return rec, nil
}

func (m *Memory) ListPlans(ctx context.Context, cursor string, limit int) ([]model.PlanRecord, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	start := 0
	if cursor != "" {
		for i, id := range m.planOrder {
			if id == cursor {
				start = i + 1
				break
			}
		}
	}
	out := []model.PlanRecord{}
	next := ""
	for i := start; i < len(m.planOrder) && len(out) < limit; i++ {
		out = append(out, m.plans[m.planOrder[i]])
	}
	if len(out) == limit && start+limit < len(m.planOrder) {
		next = out[len(out)-1].ID
	}
	return out, next, nil
}

func (m *Memory) CreateSubscription(ctx context.Context, req model.SubscriptionRequest) (model.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := model.Subscription{ID: uuid.New().String(), URL: req.URL, Events: req.Events, Secret: req.Secret}
	m.subs = append(m.subs, s)
	return s, nil
}

func (m *Memory) GetSubscriptionsForEvent(ctx context.Context, eventType string) ([]model.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Subscription{}
	for _, s := range m.subs {
		for _, e := range s.Events {
			if e == eventType || e == "*" {
				out = append(out, s)
				break
			}
		}
	}
	return out, nil
}

func (m *Memory) ListSubscriptions(ctx context.Context, cursor string, limit int) ([]model.Subscription, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	start := 0
	if cursor != "" {
		for i, s := range m.subs {
			if s.ID == cursor {
				start = i + 1
				break
			}
		}
	}
	out := []model.Subscription{}
	for i := start; i < len(m.subs) && len(out) < limit; i++ {
		s := m.subs[i]
		s.Secret = "" // never listed back
		out = append(out, s)
	}
	next := ""
	if len(out) == limit && start+limit < len(m.subs) {
		next = out[len(out)-1].ID
	}
	return out, next, nil
}

func (m *Memory) DeleteSubscription(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, s := range m.subs {
		if s.ID == id {
			m.subs = append(m.subs[:i], m.subs[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (m *Memory) EnqueueWebhook(ctx context.Context, subscriptionID, eventType, url, secret string, payload []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.New().String()
	m.deliveries[id] = &memDelivery{
		WebhookDelivery: WebhookDelivery{
			ID:             id,
			SubscriptionID: subscriptionID,
			EventType:      eventType,
			URL:            url,
			Secret:         secret,
			Payload:        payload,
			Status:         "pending",
		},
		NextAttemptAt: time.Now(),
	}
	m.deliveryIDs = append(m.deliveryIDs, id)
	return id, nil
}

func (m *Memory) FetchDueWebhookDeliveries(ctx context.Context, limit int) ([]WebhookDelivery, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit <= 0 {
		limit = 50
	}
	now := time.Now()
	out := []WebhookDelivery{}
	for _, id := range m.deliveryIDs {
		d := m.deliveries[id]
		if d.Status == "pending" && !d.NextAttemptAt.After(now) {
			out = append(out, d.WebhookDelivery)
			if len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

func (m *Memory) MarkWebhookDelivery(ctx context.Context, id string, success bool, nextAttemptAt *time.Time, lastError string, responseCode int, latencyMs int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.deliveries[id]
	if !ok {
		return ErrNotFound
	}
	d.Attempts++
	d.LastError = lastError
	d.ResponseCode = responseCode
	d.LatencyMs = latencyMs
	if success {
		d.Status = "delivered"
		now := time.Now()
		d.DeliveredAt = &now
	} else if nextAttemptAt != nil {
		d.NextAttemptAt = *nextAttemptAt
	}
	return nil
}

func (m *Memory) FailWebhookDelivery(ctx context.Context, id string, lastError string, responseCode int, latencyMs int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.deliveries[id]
	if !ok {
		return ErrNotFound
	}
	d.Status = "failed"
	d.LastError = lastError
	d.ResponseCode = responseCode
	d.LatencyMs = latencyMs
	return nil
}
