package store

import (
	"context"
	"errors"
	"time"

	"tripnav/internal/model"
)

// Store is the persistence interface used by the API server: the road and
// attraction datasets, plan history, and the webhook delivery queue.
type Store interface {
	// Road network
	AddRoads(ctx context.Context, roads []model.RoadIn) (added int, err error)
	ListRoads(ctx context.Context) ([]model.RoadIn, error)

	// Attractions
	AddAttractions(ctx context.Context, attractions []model.AttractionIn) (added int, err error)
	ListAttractions(ctx context.Context) ([]model.AttractionIn, error)

	// Plan history
	SavePlan(ctx context.Context, rec model.PlanRecord) (id string, err error)
	GetPlan(ctx context.Context, id string) (model.PlanRecord, error)
	ListPlans(ctx context.Context, cursor string, limit int) ([]model.PlanRecord, string, error)

	// Webhook subscriptions
	CreateSubscription(ctx context.Context, req model.SubscriptionRequest) (model.Subscription, error)
	GetSubscriptionsForEvent(ctx context.Context, eventType string) ([]model.Subscription, error)
	ListSubscriptions(ctx context.Context, cursor string, limit int) ([]model.Subscription, string, error)
	DeleteSubscription(ctx context.Context, id string) error

	// Webhook delivery queue
	EnqueueWebhook(ctx context.Context, subscriptionID, eventType, url, secret string, payload []byte) (string, error)
	FetchDueWebhookDeliveries(ctx context.Context, limit int) ([]WebhookDelivery, error)
	MarkWebhookDelivery(ctx context.Context, id string, success bool, nextAttemptAt *time.Time, lastError string, responseCode int, latencyMs int) error
	FailWebhookDelivery(ctx context.Context, id string, lastError string, responseCode int, latencyMs int) error
}

var ErrNotFound = errors.New("not found")
