package store

// WebhookDelivery is one queued attempt to notify a subscriber of a plan
// event.
type WebhookDelivery struct {
	ID             string
	SubscriptionID string
	EventType      string
	URL            string
	Secret         string
	Payload        []byte
	Status         string
	Attempts       int
}
