package model

// Core domain types shared by the API, store, and ingest layers.

// RoadIn is one road record as submitted by loaders: two opaque city
// identifiers and the distance between them.
type RoadIn struct {
	CityA    string  `json:"cityA"`
	CityB    string  `json:"cityB"`
	Distance float64 `json:"distance"`
}

// AttractionIn maps an attraction name to its host city.
type AttractionIn struct {
	Name string `json:"name"`
	City string `json:"city"`
}

// PlanRequest asks for a route from Start to End visiting every listed
// attraction. Algorithm selects the exact optimizer or the greedy builder.
type PlanRequest struct {
	Start       string   `json:"start"`
	End         string   `json:"end"`
	Attractions []string `json:"attractions,omitempty"`
	Algorithm   string   `json:"algorithm,omitempty"` // exact (default) or greedy
	// PlanID lets a client pick the plan id up front so it can subscribe to
	// progress events before submitting the request. Server-generated when
	// empty.
	PlanID string `json:"planId,omitempty"`
}

// PlanResult is the consumer-facing outcome of a planning call.
type PlanResult struct {
	PlanID     string   `json:"planId"`
	Algorithm  string   `json:"algorithm"`
	Start      string   `json:"start"`
	End        string   `json:"end"`
	Route      []string `json:"route"`
	VisitOrder []string `json:"visitOrder,omitempty"`
	Distance   float64  `json:"distance"`
	Skipped    []string `json:"skippedAttractions,omitempty"`
	Evaluated  int      `json:"evaluatedOrderings,omitempty"`
	KeyPoints  int      `json:"keyPoints,omitempty"`
	CacheHit   bool     `json:"cacheHit,omitempty"`
	ElapsedMs  int64    `json:"elapsedMs"`
}

// PlanComparison pairs both algorithms' answers for the same request.
type PlanComparison struct {
	Exact  PlanResult `json:"exact"`
	Greedy PlanResult `json:"greedy"`
	// Gap is greedy distance minus exact distance; zero means the greedy
	// route happened to be optimal.
	Gap float64 `json:"gap"`
}

// PlanRecord is the persisted history entry for a planning call.
type PlanRecord struct {
	ID          string   `json:"id"`
	Algorithm   string   `json:"algorithm"`
	Start       string   `json:"start"`
	End         string   `json:"end"`
	Attractions []string `json:"attractions,omitempty"`
	Route       []string `json:"route,omitempty"`
	Distance    float64  `json:"distance"`
	Status      string   `json:"status"` // completed, infeasible, failed
	CreatedAt   string   `json:"createdAt"`
}

// ImportSummary reports a bulk road or attraction import.
type ImportSummary struct {
	ImportID string   `json:"importId"`
	Added    int      `json:"added"`
	Skipped  int      `json:"skipped"`
	Warnings []string `json:"warnings,omitempty"`
}

// NetworkStats describes the loaded road network.
type NetworkStats struct {
	Cities      int    `json:"cities"`
	Roads       int    `json:"roads"`
	Attractions int    `json:"attractions"`
	Version     uint64 `json:"graphVersion"`
}

// SubscriptionRequest registers a webhook endpoint for plan events.
type SubscriptionRequest struct {
	URL    string   `json:"url"`
	Events []string `json:"events"`
	Secret string   `json:"secret"`
}

type Subscription struct {
	ID     string   `json:"id"`
	URL    string   `json:"url"`
	Events []string `json:"events"`
	Secret string   `json:"secret,omitempty"`
}
