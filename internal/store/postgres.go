package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	"tripnav/internal/model"
)

type Postgres struct {
	db *sql.DB
}

func NewPostgres(dsn string) (*Postgres, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	return &Postgres{db: db}, nil
}

func (p *Postgres) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

// MigrateDir applies every .sql file in dir in lexical order. Statements
// must be idempotent (CREATE TABLE IF NOT EXISTS etc); there is no
// migration ledger.
func (p *Postgres) MigrateDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	names := []string{}
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	for _, name := range names {
		b, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return err
		}
		if _, err := p.db.Exec(string(b)); err != nil {
			return err
		}
	}
	return nil
}

func (p *Postgres) AddRoads(ctx context.Context, roads []model.RoadIn) (int, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	added := 0
	for _, r := range roads {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO roads (id, city_a, city_b, distance) VALUES ($1,$2,$3,$4)`,
			uuid.New(), r.CityA, r.CityB, r.Distance)
		if err != nil {
			return 0, err
		}
		added++
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return added, nil
}

func (p *Postgres) ListRoads(ctx context.Context) ([]model.RoadIn, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT city_a, city_b, distance FROM roads ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.RoadIn{}
	for rows.Next() {
		var r model.RoadIn
		if err := rows.Scan(&r.CityA, &r.CityB, &r.Distance); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (p *Postgres) AddAttractions(ctx context.Context, attractions []model.AttractionIn) (int, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	added := 0
	for _, a := range attractions {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO attractions (name, city) VALUES ($1,$2)
			 ON CONFLICT (name) DO UPDATE SET city = EXCLUDED.city`,
			a.Name, a.City)
		if err != nil {
			return 0, err
		}
		added++
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return added, nil
}

func (p *Postgres) ListAttractions(ctx context.Context) ([]model.AttractionIn, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT name, city FROM attractions ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.AttractionIn{}
	for rows.Next() {
		var a model.AttractionIn
		if err := rows.Scan(&a.Name, &a.City); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (p *Postgres) SavePlan(ctx context.Context, rec model.PlanRecord) (string, error) {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.CreatedAt == "" {
		rec.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	}
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO plans (id, algorithm, start_city, end_city, attractions, route, distance, status, created_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		rec.ID, rec.Algorithm, rec.Start, rec.End, toJSONList(rec.Attractions), toJSONList(rec.Route),
		rec.Distance, rec.Status, rec.CreatedAt)
	if err != nil {
		return "", err
	}
	return rec.ID, nil
}

func (p *Postgres) GetPlan(ctx context.Context, id string) (model.PlanRecord, error) {
	var rec model.PlanRecord
	var attractions, route []byte
	row := p.db.QueryRowContext(ctx,
		`SELECT id::text, algorithm, start_city, end_city, attractions, route, distance, status, created_at
		 FROM plans WHERE id=$1`, id)
	if err := row.Scan(&rec.ID, &rec.Algorithm, &rec.Start, &rec.End, &attractions, &route, &rec.Distance, &rec.Status, &rec.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return rec, ErrNotFound
		}
		return rec, err
	}
	rec.Attractions = fromJSONList(attractions)
	rec.Route = fromJSONList(route)
	return rec, nil
}

func (p *Postgres) ListPlans(ctx context.Context, cursor string, limit int) ([]model.PlanRecord, string, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var rows *sql.Rows
	var err error
	if cursor != "" {
		rows, err = p.db.QueryContext(ctx,
			`SELECT id::text, algorithm, start_city, end_city, attractions, route, distance, status, created_at
			 FROM plans WHERE id::text > $1 ORDER BY id LIMIT $2`, cursor, limit)
	} else {
		rows, err = p.db.QueryContext(ctx,
			`SELECT id::text, algorithm, start_city, end_city, attractions, route, distance, status, created_at
			 FROM plans ORDER BY id LIMIT $1`, limit)
	}
	if err != nil {
		return nil, "", err
	}
	defer rows.Close()
	out := []model.PlanRecord{}
	var last string
	for rows.Next() {
		var rec model.PlanRecord
		var attractions, route []byte
		if err := rows.Scan(&rec.ID, &rec.Algorithm, &rec.Start, &rec.End, &attractions, &route, &rec.Distance, &rec.Status, &rec.CreatedAt); err != nil {
			return nil, "", err
		}
		rec.Attractions = fromJSONList(attractions)
		rec.Route = fromJSONList(route)
		out = append(out, rec)
		last = rec.ID
	}
	next := ""
	if len(out) == limit {
		next = last
	}
	return out, next, rows.Err()
}

func (p *Postgres) CreateSubscription(ctx context.Context, req model.SubscriptionRequest) (model.Subscription, error) {
	s := model.Subscription{ID: uuid.New().String(), URL: req.URL, Events: req.Events, Secret: req.Secret}
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO subscriptions (id, url, events, secret) VALUES ($1,$2,$3,$4)`,
		s.ID, s.URL, toJSONList(s.Events), s.Secret)
	if err != nil {
		return model.Subscription{}, err
	}
	return s, nil
}

func (p *Postgres) GetSubscriptionsForEvent(ctx context.Context, eventType string) ([]model.Subscription, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT id::text, url, events, secret FROM subscriptions`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Subscription{}
	for rows.Next() {
		var s model.Subscription
		var events []byte
		if err := rows.Scan(&s.ID, &s.URL, &events, &s.Secret); err != nil {
			return nil, err
		}
		s.Events = fromJSONList(events)
		for _, e := range s.Events {
			if e == eventType || e == "*" {
				out = append(out, s)
				break
			}
		}
	}
	return out, rows.Err()
}

func (p *Postgres) ListSubscriptions(ctx context.Context, cursor string, limit int) ([]model.Subscription, string, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var rows *sql.Rows
	var err error
	if cursor != "" {
		rows, err = p.db.QueryContext(ctx,
			`SELECT id::text, url, events FROM subscriptions WHERE id::text > $1 ORDER BY id LIMIT $2`, cursor, limit)
	} else {
		rows, err = p.db.QueryContext(ctx,
			`SELECT id::text, url, events FROM subscriptions ORDER BY id LIMIT $1`, limit)
	}
	if err != nil {
		return nil, "", err
	}
	defer rows.Close()
	out := []model.Subscription{}
	var last string
	for rows.Next() {
		var s model.Subscription
		var events []byte
		if err := rows.Scan(&s.ID, &s.URL, &events); err != nil {
			return nil, "", err
		}
		s.Events = fromJSONList(events)
		out = append(out, s)
		last = s.ID
	}
	next := ""
	if len(out) == limit {
		next = last
	}
	return out, next, rows.Err()
}

func (p *Postgres) DeleteSubscription(ctx context.Context, id string) error {
	res, err := p.db.ExecContext(ctx, `DELETE FROM subscriptions WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) EnqueueWebhook(ctx context.Context, subscriptionID, eventType, url, secret string, payload []byte) (string, error) {
	id := uuid.New().String()
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO webhook_deliveries (id, subscription_id, event_type, url, secret, payload, status, attempts, next_attempt_at)
		 VALUES ($1,$2,$3,$4,$5,$6,'pending',0,now())`,
		id, subscriptionID, eventType, url, nullIfEmpty(secret), payload)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (p *Postgres) FetchDueWebhookDeliveries(ctx context.Context, limit int) ([]WebhookDelivery, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := p.db.QueryContext(ctx,
		`SELECT id::text, subscription_id::text, event_type, url, COALESCE(secret,''), payload, status, attempts
		 FROM webhook_deliveries WHERE status='pending' AND next_attempt_at <= now()
		 ORDER BY next_attempt_at LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []WebhookDelivery{}
	for rows.Next() {
		var d WebhookDelivery
		if err := rows.Scan(&d.ID, &d.SubscriptionID, &d.EventType, &d.URL, &d.Secret, &d.Payload, &d.Status, &d.Attempts); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (p *Postgres) MarkWebhookDelivery(ctx context.Context, id string, success bool, nextAttemptAt *time.Time, lastError string, responseCode int, latencyMs int) error {
	if success {
		_, err := p.db.ExecContext(ctx,
			`UPDATE webhook_deliveries SET attempts=attempts+1, status='delivered', last_error=NULL,
			 response_code=$2, latency_ms=$3, updated_at=now() WHERE id=$1`,
			id, responseCode, latencyMs)
		return err
	}
	if nextAttemptAt == nil {
		now := time.Now()
		nextAttemptAt = &now
	}
	_, err := p.db.ExecContext(ctx,
		`UPDATE webhook_deliveries SET attempts=attempts+1, status='pending', last_error=$2,
		 next_attempt_at=$3, response_code=$4, latency_ms=$5, updated_at=now() WHERE id=$1`,
		id, nullIfEmpty(lastError), *nextAttemptAt, responseCode, latencyMs)
	return err
}

func (p *Postgres) FailWebhookDelivery(ctx context.Context, id string, lastError string, responseCode int, latencyMs int) error {
	_, err := p.db.ExecContext(ctx,
		`UPDATE webhook_deliveries SET status='failed', last_error=$2, response_code=$3, latency_ms=$4, updated_at=now() WHERE id=$1`,
		id, nullIfEmpty(lastError), responseCode, latencyMs)
	return err
}

// Helpers

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// toJSONList encodes a string slice for a jsonb column; nil stays NULL.
func toJSONList(v []string) any {
	if v == nil {
		return nil
	}
	b, _ := json.Marshal(v)
	return b
}

func fromJSONList(b []byte) []string {
	if len(b) == 0 {
		return nil
	}
	var out []string
	_ = json.Unmarshal(b, &out)
	return out
}
