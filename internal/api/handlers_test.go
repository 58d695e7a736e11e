package api

import (
    "bytes"
    "context"
    "encoding/json"
    "net/http"
    "net/http/httptest"
    "strings"
    "testing"
    "time"

    "tripnav/internal/cache"
    "tripnav/internal/model"
)

func newTestServer(t *testing.T) *Server {
    t.Helper()
    s, err := NewServer()
    if err != nil { t.Fatalf("NewServer: %v", err) }
    return s
}

// seedSquare loads a small network: A-B-C-D in a line plus a long A-D
// shortcut, with one attraction per inner city.
func seedSquare(t *testing.T, s *Server) {
    t.Helper()
    body := []byte(`{"roads":[
        {"cityA":"A","cityB":"B","distance":5},
        {"cityA":"B","cityB":"C","distance":5},
        {"cityA":"C","cityB":"D","distance":5},
        {"cityA":"A","cityB":"D","distance":20}
    ]}`)
    rr := httptest.NewRecorder()
    req := httptest.NewRequest(http.MethodPost, "/v1/roads", bytes.NewReader(body))
    req.Header.Set("Content-Type", "application/json")
    req.Header.Set("X-Role", "admin")
    s.RoadsHandler(rr, req)
    if rr.Code != http.StatusAccepted { t.Fatalf("seed roads: %d %s", rr.Code, rr.Body.String()) }

    ab := []byte(`{"attractions":[
        {"name":"Old Bridge","city":"B"},
        {"name":"Red Canyon","city":"C"},
        {"name":"High Dunes","city":"D"}
    ]}`)
    rr = httptest.NewRecorder()
    req = httptest.NewRequest(http.MethodPost, "/v1/attractions", bytes.NewReader(ab))
    req.Header.Set("Content-Type", "application/json")
    req.Header.Set("X-Role", "admin")
    s.AttractionsHandler(rr, req)
    if rr.Code != http.StatusAccepted { t.Fatalf("seed attractions: %d %s", rr.Code, rr.Body.String()) }
}

func postPlan(t *testing.T, s *Server, body string) (*httptest.ResponseRecorder, model.PlanResult) {
    t.Helper()
    rr := httptest.NewRecorder()
    req := httptest.NewRequest(http.MethodPost, "/v1/plan", strings.NewReader(body))
    req.Header.Set("Content-Type", "application/json")
    s.PlanHandler(rr, req)
    var res model.PlanResult
    if rr.Code == 200 {
        if err := json.Unmarshal(rr.Body.Bytes(), &res); err != nil {
            t.Fatalf("decode plan result: %v", err)
        }
    }
    return rr, res
}

func TestHealthReady(t *testing.T) {
    s := newTestServer(t)
    rr := httptest.NewRecorder()
    s.HealthHandler(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
    if rr.Code != 200 { t.Fatalf("health: got %d", rr.Code) }
    rr = httptest.NewRecorder()
    s.ReadyHandler(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
    if rr.Code != 200 { t.Fatalf("ready: got %d", rr.Code) }
}

func TestRoadsImportAndStats(t *testing.T) {
    s := newTestServer(t)
    seedSquare(t, s)

    rr := httptest.NewRecorder()
    s.StatsHandler(rr, httptest.NewRequest(http.MethodGet, "/v1/stats", nil))
    if rr.Code != 200 { t.Fatalf("stats: %d", rr.Code) }
    var st model.NetworkStats
    if err := json.Unmarshal(rr.Body.Bytes(), &st); err != nil { t.Fatalf("decode stats: %v", err) }
    if st.Cities != 4 || st.Roads != 4 || st.Attractions != 3 {
        t.Fatalf("unexpected stats: %+v", st)
    }
}

func TestRoadsImportCSV(t *testing.T) {
    s := newTestServer(t)
    csv := "A,B,5\nB,C,5\nbadline\nC,D,notanumber\n"
    rr := httptest.NewRecorder()
    req := httptest.NewRequest(http.MethodPost, "/v1/roads", strings.NewReader(csv))
    req.Header.Set("Content-Type", "text/csv")
    req.Header.Set("X-Role", "admin")
    s.RoadsHandler(rr, req)
    if rr.Code != http.StatusAccepted { t.Fatalf("csv import: %d %s", rr.Code, rr.Body.String()) }
    var sum model.ImportSummary
    if err := json.Unmarshal(rr.Body.Bytes(), &sum); err != nil { t.Fatalf("decode summary: %v", err) }
    if sum.Added != 2 || sum.Skipped != 2 {
        t.Fatalf("expected 2 added 2 skipped, got %+v", sum)
    }
}

func TestPlanExactAndCache(t *testing.T) {
    s := newTestServer(t)
    seedSquare(t, s)

    body := `{"start":"A","end":"D","attractions":["Old Bridge","Red Canyon"],"algorithm":"exact"}`
    rr, res := postPlan(t, s, body)
    if rr.Code != 200 { t.Fatalf("plan: %d %s", rr.Code, rr.Body.String()) }
    want := []string{"A", "B", "C", "D"}
    if len(res.Route) != len(want) { t.Fatalf("route %v, want %v", res.Route, want) }
    for i := range want {
        if res.Route[i] != want[i] { t.Fatalf("route %v, want %v", res.Route, want) }
    }
    if res.Distance != 15 { t.Fatalf("distance %v, want 15", res.Distance) }
    if res.CacheHit { t.Fatalf("first call should not be a cache hit") }

    // identical request comes back from cache
    rr, res = postPlan(t, s, body)
    if rr.Code != 200 { t.Fatalf("cached plan: %d", rr.Code) }
    if !res.CacheHit { t.Fatalf("second call should be a cache hit") }
    if res.Distance != 15 { t.Fatalf("cached distance %v, want 15", res.Distance) }
}

func TestPlanCacheInvalidatedByImport(t *testing.T) {
    s := newTestServer(t)
    seedSquare(t, s)

    body := `{"start":"A","end":"D"}`
    rr, _ := postPlan(t, s, body)
    if rr.Code != 200 { t.Fatalf("plan: %d", rr.Code) }

    // adding a road bumps the graph version, so the old entry is unreachable
    rb := []byte(`{"roads":[{"cityA":"A","cityB":"D","distance":1}]}`)
    rr2 := httptest.NewRecorder()
    req := httptest.NewRequest(http.MethodPost, "/v1/roads", bytes.NewReader(rb))
    req.Header.Set("Content-Type", "application/json")
    req.Header.Set("X-Role", "admin")
    s.RoadsHandler(rr2, req)
    if rr2.Code != http.StatusAccepted { t.Fatalf("add road: %d", rr2.Code) }

    rr, res := postPlan(t, s, body)
    if rr.Code != 200 { t.Fatalf("plan after import: %d", rr.Code) }
    if res.CacheHit { t.Fatalf("plan after import must not reuse stale cache") }
    if res.Distance != 1 { t.Fatalf("distance %v, want 1 over the new road", res.Distance) }
}

func TestPlanGreedyAndSkipped(t *testing.T) {
    s := newTestServer(t)
    seedSquare(t, s)

    body := `{"start":"A","end":"D","attractions":["Old Bridge","Lost Temple"],"algorithm":"greedy"}`
    rr, res := postPlan(t, s, body)
    if rr.Code != 200 { t.Fatalf("greedy plan: %d %s", rr.Code, rr.Body.String()) }
    if len(res.Skipped) != 1 || res.Skipped[0] != "Lost Temple" {
        t.Fatalf("expected Lost Temple skipped, got %v", res.Skipped)
    }
    if res.Distance <= 0 { t.Fatalf("distance should be positive, got %v", res.Distance) }
}

func TestPlanUnknownCity(t *testing.T) {
    s := newTestServer(t)
    seedSquare(t, s)
    rr, _ := postPlan(t, s, `{"start":"Nowhere","end":"D"}`)
    if rr.Code != http.StatusNotFound { t.Fatalf("unknown city: got %d, want 404", rr.Code) }
}

func TestPlanInfeasible(t *testing.T) {
    s := newTestServer(t)
    seedSquare(t, s)
    // E-F is a separate component
    rb := []byte(`{"roads":[{"cityA":"E","cityB":"F","distance":3}]}`)
    rr := httptest.NewRecorder()
    req := httptest.NewRequest(http.MethodPost, "/v1/roads", bytes.NewReader(rb))
    req.Header.Set("Content-Type", "application/json")
    req.Header.Set("X-Role", "admin")
    s.RoadsHandler(rr, req)
    if rr.Code != http.StatusAccepted { t.Fatalf("add roads: %d", rr.Code) }

    prr, _ := postPlan(t, s, `{"start":"A","end":"E"}`)
    if prr.Code != http.StatusUnprocessableEntity {
        t.Fatalf("infeasible plan: got %d, want 422", prr.Code)
    }
    // the failure is recorded in plan history
    hrr := httptest.NewRecorder()
    s.PlansIndexHandler(hrr, httptest.NewRequest(http.MethodGet, "/v1/plans", nil))
    if hrr.Code != 200 { t.Fatalf("plans list: %d", hrr.Code) }
    var idx struct{ Items []model.PlanRecord `json:"items"` }
    if err := json.Unmarshal(hrr.Body.Bytes(), &idx); err != nil { t.Fatalf("decode: %v", err) }
    found := false
    for _, it := range idx.Items {
        if it.Status == "infeasible" { found = true }
    }
    if !found { t.Fatalf("expected an infeasible plan record, got %+v", idx.Items) }
}

func TestPlanValidation(t *testing.T) {
    s := newTestServer(t)
    seedSquare(t, s)
    rr, _ := postPlan(t, s, `{"start":"A","end":"D","algorithm":"annealing"}`)
    if rr.Code != http.StatusBadRequest { t.Fatalf("bad algorithm: got %d", rr.Code) }
    rr, _ = postPlan(t, s, `{"end":"D"}`)
    if rr.Code != http.StatusBadRequest { t.Fatalf("missing start: got %d", rr.Code) }
}

func TestPlanCompare(t *testing.T) {
    s := newTestServer(t)
    seedSquare(t, s)
    rr := httptest.NewRecorder()
    req := httptest.NewRequest(http.MethodGet, "/v1/plan/compare?start=A&end=D&attractions=Old+Bridge,Red+Canyon", nil)
    s.PlanCompareHandler(rr, req)
    if rr.Code != 200 { t.Fatalf("compare: %d %s", rr.Code, rr.Body.String()) }
    var cmp model.PlanComparison
    if err := json.Unmarshal(rr.Body.Bytes(), &cmp); err != nil { t.Fatalf("decode compare: %v", err) }
    if cmp.Gap < 0 { t.Fatalf("greedy must never beat exact, gap %v", cmp.Gap) }
    if cmp.Exact.Distance != 15 { t.Fatalf("exact distance %v, want 15", cmp.Exact.Distance) }
}

func TestPlanHistory(t *testing.T) {
    s := newTestServer(t)
    seedSquare(t, s)
    rr, res := postPlan(t, s, `{"start":"A","end":"D"}`)
    if rr.Code != 200 { t.Fatalf("plan: %d", rr.Code) }

    grr := httptest.NewRecorder()
    s.PlanByIDHandler(grr, httptest.NewRequest(http.MethodGet, "/v1/plans/"+res.PlanID, nil))
    if grr.Code != 200 { t.Fatalf("get plan: %d", grr.Code) }
    var rec model.PlanRecord
    if err := json.Unmarshal(grr.Body.Bytes(), &rec); err != nil { t.Fatalf("decode record: %v", err) }
    if rec.Status != "completed" || rec.Start != "A" || rec.End != "D" {
        t.Fatalf("unexpected record: %+v", rec)
    }
}

func TestPlanCompletedEnqueuesWebhook(t *testing.T) {
    s := newTestServer(t)
    seedSquare(t, s)

    subBody := []byte(`{"url":"https://example.invalid/webhook","events":["plan.completed"],"secret":"shh"}`)
    rr := httptest.NewRecorder()
    req := httptest.NewRequest(http.MethodPost, "/v1/subscriptions", bytes.NewReader(subBody))
    req.Header.Set("Content-Type", "application/json")
    req.Header.Set("X-Role", "admin")
    s.SubscriptionsHandler(rr, req)
    if rr.Code != http.StatusCreated { t.Fatalf("create sub: %d", rr.Code) }

    prr, _ := postPlan(t, s, `{"start":"A","end":"D"}`)
    if prr.Code != 200 { t.Fatalf("plan: %d", prr.Code) }

    due, err := s.Store.FetchDueWebhookDeliveries(context.Background(), 10)
    if err != nil { t.Fatalf("fetch due: %v", err) }
    if len(due) == 0 { t.Fatalf("expected a queued delivery for plan.completed") }
    if due[0].EventType != "plan.completed" {
        t.Fatalf("eventType %q, want plan.completed", due[0].EventType)
    }
}

// sseRecorder is a minimal ResponseWriter that implements http.Flusher
// and captures writes for SSE tests.
type sseRecorder struct {
    hdr  http.Header
    buf  bytes.Buffer
    code int
}

func (r *sseRecorder) Header() http.Header { if r.hdr == nil { r.hdr = http.Header{} }; return r.hdr }
func (r *sseRecorder) WriteHeader(c int) { r.code = c }
func (r *sseRecorder) Write(p []byte) (int, error) { return r.buf.Write(p) }
func (r *sseRecorder) Flush() {}

func TestPlanEventsSSE(t *testing.T) {
    s := newTestServer(t)
    seedSquare(t, s)
    pid := "plan-sse-test"

    sseReq := httptest.NewRequest(http.MethodGet, "/v1/plans/"+pid+"/events/stream", nil)
    ctx, cancel := context.WithTimeout(context.Background(), time.Second)
    defer cancel()
    sseReq = sseReq.WithContext(ctx)

    rec := &sseRecorder{}
    done := make(chan struct{})
    go func() {
        s.PlanByIDHandler(rec, sseReq)
        close(done)
    }()

    // give the handler time to subscribe and send the heartbeat
    time.Sleep(50 * time.Millisecond)
    s.Broker.Publish(pid, SSEEvent{Type: "plan.completed", Data: map[string]any{"planId": pid}})

    deadline := time.Now().Add(500 * time.Millisecond)
    for time.Now().Before(deadline) {
        if bytes.Contains(rec.buf.Bytes(), []byte("event: plan.completed")) {
            break
        }
        time.Sleep(10 * time.Millisecond)
    }
    if !bytes.Contains(rec.buf.Bytes(), []byte("event: plan.completed")) {
        t.Fatalf("SSE did not contain expected event. Body: %s", rec.buf.String())
    }
    cancel()
    select {
    case <-done:
    case <-time.After(200 * time.Millisecond):
        t.Fatal("handler did not exit after cancel")
    }
}

func TestSubscriptionDelete(t *testing.T) {
    s := newTestServer(t)
    subBody := []byte(`{"url":"https://example.invalid/webhook","events":["plan.completed"]}`)
    rr := httptest.NewRecorder()
    req := httptest.NewRequest(http.MethodPost, "/v1/subscriptions", bytes.NewReader(subBody))
    req.Header.Set("Content-Type", "application/json")
    req.Header.Set("X-Role", "admin")
    s.SubscriptionsHandler(rr, req)
    if rr.Code != http.StatusCreated { t.Fatalf("create sub: %d", rr.Code) }
    var sub model.Subscription
    if err := json.Unmarshal(rr.Body.Bytes(), &sub); err != nil { t.Fatalf("decode sub: %v", err) }

    rr = httptest.NewRecorder()
    req = httptest.NewRequest(http.MethodDelete, "/v1/subscriptions/"+sub.ID, nil)
    req.Header.Set("X-Role", "admin")
    s.SubscriptionByIDHandler(rr, req)
    if rr.Code != 204 { t.Fatalf("delete sub: %d", rr.Code) }

    // non-admin is rejected
    rr = httptest.NewRecorder()
    req = httptest.NewRequest(http.MethodPost, "/v1/subscriptions", bytes.NewReader(subBody))
    req.Header.Set("Content-Type", "application/json")
    req.Header.Set("X-Role", "user")
    s.SubscriptionsHandler(rr, req)
    if rr.Code != 403 { t.Fatalf("non-admin create: got %d, want 403", rr.Code) }
}

// Planning and road imports may interleave; every cached result must be
// keyed under the graph version it was actually computed against.
func TestComputePlanCacheKeyMatchesServingGraph(t *testing.T) {
    s := newTestServer(t)
    seedSquare(t, s)
    ctx := context.Background()

    done := make(chan struct{})
    go func() {
        defer close(done)
        for i := 1; i <= 8; i++ {
            if _, err := s.Store.AddRoads(ctx, []model.RoadIn{{CityA: "A", CityB: "D", Distance: float64(14 - i)}}); err != nil {
                t.Errorf("add road %d: %v", i, err)
                return
            }
            if err := s.RebuildNetwork(ctx); err != nil {
                t.Errorf("rebuild %d: %v", i, err)
                return
            }
            time.Sleep(time.Millisecond)
        }
    }()

    req := model.PlanRequest{Start: "A", End: "D", Algorithm: "exact"}
    for i := 0; i < 40; i++ {
        if _, status, problem := s.computePlan(ctx, req); status != 0 {
            t.Fatalf("plan %d: status %d: %s", i, status, problem)
        }
    }
    <-done

    // The seed graph has 4 roads (version 4) and answers distance 15.
    // Import i adds one A-D shortcut of length 14-i, so version 4+i
    // answers 14-i, i.e. 18-v.
    for v := uint64(4); v <= 12; v++ {
        key := cache.Key{GraphVersion: v, Algorithm: "exact", Start: "A", End: "D"}
        hit, ok := s.Cache.Get(key)
        if !ok {
            continue
        }
        want := 15.0
        if v > 4 {
            want = float64(18 - v)
        }
        if hit.Distance != want {
            t.Fatalf("version %d cached distance %v, want %v", v, hit.Distance, want)
        }
    }
}
