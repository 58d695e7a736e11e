package api

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "net/http"
    "strings"
    "time"

    "github.com/google/uuid"

    "tripnav/internal/cache"
    "tripnav/internal/ingest"
    "tripnav/internal/metrics"
    "tripnav/internal/model"
    "tripnav/internal/plan"
)

// PlanHandler handles POST /v1/plan
func (s *Server) PlanHandler(w http.ResponseWriter, r *http.Request) {
    if r.Method != http.MethodPost {
        w.WriteHeader(http.StatusMethodNotAllowed)
        return
    }
    var req model.PlanRequest
    if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
        writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
        return
    }
    if err := validatePlanRequest(&req); err != nil {
        writeProblem(w, http.StatusBadRequest, "Invalid plan request", err.Error(), r.URL.Path)
        return
    }
    if req.Algorithm == "" { req.Algorithm = "exact" }
    res, status, problem := s.computePlan(r.Context(), req)
    if problem != "" {
        writeProblem(w, status, planProblemTitle(status), problem, r.URL.Path)
        return
    }
    writeJSON(w, http.StatusOK, res)
}

// PlanCompareHandler handles GET /v1/plan/compare
func (s *Server) PlanCompareHandler(w http.ResponseWriter, r *http.Request) {
    if r.Method != http.MethodGet {
        w.WriteHeader(http.StatusMethodNotAllowed)
        return
    }
    q := r.URL.Query()
    req := model.PlanRequest{Start: q.Get("start"), End: q.Get("end")}
    if v := q.Get("attractions"); v != "" {
        for _, a := range strings.Split(v, ",") {
            if t := strings.TrimSpace(a); t != "" { req.Attractions = append(req.Attractions, t) }
        }
    }
    if err := validatePlanRequest(&req); err != nil {
        writeProblem(w, http.StatusBadRequest, "Invalid plan request", err.Error(), r.URL.Path)
        return
    }
    req.Algorithm = "exact"
    exact, status, problem := s.computePlan(r.Context(), req)
    if problem != "" {
        writeProblem(w, status, planProblemTitle(status), problem, r.URL.Path)
        return
    }
    req.Algorithm = "greedy"
    greedy, status, problem := s.computePlan(r.Context(), req)
    if problem != "" {
        writeProblem(w, status, planProblemTitle(status), problem, r.URL.Path)
        return
    }
    writeJSON(w, http.StatusOK, model.PlanComparison{
        Exact:  exact,
        Greedy: greedy,
        Gap:    greedy.Distance - exact.Distance,
    })
}

func planProblemTitle(status int) string {
    switch status {
    case http.StatusNotFound:
        return "Unknown city"
    case http.StatusUnprocessableEntity:
        return "Plan not computable"
    default:
        return "Plan failed"
    }
}

// computePlan runs one planning request end to end: cache lookup, optimize,
// persist the history record, publish events. Returns a problem detail and
// HTTP status instead of a result when planning fails.
func (s *Server) computePlan(ctx context.Context, req model.PlanRequest) (model.PlanResult, int, string) {
    // One snapshot serves both the cache key and the planner, so a road
    // import landing mid-request cannot cache a new-graph result under
    // the old graph version.
    net, mapper := s.snapshot()
    key := cache.Key{
        GraphVersion: net.Version(),
        Algorithm:    req.Algorithm,
        Start:        req.Start,
        End:          req.End,
        Attractions:  req.Attractions,
    }
    if hit, ok := s.Cache.Get(key); ok {
        metrics.CacheLookups.WithLabelValues("hit").Inc()
        hit.CacheHit = true
        return hit, 0, ""
    }
    metrics.CacheLookups.WithLabelValues("miss").Inc()

    planID := req.PlanID
    if planID == "" {
        planID = uuid.New().String()
    }
    p := plan.New(net, mapper, plan.WithMaxWaypoints(s.maxWaypoints))
    started := time.Now()
    var rt plan.Route
    var err error
    switch req.Algorithm {
    case "greedy":
        rt, err = p.Heuristic(req.Start, req.End, req.Attractions)
    default:
        rt, err = p.OptimalWithProgress(req.Start, req.End, req.Attractions, func(evaluated, total int) {
            s.Broker.Publish(planID, SSEEvent{Type: "plan.progress", Data: map[string]any{
                "planId": planID, "evaluated": evaluated, "total": total,
            }})
        })
    }
    elapsed := time.Since(started)
    metrics.PlanDuration.WithLabelValues(req.Algorithm).Observe(elapsed.Seconds())

    if err != nil {
        status, detail := http.StatusInternalServerError, err.Error()
        outcome := "failed"
        switch {
        case errors.Is(err, plan.ErrUnknownCity):
            status = http.StatusNotFound
        case errors.Is(err, plan.ErrTooManyWaypoints):
            status = http.StatusUnprocessableEntity
        case errors.Is(err, plan.ErrInfeasible):
            status = http.StatusUnprocessableEntity
            outcome = "infeasible"
            rec := model.PlanRecord{
                ID:          planID,
                Algorithm:   req.Algorithm,
                Start:       req.Start,
                End:         req.End,
                Attractions: req.Attractions,
                Status:      "infeasible",
            }
            if _, serr := s.Store.SavePlan(ctx, rec); serr == nil {
                s.Pub.Emit(ctx, "plan.infeasible", map[string]any{
                    "planId": planID, "start": req.Start, "end": req.End,
                })
            }
        }
        metrics.PlanRequests.WithLabelValues(req.Algorithm, outcome).Inc()
        return model.PlanResult{}, status, detail
    }

    metrics.PlanRequests.WithLabelValues(req.Algorithm, "completed").Inc()
    metrics.DijkstraRuns.Add(float64(rt.KeyPoints))
    if req.Algorithm != "greedy" {
        metrics.OrderingsEvaluated.Observe(float64(rt.Evaluated))
    }

    rec := model.PlanRecord{
        ID:          planID,
        Algorithm:   req.Algorithm,
        Start:       req.Start,
        End:         req.End,
        Attractions: req.Attractions,
        Route:       rt.Path,
        Distance:    rt.Distance,
        Status:      "completed",
    }
    if _, err := s.Store.SavePlan(ctx, rec); err != nil {
        return model.PlanResult{}, http.StatusInternalServerError, err.Error()
    }
    res := model.PlanResult{
        PlanID:     planID,
        Algorithm:  req.Algorithm,
        Start:      req.Start,
        End:        req.End,
        Route:      rt.Path,
        VisitOrder: rt.Visit,
        Distance:   rt.Distance,
        Skipped:    rt.Skipped,
        Evaluated:  rt.Evaluated,
        KeyPoints:  rt.KeyPoints,
        ElapsedMs:  elapsed.Milliseconds(),
    }
    s.Cache.Put(key, res)
    data := map[string]any{
        "planId": planID, "algorithm": req.Algorithm,
        "start": req.Start, "end": req.End, "distance": rt.Distance,
    }
    s.Pub.Emit(ctx, "plan.completed", data)
    s.Broker.Publish(planID, SSEEvent{Type: "plan.completed", Data: data})
    return res, 0, ""
}

// PlansIndexHandler handles GET /v1/plans
func (s *Server) PlansIndexHandler(w http.ResponseWriter, r *http.Request) {
    if r.URL.Path != "/v1/plans" { writeProblem(w, http.StatusNotFound, "Not Found", "", r.URL.Path); return }
    if r.Method != http.MethodGet { w.WriteHeader(http.StatusMethodNotAllowed); return }
    cursor := r.URL.Query().Get("cursor")
    limit := 100
    if v := r.URL.Query().Get("limit"); v != "" { fmt.Sscanf(v, "%d", &limit) }
    items, next, err := s.Store.ListPlans(r.Context(), cursor, limit)
    if err != nil { writeProblem(w, 500, "List plans failed", err.Error(), r.URL.Path); return }
    writeJSON(w, 200, map[string]any{"items": items, "nextCursor": next})
}

// PlanByIDHandler handles GET /v1/plans/{id} and GET /v1/plans/{id}/events/stream
func (s *Server) PlanByIDHandler(w http.ResponseWriter, r *http.Request) {
    path := r.URL.Path
    rest := strings.TrimPrefix(path, "/v1/plans/")
    if rest == path || rest == "" {
        writeProblem(w, http.StatusNotFound, "Not Found", "missing id", path)
        return
    }
    parts := strings.Split(rest, "/")
    id := parts[0]
    if len(parts) > 1 && parts[1] == "events" && len(parts) > 2 && parts[2] == "stream" {
        // SSE for plan events
        if r.Method != http.MethodGet { w.WriteHeader(http.StatusMethodNotAllowed); return }
        flusher, ok := w.(http.Flusher)
        if !ok { writeProblem(w, 500, "Streaming unsupported", "", r.URL.Path); return }
        w.Header().Set("Content-Type", "text/event-stream")
        w.Header().Set("Cache-Control", "no-cache")
        w.Header().Set("Connection", "keep-alive")
        // subscribe
        ch := s.Broker.Subscribe(id)
        defer s.Broker.Unsubscribe(id, ch)
        // initial heartbeat
        fmt.Fprintf(w, "event: heartbeat\n")
        fmt.Fprintf(w, "data: {\"planId\":\"%s\",\"ts\":\"%s\"}\n\n", id, time.Now().Format(time.RFC3339))
        flusher.Flush()
        // stream loop
        notify := r.Context().Done()
        for {
            select {
            case <-notify:
                return
            case evt := <-ch:
                b, _ := json.Marshal(evt.Data)
                fmt.Fprintf(w, "event: %s\n", evt.Type)
                fmt.Fprintf(w, "data: %s\n\n", string(b))
                flusher.Flush()
            case <-time.After(15 * time.Second):
                fmt.Fprintf(w, "event: heartbeat\n")
                fmt.Fprintf(w, "data: {\"planId\":\"%s\",\"ts\":\"%s\"}\n\n", id, time.Now().Format(time.RFC3339))
                flusher.Flush()
            }
        }
    }
    if r.Method != http.MethodGet {
        w.WriteHeader(http.StatusMethodNotAllowed)
        return
    }
    rec, err := s.Store.GetPlan(r.Context(), id)
    if err != nil {
        writeProblem(w, http.StatusNotFound, "Plan not found", err.Error(), r.URL.Path)
        return
    }
    writeJSON(w, http.StatusOK, rec)
}

// RoadsHandler handles GET/POST /v1/roads. POST accepts a JSON body or raw
// CSV (Content-Type: text/csv) and rebuilds the network when roads change.
func (s *Server) RoadsHandler(w http.ResponseWriter, r *http.Request) {
    switch r.Method {
    case http.MethodGet:
        items, err := s.Store.ListRoads(r.Context())
        if err != nil { writeProblem(w, 500, "List roads failed", err.Error(), r.URL.Path); return }
        writeJSON(w, 200, map[string]any{"items": items})
    case http.MethodPost:
        p := s.getPrincipal(r)
        if !p.IsAdmin() { writeProblem(w, 403, "Forbidden", "admin required", r.URL.Path); return }
        var roads []model.RoadIn
        var warnings []string
        if strings.HasPrefix(r.Header.Get("Content-Type"), "text/csv") {
            var err error
            roads, warnings, err = ingest.ParseRoads(r.Body)
            if err != nil { writeProblem(w, 400, "Invalid CSV", err.Error(), r.URL.Path); return }
        } else {
            var req struct {
                Roads []model.RoadIn `json:"roads"`
            }
            if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
                writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
                return
            }
            for _, rd := range req.Roads {
                if rd.CityA == "" || rd.CityB == "" || rd.Distance < 0 {
                    warnings = append(warnings, fmt.Sprintf("skipped road %q-%q", rd.CityA, rd.CityB))
                    continue
                }
                roads = append(roads, rd)
            }
        }
        added, err := s.Store.AddRoads(r.Context(), roads)
        if err != nil {
            writeProblem(w, http.StatusInternalServerError, "Add roads failed", err.Error(), r.URL.Path)
            return
        }
        if err := s.RebuildNetwork(r.Context()); err != nil {
            writeProblem(w, http.StatusInternalServerError, "Network rebuild failed", err.Error(), r.URL.Path)
            return
        }
        sum := model.ImportSummary{
            ImportID: uuid.New().String(),
            Added:    added,
            Skipped:  len(warnings),
            Warnings: warnings,
        }
        s.Pub.Emit(r.Context(), "roads.imported", map[string]any{
            "importId": sum.ImportID, "added": sum.Added, "skipped": sum.Skipped,
        })
        writeJSON(w, http.StatusAccepted, sum)
    default:
        w.WriteHeader(http.StatusMethodNotAllowed)
    }
}

// AttractionsHandler handles GET/POST /v1/attractions
func (s *Server) AttractionsHandler(w http.ResponseWriter, r *http.Request) {
    switch r.Method {
    case http.MethodGet:
        items, err := s.Store.ListAttractions(r.Context())
        if err != nil { writeProblem(w, 500, "List attractions failed", err.Error(), r.URL.Path); return }
        writeJSON(w, 200, map[string]any{"items": items})
    case http.MethodPost:
        p := s.getPrincipal(r)
        if !p.IsAdmin() { writeProblem(w, 403, "Forbidden", "admin required", r.URL.Path); return }
        var attrs []model.AttractionIn
        var warnings []string
        if strings.HasPrefix(r.Header.Get("Content-Type"), "text/csv") {
            var err error
            attrs, warnings, err = ingest.ParseAttractions(r.Body)
            if err != nil { writeProblem(w, 400, "Invalid CSV", err.Error(), r.URL.Path); return }
        } else {
            var req struct {
                Attractions []model.AttractionIn `json:"attractions"`
            }
            if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
                writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
                return
            }
            for _, a := range req.Attractions {
                if a.Name == "" || a.City == "" {
                    warnings = append(warnings, fmt.Sprintf("skipped attraction %q", a.Name))
                    continue
                }
                attrs = append(attrs, a)
            }
        }
        added, err := s.Store.AddAttractions(r.Context(), attrs)
        if err != nil {
            writeProblem(w, http.StatusInternalServerError, "Add attractions failed", err.Error(), r.URL.Path)
            return
        }
        if err := s.RebuildNetwork(r.Context()); err != nil {
            writeProblem(w, http.StatusInternalServerError, "Network rebuild failed", err.Error(), r.URL.Path)
            return
        }
        writeJSON(w, http.StatusAccepted, model.ImportSummary{
            ImportID: uuid.New().String(),
            Added:    added,
            Skipped:  len(warnings),
            Warnings: warnings,
        })
    default:
        w.WriteHeader(http.StatusMethodNotAllowed)
    }
}

// StatsHandler handles GET /v1/stats
func (s *Server) StatsHandler(w http.ResponseWriter, r *http.Request) {
    if r.Method != http.MethodGet { w.WriteHeader(http.StatusMethodNotAllowed); return }
    writeJSON(w, 200, s.networkStats())
}

// SubscriptionsHandler handles POST/GET /v1/subscriptions
func (s *Server) SubscriptionsHandler(w http.ResponseWriter, r *http.Request) {
    switch r.Method {
    case http.MethodPost:
        p := s.getPrincipal(r)
        if !p.IsAdmin() { writeProblem(w, 403, "Forbidden", "admin required", r.URL.Path); return }
        var req model.SubscriptionRequest
        if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
            writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
            return
        }
        if req.URL == "" || len(req.Events) == 0 {
            writeProblem(w, http.StatusBadRequest, "Invalid subscription", "url and events required", r.URL.Path)
            return
        }
        sub, err := s.Store.CreateSubscription(r.Context(), req)
        if err != nil {
            writeProblem(w, http.StatusInternalServerError, "Create subscription failed", err.Error(), r.URL.Path)
            return
        }
        writeJSON(w, http.StatusCreated, sub)
    case http.MethodGet:
        p := s.getPrincipal(r)
        if !p.IsAdmin() { writeProblem(w, 403, "Forbidden", "admin required", r.URL.Path); return }
        cursor := r.URL.Query().Get("cursor")
        limit := 100
        if v := r.URL.Query().Get("limit"); v != "" { fmt.Sscanf(v, "%d", &limit) }
        items, next, err := s.Store.ListSubscriptions(r.Context(), cursor, limit)
        if err != nil { writeProblem(w, 500, "List subscriptions failed", err.Error(), r.URL.Path); return }
        writeJSON(w, 200, map[string]any{"items": items, "nextCursor": next})
    default:
        w.WriteHeader(http.StatusMethodNotAllowed)
    }
}

// SubscriptionByIDHandler handles DELETE /v1/subscriptions/{id}
func (s *Server) SubscriptionByIDHandler(w http.ResponseWriter, r *http.Request) {
    if !strings.HasPrefix(r.URL.Path, "/v1/subscriptions/") { writeProblem(w, 404, "Not Found", "", r.URL.Path); return }
    if r.Method != http.MethodDelete { w.WriteHeader(405); return }
    p := s.getPrincipal(r)
    if !p.IsAdmin() { writeProblem(w, 403, "Forbidden", "admin required", r.URL.Path); return }
    id := strings.TrimPrefix(r.URL.Path, "/v1/subscriptions/")
    if err := s.Store.DeleteSubscription(r.Context(), id); err != nil { writeProblem(w, 500, "Delete subscription failed", err.Error(), r.URL.Path); return }
    w.WriteHeader(204)
}

// Health
func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
    writeJSON(w, 200, map[string]string{"status": "ok"})
}

func (s *Server) ReadyHandler(w http.ResponseWriter, r *http.Request) {
    // Check DB connectivity when using Postgres store
    type pinger interface{ Ping(ctx context.Context) error }
    if pg, ok := s.Store.(pinger); ok {
        ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
        defer cancel()
        if err := pg.Ping(ctx); err != nil { writeProblem(w, 503, "Not Ready", err.Error(), r.URL.Path); return }
    }
    writeJSON(w, 200, map[string]string{"status": "ready"})
}
