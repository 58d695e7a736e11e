package api

import (
    "context"
    "log"
    "os"
    "strconv"
    "strings"
    "sync"

    "tripnav/internal/attractions"
    "tripnav/internal/auth"
    "tripnav/internal/cache"
    "tripnav/internal/graph"
    "tripnav/internal/ingest"
    "tripnav/internal/model"
    "tripnav/internal/plan"
    "tripnav/internal/store"
    "tripnav/internal/webhooks"
)

type Server struct {
    Store  store.Store
    Pub    *webhooks.Publisher
    Auth   *auth.Verifier
    Broker EventBroker
    Cache  cache.PlanCache

    mu           sync.RWMutex
    net          *graph.Network
    mapper       *attractions.Mapper
    maxWaypoints int
}

// NewServer creates a Server. If DATABASE_URL is unset, uses in-memory store.
func NewServer() (*Server, error) {
    dsn := os.Getenv("DATABASE_URL")
    var s store.Store
    if strings.TrimSpace(dsn) == "" {
        s = store.NewMemory()
    } else {
        sp, err := store.NewPostgres(dsn)
        if err != nil {
            return nil, err
        }
        // Run migrations (dev helper)
        if os.Getenv("DB_MIGRATE") != "false" {
            if err := sp.MigrateDir("db/migrations"); err != nil {
                log.Printf("migrate: %v", err)
            }
        }
        s = sp
    }
    // Broker selection
    var broker EventBroker
    if os.Getenv("REDIS_URL") != "" {
        if rb, err := NewRedisBroker(); err == nil { broker = rb } else { broker = NewBroker() }
    } else {
        broker = NewBroker()
    }
    // Plan cache selection
    var pc cache.PlanCache
    if url := os.Getenv("REDIS_URL"); url != "" {
        if rc, err := cache.NewRedis(url); err == nil { pc = rc } else { pc = cache.NewLRU() }
    } else {
        pc = cache.NewLRU()
    }
    maxWay := plan.DefaultMaxWaypoints
    if v := os.Getenv("PLAN_MAX_WAYPOINTS"); v != "" {
        if n, err := strconv.Atoi(v); err == nil && n > 0 { maxWay = n }
    }
    srv := &Server{
        Store:        s,
        Pub:          webhooks.NewPublisher(s),
        Auth:         auth.NewVerifierFromEnv(),
        Broker:       broker,
        Cache:        pc,
        maxWaypoints: maxWay,
    }
    ctx := context.Background()
    if err := srv.seedFromEnv(ctx); err != nil {
        return nil, err
    }
    if err := srv.RebuildNetwork(ctx); err != nil {
        return nil, err
    }
    return srv, nil
}

// seedFromEnv loads road and attraction CSV files named by ROADS_FILE and
// ATTRACTIONS_FILE into the store. Missing env vars are not an error.
func (s *Server) seedFromEnv(ctx context.Context) error {
    if path := os.Getenv("ROADS_FILE"); path != "" {
        f, err := os.Open(path)
        if err != nil {
            return err
        }
        roads, warnings, err := ingest.ParseRoads(f)
        _ = f.Close()
        if err != nil {
            return err
        }
        for _, w := range warnings {
            log.Printf("roads seed: %s", w)
        }
        if _, err := s.Store.AddRoads(ctx, roads); err != nil {
            return err
        }
    }
    if path := os.Getenv("ATTRACTIONS_FILE"); path != "" {
        f, err := os.Open(path)
        if err != nil {
            return err
        }
        attrs, warnings, err := ingest.ParseAttractions(f)
        _ = f.Close()
        if err != nil {
            return err
        }
        for _, w := range warnings {
            log.Printf("attractions seed: %s", w)
        }
        if _, err := s.Store.AddAttractions(ctx, attrs); err != nil {
            return err
        }
    }
    return nil
}

// RebuildNetwork reloads the road network and attraction mapper from the store.
// Planning requests block while the rebuild holds the write lock.
func (s *Server) RebuildNetwork(ctx context.Context) error {
    roads, err := s.Store.ListRoads(ctx)
    if err != nil {
        return err
    }
    attrs, err := s.Store.ListAttractions(ctx)
    if err != nil {
        return err
    }
    net := graph.New()
    for _, rd := range roads {
        net.AddRoad(rd.CityA, rd.CityB, rd.Distance)
    }
    mapper := attractions.NewMapper()
    for _, a := range attrs {
        mapper.Add(a.Name, a.City)
    }
    s.mu.Lock()
    s.net = net
    s.mapper = mapper
    s.mu.Unlock()
    return nil
}

// snapshot returns the current network and mapper for read-side use.
func (s *Server) snapshot() (*graph.Network, *attractions.Mapper) {
    s.mu.RLock()
    defer s.mu.RUnlock()
    return s.net, s.mapper
}

func (s *Server) networkStats() model.NetworkStats {
    net, mapper := s.snapshot()
    return model.NetworkStats{
        Cities:      net.NumCities(),
        Roads:       net.NumRoads(),
        Attractions: mapper.Count(),
        Version:     net.Version(),
    }
}

// NewWebhookWorker creates a background worker for webhook deliveries.
func (s *Server) NewWebhookWorker() *webhooks.Worker {
    return webhooks.NewWorker(s.Store)
}
