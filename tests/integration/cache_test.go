package integration

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/verdantio/trefle-fetch/internal/testutil"
	"github.com/verdantio/trefle-fetch/pkg/api"
	"github.com/verdantio/trefle-fetch/pkg/cache"
	"github.com/verdantio/trefle-fetch/pkg/fetcher"
	"github.com/verdantio/trefle-fetch/pkg/fileio"
	"github.com/verdantio/trefle-fetch/pkg/ratelimit"
)

// setupRedis creates a Redis container for integration testing.
func setupRedis(t *testing.T) (*redis.Client, func()) {
	t.Helper()

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := container.MappedPort(ctx, "6379")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr: host + ":" + port.Port(),
	})

	cleanup := func() {
		redisClient.Close()
		container.Terminate(ctx)
	}

	return redisClient, cleanup
}

// TestCacheRoundtrip verifies detail records survive a Redis store/load
// cycle, including TTL expiry and deletion.
func TestCacheRoundtrip(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	ctx := context.Background()
	mgr := cache.NewManager(redisClient, time.Minute, zerolog.Nop())

	detail := api.Record{
		"id":   float64(686306),
		"slug": "cocos-nucifera",
		"main_species": map[string]any{
			"duration": "perennial",
		},
	}

	if _, err := mgr.GetDetail(ctx, "686306"); !errors.Is(err, cache.ErrCacheMiss) {
		t.Fatalf("GetDetail() before store error = %v, want ErrCacheMiss", err)
	}

	if err := mgr.SetDetail(ctx, "686306", detail); err != nil {
		t.Fatalf("SetDetail() error = %v", err)
	}

	got, err := mgr.GetDetail(ctx, "686306")
	if err != nil {
		t.Fatalf("GetDetail() error = %v", err)
	}
	if got.Str("slug") != "cocos-nucifera" {
		t.Errorf("slug = %q, want cocos-nucifera", got.Str("slug"))
	}
	if got.Map("main_species").Str("duration") != "perennial" {
		t.Errorf("cached nested structure lost: %v", got)
	}

	if err := mgr.Delete(ctx, "686306"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := mgr.GetDetail(ctx, "686306"); !errors.Is(err, cache.ErrCacheMiss) {
		t.Errorf("GetDetail() after delete error = %v, want ErrCacheMiss", err)
	}
}

func TestCacheTTLExpiry(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	ctx := context.Background()
	mgr := cache.NewManager(redisClient, time.Second, zerolog.Nop())

	if err := mgr.SetDetail(ctx, "1", api.Record{"id": float64(1)}); err != nil {
		t.Fatalf("SetDetail() error = %v", err)
	}

	time.Sleep(1500 * time.Millisecond)

	if _, err := mgr.GetDetail(ctx, "1"); !errors.Is(err, cache.ErrCacheMiss) {
		t.Errorf("GetDetail() after TTL error = %v, want ErrCacheMiss", err)
	}
}

// TestEnrichedFetchUsesCache runs the same enriched fetch twice against a
// mock API backed by the Redis cache; the second run must satisfy every
// detail lookup from cache instead of the network.
func TestEnrichedFetchUsesCache(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	mock := testutil.NewMockAPI()
	defer mock.Close()

	mock.HandlePages("/plants", [][]map[string]any{
		{{"id": 1, "slug": "a"}, {"id": 2, "slug": "b"}},
	})
	mock.HandleDetail("/plants/1", map[string]any{"id": 1, "main_species": map[string]any{"duration": "annual"}})
	mock.HandleDetail("/plants/2", map[string]any{"id": 2, "main_species": map[string]any{"duration": "perennial"}})

	client, err := api.New(api.Config{
		BaseURL: mock.URL(),
		Token:   "test-token",
		Logger:  zerolog.Nop(),
	})
	if err != nil {
		t.Fatalf("api.New() error = %v", err)
	}

	mgr := cache.NewManager(redisClient, time.Minute, zerolog.Nop())
	limiter := ratelimit.NewLimiter(0, 0, zerolog.Nop())
	svc := fetcher.New(client, limiter, mgr, zerolog.Nop())

	dir := t.TempDir()
	opts := fetcher.Options{OutputDir: dir, Enrich: true}

	if err := svc.FetchPlants(context.Background(), nil, opts); err != nil {
		t.Fatalf("first FetchPlants() error = %v", err)
	}
	// One page fetch plus two detail fetches.
	firstRun := mock.RequestCount
	if firstRun != 3 {
		t.Fatalf("first run requests = %d, want 3", firstRun)
	}

	if err := svc.FetchPlants(context.Background(), nil, opts); err != nil {
		t.Fatalf("second FetchPlants() error = %v", err)
	}
	// Only the page fetch hits the network; details come from Redis.
	if got := mock.RequestCount - firstRun; got != 1 {
		t.Errorf("second run requests = %d, want 1 (details served from cache)", got)
	}

	data, err := fileio.Read(dir+"/plants_pages_1-1_enriched.json", fileio.FormatAuto)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	records, ok := data.([]any)
	if !ok || len(records) != 2 {
		t.Fatalf("output = %T %v, want 2 records", data, data)
	}
	first, _ := api.AsRecord(records[0])
	if first["duration"] != "annual" {
		t.Errorf("duration = %v, want annual from cached detail", first["duration"])
	}
}
