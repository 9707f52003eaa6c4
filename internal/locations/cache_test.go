package locations

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"fm_servicios_backend/platform/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type countingCatalog struct {
	calls atomic.Int32
	inner Catalog
}

func (c *countingCatalog) Regions(ctx context.Context) ([]string, error) {
	c.calls.Add(1)
	return c.inner.Regions(ctx)
}

func (c *countingCatalog) Comunas(ctx context.Context, region string) ([]string, error) {
	c.calls.Add(1)
	return c.inner.Comunas(ctx, region)
}

func newCachedForTest(t *testing.T) (*CachedCatalog, *countingCatalog, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	static, err := NewStaticCatalog()
	if err != nil {
		t.Fatalf("NewStaticCatalog: %v", err)
	}
	counting := &countingCatalog{inner: static}
	return NewCachedCatalog(counting, rdb, time.Hour, logger.Discard()), counting, mr
}

func TestCachedCatalogReadsThrough(t *testing.T) {
	cached, counting, mr := newCachedForTest(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		comunas, err := cached.Comunas(ctx, "Magallanes")
		if err != nil || len(comunas) == 0 {
			t.Fatalf("Comunas returned %v, %v", comunas, err)
		}
	}
	if got := counting.calls.Load(); got != 1 {
		t.Fatalf("expected one underlying load, got %d", got)
	}
	if !mr.Exists(cacheKeyPrefix + "comunas:magallanes") {
		t.Fatal("expected comunas to be cached under folded key")
	}

	if err := cached.Invalidate(ctx); err != nil {
		t.Fatalf("Invalidate: %v", err)
	}
	if _, err := cached.Comunas(ctx, "Magallanes"); err != nil {
		t.Fatalf("Comunas after invalidate: %v", err)
	}
	if got := counting.calls.Load(); got != 2 {
		t.Fatalf("expected reload after invalidate, got %d loads", got)
	}
}

func TestCachedCatalogSurvivesRedisOutage(t *testing.T) {
	cached, counting, mr := newCachedForTest(t)
	mr.Close()

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			regions, err := cached.Regions(context.Background())
			if err != nil || len(regions) != 16 {
				t.Errorf("Regions during outage returned %d items, err %v", len(regions), err)
			}
		}()
	}
	wg.Wait()

	if counting.calls.Load() == 0 {
		t.Fatal("expected underlying catalog to serve requests")
	}
}
