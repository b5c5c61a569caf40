package settings

import (
	"context"
	"testing"
	"time"

	"shipnotify/internal/domain"
	"shipnotify/internal/store"
)

type countingSource struct {
	calls int
	cfg   store.TenantProviderConfig
	found bool
}

func (s *countingSource) GetActiveConfig(ctx context.Context, tenantID string, channel domain.Channel) (store.TenantProviderConfig, bool, error) {
	s.calls++
	return s.cfg, s.found, nil
}

func TestCacheServesWithinTTL(t *testing.T) {
	src := &countingSource{cfg: store.TenantProviderConfig{ID: "cfg-1"}, found: true}
	c := NewCache(src, time.Minute)

	for i := 0; i < 3; i++ {
		cfg, found, err := c.GetActiveConfig(context.Background(), "t1", domain.ChannelEmail)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if !found || cfg.ID != "cfg-1" {
			t.Fatalf("unexpected result: %+v found=%v", cfg, found)
		}
	}
	if src.calls != 1 {
		t.Fatalf("expected 1 source call, got %d", src.calls)
	}
}

func TestCacheExpires(t *testing.T) {
	src := &countingSource{found: true}
	c := NewCache(src, 10*time.Millisecond)

	now := time.Now()
	c.now = func() time.Time { return now }

	if _, _, err := c.GetActiveConfig(context.Background(), "t1", domain.ChannelEmail); err != nil {
		t.Fatalf("get: %v", err)
	}
	now = now.Add(20 * time.Millisecond)
	if _, _, err := c.GetActiveConfig(context.Background(), "t1", domain.ChannelEmail); err != nil {
		t.Fatalf("get: %v", err)
	}
	if src.calls != 2 {
		t.Fatalf("expected refetch after expiry, got %d calls", src.calls)
	}
}

func TestCacheInvalidate(t *testing.T) {
	src := &countingSource{found: true}
	c := NewCache(src, time.Minute)

	_, _, _ = c.GetActiveConfig(context.Background(), "t1", domain.ChannelSMS)
	c.Invalidate("t1", domain.ChannelSMS)
	_, _, _ = c.GetActiveConfig(context.Background(), "t1", domain.ChannelSMS)

	if src.calls != 2 {
		t.Fatalf("expected refetch after invalidation, got %d calls", src.calls)
	}
}

func TestCacheNegativeResult(t *testing.T) {
	src := &countingSource{found: false}
	c := NewCache(src, time.Minute)

	_, found, _ := c.GetActiveConfig(context.Background(), "t2", domain.ChannelEmail)
	if found {
		t.Fatalf("expected not found")
	}
	_, _, _ = c.GetActiveConfig(context.Background(), "t2", domain.ChannelEmail)
	if src.calls != 1 {
		t.Fatalf("negative result should be cached, got %d calls", src.calls)
	}
}
