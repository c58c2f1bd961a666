package dedupe

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

// TestKey verifies the slot key layout
func TestKey(t *testing.T) {
	day := time.Date(2026, 10, 18, 17, 0, 0, 0, time.UTC)
	assert.Equal(t, "dedup:report:daily:Platform:2026-10-18", Key("daily", "Platform", day))
}

// TestMemory verifies single acquisition, release and expiry
func TestMemory(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 10, 18, 17, 0, 0, 0, time.UTC)

	m := NewMemory(time.Hour)
	m.now = func() time.Time { return now }

	assert.True(t, m.AcquireOnce(ctx, "k"))
	assert.False(t, m.AcquireOnce(ctx, "k"), "second acquire is a duplicate")
	assert.True(t, m.AcquireOnce(ctx, "other"))

	m.Release(ctx, "k")
	assert.True(t, m.AcquireOnce(ctx, "k"), "released keys can be taken again")

	now = now.Add(2 * time.Hour)
	assert.True(t, m.AcquireOnce(ctx, "other"), "expired keys can be taken again")
}

// TestNop verifies the pass-through deduper
func TestNop(t *testing.T) {
	var d Deduper = Nop{}
	assert.True(t, d.AcquireOnce(context.Background(), "k"))
	assert.True(t, d.AcquireOnce(context.Background(), "k"))
}

// TestRedis_FailOpen verifies an unreachable Redis never blocks a send
func TestRedis_FailOpen(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer rdb.Close()

	d := NewRedis(rdb, time.Hour, zap.NewNop())
	assert.True(t, d.AcquireOnce(context.Background(), "k"))
	assert.True(t, d.AcquireOnce(context.Background(), "k"))
	d.Release(context.Background(), "k")
}
