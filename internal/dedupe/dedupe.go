// Package dedupe guards report delivery so each report goes out at most once
// per scope and day, even when the scheduler fires twice or a run is retried.
package dedupe

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/robby/linearpulse/internal/config"
)

// Deduper hands out one-time delivery slots.
type Deduper interface {
	// AcquireOnce returns true the first time it sees key within its TTL.
	AcquireOnce(ctx context.Context, key string) bool
	// Release frees key so a failed delivery can be retried.
	Release(ctx context.Context, key string)
}

// Key builds the slot key for a report kind, scope (team name or "overall")
// and local calendar day.
func Key(kind, scope string, day time.Time) string {
	return fmt.Sprintf("dedup:report:%s:%s:%s", kind, scope, day.Format("2006-01-02"))
}

// Redis stores slots with SET NX and a TTL.
type Redis struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisClient builds the go-redis client for cfg.
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// NewRedis wraps rdb. A nil logger disables logging.
func NewRedis(rdb *redis.Client, ttl time.Duration, logger *zap.Logger) *Redis {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Redis{rdb: rdb, ttl: ttl, logger: logger}
}

// AcquireOnce tries to take the slot for key.
// When Redis is unavailable it allows the send rather than blocking reports.
func (d *Redis) AcquireOnce(ctx context.Context, key string) bool {
	ok, err := d.rdb.SetNX(ctx, key, 1, d.ttl).Result()
	if err != nil {
		d.logger.Warn("Redis dedup check failed, allowing send",
			zap.String("dedup_key", key),
			zap.Error(err),
		)
		return true
	}

	if !ok {
		d.logger.Info("Skipped duplicate report",
			zap.String("dedup_key", key),
		)
	}
	return ok
}

// Release deletes key. Failures are logged only.
func (d *Redis) Release(ctx context.Context, key string) {
	if err := d.rdb.Del(ctx, key).Err(); err != nil {
		d.logger.Warn("Redis dedup release failed",
			zap.String("dedup_key", key),
			zap.Error(err),
		)
	}
}

// Memory keeps slots in process memory. Used when no Redis address is
// configured, so repeated runs inside one scheduler process still dedupe.
type Memory struct {
	mu   sync.Mutex
	ttl  time.Duration
	now  func() time.Time
	held map[string]time.Time // key -> expiry
}

// NewMemory creates an in-process deduper.
func NewMemory(ttl time.Duration) *Memory {
	return &Memory{ttl: ttl, now: time.Now, held: make(map[string]time.Time)}
}

// AcquireOnce takes the slot for key unless it is held and unexpired.
func (m *Memory) AcquireOnce(_ context.Context, key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if exp, ok := m.held[key]; ok && now.Before(exp) {
		return false
	}
	m.held[key] = now.Add(m.ttl)
	return true
}

// Release frees key.
func (m *Memory) Release(_ context.Context, key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.held, key)
}

// Nop never deduplicates. Manual report runs use it.
type Nop struct{}

func (Nop) AcquireOnce(context.Context, string) bool { return true }
func (Nop) Release(context.Context, string)          {}
