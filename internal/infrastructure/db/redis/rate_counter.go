package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hikari-health/auth-core/internal/core/ports"
)

const keyPrefix = "ratelimit:"

// incrScript increments the window counter, starts the expiry on the first
// hit and returns {count, remaining ttl in ms}. Running it as one script keeps
// increment-and-read atomic across API instances.
var incrScript = redis.NewScript(`
local n = redis.call('INCR', KEYS[1])
if n == 1 then
  redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
local ttl = redis.call('PTTL', KEYS[1])
if ttl < 0 then
  redis.call('PEXPIRE', KEYS[1], ARGV[1])
  ttl = tonumber(ARGV[1])
end
return {n, ttl}
`)

// RateCounter is a fixed-window counter shared by every instance pointing at
// the same Redis.
type RateCounter struct {
	client redis.Scripter
	now    func() time.Time
}

var _ ports.RateCounter = (*RateCounter)(nil)

func NewRateCounter(client redis.Scripter) *RateCounter {
	return &RateCounter{client: client, now: time.Now}
}

func (c *RateCounter) Increment(ctx context.Context, key string, window time.Duration) (int, time.Time, error) {
	res, err := incrScript.Run(ctx, c.client, []string{keyPrefix + key}, window.Milliseconds()).Int64Slice()
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("rate counter incr: %w", err)
	}
	if len(res) != 2 {
		return 0, time.Time{}, fmt.Errorf("rate counter incr: unexpected reply %v", res)
	}
	return int(res[0]), c.now().Add(time.Duration(res[1]) * time.Millisecond), nil
}
