package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// fakeScripter answers EvalSha with a canned reply; other Scripter methods
// are left to the embedded nil interface.
type fakeScripter struct {
	redis.Scripter
	reply any
	err   error
	keys  []string
	args  []any
}

func (f *fakeScripter) EvalSha(_ context.Context, _ string, keys []string, args ...any) *redis.Cmd {
	f.keys = keys
	f.args = args
	return redis.NewCmdResult(f.reply, f.err)
}

func TestRateCounter_Increment(t *testing.T) {
	fake := &fakeScripter{reply: []any{int64(3), int64(4500)}}
	c := NewRateCounter(fake)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return base }

	n, reset, err := c.Increment(context.Background(), "login:anon:1.2.3.4", 15*time.Minute)
	if err != nil {
		t.Fatalf("Increment returned error: %v", err)
	}
	if n != 3 {
		t.Fatalf("expected count 3, got %d", n)
	}
	if !reset.Equal(base.Add(4500 * time.Millisecond)) {
		t.Fatalf("unexpected reset: %v", reset)
	}
	if len(fake.keys) != 1 || fake.keys[0] != "ratelimit:login:anon:1.2.3.4" {
		t.Fatalf("unexpected keys: %v", fake.keys)
	}
	if len(fake.args) != 1 || fake.args[0] != int64(900000) {
		t.Fatalf("unexpected args: %v", fake.args)
	}
}

func TestRateCounter_Error(t *testing.T) {
	c := NewRateCounter(&fakeScripter{err: errors.New("connection refused")})

	if _, _, err := c.Increment(context.Background(), "k", time.Minute); err == nil {
		t.Fatalf("expected error")
	}
}
