package middleware

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// LoginGuard locks an account for a growing period after each failed
// login. With Redis the lock is shared across instances; otherwise it is
// kept in process.
type LoginGuard struct {
	rdb redis.UniversalClient

	mu     sync.Mutex
	failed map[uint]int
	locked map[uint]int64 // unix nanos
}

func NewLoginGuard(rdb redis.UniversalClient) *LoginGuard {
	return &LoginGuard{
		rdb:    rdb,
		failed: make(map[uint]int),
		locked: make(map[uint]int64),
	}
}

func failKey(userID uint) string { return fmt.Sprintf("login:fail:u:%d", userID) }
func lockKey(userID uint) string { return fmt.Sprintf("login:lock:u:%d", userID) }

// Locked reports whether userID is locked out and for how long.
func (g *LoginGuard) Locked(ctx context.Context, userID uint) (bool, time.Duration) {
	if g.rdb != nil {
		ttl, err := g.rdb.TTL(ctx, lockKey(userID)).Result()
		if err == nil {
			return ttl > 0, max(ttl, 0)
		}
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	until := g.locked[userID]
	now := nowUnix()
	if until > now {
		return true, time.Duration(until - now)
	}
	delete(g.locked, userID)
	return false, 0
}

// FreeLoginAttempts is how many wrong passwords are tolerated before the
// first lock.
const FreeLoginAttempts = 2

func lockFor(failures int) time.Duration {
	if failures <= FreeLoginAttempts {
		return 0
	}
	return penaltyFor(failures - FreeLoginAttempts)
}

// Failed records a failed attempt. Past the free attempts the account is
// locked for 1, 5, 15 and then 30 minutes.
func (g *LoginGuard) Failed(ctx context.Context, userID uint) {
	if g.rdb != nil {
		failures, err := g.rdb.Incr(ctx, failKey(userID)).Result()
		if err == nil {
			g.rdb.Expire(ctx, failKey(userID), 30*time.Minute)
			if d := lockFor(int(failures)); d > 0 {
				g.rdb.Set(ctx, lockKey(userID), "1", d)
			}
			return
		}
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.failed[userID]++
	if d := lockFor(g.failed[userID]); d > 0 {
		g.locked[userID] = nowUnix() + int64(d)
	}
}

// Reset clears failures after a successful login.
func (g *LoginGuard) Reset(ctx context.Context, userID uint) {
	if g.rdb != nil {
		if err := g.rdb.Del(ctx, failKey(userID), lockKey(userID)).Err(); err == nil {
			return
		}
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.failed, userID)
	delete(g.locked, userID)
}
