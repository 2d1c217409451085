package rate

import (
	"context"
	"fmt"
	"strings"
	"time"
)

const (
	loginMinuteWindow  = time.Minute
	loginQuarterWindow = 15 * time.Minute
)

type WindowStore interface {
	IncrementWindow(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
}

// Limiter throttles login attempts per email over two fixed windows. It only
// counts attempts; it never sees whether the credentials were correct.
type Limiter struct {
	store      WindowStore
	perMinute  int
	perQuarter int
}

func NewLimiter(store WindowStore, perMinute, perQuarter int) *Limiter {
	if perMinute < 0 {
		perMinute = 0
	}
	if perQuarter < 0 {
		perQuarter = 0
	}

	return &Limiter{
		store:      store,
		perMinute:  perMinute,
		perQuarter: perQuarter,
	}
}

func (l *Limiter) AllowAttempt(ctx context.Context, email string) (int64, bool, error) {
	key := normalizeEmail(email)
	if key == "" {
		return 0, false, fmt.Errorf("invalid email")
	}
	if l.store == nil {
		return 0, false, fmt.Errorf("rate limiter store is nil")
	}

	retryAfterSec := int64(0)

	if l.perMinute > 0 {
		count, ttl, err := l.store.IncrementWindow(ctx, minuteKey(key), loginMinuteWindow)
		if err != nil {
			return 0, false, err
		}
		if count > int64(l.perMinute) {
			retryAfterSec = maxInt64(retryAfterSec, ceilSeconds(ttl))
		}
	}

	if l.perQuarter > 0 {
		count, ttl, err := l.store.IncrementWindow(ctx, quarterKey(key), loginQuarterWindow)
		if err != nil {
			return 0, false, err
		}
		if count > int64(l.perQuarter) {
			retryAfterSec = maxInt64(retryAfterSec, ceilSeconds(ttl))
		}
	}

	if retryAfterSec > 0 {
		return retryAfterSec, false, nil
	}

	return 0, true, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func minuteKey(email string) string {
	return "rate:login:min:" + email
}

func quarterKey(email string) string {
	return "rate:login:15m:" + email
}

func ceilSeconds(d time.Duration) int64 {
	if d <= 0 {
		return 0
	}
	sec := int64(d / time.Second)
	if d%time.Second != 0 {
		sec++
	}
	if sec <= 0 {
		sec = 1
	}
	return sec
}

func maxInt64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
