package dispatcher

import (
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/valyala/fasthttp"
)

type RateLimitBucket struct {
	Remaining int
	Limit     int
	ResetAt   time.Time
}

// RateLimitMonitor remembers the Discord rate-limit headers of the last
// response per route and guild.
type RateLimitMonitor struct {
	mu      sync.RWMutex
	buckets map[string]*RateLimitBucket
	now     func() time.Time
}

func NewRateLimitMonitor() *RateLimitMonitor {
	return &RateLimitMonitor{
		buckets: make(map[string]*RateLimitBucket),
		now:     time.Now,
	}
}

func (rlm *RateLimitMonitor) CanExecute(route, guildID string) bool {
	rlm.mu.RLock()
	bucket, exists := rlm.buckets[rlm.getKey(route, guildID)]
	rlm.mu.RUnlock()

	if !exists {
		return true
	}

	if rlm.now().After(bucket.ResetAt) {
		return true
	}

	return bucket.Remaining > 0
}

func (rlm *RateLimitMonitor) UpdateFromFastHTTPResponse(resp *fasthttp.Response, route, guildID string) {
	remaining := string(resp.Header.Peek("X-RateLimit-Remaining"))
	if remaining == "" {
		return
	}

	bucket := &RateLimitBucket{}
	bucket.Remaining, _ = strconv.Atoi(remaining)
	if limit := string(resp.Header.Peek("X-RateLimit-Limit")); limit != "" {
		bucket.Limit, _ = strconv.Atoi(limit)
	}

	// Reset is epoch seconds with a fractional part; Reset-After is relative.
	if reset := string(resp.Header.Peek("X-RateLimit-Reset")); reset != "" {
		if secs, err := strconv.ParseFloat(reset, 64); err == nil {
			whole, frac := math.Modf(secs)
			bucket.ResetAt = time.Unix(int64(whole), int64(frac*1e9))
		}
	} else if after := string(resp.Header.Peek("X-RateLimit-Reset-After")); after != "" {
		if secs, err := strconv.ParseFloat(after, 64); err == nil {
			bucket.ResetAt = rlm.now().Add(time.Duration(secs * float64(time.Second)))
		}
	}

	rlm.mu.Lock()
	rlm.buckets[rlm.getKey(route, guildID)] = bucket
	rlm.mu.Unlock()
}

func (rlm *RateLimitMonitor) getKey(route, guildID string) string {
	return route + ":" + guildID
}

func (rlm *RateLimitMonitor) GetBucket(route, guildID string) *RateLimitBucket {
	rlm.mu.RLock()
	defer rlm.mu.RUnlock()

	return rlm.buckets[rlm.getKey(route, guildID)]
}
