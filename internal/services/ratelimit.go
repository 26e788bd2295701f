package services

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// ReplyLimiter throttles AI replies per phone number. Over-limit messages
// are still persisted; they just skip the LLM call.
type ReplyLimiter struct {
	mu       sync.Mutex
	limiters map[string]*replyLimiterEntry
	limit    rate.Limit
	burst    int
}

type replyLimiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewReplyLimiter allows ratePerMinute sustained replies per phone with the
// given burst.
func NewReplyLimiter(ratePerMinute float64, burst int) *ReplyLimiter {
	return &ReplyLimiter{
		limiters: make(map[string]*replyLimiterEntry),
		limit:    rate.Limit(ratePerMinute / 60.0),
		burst:    burst,
	}
}

// Allow reports whether the phone may receive another AI reply now.
func (r *ReplyLimiter) Allow(phone string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, exists := r.limiters[phone]
	if !exists {
		entry = &replyLimiterEntry{limiter: rate.NewLimiter(r.limit, r.burst)}
		r.limiters[phone] = entry
	}
	entry.lastSeen = time.Now()
	return entry.limiter.Allow()
}

// Cleanup drops limiter state for phones idle longer than maxIdle and
// returns how many entries were removed.
func (r *ReplyLimiter) Cleanup(maxIdle time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := time.Now().Add(-maxIdle)
	removed := 0
	for phone, entry := range r.limiters {
		if entry.lastSeen.Before(cutoff) {
			delete(r.limiters, phone)
			removed++
		}
	}
	return removed
}

// ActiveCount returns how many phones currently hold limiter state.
func (r *ReplyLimiter) ActiveCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.limiters)
}
