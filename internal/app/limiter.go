package app

import (
	"sync"

	"golang.org/x/time/rate"

	"github.com/akarpov/lanhub/internal/core"
)

// ChatLimiter throttles chat submissions per session. Messages over the limit
// are dropped, not errored, so a spamming client only hurts itself.
type ChatLimiter interface {
	Allow(sid core.SessionID) bool
}

type sessionLimiter struct {
	mu       sync.Mutex
	limiters map[core.SessionID]*rate.Limiter
	limit    rate.Limit
	burst    int
}

// NewChatLimiter allows up to perSecond messages each second with the given
// burst capacity. Non-positive arguments fall back to sane minimums.
func NewChatLimiter(perSecond float64, burst int) ChatLimiter {
	if perSecond <= 0 {
		perSecond = 1
	}
	if burst <= 0 {
		burst = 1
	}
	return &sessionLimiter{
		limiters: make(map[core.SessionID]*rate.Limiter),
		limit:    rate.Limit(perSecond),
		burst:    burst,
	}
}

func (l *sessionLimiter) Allow(sid core.SessionID) bool {
	l.mu.Lock()
	lim, ok := l.limiters[sid]
	if !ok {
		lim = rate.NewLimiter(l.limit, l.burst)
		l.limiters[sid] = lim
	}
	l.mu.Unlock()
	return lim.Allow()
}

// unlimited is used when chat throttling is disabled in config.
type unlimited struct{}

func (unlimited) Allow(core.SessionID) bool { return true }

func NoChatLimit() ChatLimiter { return unlimited{} }
