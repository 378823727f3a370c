package websocket

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
)

// ipTracker counts open connections per client IP.
type ipTracker struct {
	counts map[string]int
	max    int
	mutex  sync.Mutex
}

func newIPTracker(max int) *ipTracker {
	return &ipTracker{counts: make(map[string]int), max: max}
}

// acquire reserves a connection slot for ip. A max of zero disables the
// limit.
func (t *ipTracker) acquire(ip string) bool {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	if t.max > 0 && t.counts[ip] >= t.max {
		return false
	}
	t.counts[ip]++
	return true
}

func (t *ipTracker) release(ip string) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	if t.counts[ip] <= 1 {
		delete(t.counts, ip)
		return
	}
	t.counts[ip]--
}

// windowLimiter allows a fixed number of messages per window.
type windowLimiter struct {
	limit  int
	window time.Duration
	count  int
	start  time.Time
	now    func() time.Time
	mutex  sync.Mutex
}

// NewWindowLimiter creates a limiter allowing limit messages per window. A
// limit of zero allows everything.
func NewWindowLimiter(limit int, window time.Duration) RateLimiter {
	return &windowLimiter{limit: limit, window: window, now: time.Now}
}

// Allow reports whether one more message fits in the current window
func (l *windowLimiter) Allow() bool {
	if l.limit <= 0 {
		return true
	}

	l.mutex.Lock()
	defer l.mutex.Unlock()

	now := l.now()
	if l.start.IsZero() || now.Sub(l.start) >= l.window {
		l.start = now
		l.count = 0
	}
	if l.count >= l.limit {
		return false
	}
	l.count++
	return true
}

// Reset starts a new window
func (l *windowLimiter) Reset() {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	l.start = time.Time{}
	l.count = 0
}

// clientIP extracts the client IP from the request.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if i := strings.IndexByte(xff, ','); i >= 0 {
			xff = xff[:i]
		}
		return strings.TrimSpace(xff)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
