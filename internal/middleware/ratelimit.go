package middleware

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

type clientLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// LoginLimiter throttles login attempts per client IP
type LoginLimiter struct {
	limit rate.Limit
	burst int
	ttl   time.Duration
	log   *logrus.Logger

	mu      sync.Mutex
	clients map[string]*clientLimiter

	stopCh chan struct{}
	once   sync.Once
}

// NewLoginLimiter allows perMinute attempts per client, bursting up to perMinute.
// Idle entries are dropped every cleanup interval.
func NewLoginLimiter(perMinute int, cleanup time.Duration, log *logrus.Logger) *LoginLimiter {
	l := &LoginLimiter{
		limit:   rate.Limit(float64(perMinute) / 60.0),
		burst:   perMinute,
		ttl:     2 * cleanup,
		log:     log,
		clients: make(map[string]*clientLimiter),
		stopCh:  make(chan struct{}),
	}
	go l.cleanupLoop(cleanup)
	return l
}

// Stop ends the cleanup goroutine
func (l *LoginLimiter) Stop() {
	l.once.Do(func() { close(l.stopCh) })
}

// Middleware answers 429 once a client has used up its attempts
func (l *LoginLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		if !l.get(ip).Allow() {
			l.log.WithField("client_ip", ip).Warn("Login rate limit exceeded")
			retry := int(math.Ceil(1.0 / float64(l.limit)))
			if retry < 1 {
				retry = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(retry))
			writeJSONError(w, http.StatusTooManyRequests, "rate_limited", "too many login attempts")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Clients returns the number of tracked clients
func (l *LoginLimiter) Clients() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}

func (l *LoginLimiter) get(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	c, ok := l.clients[ip]
	if !ok {
		c = &clientLimiter{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.clients[ip] = c
	}
	c.lastAccess = time.Now()
	return c.limiter
}

func (l *LoginLimiter) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			l.cleanup(time.Now())
		case <-l.stopCh:
			return
		}
	}
}

func (l *LoginLimiter) cleanup(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for ip, c := range l.clients {
		if now.Sub(c.lastAccess) > l.ttl {
			delete(l.clients, ip)
		}
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
