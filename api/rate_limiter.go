package api

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/pillapp/pillapp-api/config"
)

const (
	visitorIdle     = 3 * time.Minute
	cleanupInterval = time.Minute
)

// IPRateLimiter keeps one token bucket per client IP
type IPRateLimiter struct {
	ips map[string]*visitor
	mu  sync.Mutex
	r   rate.Limit
	b   int
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewIPRateLimiter allows r requests per second per IP with bursts of b.
// Idle IPs are forgotten in the background until ctx is done.
func NewIPRateLimiter(ctx context.Context, r rate.Limit, b int) *IPRateLimiter {
	i := &IPRateLimiter{
		ips: make(map[string]*visitor),
		r:   r,
		b:   b,
	}
	go i.cleanupVisitors(ctx)
	return i
}

// GetLimiter returns the limiter of ip, creating it on first sight
func (i *IPRateLimiter) GetLimiter(ip string) *rate.Limiter {
	i.mu.Lock()
	defer i.mu.Unlock()

	v, exists := i.ips[ip]
	if !exists {
		limiter := rate.NewLimiter(i.r, i.b)
		i.ips[ip] = &visitor{limiter, time.Now()}
		return limiter
	}

	v.lastSeen = time.Now()
	return v.limiter
}

func (i *IPRateLimiter) cleanupVisitors(ctx context.Context) {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			i.mu.Lock()
			for ip, v := range i.ips {
				if time.Since(v.lastSeen) > visitorIdle {
					delete(i.ips, ip)
				}
			}
			i.mu.Unlock()
		}
	}
}

// Middleware rejects requests over the per-IP budget with 429
func (i *IPRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		if !i.GetLimiter(ip).Allow() {
			zap.S().Warnw("rate limit exceeded", "ip", ip, "path", r.URL.Path, "requestId", RequestID(r.Context()))
			config.ErrorStatus("too many requests, slow down", http.StatusTooManyRequests, w, nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
