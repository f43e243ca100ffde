package middleware

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"famportal/models"
	"famportal/utils"
)

// In-memory sliding-window limiters. State is per process; run one
// instance or front it with a shared limiter.

type timestamps []int64 // unix nanos

func nowUnix() int64 { return time.Now().UnixNano() }

// slidingWindow counts hits per key over window.
type slidingWindow struct {
	mu     sync.Mutex
	window time.Duration
	state  map[string]timestamps
}

func newSlidingWindow(window time.Duration) *slidingWindow {
	return &slidingWindow{window: window, state: make(map[string]timestamps)}
}

// hit records a request for key and returns the count inside the window
// and how long until the oldest entry falls out.
func (s *slidingWindow) hit(key string) (int, time.Duration) {
	now := nowUnix()
	cutoff := now - int64(s.window)

	s.mu.Lock()
	defer s.mu.Unlock()
	var filtered timestamps
	for _, ts := range s.state[key] {
		if ts >= cutoff {
			filtered = append(filtered, ts)
		}
	}
	filtered = append(filtered, now)
	s.state[key] = filtered

	retry := time.Duration(filtered[0] + int64(s.window) - now)
	if retry < time.Second {
		retry = time.Second
	}
	return len(filtered), retry
}

func (s *slidingWindow) cleanup() {
	cutoff := nowUnix() - int64(s.window)
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, arr := range s.state {
		if len(arr) == 0 || arr[len(arr)-1] < cutoff {
			delete(s.state, k)
		}
	}
}

func (s *slidingWindow) cleanupLoop(every time.Duration) {
	tick := time.NewTicker(every)
	defer tick.Stop()
	for range tick.C {
		s.cleanup()
	}
}

// clientIPGeneric returns the client IP string. If trustedCIDR is provided,
// X-Forwarded-For / X-Real-IP headers are honored when remote addr is inside
// one of the trusted CIDRs or IPs.
func clientIPGeneric(r *http.Request, trustedCIDR []string) string {
	remoteHost, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		remoteHost = r.RemoteAddr
	}
	remoteIP := net.ParseIP(remoteHost)
	trusted := false
	for _, cidr := range trustedCIDR {
		cidr = strings.TrimSpace(cidr)
		if cidr == "" || remoteIP == nil {
			continue
		}
		if strings.Contains(cidr, "/") {
			if _, ipnet, err := net.ParseCIDR(cidr); err == nil && ipnet.Contains(remoteIP) {
				trusted = true
				break
			}
			continue
		}
		if ip := net.ParseIP(cidr); ip != nil && ip.Equal(remoteIP) {
			trusted = true
			break
		}
	}
	if trusted {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			return strings.TrimSpace(strings.Split(xff, ",")[0])
		}
		if xr := r.Header.Get("X-Real-IP"); xr != "" {
			return strings.TrimSpace(xr)
		}
	}
	return remoteHost
}

func tooManyRequests(w http.ResponseWriter, retry time.Duration) {
	secs := int(retry.Seconds())
	rateLimited.Inc()
	w.Header().Set("Retry-After", strconv.Itoa(secs))
	utils.WriteJSON(w, http.StatusTooManyRequests, utils.APIResponse{
		Success: false,
		Message: "Too many requests, try again later",
		Data:    map[string]interface{}{"retry_after_seconds": secs},
	})
}

func setLimitHeaders(w http.ResponseWriter, limit, count int) {
	remaining := limit - count
	if remaining < 0 {
		remaining = 0
	}
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
}

// IPRateLimiter limits requests per client IP.
type IPRateLimiter struct {
	limit       int
	trustedCIDR []string
	win         *slidingWindow
}

func NewIPRateLimiter(maxReq int, window time.Duration, trustedProxies []string) *IPRateLimiter {
	l := &IPRateLimiter{
		limit:       maxReq,
		trustedCIDR: trustedProxies,
		win:         newSlidingWindow(window),
	}
	go l.win.cleanupLoop(time.Minute)
	return l
}

func (l *IPRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		count, retry := l.win.hit(clientIPGeneric(r, l.trustedCIDR))
		setLimitHeaders(w, l.limit, count)
		if count > l.limit {
			tooManyRequests(w, retry)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// UserRateLimiter limits authenticated callers per route category, with
// escalating penalties for repeat offenders. Admins are not limited.
type UserRateLimiter struct {
	read, write, upload int
	win                 *slidingWindow

	mu      sync.Mutex
	penalty map[string]penaltyInfo
}

type penaltyInfo struct {
	Level int
	Until int64 // unix nanos
}

func NewUserRateLimiter(maxRead, maxWrite, maxUpload int, window time.Duration) *UserRateLimiter {
	l := &UserRateLimiter{
		read:    maxRead,
		write:   maxWrite,
		upload:  maxUpload,
		win:     newSlidingWindow(window),
		penalty: make(map[string]penaltyInfo),
	}
	go l.cleanupLoop()
	return l
}

func routeCategory(r *http.Request) string {
	switch {
	case strings.Contains(r.URL.Path, "/uploads"):
		return "upload"
	case r.Method == http.MethodGet || r.Method == http.MethodHead:
		return "read"
	default:
		return "write"
	}
}

func (l *UserRateLimiter) limitFor(cat string) int {
	switch cat {
	case "upload":
		return l.upload
	case "read":
		return l.read
	default:
		return l.write
	}
}

// penaltyFor returns the lockout after the n-th breach: 1, 5, 15, 30 minutes.
func penaltyFor(level int) time.Duration {
	switch level {
	case 1:
		return time.Minute
	case 2:
		return 5 * time.Minute
	case 3:
		return 15 * time.Minute
	default:
		return 30 * time.Minute
	}
}

func (l *UserRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := utils.GetPrincipal(r)
		if !ok || p.Role == models.RoleAdmin {
			next.ServeHTTP(w, r)
			return
		}
		cat := routeCategory(r)
		limit := l.limitFor(cat)
		key := "u:" + strconv.FormatUint(uint64(p.ID), 10) + ":" + cat

		now := nowUnix()
		l.mu.Lock()
		pi := l.penalty[key]
		if pi.Until > now {
			l.mu.Unlock()
			tooManyRequests(w, time.Duration(pi.Until-now))
			return
		}
		l.mu.Unlock()

		count, _ := l.win.hit(key)
		setLimitHeaders(w, limit, count)
		if count > limit {
			l.mu.Lock()
			pi.Level++
			d := penaltyFor(pi.Level)
			pi.Until = now + int64(d)
			l.penalty[key] = pi
			l.mu.Unlock()
			tooManyRequests(w, d)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (l *UserRateLimiter) cleanupLoop() {
	tick := time.NewTicker(time.Minute)
	defer tick.Stop()
	for range tick.C {
		l.win.cleanup()
		now := nowUnix()
		l.mu.Lock()
		for k, p := range l.penalty {
			if p.Until < now {
				delete(l.penalty, k)
			}
		}
		l.mu.Unlock()
	}
}
