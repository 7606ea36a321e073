package middleware

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// RateCounter is the slice of the lead repository the gatekeeper reads.
type RateCounter interface {
	CountRecentByIP(ctx context.Context, ip string, window time.Duration) (int, error)
}

// GateError is a terminal pre-handler rejection with its HTTP status.
type GateError struct {
	Status     int
	Message    string
	RetryAfter string
}

func (e *GateError) Error() string { return e.Message }

// Gatekeeper validates payload size, origin and request rate before any file
// processing happens. All knobs are injected at construction; there are no
// package-level constants to fight in tests.
type Gatekeeper struct {
	AllowedOrigins  []string
	OriginPatterns  []*regexp.Regexp
	MaxRequestBytes int64
	RateLimitMax    int
	RateWindow      time.Duration
	Counter         RateCounter
	Burst           *RateLimiter
}

// NewGatekeeper compiles the origin patterns and wires the counters.
func NewGatekeeper(origins []string, patterns []string, maxRequestBytes int64, rateMax int, window time.Duration, counter RateCounter, burst *RateLimiter) (*Gatekeeper, error) {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		rx, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid origin pattern %q: %w", p, err)
		}
		compiled = append(compiled, rx)
	}
	return &Gatekeeper{
		AllowedOrigins:  origins,
		OriginPatterns:  compiled,
		MaxRequestBytes: maxRequestBytes,
		RateLimitMax:    rateMax,
		RateWindow:      window,
		Counter:         counter,
		Burst:           burst,
	}, nil
}

// Check runs all gate checks in order and returns the first failure. It
// reads at most one COUNT query; the request body is untouched.
func (g *Gatekeeper) Check(r *http.Request) *GateError {
	if g.MaxRequestBytes > 0 && r.ContentLength > g.MaxRequestBytes {
		return &GateError{
			Status:  http.StatusRequestEntityTooLarge,
			Message: fmt.Sprintf("Request payload exceeds the %dMB limit", g.MaxRequestBytes>>20),
		}
	}

	origin := resolveOrigin(r)
	if origin == "" {
		return &GateError{Status: http.StatusForbidden, Message: "Direct access not allowed"}
	}
	if !g.OriginAllowed(origin) {
		return &GateError{Status: http.StatusForbidden, Message: "Access denied"}
	}

	ip := ClientIP(r)
	if g.Burst != nil && !g.Burst.Allow(ip) {
		return &GateError{
			Status:     http.StatusTooManyRequests,
			Message:    "Too many requests, please slow down",
			RetryAfter: "60",
		}
	}

	if g.Counter != nil && g.RateLimitMax > 0 {
		count, err := g.Counter.CountRecentByIP(r.Context(), ip, g.RateWindow)
		if err != nil {
			// A broken counter must not take the endpoint down with it.
			return nil
		}
		if count >= g.RateLimitMax {
			return &GateError{
				Status:     http.StatusTooManyRequests,
				Message:    "Too many analysis requests from this address. Please try again later.",
				RetryAfter: strconv.Itoa(int(g.RateWindow.Seconds())),
			}
		}
	}
	return nil
}

func (g *Gatekeeper) OriginAllowed(origin string) bool {
	for _, a := range g.AllowedOrigins {
		if strings.EqualFold(a, origin) {
			return true
		}
	}
	for _, rx := range g.OriginPatterns {
		if rx.MatchString(origin) {
			return true
		}
	}
	return false
}

// resolveOrigin prefers the Origin header and falls back to the Referer's
// scheme://host. Empty means direct access.
func resolveOrigin(r *http.Request) string {
	if o := strings.TrimSpace(r.Header.Get("Origin")); o != "" {
		return strings.TrimSuffix(o, "/")
	}
	ref := strings.TrimSpace(r.Header.Get("Referer"))
	if ref == "" {
		return ""
	}
	u, err := url.Parse(ref)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}

// ClientIP resolves the requesting IP: first X-Forwarded-For hop, then
// X-Real-IP, then CF-Connecting-IP, then the socket address.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		if ip := strings.TrimSpace(parts[0]); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if ip := strings.TrimSpace(r.Header.Get("CF-Connecting-IP")); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
