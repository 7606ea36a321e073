package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubCounter struct {
	count int
	err   error
	ip    string
}

func (s *stubCounter) CountRecentByIP(_ context.Context, ip string, _ time.Duration) (int, error) {
	s.ip = ip
	return s.count, s.err
}

func newTestGate(t *testing.T, counter RateCounter) *Gatekeeper {
	t.Helper()
	g, err := NewGatekeeper(
		[]string{"https://creditlens.example.com"},
		[]string{`^https://.*\.creditlens\.example\.com$`},
		10<<20, 20, time.Hour, counter, nil,
	)
	require.NoError(t, err)
	return g
}

func newAnalyzeRequest(origin string) *http.Request {
	r := httptest.NewRequest(http.MethodPost, "/v1/analyze-report", nil)
	if origin != "" {
		r.Header.Set("Origin", origin)
	}
	r.RemoteAddr = "203.0.113.7:51234"
	return r
}

func TestGatekeeperRejectsOversizedPayload(t *testing.T) {
	g := newTestGate(t, &stubCounter{})
	r := newAnalyzeRequest("https://creditlens.example.com")
	r.ContentLength = 11 << 20

	ge := g.Check(r)
	require.NotNil(t, ge)
	assert.Equal(t, http.StatusRequestEntityTooLarge, ge.Status)
	assert.Contains(t, ge.Message, "10MB")
}

func TestGatekeeperRejectsMissingOrigin(t *testing.T) {
	g := newTestGate(t, &stubCounter{})

	ge := g.Check(newAnalyzeRequest(""))
	require.NotNil(t, ge)
	assert.Equal(t, http.StatusForbidden, ge.Status)
	assert.Equal(t, "Direct access not allowed", ge.Message)
}

func TestGatekeeperRejectsUnknownOrigin(t *testing.T) {
	g := newTestGate(t, &stubCounter{})

	ge := g.Check(newAnalyzeRequest("https://evil.example.net"))
	require.NotNil(t, ge)
	assert.Equal(t, http.StatusForbidden, ge.Status)
	assert.Equal(t, "Access denied", ge.Message)
}

func TestGatekeeperAllowsPatternOrigin(t *testing.T) {
	g := newTestGate(t, &stubCounter{})

	assert.Nil(t, g.Check(newAnalyzeRequest("https://staging.creditlens.example.com")))
}

func TestGatekeeperFallsBackToReferer(t *testing.T) {
	g := newTestGate(t, &stubCounter{})
	r := newAnalyzeRequest("")
	r.Header.Set("Referer", "https://creditlens.example.com/portal/upload")

	assert.Nil(t, g.Check(r))
}

func TestGatekeeperRateLimitBoundary(t *testing.T) {
	counter := &stubCounter{count: 19}
	g := newTestGate(t, counter)

	assert.Nil(t, g.Check(newAnalyzeRequest("https://creditlens.example.com")), "19 recent rows still admits the 20th request")
	assert.Equal(t, "203.0.113.7", counter.ip)

	counter.count = 20
	ge := g.Check(newAnalyzeRequest("https://creditlens.example.com"))
	require.NotNil(t, ge)
	assert.Equal(t, http.StatusTooManyRequests, ge.Status)
	assert.Equal(t, "3600", ge.RetryAfter)
}

func TestGatekeeperFailsOpenOnCounterError(t *testing.T) {
	g := newTestGate(t, &stubCounter{err: errors.New("connection refused")})

	assert.Nil(t, g.Check(newAnalyzeRequest("https://creditlens.example.com")))
}

func TestGatekeeperBurstLimiter(t *testing.T) {
	g := newTestGate(t, &stubCounter{})
	g.Burst = NewRateLimiter(2, 1)

	assert.Nil(t, g.Check(newAnalyzeRequest("https://creditlens.example.com")))
	assert.Nil(t, g.Check(newAnalyzeRequest("https://creditlens.example.com")))

	ge := g.Check(newAnalyzeRequest("https://creditlens.example.com"))
	require.NotNil(t, ge)
	assert.Equal(t, http.StatusTooManyRequests, ge.Status)
	assert.Equal(t, "60", ge.RetryAfter)
}

func TestClientIPResolution(t *testing.T) {
	cases := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{
			name:    "forwarded for takes first hop",
			headers: map[string]string{"X-Forwarded-For": "198.51.100.4, 10.0.0.1"},
			remote:  "10.0.0.1:80",
			want:    "198.51.100.4",
		},
		{
			name:    "real ip next",
			headers: map[string]string{"X-Real-IP": "198.51.100.5"},
			remote:  "10.0.0.1:80",
			want:    "198.51.100.5",
		},
		{
			name:    "cloudflare header next",
			headers: map[string]string{"CF-Connecting-IP": "198.51.100.6"},
			remote:  "10.0.0.1:80",
			want:    "198.51.100.6",
		},
		{
			name:   "socket address last",
			remote: "203.0.113.9:44321",
			want:   "203.0.113.9",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tc.remote
			for k, v := range tc.headers {
				r.Header.Set(k, v)
			}
			assert.Equal(t, tc.want, ClientIP(r))
		})
	}
}
