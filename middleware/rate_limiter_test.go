package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"famportal/models"
	"famportal/policy"
	"famportal/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientIPGeneric_DirectRemote(t *testing.T) {
	req := httptest.NewRequest("GET", "http://example.local/", nil)
	req.RemoteAddr = "203.0.113.5:54321"
	assert.Equal(t, "203.0.113.5", clientIPGeneric(req, nil))
}

func TestClientIPGeneric_TrustedProxyXFF(t *testing.T) {
	req := httptest.NewRequest("GET", "http://example.local/", nil)
	req.RemoteAddr = "198.51.100.10:443"
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 198.51.100.10")
	assert.Equal(t, "203.0.113.7", clientIPGeneric(req, []string{"198.51.100.10"}))
	assert.Equal(t, "203.0.113.7", clientIPGeneric(req, []string{"198.51.100.0/24"}))
}

func TestClientIPGeneric_UntrustedProxyIgnoresXFF(t *testing.T) {
	req := httptest.NewRequest("GET", "http://example.local/", nil)
	req.RemoteAddr = "198.51.100.11:443"
	req.Header.Set("X-Forwarded-For", "203.0.113.8, 198.51.100.11")
	assert.Equal(t, "198.51.100.11", clientIPGeneric(req, []string{"198.51.100.10"}))
}

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func TestIPRateLimiter(t *testing.T) {
	l := &IPRateLimiter{limit: 2, win: newSlidingWindow(time.Hour)}
	h := l.Middleware(okHandler)

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/v1/login", nil)
		req.RemoteAddr = "203.0.113.9:1000"
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		codes = append(codes, w.Code)
		if w.Code == http.StatusTooManyRequests {
			assert.NotEmpty(t, w.Header().Get("Retry-After"))
		}
	}
	assert.Equal(t, []int{200, 200, 429}, codes)

	// other clients are unaffected
	req := httptest.NewRequest(http.MethodPost, "/v1/login", nil)
	req.RemoteAddr = "203.0.113.10:1000"
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func withPrincipal(r *http.Request, p *policy.Principal) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), utils.PrincipalKey, p))
}

func TestUserRateLimiterPenalizesAndSkipsAdmins(t *testing.T) {
	l := &UserRateLimiter{read: 1, write: 1, upload: 1, win: newSlidingWindow(time.Hour), penalty: map[string]penaltyInfo{}}
	h := l.Middleware(okHandler)
	member := &policy.Principal{ID: 7, Role: models.RoleMember, Status: models.UserActive}
	admin := &policy.Principal{ID: 1, Role: models.RoleAdmin, Status: models.UserActive}

	do := func(p *policy.Principal, method string) int {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, withPrincipal(httptest.NewRequest(method, "/v1/balance", nil), p))
		return w.Code
	}

	assert.Equal(t, http.StatusOK, do(member, http.MethodGet))
	assert.Equal(t, http.StatusTooManyRequests, do(member, http.MethodGet))
	// reads and writes are counted separately
	assert.Equal(t, http.StatusOK, do(member, http.MethodPost))

	require.Equal(t, 1, l.penalty["u:7:read"].Level)
	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, do(admin, http.MethodGet))
	}
}

func TestPenaltyEscalates(t *testing.T) {
	assert.Equal(t, time.Minute, penaltyFor(1))
	assert.Equal(t, 5*time.Minute, penaltyFor(2))
	assert.Equal(t, 15*time.Minute, penaltyFor(3))
	assert.Equal(t, 30*time.Minute, penaltyFor(4))
	assert.Equal(t, 30*time.Minute, penaltyFor(9))
}
