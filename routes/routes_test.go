package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"famportal/config"
	"famportal/database"
	"famportal/middleware"
	"famportal/services"
	"famportal/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type apiEnv struct {
	t      *testing.T
	router http.Handler
	svc    *services.Services
}

func newAPI(t *testing.T) *apiEnv {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	db, err := database.Connect("sqlite://:memory:", logger)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(context.Background(), db, logger, "", ""))

	svc := services.New(services.Deps{DB: db, Logger: logger})
	tokens := &utils.Tokens{
		Secret:     []byte("routes-test-secret-value"),
		AccessTTL:  15 * time.Minute,
		RefreshTTL: time.Hour,
		DB:         db,
	}
	router := New(Deps{
		Config:   &config.Config{MaxBodyBytes: 1 << 20},
		Services: svc,
		Tokens:   tokens,
		Guard:    middleware.NewLoginGuard(nil),
	})
	return &apiEnv{t: t, router: router, svc: svc}
}

func (e *apiEnv) do(method, path, token string, body interface{}) (int, envelope) {
	e.t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(e.t, err)
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	req.RemoteAddr = "203.0.113.20:4000"
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)

	var env envelope
	if w.Header().Get("Content-Type") == "application/json" {
		require.NoError(e.t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w.Code, env
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v), string(raw))
	return v
}

type session struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	User         struct {
		ID     uint   `json:"id"`
		Status string `json:"status"`
	} `json:"user"`
}

type idOnly struct {
	ID     uint   `json:"id"`
	Status string `json:"status"`
}

func (e *apiEnv) login(staticID, password string) session {
	e.t.Helper()
	code, env := e.do(http.MethodPost, "/v1/login", "", map[string]string{"static_id": staticID, "password": password})
	require.Equal(e.t, http.StatusOK, code, env.Message)
	return decode[session](e.t, env.Data)
}

func TestHealthAndMetrics(t *testing.T) {
	e := newAPI(t)
	for _, path := range []string{"/health", "/v1/health", "/metrics"} {
		w := httptest.NewRecorder()
		e.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, w.Code, path)
	}
}

func TestProtectedRoutesNeedToken(t *testing.T) {
	e := newAPI(t)
	code, _ := e.do(http.MethodGet, "/v1/balance", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	code, _ = e.do(http.MethodGet, "/v1/admin/dashboard", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestReportToPayoutFlow(t *testing.T) {
	e := newAPI(t)
	ctx := context.Background()
	_, err := e.svc.Members.EnsureAdmin(ctx, "admin-1", "Sweet Johnson", "grove-street")
	require.NoError(t, err)

	// registration leaves the applicant pending
	code, env := e.do(http.MethodPost, "/v1/register", "", map[string]string{
		"name":                  "Carl Johnson",
		"static_id":             "cj-01",
		"password":              "grove1",
		"password_confirmation": "grove1",
		"application_note":      "back from Liberty City",
	})
	require.Equal(t, http.StatusCreated, code, env.Message)
	member := decode[session](t, env.Data)
	assert.Equal(t, "PENDING", member.User.Status)

	code, _ = e.do(http.MethodGet, "/v1/contracts", member.AccessToken, nil)
	assert.Equal(t, http.StatusForbidden, code)
	code, _ = e.do(http.MethodGet, "/v1/users/me", member.AccessToken, nil)
	assert.Equal(t, http.StatusOK, code)

	admin := e.login("admin-1", "grove-street")
	code, env = e.do(http.MethodPost, fmt.Sprintf("/v1/admin/members/%d/review", member.User.ID), admin.AccessToken, map[string]interface{}{"approve": true})
	require.Equal(t, http.StatusOK, code, env.Message)

	code, env = e.do(http.MethodPost, "/v1/admin/contracts", admin.AccessToken, map[string]interface{}{"title": "Deliver crates", "level": 1, "reward": 500})
	require.Equal(t, http.StatusCreated, code, env.Message)
	contract := decode[idOnly](t, env.Data)

	code, env = e.do(http.MethodPost, fmt.Sprintf("/v1/contracts/%d/take", contract.ID), member.AccessToken, nil)
	require.Equal(t, http.StatusCreated, code, env.Message)
	assignment := decode[idOnly](t, env.Data)
	assert.Equal(t, "ACTIVE", assignment.Status)

	code, env = e.do(http.MethodPost, "/v1/reports", member.AccessToken, map[string]interface{}{
		"user_contract_id": assignment.ID,
		"item_name":        "Crate",
		"quantity":         3,
		"proof":            "https://cdn.example/proof/1.png",
	})
	require.Equal(t, http.StatusCreated, code, env.Message)
	report := decode[idOnly](t, env.Data)

	// members cannot decide reports
	code, _ = e.do(http.MethodPost, fmt.Sprintf("/v1/admin/reports/%d/approve", report.ID), member.AccessToken, map[string]interface{}{"value": 1000})
	assert.Equal(t, http.StatusForbidden, code)

	code, env = e.do(http.MethodPost, fmt.Sprintf("/v1/admin/reports/%d/approve", report.ID), admin.AccessToken, map[string]interface{}{"value": "abc"})
	assert.Equal(t, http.StatusBadRequest, code, env.Message)

	code, env = e.do(http.MethodPost, fmt.Sprintf("/v1/admin/reports/%d/approve", report.ID), admin.AccessToken, map[string]interface{}{"value": "1000"})
	require.Equal(t, http.StatusOK, code, env.Message)
	approved := decode[struct {
		Status      string  `json:"status"`
		UserShare   float64 `json:"user_share"`
		FamilyShare float64 `json:"family_share"`
	}](t, env.Data)
	assert.Equal(t, "APPROVED", approved.Status)
	assert.InDelta(t, 600, approved.UserShare, 1e-9)
	assert.InDelta(t, 400, approved.FamilyShare, 1e-9)

	code, _ = e.do(http.MethodPost, fmt.Sprintf("/v1/admin/reports/%d/reject", report.ID), admin.AccessToken, map[string]string{"reason": "late"})
	assert.Equal(t, http.StatusConflict, code)

	code, env = e.do(http.MethodGet, "/v1/balance", member.AccessToken, nil)
	require.Equal(t, http.StatusOK, code)
	assert.InDelta(t, 600, decode[services.Balance](t, env.Data).Available, 1e-9)

	code, env = e.do(http.MethodPost, "/v1/payouts", member.AccessToken, map[string]interface{}{"amount": 250})
	require.Equal(t, http.StatusCreated, code, env.Message)
	payout := decode[idOnly](t, env.Data)

	code, env = e.do(http.MethodPost, "/v1/payouts", member.AccessToken, map[string]interface{}{"amount": 1000})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "insufficient balance", env.Message)

	path := fmt.Sprintf("/v1/admin/payouts/%d/decide", payout.ID)
	code, env = e.do(http.MethodPost, path, admin.AccessToken, map[string]string{"action": "approve"})
	require.Equal(t, http.StatusOK, code, env.Message)
	assert.Equal(t, "PAID", decode[idOnly](t, env.Data).Status)
	code, _ = e.do(http.MethodPost, path, admin.AccessToken, map[string]string{"action": "reject"})
	assert.Equal(t, http.StatusConflict, code)

	code, env = e.do(http.MethodGet, "/v1/balance", member.AccessToken, nil)
	require.Equal(t, http.StatusOK, code)
	b := decode[services.Balance](t, env.Data)
	assert.InDelta(t, 600, b.Earned, 1e-9)
	assert.InDelta(t, 250, b.Withdrawn, 1e-9)
	assert.InDelta(t, 350, b.Available, 1e-9)

	code, env = e.do(http.MethodGet, "/v1/leaderboard?metric=activity", member.AccessToken, nil)
	require.Equal(t, http.StatusOK, code)
	board := decode[struct {
		Entries []services.LeaderboardEntry `json:"entries"`
	}](t, env.Data)
	require.Len(t, board.Entries, 1)
	assert.Equal(t, member.User.ID, board.Entries[0].UserID)

	// xlsx export streams a workbook
	req := httptest.NewRequest(http.MethodGet, "/v1/admin/export/payouts", nil)
	req.Header.Set("Authorization", "Bearer "+admin.AccessToken)
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "attachment")
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("PK")))
}

func TestLoginLockoutAndRefresh(t *testing.T) {
	e := newAPI(t)
	_, err := e.svc.Members.EnsureAdmin(context.Background(), "admin-2", "Ryder", "ryder-pass")
	require.NoError(t, err)

	wrong := map[string]string{"static_id": "admin-2", "password": "nope-nope"}
	for i := 0; i <= middleware.FreeLoginAttempts; i++ {
		code, _ := e.do(http.MethodPost, "/v1/login", "", wrong)
		assert.Equal(t, http.StatusUnauthorized, code)
	}
	code, env := e.do(http.MethodPost, "/v1/login", "", map[string]string{"static_id": "admin-2", "password": "ryder-pass"})
	assert.Equal(t, http.StatusTooManyRequests, code, env.Message)

	e2 := newAPI(t)
	_, err = e2.svc.Members.EnsureAdmin(context.Background(), "admin-3", "Cesar", "cesar-pass")
	require.NoError(t, err)
	s := e2.login("admin-3", "cesar-pass")

	code, env = e2.do(http.MethodPost, "/v1/refresh", "", map[string]string{"refresh_token": s.RefreshToken})
	require.Equal(t, http.StatusOK, code, env.Message)
	next := decode[session](t, env.Data)
	assert.NotEqual(t, s.RefreshToken, next.RefreshToken)

	code, _ = e2.do(http.MethodPost, "/v1/refresh", "", map[string]string{"refresh_token": s.RefreshToken})
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = e2.do(http.MethodPost, "/v1/logout", next.AccessToken, nil)
	assert.Equal(t, http.StatusOK, code)
	code, _ = e2.do(http.MethodGet, "/v1/users/me", next.AccessToken, nil)
	assert.Equal(t, http.StatusUnauthorized, code)
}
