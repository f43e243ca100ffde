package utils

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"famportal/apperr"
	"famportal/database"
	"famportal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTokens(t *testing.T) *Tokens {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	db, err := database.Connect("sqlite://:memory:", logger)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(context.Background(), db, logger, "", ""))
	u := models.User{Name: "Token Owner", StaticID: "tok-1", Password: "x", Role: models.RoleMember, Status: models.UserActive}
	require.NoError(t, db.Create(&u).Error)
	return &Tokens{
		Secret:     []byte("test-secret-value-1234"),
		Issuer:     "famportal",
		Audience:   "famportal-web",
		AccessTTL:  15 * time.Minute,
		RefreshTTL: 24 * time.Hour,
		DB:         db,
	}
}

func TestAccessTokenRoundTrip(t *testing.T) {
	tk := newTokens(t)
	ctx := context.Background()

	raw, exp, err := tk.IssueAccess(1, models.RoleMember)
	require.NoError(t, err)
	assert.True(t, exp.After(time.Now()))

	claims, err := tk.ParseAccess(ctx, raw)
	require.NoError(t, err)
	assert.EqualValues(t, 1, claims.UserID)
	assert.Equal(t, models.RoleMember, claims.Role)

	require.NoError(t, tk.RevokeAccess(ctx, claims.ID, exp))
	_, err = tk.ParseAccess(ctx, raw)
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
}

func TestAccessTokenRejectsTampering(t *testing.T) {
	tk := newTokens(t)
	ctx := context.Background()

	other := *tk
	other.Secret = []byte("another-secret-value-99")
	raw, _, err := other.IssueAccess(1, models.RoleAdmin)
	require.NoError(t, err)
	_, err = tk.ParseAccess(ctx, raw)
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)

	wrongAud := *tk
	wrongAud.Audience = "someone-else"
	raw, _, err = wrongAud.IssueAccess(1, models.RoleMember)
	require.NoError(t, err)
	_, err = tk.ParseAccess(ctx, raw)
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{UserID: 1})
	raw, err = none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = tk.ParseAccess(ctx, raw)
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
}

func TestAccessTokenExpiry(t *testing.T) {
	tk := newTokens(t)
	issued := time.Now().Add(-time.Hour)
	tk.Now = func() time.Time { return issued }
	raw, _, err := tk.IssueAccess(1, models.RoleMember)
	require.NoError(t, err)

	tk.Now = nil
	_, err = tk.ParseAccess(context.Background(), raw)
	require.Error(t, err)
	assert.Equal(t, "session expired, please log in again", apperr.Message(err))
}

func TestRefreshRotation(t *testing.T) {
	tk := newTokens(t)
	ctx := context.Background()

	first, err := tk.IssueRefresh(ctx, 1)
	require.NoError(t, err)

	second, err := tk.RotateRefresh(ctx, first.ID)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	// replaying the rotated token revokes the whole family
	_, err = tk.RotateRefresh(ctx, first.ID)
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
	_, err = tk.RotateRefresh(ctx, second.ID)
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)

	_, err = tk.RotateRefresh(ctx, "rt_missing")
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
}

func TestRevokeAllRefresh(t *testing.T) {
	tk := newTokens(t)
	ctx := context.Background()
	a, err := tk.IssueRefresh(ctx, 1)
	require.NoError(t, err)
	b, err := tk.IssueRefresh(ctx, 1)
	require.NoError(t, err)

	require.NoError(t, tk.RevokeAllRefresh(ctx, 1))
	for _, id := range []string{a.ID, b.ID} {
		_, err := tk.RotateRefresh(ctx, id)
		assert.ErrorIs(t, err, apperr.ErrUnauthorized)
	}
}

func TestParseAmount(t *testing.T) {
	cases := map[string]float64{
		`10000`:      10000,
		`"2500.50"`:  2500.5,
		`" 12 "`:     12,
		`0`:          0,
		`-3`:         -3,
		`1e3`:        1000,
		`"0.000001"`: 0.000001,
	}
	for in, want := range cases {
		got, err := ParseAmount(json.RawMessage(in), "value")
		require.NoError(t, err, in)
		assert.InDelta(t, want, got, 1e-12, in)
	}

	for _, in := range []string{``, `null`, `"abc"`, `"NaN"`, `"Inf"`, `true`, `{}`, `""`} {
		_, err := ParseAmount(json.RawMessage(in), "value")
		assert.ErrorIs(t, err, apperr.ErrValidation, in)
	}
}

func TestValidateStruct(t *testing.T) {
	type req struct {
		Name     string `json:"name" validate:"required,nameok,max=20"`
		StaticID string `json:"static_id" validate:"required,staticid"`
		Password string `json:"password" validate:"required,pwdmin"`
		Confirm  string `json:"password_confirmation" validate:"eqfield=Password"`
	}
	ok := req{Name: "Carl Johnson", StaticID: "12-345", Password: "grove1", Confirm: "grove1"}
	assert.NoError(t, ValidateStruct(&ok))

	bad := ok
	bad.Name = " "
	assert.EqualError(t, ValidateStruct(&bad), "name is required")

	bad = ok
	bad.StaticID = "12 345"
	assert.ErrorIs(t, ValidateStruct(&bad), apperr.ErrValidation)

	bad = ok
	bad.Name = "An extremely long display name"
	assert.EqualError(t, ValidateStruct(&bad), "name is too long")

	bad = ok
	bad.Confirm = "grove2"
	assert.EqualError(t, ValidateStruct(&bad), "password_confirmation does not match")
}

func TestWriteErrorHidesInternalErrors(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/v1/me", nil)

	w := httptest.NewRecorder()
	WriteError(w, r, apperr.Conflict("already decided"))
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.JSONEq(t, `{"success":false,"message":"already decided"}`, w.Body.String())

	w = httptest.NewRecorder()
	WriteError(w, r, io.ErrUnexpectedEOF)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "unexpected EOF")
}
