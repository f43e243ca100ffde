package utils

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"famportal/apperr"
	"famportal/models"
	"famportal/policy"

	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type contextKey string

const (
	PrincipalKey = contextKey("principal")
	RequestIDKey = contextKey("requestID")
	ClaimsKey    = contextKey("claims")
)

// Claims is the access token payload.
type Claims struct {
	UserID uint   `json:"id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// Tokens issues and checks access and refresh tokens. Revoked access
// tokens are kept in Redis when configured, in the revoked_tokens table
// otherwise.
type Tokens struct {
	Secret     []byte
	Issuer     string
	Audience   string
	AccessTTL  time.Duration
	RefreshTTL time.Duration

	DB    *gorm.DB
	Redis redis.UniversalClient
	Now   func() time.Time
}

func (t *Tokens) now() time.Time {
	if t.Now != nil {
		return t.Now()
	}
	return time.Now()
}

// IssueAccess signs an HS256 access token for userID.
func (t *Tokens) IssueAccess(userID uint, role string) (string, time.Time, error) {
	if len(t.Secret) == 0 {
		return "", time.Time{}, errors.New("jwt secret is not set")
	}
	jti, err := randomID(16)
	if err != nil {
		return "", time.Time{}, err
	}
	now := t.now()
	exp := now.Add(t.AccessTTL)
	claims := Claims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   fmt.Sprint(userID),
			Issuer:    t.Issuer,
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
	if t.Audience != "" {
		claims.Audience = jwt.ClaimStrings{t.Audience}
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.Secret)
	return signed, exp, err
}

// ParseAccess validates signature, registered claims and revocation.
func (t *Tokens) ParseAccess(ctx context.Context, raw string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(t.now),
		jwt.WithExpirationRequired(),
	}
	if t.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(t.Issuer))
	}
	if t.Audience != "" {
		opts = append(opts, jwt.WithAudience(t.Audience))
	}

	var claims Claims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (interface{}, error) {
		return t.Secret, nil
	}, opts...)
	if errors.Is(err, jwt.ErrTokenExpired) {
		return nil, apperr.Unauthorized("session expired, please log in again")
	}
	if err != nil || claims.UserID == 0 {
		return nil, apperr.Unauthorized("invalid token")
	}

	revoked, err := t.isRevoked(ctx, claims.ID)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, apperr.Unauthorized("token revoked")
	}
	return &claims, nil
}

func (t *Tokens) isRevoked(ctx context.Context, jti string) (bool, error) {
	if jti == "" {
		return false, nil
	}
	if t.Redis != nil {
		n, err := t.Redis.Exists(ctx, "jwt:blacklist:"+jti).Result()
		if err == nil {
			return n > 0, nil
		}
		// fall through to the table on redis errors
	}
	if t.DB == nil {
		return false, nil
	}
	var n int64
	err := t.DB.WithContext(ctx).Model(&models.RevokedToken{}).
		Where("id = ? AND expires_at > ?", jti, t.now()).
		Count(&n).Error
	return n > 0, err
}

// RevokeAccess blacklists jti until exp.
func (t *Tokens) RevokeAccess(ctx context.Context, jti string, exp time.Time) error {
	if jti == "" {
		return errors.New("empty jti")
	}
	ttl := exp.Sub(t.now())
	if ttl <= 0 {
		return nil
	}
	if t.Redis != nil {
		if err := t.Redis.Set(ctx, "jwt:blacklist:"+jti, "1", ttl).Err(); err == nil {
			return nil
		}
	}
	if t.DB == nil {
		return errors.New("no revocation store configured")
	}
	row := models.RevokedToken{ID: jti, RevokedAt: t.now(), ExpiresAt: exp}
	return t.DB.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, DoUpdates: clause.AssignmentColumns([]string{"revoked_at"})}).
		Create(&row).Error
}

// IssueRefresh stores and returns a new opaque refresh token.
func (t *Tokens) IssueRefresh(ctx context.Context, userID uint) (*models.RefreshToken, error) {
	rt, err := models.NewRefreshToken(userID, t.RefreshTTL)
	if err != nil {
		return nil, err
	}
	rt.ExpiresAt = t.now().Add(t.RefreshTTL)
	if err := t.DB.WithContext(ctx).Create(rt).Error; err != nil {
		return nil, err
	}
	return rt, nil
}

// RotateRefresh revokes id and issues its replacement in one transaction.
func (t *Tokens) RotateRefresh(ctx context.Context, id string) (*models.RefreshToken, error) {
	var next *models.RefreshToken
	err := t.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rt models.RefreshToken
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id).First(&rt).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.Unauthorized("invalid refresh token")
		}
		if err != nil {
			return err
		}
		if rt.Revoked {
			// reuse of a rotated token: burn the whole family
			if err := tx.Model(&models.RefreshToken{}).Where("user_id = ?", rt.UserID).Update("revoked", true).Error; err != nil {
				return err
			}
			return apperr.Unauthorized("refresh token revoked")
		}
		if t.now().After(rt.ExpiresAt) {
			return apperr.Unauthorized("refresh token expired")
		}
		if err := tx.Model(&rt).Update("revoked", true).Error; err != nil {
			return err
		}
		next, err = models.NewRefreshToken(rt.UserID, t.RefreshTTL)
		if err != nil {
			return err
		}
		next.ExpiresAt = t.now().Add(t.RefreshTTL)
		return tx.Create(next).Error
	})
	if err != nil {
		return nil, err
	}
	return next, nil
}

// RevokeRefresh revokes one refresh token owned by userID.
func (t *Tokens) RevokeRefresh(ctx context.Context, id string, userID uint) error {
	return t.DB.WithContext(ctx).Model(&models.RefreshToken{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("revoked", true).Error
}

// RevokeAllRefresh revokes every refresh token of userID.
func (t *Tokens) RevokeAllRefresh(ctx context.Context, userID uint) error {
	return t.DB.WithContext(ctx).Model(&models.RefreshToken{}).
		Where("user_id = ? AND revoked = ?", userID, false).
		Update("revoked", true).Error
}

// BearerToken extracts the token from an Authorization header.
func BearerToken(r *http.Request) (string, bool) {
	authz := r.Header.Get("Authorization")
	if !strings.HasPrefix(authz, "Bearer ") {
		return "", false
	}
	tok := strings.TrimSpace(strings.TrimPrefix(authz, "Bearer "))
	return tok, tok != ""
}

func randomID(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// GetPrincipal returns the authenticated caller stored by the auth middleware.
func GetPrincipal(r *http.Request) (*policy.Principal, bool) {
	p, ok := r.Context().Value(PrincipalKey).(*policy.Principal)
	return p, ok && p != nil
}

// GetUserID returns the authenticated caller's id.
func GetUserID(r *http.Request) (uint, bool) {
	p, ok := GetPrincipal(r)
	if !ok {
		return 0, false
	}
	return p.ID, true
}

// GetClaims returns the access token claims of the current request.
func GetClaims(r *http.Request) (*Claims, bool) {
	c, ok := r.Context().Value(ClaimsKey).(*Claims)
	return c, ok && c != nil
}

// RequestID returns the id assigned by the request id middleware.
func RequestID(ctx context.Context) string {
	s, _ := ctx.Value(RequestIDKey).(string)
	return s
}
