package middleware

import (
	"context"
	"net/http"

	"famportal/apperr"
	"famportal/models"
	"famportal/policy"
	"famportal/services"
	"famportal/utils"
)

// Auth resolves the bearer token to a principal. Role and status are read
// from the database on every request so bans and role changes apply
// without waiting for tokens to expire.
type Auth struct {
	Tokens  *utils.Tokens
	Members *services.MemberService
}

func (a *Auth) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := utils.BearerToken(r)
		if !ok {
			utils.WriteError(w, r, apperr.Unauthorized("Unauthorized"))
			return
		}
		claims, err := a.Tokens.ParseAccess(r.Context(), raw)
		if err != nil {
			utils.WriteError(w, r, err)
			return
		}
		p, err := a.Members.Principal(r.Context(), claims.UserID)
		if err != nil {
			utils.WriteError(w, r, err)
			return
		}
		if p.Status == models.UserBanned {
			utils.WriteError(w, r, apperr.Forbidden("account banned"))
			return
		}

		go a.Members.Touch(context.WithoutCancel(r.Context()), p.ID)

		ctx := context.WithValue(r.Context(), utils.PrincipalKey, p)
		ctx = context.WithValue(ctx, utils.ClaimsKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Require rejects callers the policy table does not allow to use c.
func Require(c policy.Capability) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, _ := utils.GetPrincipal(r)
			if err := policy.Check(p, c); err != nil {
				utils.WriteError(w, r, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireFunc wraps a single handler with Require.
func RequireFunc(c policy.Capability, h http.HandlerFunc) http.Handler {
	return Require(c)(h)
}
