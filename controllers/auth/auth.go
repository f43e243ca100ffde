// Package auth serves registration, login and session endpoints.
package auth

import (
	"net/http"
	"time"

	"famportal/middleware"
	"famportal/models"
	"famportal/services"
	"famportal/utils"
)

type Handler struct {
	Members *services.MemberService
	Tokens  *utils.Tokens
	Guard   *middleware.LoginGuard
}

// session issues an access and refresh token pair for u.
func (h *Handler) session(r *http.Request, u *models.User) (map[string]interface{}, error) {
	access, exp, err := h.Tokens.IssueAccess(u.ID, u.Role)
	if err != nil {
		return nil, err
	}
	rt, err := h.Tokens.IssueRefresh(r.Context(), u.ID)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"access_token":   access,
		"access_expire":  exp.UTC().Format(time.RFC3339),
		"refresh_token":  rt.ID,
		"refresh_expire": rt.ExpiresAt.UTC().Format(time.RFC3339),
		"user":           u,
	}, nil
}
