package auth

import (
	"net/http"
	"time"

	"famportal/middleware"
	"famportal/utils"
)

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// POST /v1/refresh exchanges a refresh token for a new pair. The old
// refresh token is revoked; presenting it again revokes every session of
// its owner.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if err := middleware.DecodeJSON(w, r, &req); err != nil {
		return
	}
	ctx := r.Context()
	next, err := h.Tokens.RotateRefresh(ctx, req.RefreshToken)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	p, err := h.Members.Principal(ctx, next.UserID)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	access, exp, err := h.Tokens.IssueAccess(p.ID, p.Role)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.OK(w, "Successfully", map[string]interface{}{
		"access_token":   access,
		"access_expire":  exp.UTC().Format(time.RFC3339),
		"refresh_token":  next.ID,
		"refresh_expire": next.ExpiresAt.UTC().Format(time.RFC3339),
	})
}
