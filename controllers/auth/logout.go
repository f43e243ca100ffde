package auth

import (
	"net/http"

	"famportal/middleware"
	"famportal/utils"
)

type LogoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// revokeCurrent revokes the access token the request was made with.
func (h *Handler) revokeCurrent(r *http.Request) error {
	claims, ok := utils.GetClaims(r)
	if !ok || claims.ID == "" || claims.ExpiresAt == nil {
		return nil
	}
	return h.Tokens.RevokeAccess(r.Context(), claims.ID, claims.ExpiresAt.Time)
}

// POST /v1/logout
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	uid, _ := utils.GetUserID(r)
	var req LogoutRequest
	if r.ContentLength != 0 {
		if err := middleware.DecodeJSON(w, r, &req); err != nil {
			return
		}
	}
	if err := h.revokeCurrent(r); err != nil {
		utils.WriteError(w, r, err)
		return
	}
	if req.RefreshToken != "" {
		if err := h.Tokens.RevokeRefresh(r.Context(), req.RefreshToken, uid); err != nil {
			utils.WriteError(w, r, err)
			return
		}
	}
	utils.OK(w, "Logged out", nil)
}

// POST /v1/logout-all
func (h *Handler) LogoutAll(w http.ResponseWriter, r *http.Request) {
	uid, _ := utils.GetUserID(r)
	if err := h.revokeCurrent(r); err != nil {
		utils.WriteError(w, r, err)
		return
	}
	if err := h.Tokens.RevokeAllRefresh(r.Context(), uid); err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.OK(w, "All sessions revoked", nil)
}
