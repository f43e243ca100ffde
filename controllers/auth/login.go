package auth

import (
	"net/http"

	"famportal/middleware"
	"famportal/utils"
)

type LoginRequest struct {
	StaticID string `json:"static_id" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// POST /v1/login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := middleware.DecodeJSON(w, r, &req); err != nil {
		return
	}
	ctx := r.Context()

	if known, err := h.Members.ByStaticID(ctx, req.StaticID); err == nil {
		if locked, retry := h.Guard.Locked(ctx, known.ID); locked {
			secs := int(retry.Seconds()) + 1
			utils.WriteJSON(w, http.StatusTooManyRequests, utils.APIResponse{
				Success: false,
				Message: "Too many failed attempts, try again later",
				Data:    map[string]interface{}{"retry_after_seconds": secs},
			})
			return
		}
	}

	user, err := h.Members.Authenticate(ctx, req.StaticID, req.Password)
	if err != nil {
		if user != nil {
			h.Guard.Failed(ctx, user.ID)
		}
		utils.WriteError(w, r, err)
		return
	}
	h.Guard.Reset(ctx, user.ID)

	data, err := h.session(r, user)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.OK(w, "Login successful", data)
}
