package users

import (
	"net/http"

	"famportal/middleware"
	"famportal/services"
	"famportal/utils"
)

// GET /v1/users/me
func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	uid, _ := utils.GetUserID(r)
	user, err := h.Svc.Members.Get(r.Context(), uid)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.OK(w, "Successfully", user)
}

// PUT /v1/users/me
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	uid, _ := utils.GetUserID(r)
	var req services.ProfileInput
	if err := middleware.DecodeJSON(w, r, &req); err != nil {
		return
	}
	user, err := h.Svc.Members.UpdateProfile(r.Context(), uid, req)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.OK(w, "Profile updated", user)
}
