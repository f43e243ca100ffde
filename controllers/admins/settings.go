package admins

import (
	"net/http"

	"famportal/middleware"
	"famportal/services"
	"famportal/utils"
)

// GET /v1/admin/settings
func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	s, err := h.Svc.Settings.Get(r.Context())
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.OK(w, "Successfully", s)
}

// PUT /v1/admin/settings accepts a partial update.
func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	actor, _ := utils.GetUserID(r)
	var req services.SettingsInput
	if err := middleware.DecodeJSON(w, r, &req); err != nil {
		return
	}
	s, err := h.Svc.Settings.Update(r.Context(), actor, req)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.OK(w, "Settings updated", s)
}
