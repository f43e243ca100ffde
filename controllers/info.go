package controllers

import (
	"net/http"

	"famportal/services"
	"famportal/utils"
)

// Info serves the unauthenticated portal facts the login and registration
// pages need.
type Info struct {
	Settings *services.SettingsService
}

// GET /v1/info
func (h *Info) Public(w http.ResponseWriter, r *http.Request) {
	s, err := h.Settings.Get(r.Context())
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	user, family := s.SharePercents()
	utils.OK(w, "Successfully", map[string]interface{}{
		"closed_register":      s.ClosedRegister,
		"user_share_percent":   user,
		"family_share_percent": family,
		"min_withdrawal":       s.MinWithdrawal,
		"max_active_contracts": services.MaxActiveContracts,
	})
}
