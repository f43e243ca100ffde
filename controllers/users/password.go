package users

import (
	"net/http"

	"famportal/middleware"
	"famportal/utils"
)

type ChangePasswordRequest struct {
	CurrentPassword      string `json:"current_password" validate:"required"`
	Password             string `json:"password" validate:"required,pwdmin"`
	ConfirmationPassword string `json:"confirmation_password" validate:"required,eqfield=Password"`
}

// PUT /v1/users/me/password changes the password and ends every other
// session.
func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	uid, _ := utils.GetUserID(r)
	var req ChangePasswordRequest
	if err := middleware.DecodeJSON(w, r, &req); err != nil {
		return
	}
	ctx := r.Context()
	if err := h.Svc.Members.ChangePassword(ctx, uid, req.CurrentPassword, req.Password); err != nil {
		utils.WriteError(w, r, err)
		return
	}
	if err := h.Tokens.RevokeAllRefresh(ctx, uid); err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.OK(w, "Password changed", nil)
}
