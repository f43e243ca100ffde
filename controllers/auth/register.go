package auth

import (
	"net/http"

	"famportal/middleware"
	"famportal/services"
	"famportal/utils"
)

type RegisterRequest struct {
	Name                 string `json:"name" validate:"required,nameok"`
	StaticID             string `json:"static_id" validate:"required,staticid"`
	Password             string `json:"password" validate:"required,pwdmin"`
	PasswordConfirmation string `json:"password_confirmation" validate:"required,eqfield=Password"`
	ApplicationNote      string `json:"application_note" validate:"max=2000"`
}

// POST /v1/register
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := middleware.DecodeJSON(w, r, &req); err != nil {
		return
	}
	user, err := h.Members.Register(r.Context(), services.RegisterInput{
		Name:            req.Name,
		StaticID:        req.StaticID,
		Password:        req.Password,
		ApplicationNote: req.ApplicationNote,
	})
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	data, err := h.session(r, user)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, utils.APIResponse{
		Success: true,
		Message: "Application received",
		Data:    data,
	})
}
