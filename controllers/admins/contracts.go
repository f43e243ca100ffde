package admins

import (
	"net/http"

	"famportal/controllers"
	"famportal/middleware"
	"famportal/services"
	"famportal/utils"
)

// GET /v1/admin/contracts lists the whole catalogue, inactive included.
func (h *Handler) ListContracts(w http.ResponseWriter, r *http.Request) {
	list, err := h.Svc.Contracts.ListContracts(r.Context(), true)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.OK(w, "Successfully", list)
}

// POST /v1/admin/contracts
func (h *Handler) CreateContract(w http.ResponseWriter, r *http.Request) {
	actor, _ := utils.GetUserID(r)
	var req services.ContractInput
	if err := middleware.DecodeJSON(w, r, &req); err != nil {
		return
	}
	c, err := h.Svc.Contracts.Save(r.Context(), actor, 0, req)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, utils.APIResponse{Success: true, Message: "Contract created", Data: c})
}

// PUT /v1/admin/contracts/{id}
func (h *Handler) UpdateContract(w http.ResponseWriter, r *http.Request) {
	actor, _ := utils.GetUserID(r)
	id, err := controllers.PathID(r, "id")
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	var req services.ContractInput
	if err := middleware.DecodeJSON(w, r, &req); err != nil {
		return
	}
	c, err := h.Svc.Contracts.Save(r.Context(), actor, id, req)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.OK(w, "Contract updated", c)
}

type ToggleRequest struct {
	Active bool `json:"active"`
}

// PATCH /v1/admin/contracts/{id}/active
func (h *Handler) ToggleContract(w http.ResponseWriter, r *http.Request) {
	actor, _ := utils.GetUserID(r)
	id, err := controllers.PathID(r, "id")
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	var req ToggleRequest
	if err := middleware.DecodeJSON(w, r, &req); err != nil {
		return
	}
	c, err := h.Svc.Contracts.SetActive(r.Context(), actor, id, req.Active)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.OK(w, "Contract updated", c)
}
