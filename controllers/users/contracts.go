package users

import (
	"net/http"

	"famportal/controllers"
	"famportal/utils"
)

// GET /v1/contracts
func (h *Handler) ListContracts(w http.ResponseWriter, r *http.Request) {
	list, err := h.Svc.Contracts.ListContracts(r.Context(), false)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.OK(w, "Successfully", list)
}

// POST /v1/contracts/{id}/take
func (h *Handler) TakeContract(w http.ResponseWriter, r *http.Request) {
	uid, _ := utils.GetUserID(r)
	id, err := controllers.PathID(r, "id")
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	uc, err := h.Svc.Contracts.Take(r.Context(), uid, id)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, utils.APIResponse{Success: true, Message: "Contract taken", Data: uc})
}

// GET /v1/assignments?status=
func (h *Handler) ListAssignments(w http.ResponseWriter, r *http.Request) {
	uid, _ := utils.GetUserID(r)
	list, err := h.Svc.Contracts.ListAssignments(r.Context(), uid, r.URL.Query().Get("status"))
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.OK(w, "Successfully", list)
}

// POST /v1/assignments/{id}/cancel
func (h *Handler) CancelAssignment(w http.ResponseWriter, r *http.Request) {
	uid, _ := utils.GetUserID(r)
	id, err := controllers.PathID(r, "id")
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	uc, err := h.Svc.Contracts.Cancel(r.Context(), id, uid)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.OK(w, "Contract cancelled", uc)
}
