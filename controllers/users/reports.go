package users

import (
	"net/http"

	"famportal/controllers"
	"famportal/middleware"
	"famportal/services"
	"famportal/utils"
)

type SubmitReportRequest struct {
	UserContractID uint   `json:"user_contract_id" validate:"required"`
	ItemName       string `json:"item_name" validate:"required,max=150"`
	Quantity       int    `json:"quantity" validate:"required"`
	Proof          string `json:"proof" validate:"required"`
	Comment        string `json:"comment" validate:"max=2000"`
	Participants   []uint `json:"participants"`
}

// POST /v1/reports
func (h *Handler) SubmitReport(w http.ResponseWriter, r *http.Request) {
	uid, _ := utils.GetUserID(r)
	var req SubmitReportRequest
	if err := middleware.DecodeJSON(w, r, &req); err != nil {
		return
	}
	report, err := h.Svc.Reports.Submit(r.Context(), services.SubmitReportInput{
		UserID:         uid,
		UserContractID: req.UserContractID,
		ItemName:       req.ItemName,
		Quantity:       req.Quantity,
		Proof:          req.Proof,
		Comment:        req.Comment,
		ParticipantIDs: req.Participants,
	})
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, utils.APIResponse{Success: true, Message: "Report submitted", Data: report})
}

// GET /v1/reports?status=&page=&limit= lists the caller's own reports.
func (h *Handler) ListReports(w http.ResponseWriter, r *http.Request) {
	uid, _ := utils.GetUserID(r)
	page := controllers.PageParams(r)
	list, total, err := h.Svc.Reports.List(r.Context(), services.ReportFilter{
		Status: r.URL.Query().Get("status"),
		UserID: uid,
		Page:   page,
	})
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.OK(w, "Successfully", controllers.Paged(page, list, total))
}

// GET /v1/reports/{id}
func (h *Handler) GetReport(w http.ResponseWriter, r *http.Request) {
	p, _ := utils.GetPrincipal(r)
	id, err := controllers.PathID(r, "id")
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	report, err := h.Svc.Reports.Get(r.Context(), id, p)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.OK(w, "Successfully", report)
}

type ParticipantRequest struct {
	UserID uint `json:"user_id" validate:"required"`
}

// POST /v1/reports/{id}/participants
func (h *Handler) AddParticipant(w http.ResponseWriter, r *http.Request) {
	p, _ := utils.GetPrincipal(r)
	id, err := controllers.PathID(r, "id")
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	var req ParticipantRequest
	if err := middleware.DecodeJSON(w, r, &req); err != nil {
		return
	}
	rp, err := h.Svc.Reports.AddParticipant(r.Context(), id, p, req.UserID)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, utils.APIResponse{Success: true, Message: "Participant added", Data: rp})
}

// DELETE /v1/reports/{id}/participants/{user_id}
func (h *Handler) RemoveParticipant(w http.ResponseWriter, r *http.Request) {
	p, _ := utils.GetPrincipal(r)
	id, err := controllers.PathID(r, "id")
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	userID, err := controllers.PathID(r, "user_id")
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	if err := h.Svc.Reports.RemoveParticipant(r.Context(), id, p, userID); err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.OK(w, "Participant removed", nil)
}
