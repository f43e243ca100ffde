package admins

import (
	"encoding/json"
	"net/http"

	"famportal/controllers"
	"famportal/middleware"
	"famportal/services"
	"famportal/utils"
)

// GET /v1/admin/reports?status=&user_id=&page=&limit=
func (h *Handler) ListReports(w http.ResponseWriter, r *http.Request) {
	userID, err := controllers.QueryID(r, "user_id")
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	page := controllers.PageParams(r)
	list, total, err := h.Svc.Reports.List(r.Context(), services.ReportFilter{
		Status: r.URL.Query().Get("status"),
		UserID: userID,
		Page:   page,
	})
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.OK(w, "Successfully", controllers.Paged(page, list, total))
}

type ApproveRequest struct {
	// Value is the total value of the report, as a JSON number or a
	// numeric string.
	Value json.RawMessage `json:"value"`
}

// POST /v1/admin/reports/{id}/approve
func (h *Handler) ApproveReport(w http.ResponseWriter, r *http.Request) {
	verifier, _ := utils.GetUserID(r)
	id, err := controllers.PathID(r, "id")
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	var req ApproveRequest
	if err := middleware.DecodeJSON(w, r, &req); err != nil {
		return
	}
	value, err := utils.ParseAmount(req.Value, "value")
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	report, err := h.Svc.Reports.Approve(r.Context(), id, value, verifier)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.OK(w, "Report approved", report)
}

type RejectRequest struct {
	Reason string `json:"reason" validate:"required,max=2000"`
}

// POST /v1/admin/reports/{id}/reject
func (h *Handler) RejectReport(w http.ResponseWriter, r *http.Request) {
	verifier, _ := utils.GetUserID(r)
	id, err := controllers.PathID(r, "id")
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	var req RejectRequest
	if err := middleware.DecodeJSON(w, r, &req); err != nil {
		return
	}
	report, err := h.Svc.Reports.Reject(r.Context(), id, req.Reason, verifier)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.OK(w, "Report rejected", report)
}
