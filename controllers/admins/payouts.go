package admins

import (
	"net/http"

	"famportal/controllers"
	"famportal/middleware"
	"famportal/services"
	"famportal/utils"
)

// GET /v1/admin/payouts?status=&user_id=&page=&limit=
func (h *Handler) ListPayouts(w http.ResponseWriter, r *http.Request) {
	userID, err := controllers.QueryID(r, "user_id")
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	page := controllers.PageParams(r)
	list, total, err := h.Svc.Payouts.List(r.Context(), services.PayoutFilter{
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

type DecidePayoutRequest struct {
	Action string `json:"action" validate:"required"`
	Note   string `json:"note" validate:"max=2000"`
}

// POST /v1/admin/payouts/{id}/decide with action "approve" or "reject".
func (h *Handler) DecidePayout(w http.ResponseWriter, r *http.Request) {
	admin, _ := utils.GetUserID(r)
	id, err := controllers.PathID(r, "id")
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	var req DecidePayoutRequest
	if err := middleware.DecodeJSON(w, r, &req); err != nil {
		return
	}
	payout, err := h.Svc.Payouts.Decide(r.Context(), id, req.Action, admin, req.Note)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.OK(w, "Payout "+payout.Status, payout)
}
