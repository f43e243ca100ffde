package users

import (
	"encoding/json"
	"net/http"

	"famportal/controllers"
	"famportal/middleware"
	"famportal/services"
	"famportal/utils"
)

type PayoutRequest struct {
	Amount json.RawMessage `json:"amount"`
}

// POST /v1/payouts
func (h *Handler) RequestPayout(w http.ResponseWriter, r *http.Request) {
	uid, _ := utils.GetUserID(r)
	var req PayoutRequest
	if err := middleware.DecodeJSON(w, r, &req); err != nil {
		return
	}
	amount, err := utils.ParseAmount(req.Amount, "amount")
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	payout, err := h.Svc.Payouts.Request(r.Context(), uid, amount)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, utils.APIResponse{Success: true, Message: "Payout requested", Data: payout})
}

// GET /v1/payouts?status=&page=&limit=
func (h *Handler) ListPayouts(w http.ResponseWriter, r *http.Request) {
	uid, _ := utils.GetUserID(r)
	page := controllers.PageParams(r)
	list, total, err := h.Svc.Payouts.List(r.Context(), services.PayoutFilter{
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
