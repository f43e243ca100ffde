package admins

import (
	"net/http"

	"famportal/controllers"
	"famportal/services"
	"famportal/utils"
)

// GET /v1/admin/dashboard
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.Svc.Ledger.Dashboard(r.Context())
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	d.PendingPayoutSum = utils.RoundFloat(d.PendingPayoutSum, 2)
	d.FamilyShareTotal = utils.RoundFloat(d.FamilyShareTotal, 2)
	d.PaidOutTotal = utils.RoundFloat(d.PaidOutTotal, 2)
	utils.OK(w, "Successfully", d)
}

// GET /v1/admin/audit?action=&actor_id=&page=&limit=
func (h *Handler) ListAudit(w http.ResponseWriter, r *http.Request) {
	actorID, err := controllers.QueryID(r, "actor_id")
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	page := controllers.PageParams(r)
	list, total, err := h.Svc.Audit.List(r.Context(), services.AuditFilter{
		Action:  r.URL.Query().Get("action"),
		ActorID: actorID,
		Page:    page,
	})
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.OK(w, "Successfully", controllers.Paged(page, list, total))
}
