package users

import (
	"net/http"

	"famportal/services"
	"famportal/utils"
)

// GET /v1/balance
func (h *Handler) Balance(w http.ResponseWriter, r *http.Request) {
	uid, _ := utils.GetUserID(r)
	b, err := h.Svc.Ledger.AvailableBalance(r.Context(), uid)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.OK(w, "Successfully", services.Balance{
		Earned:    utils.RoundFloat(b.Earned, 2),
		Withdrawn: utils.RoundFloat(b.Withdrawn, 2),
		Pending:   utils.RoundFloat(b.Pending, 2),
		Available: utils.RoundFloat(b.Available, 2),
	})
}

// GET /v1/leaderboard?period=all|month&metric=farm|activity
func (h *Handler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	period, metric := q.Get("period"), q.Get("metric")
	if period == "" {
		period = services.PeriodAll
	}
	if metric == "" {
		metric = services.MetricFarm
	}
	list, err := h.Svc.Ledger.Leaderboard(r.Context(), period, metric)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	for i := range list {
		list[i].Total = utils.RoundFloat(list[i].Total, 2)
	}
	utils.OK(w, "Successfully", map[string]interface{}{
		"period":  period,
		"metric":  metric,
		"entries": list,
	})
}
