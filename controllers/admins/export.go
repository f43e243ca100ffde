package admins

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"famportal/services"
	"famportal/utils"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// The workbook is built in memory first so a failure can still be reported
// as a JSON error instead of a truncated download.
func writeWorkbook(w http.ResponseWriter, name string, buf *bytes.Buffer) {
	filename := fmt.Sprintf("%s-%s.xlsx", name, time.Now().UTC().Format("20060102-1504"))
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

// GET /v1/admin/export/payouts?status=
func (h *Handler) ExportPayouts(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := h.Svc.Export.Payouts(r.Context(), &buf, r.URL.Query().Get("status")); err != nil {
		utils.WriteError(w, r, err)
		return
	}
	writeWorkbook(w, "payouts", &buf)
}

// GET /v1/admin/export/leaderboard?period=&metric=
func (h *Handler) ExportLeaderboard(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	period, metric := q.Get("period"), q.Get("metric")
	if period == "" {
		period = services.PeriodAll
	}
	if metric == "" {
		metric = services.MetricFarm
	}
	var buf bytes.Buffer
	if err := h.Svc.Export.Leaderboard(r.Context(), &buf, period, metric); err != nil {
		utils.WriteError(w, r, err)
		return
	}
	writeWorkbook(w, "leaderboard-"+period+"-"+metric, &buf)
}
