package routes

import (
	"net/http"

	"famportal/controllers/admins"
	"famportal/middleware"
	"famportal/policy"

	"github.com/gorilla/mux"
)

// AdminRoutes registers the staff endpoints under /admin.
func AdminRoutes(api *mux.Router, h *admins.Handler) {
	req := middleware.RequireFunc

	// Dashboard and audit
	api.Handle("/dashboard", req(policy.ViewDashboard, h.Dashboard)).Methods(http.MethodGet)
	api.Handle("/audit", req(policy.ViewAudit, h.ListAudit)).Methods(http.MethodGet)

	// Reports
	api.Handle("/reports", req(policy.ReviewReports, h.ListReports)).Methods(http.MethodGet)
	api.Handle("/reports/"+idPattern+"/approve", req(policy.DecideReport, h.ApproveReport)).Methods(http.MethodPost)
	api.Handle("/reports/"+idPattern+"/reject", req(policy.DecideReport, h.RejectReport)).Methods(http.MethodPost)

	// Payouts
	api.Handle("/payouts", req(policy.DecidePayout, h.ListPayouts)).Methods(http.MethodGet)
	api.Handle("/payouts/"+idPattern+"/decide", req(policy.DecidePayout, h.DecidePayout)).Methods(http.MethodPost)

	// Members
	api.Handle("/members", req(policy.ReviewMembers, h.ListMembers)).Methods(http.MethodGet)
	api.Handle("/members/"+idPattern, req(policy.ReviewMembers, h.GetMember)).Methods(http.MethodGet)
	api.Handle("/members/"+idPattern+"/review", req(policy.ReviewMembers, h.ReviewMember)).Methods(http.MethodPost)
	api.Handle("/members/"+idPattern+"/ban", req(policy.ReviewMembers, h.BanMember)).Methods(http.MethodPost)
	api.Handle("/members/"+idPattern+"/role", req(policy.ManageRoles, h.SetRole)).Methods(http.MethodPut)
	api.Handle("/members/"+idPattern+"/rank", req(policy.ManageRoles, h.SetRank)).Methods(http.MethodPut)

	// Contracts
	api.Handle("/contracts", req(policy.ManageContracts, h.ListContracts)).Methods(http.MethodGet)
	api.Handle("/contracts", req(policy.ManageContracts, h.CreateContract)).Methods(http.MethodPost)
	api.Handle("/contracts/"+idPattern, req(policy.ManageContracts, h.UpdateContract)).Methods(http.MethodPut)
	api.Handle("/contracts/"+idPattern+"/active", req(policy.ManageContracts, h.ToggleContract)).Methods(http.MethodPatch)

	// Settings
	api.Handle("/settings", req(policy.ManageSettings, h.GetSettings)).Methods(http.MethodGet)
	api.Handle("/settings", req(policy.ManageSettings, h.UpdateSettings)).Methods(http.MethodPut)

	// Exports
	api.Handle("/export/payouts", req(policy.ExportData, h.ExportPayouts)).Methods(http.MethodGet)
	api.Handle("/export/leaderboard", req(policy.ExportData, h.ExportLeaderboard)).Methods(http.MethodGet)
}
