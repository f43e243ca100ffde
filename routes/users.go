package routes

import (
	"net/http"

	"famportal/controllers/users"
	"famportal/middleware"
	"famportal/policy"

	"github.com/gorilla/mux"
)

const idPattern = "{id:[0-9]+}"

// UserRoutes registers the member endpoints on an authenticated router.
func UserRoutes(api *mux.Router, h *users.Handler) {
	req := middleware.RequireFunc

	// Profile
	api.Handle("/users/me", req(policy.ViewProfile, h.Profile)).Methods(http.MethodGet)
	api.Handle("/users/me", req(policy.UpdateProfile, h.UpdateProfile)).Methods(http.MethodPut)
	api.Handle("/users/me/password", req(policy.UpdateProfile, h.ChangePassword)).Methods(http.MethodPut)

	// Contracts and assignments
	api.Handle("/contracts", req(policy.ListContracts, h.ListContracts)).Methods(http.MethodGet)
	api.Handle("/contracts/"+idPattern+"/take", req(policy.TakeContract, h.TakeContract)).Methods(http.MethodPost)
	api.Handle("/assignments", req(policy.ListContracts, h.ListAssignments)).Methods(http.MethodGet)
	api.Handle("/assignments/"+idPattern+"/cancel", req(policy.CancelContract, h.CancelAssignment)).Methods(http.MethodPost)

	// Reports
	api.Handle("/reports", req(policy.SubmitReport, h.SubmitReport)).Methods(http.MethodPost)
	api.Handle("/reports", req(policy.SubmitReport, h.ListReports)).Methods(http.MethodGet)
	api.Handle("/reports/"+idPattern, req(policy.SubmitReport, h.GetReport)).Methods(http.MethodGet)
	api.Handle("/reports/"+idPattern+"/participants", req(policy.EditOwnReport, h.AddParticipant)).Methods(http.MethodPost)
	api.Handle("/reports/"+idPattern+"/participants/{user_id:[0-9]+}", req(policy.EditOwnReport, h.RemoveParticipant)).Methods(http.MethodDelete)

	// Ledger
	api.Handle("/balance", req(policy.ViewLedger, h.Balance)).Methods(http.MethodGet)
	api.Handle("/leaderboard", req(policy.ViewLedger, h.Leaderboard)).Methods(http.MethodGet)

	// Payouts
	api.Handle("/payouts", req(policy.RequestPayout, h.RequestPayout)).Methods(http.MethodPost)
	api.Handle("/payouts", req(policy.RequestPayout, h.ListPayouts)).Methods(http.MethodGet)
}

// UploadRoutes registers the proof upload endpoint; its router carries a
// larger body limit.
func UploadRoutes(api *mux.Router, h *users.Handler) {
	api.Handle("/proof", middleware.RequireFunc(policy.UploadProof, h.UploadProof)).Methods(http.MethodPost)
}
