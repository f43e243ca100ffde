// Package policy decides which principals may run which operations.
package policy

import (
	"famportal/apperr"
	"famportal/models"
)

// Principal is the authenticated caller as resolved for one request.
type Principal struct {
	ID     uint
	Role   string
	Status string
	Rank   int
}

type Capability string

const (
	ViewProfile     Capability = "profile.view"
	UpdateProfile   Capability = "profile.update"
	ListContracts   Capability = "contracts.list"
	TakeContract    Capability = "contracts.take"
	CancelContract  Capability = "contracts.cancel"
	SubmitReport    Capability = "reports.submit"
	EditOwnReport   Capability = "reports.participants"
	ViewLedger      Capability = "ledger.view"
	RequestPayout   Capability = "payouts.request"
	UploadProof     Capability = "uploads.proof"
	ReviewReports   Capability = "reports.review"
	DecideReport    Capability = "reports.decide"
	DecidePayout    Capability = "payouts.decide"
	ReviewMembers   Capability = "members.review"
	ManageContracts Capability = "contracts.manage"
	ManageSettings  Capability = "settings.manage"
	ManageRoles     Capability = "members.roles"
	ViewAudit       Capability = "audit.view"
	ExportData      Capability = "export"
	ViewDashboard   Capability = "dashboard.view"
)

type rule struct {
	roles []string
	// inactive principals (PENDING, REJECTED) may still use it
	allowInactive bool
}

var (
	everyone = []string{models.RoleMember, models.RoleModerator, models.RoleAdmin}
	staff    = []string{models.RoleModerator, models.RoleAdmin}
	admins   = []string{models.RoleAdmin}
)

var table = map[Capability]rule{
	ViewProfile:   {roles: everyone, allowInactive: true},
	UpdateProfile: {roles: everyone, allowInactive: true},

	ListContracts:  {roles: everyone},
	TakeContract:   {roles: everyone},
	CancelContract: {roles: everyone},
	SubmitReport:   {roles: everyone},
	EditOwnReport:  {roles: everyone},
	ViewLedger:     {roles: everyone},
	RequestPayout:  {roles: everyone},
	UploadProof:    {roles: everyone},

	ReviewReports: {roles: staff},
	DecideReport:  {roles: staff},
	DecidePayout:  {roles: staff},
	ReviewMembers: {roles: staff},
	ViewDashboard: {roles: staff},

	ManageContracts: {roles: admins},
	ManageSettings:  {roles: admins},
	ManageRoles:     {roles: admins},
	ViewAudit:       {roles: admins},
	ExportData:      {roles: admins},
}

// Check returns nil when p may perform c.
func Check(p *Principal, c Capability) error {
	if p == nil || p.ID == 0 {
		return apperr.Unauthorized("login required")
	}
	r, ok := table[c]
	if !ok {
		return apperr.Forbidden("operation not permitted")
	}
	switch p.Status {
	case models.UserActive:
	case models.UserBanned:
		return apperr.Forbidden("account banned")
	case models.UserPending:
		if !r.allowInactive {
			return apperr.Forbidden("your application is still under review")
		}
	default:
		if !r.allowInactive {
			return apperr.Forbidden("account is not active")
		}
	}
	for _, role := range r.roles {
		if role == p.Role {
			return nil
		}
	}
	return apperr.Forbidden("insufficient role")
}

// Allows is Check as a bool.
func Allows(p *Principal, c Capability) bool {
	return Check(p, c) == nil
}

func (p *Principal) IsStaff() bool {
	return p != nil && (p.Role == models.RoleAdmin || p.Role == models.RoleModerator)
}
