package services

import (
	"context"
	"time"

	"famportal/apperr"
	"famportal/models"

	"gorm.io/gorm"
)

// LeaderboardSize is how many rows Leaderboard returns.
const LeaderboardSize = 10

const (
	PeriodAll   = "all"
	PeriodMonth = "month"

	MetricFarm     = "farm"
	MetricActivity = "activity"
)

// LedgerService derives balances and rankings. Nothing here is stored:
// every figure is recomputed from reports and payout requests.
type LedgerService struct {
	Deps
}

type Balance struct {
	Earned    float64 `json:"earned"`
	Withdrawn float64 `json:"withdrawn"`
	Pending   float64 `json:"pending"`
	Available float64 `json:"available"`
}

// AvailableBalance returns what userID may still request. Available is
// not clamped, so it can go negative if earlier payouts outran earnings.
func (s *LedgerService) AvailableBalance(ctx context.Context, userID uint) (Balance, error) {
	return balanceOf(s.DB.WithContext(ctx), userID)
}

func balanceOf(db *gorm.DB, userID uint) (Balance, error) {
	var b Balance
	err := db.Model(&models.ReportParticipant{}).
		Joins("JOIN reports ON reports.id = report_participants.report_id").
		Where("report_participants.user_id = ? AND reports.status = ?", userID, models.ReportApproved).
		Select("COALESCE(SUM(report_participants.share), 0)").
		Scan(&b.Earned).Error
	if err != nil {
		return Balance{}, err
	}

	var sums []struct {
		Status string
		Total  float64
	}
	err = db.Model(&models.PayoutRequest{}).
		Select("status, COALESCE(SUM(amount), 0) AS total").
		Where("user_id = ? AND status <> ?", userID, models.PayoutRejected).
		Group("status").
		Scan(&sums).Error
	if err != nil {
		return Balance{}, err
	}
	for _, row := range sums {
		switch row.Status {
		case models.PayoutPaid:
			b.Withdrawn += row.Total
		default:
			b.Pending += row.Total
		}
	}
	b.Available = b.Earned - b.Withdrawn - b.Pending
	return b, nil
}

type LeaderboardEntry struct {
	UserID   uint    `json:"user_id"`
	Name     string  `json:"name"`
	StaticID string  `json:"static_id"`
	Total    float64 `json:"total"`
	Reports  int64   `json:"reports"`
}

// Leaderboard ranks submitters of APPROVED reports. metric "farm" orders
// by summed user pool, "activity" by report count. Ties keep query order.
func (s *LedgerService) Leaderboard(ctx context.Context, period, metric string) ([]LeaderboardEntry, error) {
	var order string
	switch metric {
	case MetricFarm:
		order = "total DESC"
	case MetricActivity:
		order = "reports DESC"
	default:
		return nil, apperr.Validation("metric must be farm or activity")
	}

	q := s.DB.WithContext(ctx).Model(&models.Report{}).
		Select("reports.user_id AS user_id, users.name AS name, users.static_id AS static_id, " +
			"COALESCE(SUM(reports.user_share), 0) AS total, COUNT(reports.id) AS reports").
		Joins("JOIN users ON users.id = reports.user_id").
		Where("reports.status = ?", models.ReportApproved)

	switch period {
	case PeriodAll:
	case PeriodMonth:
		q = q.Where("reports.created_at >= ?", s.monthStart())
	default:
		return nil, apperr.Validation("period must be all or month")
	}

	var out []LeaderboardEntry
	err := q.Group("reports.user_id, users.name, users.static_id").
		Order(order).
		Limit(LeaderboardSize).
		Scan(&out).Error
	return out, err
}

// monthStart is the first instant of the current month in the configured
// zone.
func (d Deps) monthStart() time.Time {
	now := d.now().In(d.loc())
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, d.loc())
}

type Dashboard struct {
	PendingReports    int64            `json:"pending_reports"`
	PendingPayouts    int64            `json:"pending_payouts"`
	PendingPayoutSum  float64          `json:"pending_payout_sum"`
	ActiveAssignments int64            `json:"active_assignments"`
	FamilyShareTotal  float64          `json:"family_share_total"`
	PaidOutTotal      float64          `json:"paid_out_total"`
	MembersByStatus   map[string]int64 `json:"members_by_status"`
}

func (s *LedgerService) Dashboard(ctx context.Context) (*Dashboard, error) {
	db := s.DB.WithContext(ctx)
	d := &Dashboard{MembersByStatus: map[string]int64{}}

	if err := db.Model(&models.Report{}).Where("status = ?", models.ReportPending).Count(&d.PendingReports).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.PayoutRequest{}).Where("status = ?", models.PayoutPending).Count(&d.PendingPayouts).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.PayoutRequest{}).Where("status = ?", models.PayoutPending).
		Select("COALESCE(SUM(amount), 0)").Scan(&d.PendingPayoutSum).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.UserContract{}).Where("status = ?", models.AssignmentActive).Count(&d.ActiveAssignments).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.Report{}).Where("status = ?", models.ReportApproved).
		Select("COALESCE(SUM(family_share), 0)").Scan(&d.FamilyShareTotal).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.PayoutRequest{}).Where("status = ?", models.PayoutPaid).
		Select("COALESCE(SUM(amount), 0)").Scan(&d.PaidOutTotal).Error; err != nil {
		return nil, err
	}

	var rows []struct {
		Status string
		N      int64
	}
	if err := db.Model(&models.User{}).Select("status, COUNT(*) AS n").Group("status").Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, r := range rows {
		d.MembersByStatus[r.Status] = r.N
	}
	return d, nil
}
