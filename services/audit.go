package services

import (
	"context"

	"famportal/models"
)

const (
	AuditReportApproved  = "report.approve"
	AuditReportRejected  = "report.reject"
	AuditPayoutDecided   = "payout.decide"
	AuditSettingsUpdated = "settings.update"
	AuditMemberReviewed  = "member.review"
	AuditMemberRole      = "member.role"
	AuditMemberRank      = "member.rank"
	AuditMemberBan       = "member.ban"
	AuditContractSaved   = "contract.save"
	AuditContractToggled = "contract.toggle"
)

type AuditService struct {
	Deps
}

// Record writes an audit row. It runs after the audited change committed
// and never returns an error; failures are logged.
func (s *AuditService) Record(ctx context.Context, action string, actorID uint, targetID *uint, details string) {
	row := models.AuditLog{
		Action:   action,
		ActorID:  actorID,
		TargetID: targetID,
		Details:  details,
	}
	if err := s.DB.WithContext(context.WithoutCancel(ctx)).Create(&row).Error; err != nil {
		auditWriteFailures.Inc()
		s.Logger.Error("audit write failed", "action", action, "actor_id", actorID, "err", err)
	}
}

type AuditFilter struct {
	Action  string
	ActorID uint
	Page
}

func (s *AuditService) List(ctx context.Context, f AuditFilter) ([]models.AuditLog, int64, error) {
	q := s.DB.WithContext(ctx).Model(&models.AuditLog{})
	if f.Action != "" {
		q = q.Where("action = ?", f.Action)
	}
	if f.ActorID != 0 {
		q = q.Where("actor_id = ?", f.ActorID)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	offset, limit := f.normalize()
	var rows []models.AuditLog
	err := q.Order("created_at DESC, id DESC").Offset(offset).Limit(limit).Find(&rows).Error
	return rows, total, err
}

func ptr[T any](v T) *T { return &v }
