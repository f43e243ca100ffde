package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"famportal/apperr"
	"famportal/models"
	"famportal/notify"
	"famportal/policy"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ReportService struct {
	Deps
	audit *AuditService
}

type SubmitReportInput struct {
	UserID         uint
	UserContractID uint
	ItemName       string
	Quantity       int
	Proof          string
	Comment        string
	ParticipantIDs []uint
}

func (in *SubmitReportInput) validate() error {
	if in.UserID == 0 {
		return apperr.Unauthorized("login required")
	}
	in.ItemName = strings.TrimSpace(in.ItemName)
	in.Proof = strings.TrimSpace(in.Proof)
	in.Comment = strings.TrimSpace(in.Comment)
	switch {
	case in.ItemName == "":
		return apperr.Validation("item_name is required")
	case in.Quantity <= 0:
		return apperr.Validation("quantity must be greater than zero")
	case in.Proof == "":
		return apperr.Validation("proof is required")
	case in.UserContractID == 0:
		return apperr.Validation("user_contract_id is required")
	}
	return nil
}

// participantSet de-duplicates ids, drops zeros and puts the submitter first.
func participantSet(submitter uint, ids []uint) []uint {
	out := []uint{submitter}
	seen := map[uint]bool{submitter: true}
	for _, id := range ids {
		if id == 0 || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// Submit files a PENDING report against an ACTIVE assignment owned by the
// submitter. The submitter is always a participant exactly once.
func (s *ReportService) Submit(ctx context.Context, in SubmitReportInput) (*models.Report, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	ids := participantSet(in.UserID, in.ParticipantIDs)

	var report models.Report
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var uc models.UserContract
		err := tx.Where("id = ? AND user_id = ? AND status = ?", in.UserContractID, in.UserID, models.AssignmentActive).
			First(&uc).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("active contract assignment not found")
		}
		if err != nil {
			return err
		}

		var found int64
		if err := tx.Model(&models.User{}).Where("id IN ? AND status = ?", ids, models.UserActive).Count(&found).Error; err != nil {
			return err
		}
		if int(found) != len(ids) {
			return apperr.Validation("participants must be active members")
		}

		report = models.Report{
			UserID:         in.UserID,
			UserContractID: uc.ID,
			ItemName:       in.ItemName,
			Quantity:       in.Quantity,
			Proof:          in.Proof,
			Comment:        in.Comment,
			Status:         models.ReportPending,
		}
		if err := tx.Create(&report).Error; err != nil {
			return err
		}
		rows := make([]models.ReportParticipant, 0, len(ids))
		for _, id := range ids {
			rows = append(rows, models.ReportParticipant{ReportID: report.ID, UserID: id})
		}
		if err := tx.Create(&rows).Error; err != nil {
			return err
		}
		report.Participants = rows
		return nil
	})
	if err != nil {
		return nil, err
	}

	reportsSubmitted.Inc()
	s.notify(notify.Message{
		Event: notify.EventReportSubmitted,
		Title: "New report awaiting review",
		Fields: map[string]string{
			"report_id":    strconv.FormatUint(uint64(report.ID), 10),
			"submitter_id": strconv.FormatUint(uint64(report.UserID), 10),
			"item":         fmt.Sprintf("%s x%d", report.ItemName, report.Quantity),
			"participants": strconv.Itoa(len(ids)),
		},
	})
	return &report, nil
}

// lockReport loads a report for update and applies the visibility rule:
// members only see their own reports.
func lockReport(tx *gorm.DB, reportID uint, actor *policy.Principal) (*models.Report, error) {
	var r models.Report
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&r, reportID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("report not found")
	}
	if err != nil {
		return nil, err
	}
	if actor != nil && !actor.IsStaff() && r.UserID != actor.ID {
		return nil, apperr.NotFound("report not found")
	}
	return &r, nil
}

// AddParticipant credits userID on a PENDING report.
func (s *ReportService) AddParticipant(ctx context.Context, reportID uint, actor *policy.Principal, userID uint) (*models.ReportParticipant, error) {
	if actor == nil || actor.ID == 0 {
		return nil, apperr.Unauthorized("login required")
	}
	if userID == 0 {
		return nil, apperr.Validation("user_id is required")
	}
	var row models.ReportParticipant
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r, err := lockReport(tx, reportID, actor)
		if err != nil {
			return err
		}
		if r.Status != models.ReportPending {
			return apperr.Conflict("participants can only change while the report is pending")
		}
		var u models.User
		if err := tx.Select("id", "status").First(&u, userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.Validation("participant does not exist")
			}
			return err
		}
		if u.Status != models.UserActive {
			return apperr.Validation("participants must be active members")
		}
		var n int64
		if err := tx.Model(&models.ReportParticipant{}).Where("report_id = ? AND user_id = ?", reportID, userID).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return apperr.Conflict("user is already a participant")
		}
		row = models.ReportParticipant{ReportID: reportID, UserID: userID}
		if err := tx.Create(&row).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return apperr.Conflict("user is already a participant")
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// RemoveParticipant drops userID from a PENDING report.
func (s *ReportService) RemoveParticipant(ctx context.Context, reportID uint, actor *policy.Principal, userID uint) error {
	if actor == nil || actor.ID == 0 {
		return apperr.Unauthorized("login required")
	}
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r, err := lockReport(tx, reportID, actor)
		if err != nil {
			return err
		}
		if r.Status != models.ReportPending {
			return apperr.Conflict("participants can only change while the report is pending")
		}
		res := tx.Where("report_id = ? AND user_id = ?", reportID, userID).Delete(&models.ReportParticipant{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.NotFound("participant not found")
		}
		return nil
	})
}

// Get returns a report with its participants. Members only see their own.
func (s *ReportService) Get(ctx context.Context, reportID uint, actor *policy.Principal) (*models.Report, error) {
	var r models.Report
	err := s.DB.WithContext(ctx).
		Preload("Participants", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Preload("Participants.User").
		Preload("UserContract.Contract").
		First(&r, reportID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("report not found")
	}
	if err != nil {
		return nil, err
	}
	if actor != nil && !actor.IsStaff() && r.UserID != actor.ID {
		return nil, apperr.NotFound("report not found")
	}
	return &r, nil
}

type ReportFilter struct {
	Status string
	UserID uint
	Page
}

func (s *ReportService) List(ctx context.Context, f ReportFilter) ([]models.Report, int64, error) {
	q := s.DB.WithContext(ctx).Model(&models.Report{})
	if f.Status != "" {
		q = q.Where("status = ?", strings.ToUpper(f.Status))
	}
	if f.UserID != 0 {
		q = q.Where("user_id = ?", f.UserID)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	offset, limit := f.normalize()
	var out []models.Report
	err := q.Preload("Participants").Preload("User").
		Order("created_at DESC, id DESC").Offset(offset).Limit(limit).Find(&out).Error
	return out, total, err
}

// Split is the outcome of dividing a report value.
type Split struct {
	TotalUserShare  float64
	FamilyShare     float64
	IndividualShare float64
}

// SplitValue divides value by the configured percentages and then equally
// across n participants. No rounding is applied.
func SplitValue(value, userPercent, familyPercent float64, n int) Split {
	totalUser := value * userPercent / 100
	sp := Split{
		TotalUserShare: totalUser,
		FamilyShare:    value * familyPercent / 100,
	}
	if n > 0 {
		sp.IndividualShare = totalUser / float64(n)
	}
	return sp
}

// Approve decides a PENDING report: every participant receives an equal
// part of the user pool, the report records the split and its assignment
// is completed. All writes share one transaction.
func (s *ReportService) Approve(ctx context.Context, reportID uint, value float64, verifierID uint) (*models.Report, error) {
	if verifierID == 0 {
		return nil, apperr.Unauthorized("login required")
	}
	if math.IsNaN(value) || math.IsInf(value, 0) || value < 0 {
		return nil, apperr.Validation("value must be a number zero or greater")
	}

	var (
		report       models.Report
		participants []models.ReportParticipant
		split        Split
	)
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r, err := lockReport(tx, reportID, nil)
		if err != nil {
			return err
		}
		report = *r
		if report.Status != models.ReportPending {
			return apperr.Conflict("report has already been decided")
		}

		if err := tx.Where("report_id = ?", reportID).Order("id").Find(&participants).Error; err != nil {
			return err
		}
		if len(participants) == 0 {
			return apperr.Conflict("add a participant first")
		}

		settings, err := loadSettings(tx)
		if err != nil {
			return err
		}
		userPct, familyPct := settings.SharePercents()
		split = SplitValue(value, userPct, familyPct, len(participants))

		if err := tx.Model(&models.ReportParticipant{}).
			Where("report_id = ?", reportID).
			Update("share", split.IndividualShare).Error; err != nil {
			return err
		}

		now := s.now()
		res := tx.Model(&models.Report{}).
			Where("id = ? AND status = ?", reportID, models.ReportPending).
			Updates(map[string]interface{}{
				"status":       models.ReportApproved,
				"value":        value,
				"user_share":   split.TotalUserShare,
				"family_share": split.FamilyShare,
				"verifier_id":  verifierID,
				"decided_at":   now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != 1 {
			return apperr.Conflict("report has already been decided")
		}

		if err := tx.Model(&models.UserContract{}).
			Where("id = ? AND status = ?", report.UserContractID, models.AssignmentActive).
			Updates(map[string]interface{}{
				"status":       models.AssignmentCompleted,
				"completed_at": now,
			}).Error; err != nil {
			return err
		}

		report.Status = models.ReportApproved
		report.Value = value
		report.UserShare = split.TotalUserShare
		report.FamilyShare = split.FamilyShare
		report.VerifierID = ptr(verifierID)
		report.DecidedAt = &now
		for i := range participants {
			participants[i].Share = split.IndividualShare
		}
		report.Participants = participants
		return nil
	})
	if err != nil {
		return nil, err
	}

	reportsDecided.WithLabelValues("approved").Inc()
	s.audit.Record(ctx, AuditReportApproved, verifierID, ptr(report.ID),
		fmt.Sprintf("value=%.2f user_share=%.2f family_share=%.2f participants=%d", value, split.TotalUserShare, split.FamilyShare, len(participants)))
	s.notify(notify.Message{
		Event: notify.EventReportApproved,
		Title: "Report approved",
		Fields: map[string]string{
			"report_id":        strconv.FormatUint(uint64(report.ID), 10),
			"value":            strconv.FormatFloat(value, 'f', 2, 64),
			"family_share":     strconv.FormatFloat(split.FamilyShare, 'f', 2, 64),
			"individual_share": strconv.FormatFloat(split.IndividualShare, 'f', 2, 64),
			"participants":     participantList(participants),
		},
	})
	return &report, nil
}

// Reject decides a PENDING report as rejected. Shares stay at zero and the
// assignment stays ACTIVE so the member can report again.
func (s *ReportService) Reject(ctx context.Context, reportID uint, reason string, verifierID uint) (*models.Report, error) {
	if verifierID == 0 {
		return nil, apperr.Unauthorized("login required")
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, apperr.Validation("rejection reason is required")
	}

	var report models.Report
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r, err := lockReport(tx, reportID, nil)
		if err != nil {
			return err
		}
		report = *r
		if report.Status != models.ReportPending {
			return apperr.Conflict("report has already been decided")
		}
		now := s.now()
		res := tx.Model(&models.Report{}).
			Where("id = ? AND status = ?", reportID, models.ReportPending).
			Updates(map[string]interface{}{
				"status":           models.ReportRejected,
				"rejection_reason": reason,
				"verifier_id":      verifierID,
				"decided_at":       now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != 1 {
			return apperr.Conflict("report has already been decided")
		}
		report.Status = models.ReportRejected
		report.RejectionReason = reason
		report.VerifierID = ptr(verifierID)
		report.DecidedAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}

	reportsDecided.WithLabelValues("rejected").Inc()
	s.audit.Record(ctx, AuditReportRejected, verifierID, ptr(report.ID), reason)
	s.notify(notify.Message{
		Event: notify.EventReportRejected,
		Title: "Report rejected",
		Text:  reason,
		Fields: map[string]string{
			"report_id":    strconv.FormatUint(uint64(report.ID), 10),
			"submitter_id": strconv.FormatUint(uint64(report.UserID), 10),
		},
	})
	return &report, nil
}

func participantList(rows []models.ReportParticipant) string {
	ids := make([]int, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, int(r.UserID))
	}
	sort.Ints(ids)
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	return strings.Join(parts, ",")
}
