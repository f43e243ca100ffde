package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"famportal/apperr"
	"famportal/models"
	"famportal/notify"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	PayoutActionApprove = "approve"
	PayoutActionReject  = "reject"
)

type PayoutService struct {
	Deps
	audit *AuditService
}

// Request creates a PENDING payout for userID. The user row is locked so
// the balance and cooldown checks cannot interleave with a second request.
func (s *PayoutService) Request(ctx context.Context, userID uint, amount float64) (*models.PayoutRequest, error) {
	if userID == 0 {
		return nil, apperr.Unauthorized("login required")
	}
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount <= 0 {
		return nil, apperr.Validation("amount must be greater than zero")
	}

	var (
		p    models.PayoutRequest
		user *models.User
	)
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if user, err = lockUser(tx, userID); err != nil {
			return err
		}
		settings, err := loadSettings(tx)
		if err != nil {
			return err
		}
		if amount < settings.MinWithdrawal {
			return apperr.Validation(fmt.Sprintf("minimum withdrawal is %.2f", settings.MinWithdrawal))
		}

		if settings.CooldownHours > 0 {
			since := s.now().Add(-time.Duration(settings.CooldownHours) * time.Hour)
			var recent int64
			if err := tx.Model(&models.PayoutRequest{}).
				Where("user_id = ? AND status <> ? AND created_at > ?", userID, models.PayoutRejected, since).
				Count(&recent).Error; err != nil {
				return err
			}
			if recent > 0 {
				return apperr.Conflict(fmt.Sprintf("only one payout request per %d hours", settings.CooldownHours))
			}
		}

		bal, err := balanceOf(tx, userID)
		if err != nil {
			return err
		}
		if amount > bal.Available {
			return apperr.Validation("insufficient balance")
		}

		p = models.PayoutRequest{
			UserID:    userID,
			Amount:    amount,
			Status:    models.PayoutPending,
			CreatedAt: s.now(),
		}
		return tx.Create(&p).Error
	})
	if err != nil {
		return nil, err
	}

	payoutsRequested.Inc()
	s.notify(notify.Message{
		Event: notify.EventPayoutRequested,
		Title: "New payout request",
		Fields: map[string]string{
			"payout_id": strconv.FormatUint(uint64(p.ID), 10),
			"member":    user.Name + " (" + user.StaticID + ")",
			"amount":    strconv.FormatFloat(amount, 'f', 2, 64),
		},
	})
	return &p, nil
}

// Decide marks a PENDING payout PAID (approve) or REJECTED (reject).
func (s *PayoutService) Decide(ctx context.Context, payoutID uint, action string, adminID uint, note string) (*models.PayoutRequest, error) {
	if adminID == 0 {
		return nil, apperr.Unauthorized("login required")
	}
	var status string
	switch strings.ToLower(strings.TrimSpace(action)) {
	case PayoutActionApprove:
		status = models.PayoutPaid
	case PayoutActionReject:
		status = models.PayoutRejected
	default:
		return nil, apperr.Validation("action must be approve or reject")
	}
	note = strings.TrimSpace(note)

	var p models.PayoutRequest
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&p, payoutID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("payout request not found")
		}
		if err != nil {
			return err
		}
		if p.Status != models.PayoutPending {
			return apperr.Conflict("payout request has already been processed")
		}
		now := s.now()
		res := tx.Model(&models.PayoutRequest{}).
			Where("id = ? AND status = ?", payoutID, models.PayoutPending).
			Updates(map[string]interface{}{
				"status":       status,
				"note":         note,
				"processed_by": adminID,
				"processed_at": now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != 1 {
			return apperr.Conflict("payout request has already been processed")
		}
		p.Status = status
		p.Note = note
		p.ProcessedBy = ptr(adminID)
		p.ProcessedAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}

	outcome := "paid"
	if status == models.PayoutRejected {
		outcome = "rejected"
	}
	payoutsDecided.WithLabelValues(outcome).Inc()
	s.audit.Record(ctx, AuditPayoutDecided, adminID, ptr(p.ID),
		fmt.Sprintf("status=%s amount=%.2f user_id=%d", status, p.Amount, p.UserID))
	s.notify(notify.Message{
		Event: notify.EventPayoutDecided,
		Title: "Payout " + outcome,
		Text:  note,
		Fields: map[string]string{
			"payout_id": strconv.FormatUint(uint64(p.ID), 10),
			"user_id":   strconv.FormatUint(uint64(p.UserID), 10),
			"amount":    strconv.FormatFloat(p.Amount, 'f', 2, 64),
		},
	})
	return &p, nil
}

type PayoutFilter struct {
	Status string
	UserID uint
	Page
}

func (s *PayoutService) List(ctx context.Context, f PayoutFilter) ([]models.PayoutRequest, int64, error) {
	q := s.DB.WithContext(ctx).Model(&models.PayoutRequest{})
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
	var out []models.PayoutRequest
	err := q.Preload("User").Order("created_at DESC, id DESC").Offset(offset).Limit(limit).Find(&out).Error
	return out, total, err
}

// all returns every payout matching f without paging, for exports.
func (s *PayoutService) all(ctx context.Context, f PayoutFilter) ([]models.PayoutRequest, error) {
	q := s.DB.WithContext(ctx).Preload("User")
	if f.Status != "" {
		q = q.Where("status = ?", strings.ToUpper(f.Status))
	}
	var out []models.PayoutRequest
	err := q.Order("created_at DESC, id DESC").Find(&out).Error
	return out, err
}
