package services

import (
	"context"
	"errors"
	"fmt"
	"math"

	"famportal/apperr"
	"famportal/models"

	"gorm.io/gorm"
)

type SettingsService struct {
	Deps
	audit *AuditService
}

// loadSettings reads the settings row through db (a transaction or the
// plain handle). A missing row yields the defaults.
func loadSettings(db *gorm.DB) (models.Setting, error) {
	var s models.Setting
	err := db.Order("id").First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Setting{
			UserSharePercent:   models.DefaultUserSharePercent,
			FamilySharePercent: models.DefaultFamilySharePercent,
		}, nil
	}
	if err != nil {
		return models.Setting{}, err
	}
	s.UserSharePercent, s.FamilySharePercent = s.SharePercents()
	return s, nil
}

func (s *SettingsService) Get(ctx context.Context) (models.Setting, error) {
	return loadSettings(s.DB.WithContext(ctx))
}

// SettingsInput carries a partial update; nil fields are left unchanged.
type SettingsInput struct {
	UserSharePercent   *float64 `json:"user_share_percent"`
	FamilySharePercent *float64 `json:"family_share_percent"`
	MinWithdrawal      *float64 `json:"min_withdrawal"`
	CooldownHours      *int     `json:"cooldown_hours"`
	AutoApprove        *bool    `json:"auto_approve"`
	ClosedRegister     *bool    `json:"closed_register"`
}

// Update applies in to the settings row. Each percentage must lie in
// [0,100] and their sum may not exceed 100; a sum below 100 is accepted
// and logged.
func (s *SettingsService) Update(ctx context.Context, actorID uint, in SettingsInput) (models.Setting, error) {
	var out models.Setting
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var cur models.Setting
		err := tx.Order("id").First(&cur).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// insert the defaults first: a zero field would take its column
			// default on insert, while Save on an existing row writes it as is
			cur = models.Setting{
				UserSharePercent:   models.DefaultUserSharePercent,
				FamilySharePercent: models.DefaultFamilySharePercent,
			}
			if err := tx.Create(&cur).Error; err != nil {
				return err
			}
		} else if err != nil {
			return err
		}

		if in.UserSharePercent != nil {
			cur.UserSharePercent = *in.UserSharePercent
		}
		if in.FamilySharePercent != nil {
			cur.FamilySharePercent = *in.FamilySharePercent
		}
		if in.MinWithdrawal != nil {
			cur.MinWithdrawal = *in.MinWithdrawal
		}
		if in.CooldownHours != nil {
			cur.CooldownHours = *in.CooldownHours
		}
		if in.AutoApprove != nil {
			cur.AutoApprove = *in.AutoApprove
		}
		if in.ClosedRegister != nil {
			cur.ClosedRegister = *in.ClosedRegister
		}

		if err := validateSettings(cur); err != nil {
			return err
		}
		if err := tx.Save(&cur).Error; err != nil {
			return err
		}
		out = cur
		return nil
	})
	if err != nil {
		return models.Setting{}, err
	}

	if sum := out.UserSharePercent + out.FamilySharePercent; sum < 100 {
		s.Logger.Warn("share percentages sum below 100", "user", out.UserSharePercent, "family", out.FamilySharePercent, "sum", sum)
	}
	s.audit.Record(ctx, AuditSettingsUpdated, actorID, nil,
		fmt.Sprintf("user=%.2f family=%.2f min=%.2f cooldown=%dh", out.UserSharePercent, out.FamilySharePercent, out.MinWithdrawal, out.CooldownHours))
	return out, nil
}

func validateSettings(s models.Setting) error {
	for name, v := range map[string]float64{
		"user_share_percent":   s.UserSharePercent,
		"family_share_percent": s.FamilySharePercent,
	} {
		if math.IsNaN(v) || v < 0 || v > 100 {
			return apperr.Validation(name + " must be between 0 and 100")
		}
	}
	if s.UserSharePercent+s.FamilySharePercent > 100 {
		return apperr.Validation("user and family share may not exceed 100% together")
	}
	if math.IsNaN(s.MinWithdrawal) || math.IsInf(s.MinWithdrawal, 0) || s.MinWithdrawal < 0 {
		return apperr.Validation("min_withdrawal must be zero or more")
	}
	if s.CooldownHours < 0 {
		return apperr.Validation("cooldown_hours must be zero or more")
	}
	return nil
}
