package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"famportal/apperr"
	"famportal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MaxActiveContracts caps how many ACTIVE assignments one user may hold.
const MaxActiveContracts = 3

type ContractService struct {
	Deps
	audit *AuditService
}

// Take creates an ACTIVE assignment of contractID for userID.
func (s *ContractService) Take(ctx context.Context, userID, contractID uint) (*models.UserContract, error) {
	if userID == 0 {
		return nil, apperr.Unauthorized("login required")
	}
	var uc models.UserContract
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := lockUser(tx, userID); err != nil {
			return err
		}

		var contract models.Contract
		err := tx.Where("id = ? AND is_active = ?", contractID, true).First(&contract).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("contract not found")
		}
		if err != nil {
			return err
		}

		var active []models.UserContract
		if err := tx.Where("user_id = ? AND status = ?", userID, models.AssignmentActive).Find(&active).Error; err != nil {
			return err
		}
		for _, a := range active {
			if a.ContractID == contractID {
				return apperr.Conflict("you already have this contract in progress")
			}
		}
		if len(active) >= MaxActiveContracts {
			return apperr.Conflict(fmt.Sprintf("you can hold at most %d active contracts", MaxActiveContracts))
		}

		uc = models.UserContract{
			UserID:     userID,
			ContractID: contractID,
			Status:     models.AssignmentActive,
			StartedAt:  s.now(),
		}
		if err := tx.Create(&uc).Error; err != nil {
			return err
		}
		uc.Contract = &contract
		return nil
	})
	if err != nil {
		return nil, err
	}
	contractsTaken.Inc()
	return &uc, nil
}

// Cancel withdraws the caller from an ACTIVE assignment. It is refused
// while a PENDING report references the assignment.
func (s *ContractService) Cancel(ctx context.Context, userContractID, userID uint) (*models.UserContract, error) {
	if userID == 0 {
		return nil, apperr.Unauthorized("login required")
	}
	var uc models.UserContract
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ? AND user_id = ?", userContractID, userID).
			First(&uc).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("contract assignment not found")
		}
		if err != nil {
			return err
		}
		if uc.Status != models.AssignmentActive {
			return apperr.Conflict("only active contracts can be cancelled")
		}

		var pending int64
		if err := tx.Model(&models.Report{}).
			Where("user_contract_id = ? AND status = ?", uc.ID, models.ReportPending).
			Count(&pending).Error; err != nil {
			return err
		}
		if pending > 0 {
			return apperr.Conflict("resolve pending report first")
		}

		now := s.now()
		uc.Status = models.AssignmentCancelled
		uc.CompletedAt = &now
		return tx.Model(&uc).Updates(map[string]interface{}{
			"status":       uc.Status,
			"completed_at": now,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return &uc, nil
}

// ListAssignments returns the user's assignments, newest first. An empty
// status returns all of them.
func (s *ContractService) ListAssignments(ctx context.Context, userID uint, status string) ([]models.UserContract, error) {
	q := s.DB.WithContext(ctx).Preload("Contract").Where("user_id = ?", userID)
	if status != "" {
		q = q.Where("status = ?", strings.ToUpper(status))
	}
	var out []models.UserContract
	err := q.Order("started_at DESC, id DESC").Find(&out).Error
	return out, err
}

// ListContracts returns the catalogue. Members only see active contracts.
func (s *ContractService) ListContracts(ctx context.Context, includeInactive bool) ([]models.Contract, error) {
	q := s.DB.WithContext(ctx)
	if !includeInactive {
		q = q.Where("is_active = ?", true)
	}
	var out []models.Contract
	err := q.Order("level ASC, id ASC").Find(&out).Error
	return out, err
}

type ContractInput struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Level       int     `json:"level"`
	Reward      float64 `json:"reward"`
	Reputation  int     `json:"reputation"`
	IsActive    *bool   `json:"is_active"`
}

func (in *ContractInput) validate() error {
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return apperr.Validation("title is required")
	}
	if math.IsNaN(in.Reward) || math.IsInf(in.Reward, 0) || in.Reward < 0 {
		return apperr.Validation("reward must be zero or more")
	}
	if in.Level < 0 {
		return apperr.Validation("level must be zero or more")
	}
	if in.Reputation < 0 {
		return apperr.Validation("reputation must be zero or more")
	}
	return nil
}

// Save creates a contract when id is 0 and updates it otherwise.
func (s *ContractService) Save(ctx context.Context, actorID, id uint, in ContractInput) (*models.Contract, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	var c models.Contract
	db := s.DB.WithContext(ctx)
	if id != 0 {
		err := db.First(&c, id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("contract not found")
		}
		if err != nil {
			return nil, err
		}
	} else {
		c.IsActive = true
	}
	c.Title = in.Title
	c.Description = strings.TrimSpace(in.Description)
	c.Level = in.Level
	c.Reward = in.Reward
	c.Reputation = in.Reputation
	if in.IsActive != nil {
		c.IsActive = *in.IsActive
	}
	if err := db.Save(&c).Error; err != nil {
		return nil, err
	}
	if id == 0 && !c.IsActive {
		// zero values are skipped on insert, so the column default applied
		if err := db.Model(&c).Update("is_active", false).Error; err != nil {
			return nil, err
		}
	}
	s.audit.Record(ctx, AuditContractSaved, actorID, ptr(c.ID), c.Title)
	return &c, nil
}

// SetActive toggles whether members can take the contract. Existing
// assignments are not touched.
func (s *ContractService) SetActive(ctx context.Context, actorID, id uint, active bool) (*models.Contract, error) {
	var c models.Contract
	db := s.DB.WithContext(ctx)
	err := db.First(&c, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("contract not found")
	}
	if err != nil {
		return nil, err
	}
	if err := db.Model(&c).Update("is_active", active).Error; err != nil {
		return nil, err
	}
	c.IsActive = active
	s.audit.Record(ctx, AuditContractToggled, actorID, ptr(c.ID), fmt.Sprintf("active=%t", active))
	return &c, nil
}
