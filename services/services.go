// Package services holds the portal's workflow logic: contract assignments,
// report review and reward splitting, balances, payouts and settings.
package services

import (
	"errors"
	"log/slog"
	"time"

	"famportal/apperr"
	"famportal/models"
	"famportal/notify"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Deps is shared by every service.
type Deps struct {
	DB       *gorm.DB
	Notifier notify.Notifier
	Logger   *slog.Logger
	// Redis is optional; without it throttles are kept in process.
	Redis    redis.UniversalClient
	// Now and Location are overridable in tests.
	Now      func() time.Time
	Location *time.Location
}

func (d Deps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

func (d Deps) loc() *time.Location {
	if d.Location != nil {
		return d.Location
	}
	return time.UTC
}

func (d Deps) notify(msg notify.Message) {
	if d.Notifier != nil {
		d.Notifier.Dispatch(msg)
	}
}

type Services struct {
	Audit     *AuditService
	Settings  *SettingsService
	Contracts *ContractService
	Reports   *ReportService
	Ledger    *LedgerService
	Payouts   *PayoutService
	Members   *MemberService
	Export    *ExportService
}

func New(d Deps) *Services {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Notifier == nil {
		d.Notifier = notify.Nop{}
	}
	audit := &AuditService{Deps: d}
	settings := &SettingsService{Deps: d, audit: audit}
	ledger := &LedgerService{Deps: d}
	payouts := &PayoutService{Deps: d, audit: audit}
	return &Services{
		Audit:     audit,
		Settings:  settings,
		Contracts: &ContractService{Deps: d, audit: audit},
		Reports:   &ReportService{Deps: d, audit: audit},
		Ledger:    ledger,
		Payouts:   payouts,
		Members:   newMemberService(d, audit),
		Export:    &ExportService{Deps: d, ledger: ledger, payouts: payouts},
	}
}

// lockUser takes a row lock on the user for the rest of tx. Used to
// serialize per-user checks such as the active contract cap.
func lockUser(tx *gorm.DB, userID uint) (*models.User, error) {
	var u models.User
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&u, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("user not found")
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Page is the common page/limit pair used by list endpoints.
type Page struct {
	Page  int
	Limit int
}

func (p Page) normalize() (offset, limit int) {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = 20
	}
	if p.Limit > 100 {
		p.Limit = 100
	}
	return (p.Page - 1) * p.Limit, p.Limit
}

// Bounds returns the page and limit after defaults and caps are applied.
func (p Page) Bounds() (page, limit int) {
	offset, limit := p.normalize()
	return offset/limit + 1, limit
}
