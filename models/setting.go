package models

import "time"

const (
	DefaultUserSharePercent   = 60
	DefaultFamilySharePercent = 40
)

// Setting is the single configuration row. Read it once per operation and
// pass it down; nothing caches it.
type Setting struct {
	ID                 uint      `gorm:"primaryKey" json:"id"`
	UserSharePercent   float64   `gorm:"type:decimal(5,2);default:60" json:"user_share_percent"`
	FamilySharePercent float64   `gorm:"type:decimal(5,2);default:40" json:"family_share_percent"`
	MinWithdrawal      float64   `gorm:"type:decimal(15,2);default:0" json:"min_withdrawal"`
	CooldownHours      int       `gorm:"default:0" json:"cooldown_hours"`
	AutoApprove        bool      `gorm:"default:false" json:"auto_approve"`
	ClosedRegister     bool      `gorm:"default:false" json:"closed_register"`
	UpdatedAt          time.Time `json:"updated_at"`
}

func (Setting) TableName() string {
	return "settings"
}

// SharePercents returns the configured split, falling back to 60/40 when
// the row was never configured.
func (s Setting) SharePercents() (user, family float64) {
	if s.UserSharePercent == 0 && s.FamilySharePercent == 0 {
		return DefaultUserSharePercent, DefaultFamilySharePercent
	}
	return s.UserSharePercent, s.FamilySharePercent
}
