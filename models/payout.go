package models

import "time"

const (
	PayoutPending  = "PENDING"
	PayoutPaid     = "PAID"
	PayoutRejected = "REJECTED"
)

type PayoutRequest struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	UserID      uint       `gorm:"not null;index" json:"user_id"`
	Amount      float64    `gorm:"type:decimal(15,2);not null" json:"amount"`
	Status      string     `gorm:"size:16;not null;default:PENDING;index" json:"status"`
	Note        string     `gorm:"type:text" json:"note,omitempty"`
	ProcessedBy *uint      `json:"processed_by,omitempty"`
	ProcessedAt *time.Time `json:"processed_at,omitempty"`
	CreatedAt   time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`

	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

func (PayoutRequest) TableName() string {
	return "payout_requests"
}
