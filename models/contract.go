package models

import "time"

// Contract is a task definition members can take on.
type Contract struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Title       string    `gorm:"size:150;not null" json:"title"`
	Description string    `gorm:"type:text" json:"description"`
	Level       int       `gorm:"not null;default:0" json:"level"`
	Reward      float64   `gorm:"type:decimal(15,2);default:0" json:"reward"`
	Reputation  int       `gorm:"not null;default:0" json:"reputation"`
	IsActive    bool      `gorm:"not null;default:true;index" json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (Contract) TableName() string {
	return "contracts"
}

const (
	AssignmentActive    = "ACTIVE"
	AssignmentCompleted = "COMPLETED"
	AssignmentCancelled = "CANCELLED"
)

// UserContract is one member's attempt at a contract.
type UserContract struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	UserID      uint       `gorm:"not null;index:idx_user_contract_status" json:"user_id"`
	ContractID  uint       `gorm:"not null;index:idx_user_contract_status" json:"contract_id"`
	Status      string     `gorm:"size:16;not null;default:ACTIVE;index:idx_user_contract_status" json:"status"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CreatedAt   time.Time  `json:"-"`
	UpdatedAt   time.Time  `json:"-"`

	Contract *Contract `gorm:"foreignKey:ContractID" json:"contract,omitempty"`
	User     *User     `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

func (UserContract) TableName() string {
	return "user_contracts"
}
