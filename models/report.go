package models

import "time"

const (
	ReportPending  = "PENDING"
	ReportApproved = "APPROVED"
	ReportRejected = "REJECTED"
)

type Report struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	UserID          uint       `gorm:"not null;index" json:"user_id"`
	UserContractID  uint       `gorm:"not null;index" json:"user_contract_id"`
	ItemName        string     `gorm:"size:150;not null" json:"item_name"`
	Quantity        int        `gorm:"not null" json:"quantity"`
	Proof           string     `gorm:"type:text;not null" json:"proof"`
	Comment         string     `gorm:"type:text" json:"comment,omitempty"`
	Status          string     `gorm:"size:16;not null;default:PENDING;index" json:"status"`
	Value           float64    `gorm:"type:decimal(15,2);default:0" json:"value"`
	UserShare       float64    `gorm:"type:decimal(15,2);default:0" json:"user_share"`
	FamilyShare     float64    `gorm:"type:decimal(15,2);default:0" json:"family_share"`
	VerifierID      *uint      `json:"verifier_id,omitempty"`
	RejectionReason string     `gorm:"type:text" json:"rejection_reason,omitempty"`
	DecidedAt       *time.Time `json:"decided_at,omitempty"`
	CreatedAt       time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt       time.Time  `json:"-"`

	User         *User               `gorm:"foreignKey:UserID" json:"user,omitempty"`
	UserContract *UserContract       `gorm:"foreignKey:UserContractID" json:"user_contract,omitempty"`
	Participants []ReportParticipant `gorm:"foreignKey:ReportID" json:"participants,omitempty"`
}

func (Report) TableName() string {
	return "reports"
}

// ReportParticipant credits a user with a share of a report's user pool.
type ReportParticipant struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ReportID  uint      `gorm:"not null;index:idx_report_user,unique" json:"report_id"`
	UserID    uint      `gorm:"not null;index:idx_report_user,unique;index" json:"user_id"`
	Share     float64   `gorm:"type:decimal(18,6);default:0" json:"share"`
	CreatedAt time.Time `json:"-"`

	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

func (ReportParticipant) TableName() string {
	return "report_participants"
}
