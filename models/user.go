package models

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

const (
	RoleMember    = "MEMBER"
	RoleModerator = "MODERATOR"
	RoleAdmin     = "ADMIN"
)

const (
	UserPending  = "PENDING"
	UserActive   = "ACTIVE"
	UserRejected = "REJECTED"
	UserBanned   = "BANNED"
)

type User struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	Name            string     `gorm:"size:100;not null" json:"name"`
	StaticID        string     `gorm:"size:32;uniqueIndex;not null" json:"static_id"`
	Password        string     `gorm:"size:255;not null" json:"-"`
	Role            string     `gorm:"size:16;not null;default:MEMBER;index" json:"role"`
	Status          string     `gorm:"size:16;not null;default:PENDING;index" json:"status"`
	Rank            int        `gorm:"not null;default:1" json:"rank"`
	Avatar          *string    `gorm:"type:varchar(255);null" json:"avatar,omitempty"`
	Bio             string     `gorm:"type:text" json:"bio,omitempty"`
	ApplicationNote string     `gorm:"type:text" json:"application_note,omitempty"`
	RejectionReason string     `gorm:"type:text" json:"rejection_reason,omitempty"`
	LastActiveAt    *time.Time `json:"last_active_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"-"`
}

func (User) TableName() string {
	return "users"
}

func (u User) IsStaff() bool {
	return u.Role == RoleAdmin || u.Role == RoleModerator
}

// SetPassword stores the bcrypt hash of plain.
func (u *User) SetPassword(plain string) error {
	hashed, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.Password = string(hashed)
	return nil
}

func (u *User) CheckPassword(plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(plain)) == nil
}
