package models

import (
	"time"

	"github.com/google/uuid"
)

// UserRole represents the role of a user on the platform
type UserRole string

const (
	RoleCustomer UserRole = "customer"
	RoleCourier  UserRole = "courier"
	RoleAdmin    UserRole = "admin"
)

// User represents a user in the system. The KYC engine consults users for
// existence checks and notification addresses; it does not own their lifecycle.
type User struct {
	ID             uuid.UUID  `gorm:"type:uuid;primary_key;default:uuid_generate_v4()" json:"id"`
	FirstName      string     `gorm:"type:varchar(100)" json:"first_name"`
	MiddleName     *string    `gorm:"type:varchar(100)" json:"middle_name"`
	LastName       string     `gorm:"type:varchar(100)" json:"last_name"`
	Email          string     `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Phone          string     `gorm:"type:varchar(20)" json:"phone"`
	ProfilePicture *string    `gorm:"type:text" json:"profile_picture"`
	Role           UserRole   `gorm:"type:varchar(20);default:'customer'" json:"role"`
	LastLoginAt    *time.Time `json:"last_login_at"`
	CreatedAt      time.Time  `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt      time.Time  `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`

	// KYC is the user's verification record, if one has been initiated.
	KYC *KYCRecord `gorm:"foreignKey:UserID" json:"kyc,omitempty"`
}
