package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Role is a privilege level. Roles are totally ordered by Rank.
type Role string

const (
	RoleUser       Role = "user"
	RoleAdmin      Role = "admin"
	RoleSuperadmin Role = "superadmin"
)

// AllDepartments is the department sentinel reserved for superadmin.
const AllDepartments = "*"

// Rank returns the position of the role in the privilege order; unknown roles rank lowest.
func (r Role) Rank() int {
	switch r {
	case RoleSuperadmin:
		return 2
	case RoleAdmin:
		return 1
	default:
		return 0
	}
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin || r == RoleSuperadmin
}

// User represents an authenticated user in the system.
type User struct {
	ID           uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	Email        string    `json:"email" gorm:"uniqueIndex;size:255;not null"`
	PasswordHash string    `json:"-" gorm:"size:255;not null"`
	FullName     string    `json:"full_name" gorm:"size:100;not null"`
	Role         Role      `json:"role" gorm:"size:20;not null;default:'user';index"`
	Department   *string   `json:"department" gorm:"size:100;index"`
	Level        *string   `json:"level" gorm:"size:50"`
	IsActive     bool      `json:"is_active" gorm:"not null;default:true"`
	ImageURL     *string   `json:"image_profile" gorm:"column:image_url;size:255"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// BeforeCreate sets UUID before creating the record.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// DepartmentName returns the department or "" when unset.
func (u *User) DepartmentName() string {
	if u == nil || u.Department == nil {
		return ""
	}
	return *u.Department
}
