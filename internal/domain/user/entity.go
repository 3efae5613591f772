// internal/domain/user/entity.go
package user

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// Role represents the role an actor acts under
type Role string

const (
	RoleBranch     Role = "branch"
	RoleProduction Role = "production"
	RoleAdmin      Role = "admin"
	RoleChef       Role = "chef"
)

// Department represents a production department
type Department string

const (
	DepartmentBakery     Department = "bakery"
	DepartmentPastry     Department = "pastry"
	DepartmentHotKitchen Department = "hot_kitchen"
)

// User represents the user entity
type User struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	Email       string         `gorm:"uniqueIndex;not null;size:255" json:"email"`
	Password    string         `gorm:"not null;size:255" json:"-"` // Don't return in JSON
	FirstName   string         `gorm:"size:100" json:"first_name"`
	LastName    string         `gorm:"size:100" json:"last_name"`
	Phone       string         `gorm:"size:20" json:"phone"`
	Role        Role           `gorm:"not null;size:20;default:'branch'" json:"role"`
	BranchID    *uint          `gorm:"index" json:"branch_id"`    // Set for branch actors
	Department  Department     `gorm:"size:30" json:"department"` // Set for chefs
	IsActive    bool           `gorm:"default:true" json:"is_active"`
	LastLoginAt *time.Time     `json:"last_login_at"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName overrides the table name for User
func (User) TableName() string {
	return "users"
}

// BeforeCreate hook to handle business logic before user creation
func (u *User) BeforeCreate(tx *gorm.DB) error {
	// Email should be lowercase
	u.Email = strings.ToLower(u.Email)
	return nil
}

// GetFullName returns the user's full name
func (u *User) GetFullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// IsStaff reports whether the user belongs to the factory side
func (u *User) IsStaff() bool {
	return u.Role == RoleAdmin || u.Role == RoleProduction || u.Role == RoleChef
}

// Actor is the authenticated identity every domain operation receives.
// Branch actors carry the branch they are bound to.
type Actor struct {
	UserID     uint
	Role       Role
	BranchID   *uint
	Department Department
}

// CanActFor reports whether the actor may operate on the given branch.
// Branch actors are restricted to their own branch; staff roles are not.
func (a Actor) CanActFor(branchID uint) bool {
	if a.Role != RoleBranch {
		return true
	}
	return a.BranchID != nil && *a.BranchID == branchID
}

// HasRole reports whether the actor's role is in the allowlist.
func (a Actor) HasRole(roles ...Role) bool {
	for _, r := range roles {
		if a.Role == r {
			return true
		}
	}
	return false
}
