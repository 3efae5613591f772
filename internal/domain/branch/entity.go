// internal/domain/branch/entity.go
package branch

import (
	"time"

	"gorm.io/gorm"
)

// Branch represents a requesting location (a shop branch or the factory itself)
type Branch struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Name      string         `gorm:"not null;size:100" json:"name"`
	Code      string         `gorm:"uniqueIndex;not null;size:20" json:"code"`
	Address   string         `gorm:"type:text" json:"address"`
	City      string         `gorm:"size:50" json:"city"`
	Phone     string         `gorm:"size:20" json:"phone"`
	IsActive  bool           `gorm:"default:true" json:"is_active"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName overrides the table name for Branch
func (Branch) TableName() string {
	return "branches"
}
