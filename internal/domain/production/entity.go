// internal/domain/production/entity.go
package production

import (
	"time"

	"github.com/your-org/production-backend/internal/domain/order"
)

// AssignmentStatus represents the production status of one assignment
type AssignmentStatus string

const (
	AssignmentStatusPending    AssignmentStatus = "pending"
	AssignmentStatusInProgress AssignmentStatus = "in_progress"
	AssignmentStatusCompleted  AssignmentStatus = "completed"
)

// Assignment binds a chef to producing one order line item. It references
// the item by ID only; the sync engine reconciles assignment state back
// into the item one-directionally.
type Assignment struct {
	ID          uint             `gorm:"primaryKey" json:"id"`
	OrderID     uint             `gorm:"not null;index;uniqueIndex:idx_assignments_order_item" json:"order_id"`
	OrderItemID uint             `gorm:"not null;uniqueIndex:idx_assignments_order_item" json:"order_item_id"`
	ChefID      uint             `gorm:"not null;index" json:"chef_id"`
	ProductID   uint             `gorm:"not null;index" json:"product_id"`
	Quantity    float64          `gorm:"not null" json:"quantity"`
	Status      AssignmentStatus `gorm:"not null;default:'pending'" json:"status"`
	StartedAt   *time.Time       `json:"started_at"`
	CompletedAt *time.Time       `json:"completed_at"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// TableName overrides
func (Assignment) TableName() string { return "assignments" }

// ItemStatus maps the assignment's status onto the order-item status it
// mirrors. A pending assignment means the item has been assigned.
func (a *Assignment) ItemStatus() order.ItemStatus {
	switch a.Status {
	case AssignmentStatusInProgress:
		return order.ItemStatusInProgress
	case AssignmentStatusCompleted:
		return order.ItemStatusCompleted
	default:
		return order.ItemStatusAssigned
	}
}

// canAdvance reports whether the ledger allows moving from to next. The
// only legal steps are pending -> in_progress -> completed.
func canAdvance(from, next AssignmentStatus) bool {
	switch from {
	case AssignmentStatusPending:
		return next == AssignmentStatusInProgress
	case AssignmentStatusInProgress:
		return next == AssignmentStatusCompleted
	default:
		return false
	}
}
