// internal/domain/inventory/entity.go
package inventory

import (
	"time"
)

// MovementKind selects which stock counters a movement touches
type MovementKind string

const (
	// MovementDelivery credits current stock when an order is delivered
	MovementDelivery MovementKind = "delivery"
	// MovementReturnPending sets goods aside for review: debits current
	// stock and credits pending-return stock
	MovementReturnPending MovementKind = "return_pending"
	// MovementReturnApproved clears the pending-return reservation
	MovementReturnApproved MovementKind = "return_approved"
	// MovementReturnRejected restores current stock and flags the goods
	// as branch-responsibility damaged, not available for resale
	MovementReturnRejected MovementKind = "return_rejected"
	// MovementDamage moves goods from current stock to damaged stock
	MovementDamage MovementKind = "damage"
	// MovementAdjustment applies a signed correction to current stock
	MovementAdjustment MovementKind = "adjustment"
)

// MovementDirection marks a movement as stock-in or stock-out
type MovementDirection string

const (
	DirectionIn  MovementDirection = "in"
	DirectionOut MovementDirection = "out"
)

// StockRecord holds the counters for one (branch, product) pair. Version
// increases on every committed update and backs optimistic concurrency.
type StockRecord struct {
	ID                 uint      `gorm:"primaryKey" json:"id"`
	BranchID           uint      `gorm:"not null;index;uniqueIndex:idx_stock_branch_product" json:"branch_id"`
	ProductID          uint      `gorm:"not null;index;uniqueIndex:idx_stock_branch_product" json:"product_id"`
	CurrentStock       float64   `gorm:"not null;default:0" json:"current_stock"`
	PendingReturnStock float64   `gorm:"not null;default:0" json:"pending_return_stock"`
	DamagedStock       float64   `gorm:"not null;default:0" json:"damaged_stock"`
	MinStock           float64   `gorm:"default:0" json:"min_stock"`
	MaxStock           float64   `gorm:"default:0" json:"max_stock"`
	Version            int64     `gorm:"not null;default:0" json:"version"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`

	// Relationships
	Movements []StockMovement `gorm:"foreignKey:StockRecordID" json:"movements,omitempty"`
}

// StockMovement is one signed stock change appended to a record's audit log
type StockMovement struct {
	ID            uint              `gorm:"primaryKey" json:"id"`
	StockRecordID uint              `gorm:"not null;index" json:"stock_record_id"`
	Kind          MovementKind      `gorm:"not null;size:30" json:"kind"`
	Direction     MovementDirection `gorm:"not null;size:5" json:"direction"`
	Quantity      float64           `gorm:"not null" json:"quantity"` // magnitude, always positive
	Reference     string            `gorm:"size:100;index" json:"reference"`
	CreatedBy     uint              `gorm:"index" json:"created_by"`
	CreatedAt     time.Time         `json:"created_at"`
}

// StockHistory is the durable counter snapshot written alongside every
// movement, carrying the before/after values of all three counters.
type StockHistory struct {
	ID              uint         `gorm:"primaryKey" json:"id"`
	StockRecordID   uint         `gorm:"not null;index" json:"stock_record_id"`
	Kind            MovementKind `gorm:"not null;size:30" json:"kind"`
	PreviousCurrent float64      `gorm:"not null" json:"previous_current"`
	NewCurrent      float64      `gorm:"not null" json:"new_current"`
	PreviousPending float64      `gorm:"not null" json:"previous_pending"`
	NewPending      float64      `gorm:"not null" json:"new_pending"`
	PreviousDamaged float64      `gorm:"not null" json:"previous_damaged"`
	NewDamaged      float64      `gorm:"not null" json:"new_damaged"`
	Reference       string       `gorm:"size:100" json:"reference"`
	CreatedBy       uint         `gorm:"index" json:"created_by"`
	CreatedAt       time.Time    `json:"created_at"`
}

// TableName overrides
func (StockRecord) TableName() string   { return "stock_records" }
func (StockMovement) TableName() string { return "stock_movements" }
func (StockHistory) TableName() string  { return "stock_history" }

// IsLowStock checks if current stock fell below the minimum threshold
func (r *StockRecord) IsLowStock() bool {
	return r.MinStock > 0 && r.CurrentStock <= r.MinStock
}
