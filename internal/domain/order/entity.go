// internal/domain/order/entity.go
package order

import (
	"math"
	"time"
)

// ItemStatus represents the status of a single order line item
type ItemStatus string

const (
	ItemStatusPending    ItemStatus = "pending"
	ItemStatusAssigned   ItemStatus = "assigned"
	ItemStatusInProgress ItemStatus = "in_progress"
	ItemStatusCompleted  ItemStatus = "completed"
)

// Priority represents order priority
type Priority string

const (
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Order represents a branch's production order
type Order struct {
	ID          uint        `gorm:"primaryKey" json:"id"`
	OrderNumber string      `gorm:"not null;size:50;uniqueIndex:idx_orders_number_branch" json:"order_number"`
	BranchID    uint        `gorm:"not null;index;uniqueIndex:idx_orders_number_branch" json:"branch_id"`
	Status      OrderStatus `gorm:"not null;default:'pending'" json:"status"`

	// Financial information, in cents
	TotalAmount   int64 `gorm:"not null" json:"total_amount"`
	AdjustedTotal int64 `gorm:"not null" json:"adjusted_total"` // TotalAmount minus approved returns

	Priority Priority `gorm:"size:10;default:'normal'" json:"priority"`
	Notes    string   `gorm:"type:text" json:"notes"`

	// Audit fields
	CreatedBy        uint       `gorm:"not null;index" json:"created_by"`
	ApprovedBy       *uint      `json:"approved_by"`
	ApprovedAt       *time.Time `json:"approved_at"`
	TransitStartedAt *time.Time `json:"transit_started_at"`
	DeliveredAt      *time.Time `json:"delivered_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relationships. Orders are never physically deleted; terminal states
	// are delivered and cancelled.
	Items         []OrderItem          `gorm:"foreignKey:OrderID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"items"`
	StatusHistory []OrderStatusHistory `gorm:"foreignKey:OrderID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"status_history,omitempty"`
}

// OrderItem represents one product line within an order. The item is owned
// by the order; a production assignment references it by ID only and the
// sync engine keeps the two in agreement.
type OrderItem struct {
	ID        uint    `gorm:"primaryKey" json:"id"`
	OrderID   uint    `gorm:"not null;index" json:"order_id"`
	ProductID uint    `gorm:"not null;index" json:"product_id"`
	Quantity  float64 `gorm:"not null" json:"quantity"`
	Price     int64   `gorm:"not null" json:"price"` // Unit price in cents

	Status      ItemStatus `gorm:"not null;default:'pending'" json:"status"`
	AssignedTo  *uint      `gorm:"index" json:"assigned_to"`
	StartedAt   *time.Time `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at"`

	ReturnedQuantity float64 `gorm:"default:0" json:"returned_quantity"`
	ReturnReason     string  `gorm:"size:255" json:"return_reason"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// OrderStatusHistory tracks order status changes. Append-only: entries are
// never mutated or removed.
type OrderStatusHistory struct {
	ID        uint        `gorm:"primaryKey" json:"id"`
	OrderID   uint        `gorm:"not null;index" json:"order_id"`
	Status    OrderStatus `gorm:"not null" json:"status"`
	Note      string      `gorm:"type:text" json:"note"`
	CreatedBy uint        `gorm:"index" json:"created_by"` // 0 for system-originated entries
	CreatedAt time.Time   `json:"created_at"`
}

// TableName overrides
func (Order) TableName() string              { return "orders" }
func (OrderItem) TableName() string          { return "order_items" }
func (OrderStatusHistory) TableName() string { return "order_status_history" }

// LineTotal returns the item's price contribution in cents
func (i *OrderItem) LineTotal() int64 {
	return int64(math.Round(i.Quantity * float64(i.Price)))
}

// RemainingQuantity returns the quantity not yet returned
func (i *OrderItem) RemainingQuantity() float64 {
	return i.Quantity - i.ReturnedQuantity
}

// IsTerminal reports whether the order reached a terminal state
func (o *Order) IsTerminal() bool {
	return o.Status == OrderStatusDelivered || o.Status == OrderStatusCancelled
}
