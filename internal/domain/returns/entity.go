// internal/domain/returns/entity.go
package returns

import (
	"math"
	"time"
)

// ReturnStatus represents the review state of a return request
type ReturnStatus string

const (
	ReturnStatusPendingApproval ReturnStatus = "pending_approval"
	ReturnStatusApproved        ReturnStatus = "approved"
	ReturnStatusRejected        ReturnStatus = "rejected"
)

// ReturnRequest is a branch's post-delivery claim to send goods back
type ReturnRequest struct {
	ID           uint         `gorm:"primaryKey" json:"id"`
	ReturnNumber string       `gorm:"uniqueIndex;not null;size:50" json:"return_number"`
	OrderID      uint         `gorm:"not null;index" json:"order_id"`
	BranchID     uint         `gorm:"not null;index" json:"branch_id"`
	Status       ReturnStatus `gorm:"not null;default:'pending_approval'" json:"status"`
	CreatedBy    uint         `gorm:"not null;index" json:"created_by"`
	DecidedBy    *uint        `json:"decided_by"`
	DecidedAt    *time.Time   `json:"decided_at"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`

	// Relationships
	Items         []ReturnItem          `gorm:"foreignKey:ReturnRequestID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"items"`
	StatusHistory []ReturnStatusHistory `gorm:"foreignKey:ReturnRequestID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"status_history,omitempty"`
}

// ReturnItem is one (product, quantity, reason) line of a return request
type ReturnItem struct {
	ID              uint    `gorm:"primaryKey" json:"id"`
	ReturnRequestID uint    `gorm:"not null;index" json:"return_request_id"`
	OrderItemID     uint    `gorm:"not null;index" json:"order_item_id"`
	ProductID       uint    `gorm:"not null;index" json:"product_id"`
	Quantity        float64 `gorm:"not null" json:"quantity"`
	Price           int64   `gorm:"not null" json:"price"` // Unit price snapshot in cents
	Reason          string  `gorm:"size:255" json:"reason"`

	CreatedAt time.Time `json:"created_at"`
}

// ReturnStatusHistory mirrors the order's append-only status trail
type ReturnStatusHistory struct {
	ID              uint         `gorm:"primaryKey" json:"id"`
	ReturnRequestID uint         `gorm:"not null;index" json:"return_request_id"`
	Status          ReturnStatus `gorm:"not null" json:"status"`
	Note            string       `gorm:"type:text" json:"note"`
	CreatedBy       uint         `gorm:"index" json:"created_by"`
	CreatedAt       time.Time    `json:"created_at"`
}

// TableName overrides
func (ReturnRequest) TableName() string       { return "return_requests" }
func (ReturnItem) TableName() string          { return "return_items" }
func (ReturnStatusHistory) TableName() string { return "return_status_history" }

// LineTotal returns the line's refund value in cents
func (i *ReturnItem) LineTotal() int64 {
	return int64(math.Round(i.Quantity * float64(i.Price)))
}
