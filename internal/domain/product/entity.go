// internal/domain/product/entity.go
package product

import (
	"math"
	"time"

	"github.com/your-org/production-backend/internal/domain/user"
	"gorm.io/gorm"
)

// Unit represents how a product's quantity is measured
type Unit string

const (
	UnitPiece Unit = "piece" // discrete items
	UnitBox   Unit = "box"   // discrete containers
	UnitKg    Unit = "kg"    // weight-based
)

// Product represents an item the factory produces
type Product struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	SKU         string          `gorm:"uniqueIndex;not null;size:100" json:"sku"`
	Name        string          `gorm:"not null;size:255" json:"name"`
	Description string          `gorm:"type:text" json:"description"`
	Price       int64           `gorm:"not null" json:"price"` // Price per unit in cents
	Unit        Unit            `gorm:"not null;size:10;default:'piece'" json:"unit"`
	Department  user.Department `gorm:"not null;size:30" json:"department"`
	MinStock    float64         `gorm:"default:0" json:"min_stock"`
	MaxStock    float64         `gorm:"default:0" json:"max_stock"`
	IsActive    bool            `gorm:"default:true" json:"is_active"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	DeletedAt   gorm.DeletedAt  `gorm:"index" json:"-"`
}

// TableName overrides
func (Product) TableName() string { return "products" }

// IsWeightBased reports whether quantities for the product are measured by weight
func (p *Product) IsWeightBased() bool {
	return p.Unit == UnitKg
}

// ValidQuantity reports whether qty respects the product's unit granularity:
// whole units for discrete products, 0.5 steps for weight-based ones.
func (p *Product) ValidQuantity(qty float64) bool {
	if qty <= 0 {
		return false
	}
	if p.IsWeightBased() {
		return math.Mod(qty*2, 1) == 0
	}
	return math.Mod(qty, 1) == 0
}
