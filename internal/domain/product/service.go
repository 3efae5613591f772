// internal/domain/product/service.go
package product

import (
	"errors"
	"fmt"

	"github.com/your-org/production-backend/internal/config"
	"github.com/your-org/production-backend/internal/domain/user"
	"github.com/your-org/production-backend/internal/pkg/apperr"
	"gorm.io/gorm"
)

// Service handles product catalog business logic
type Service struct {
	db     *gorm.DB
	config *config.Config
}

// NewService creates a new product service
func NewService(db *gorm.DB, cfg *config.Config) *Service {
	return &Service{
		db:     db,
		config: cfg,
	}
}

// CreateProductRequest represents product creation data
type CreateProductRequest struct {
	SKU         string          `json:"sku" binding:"required"`
	Name        string          `json:"name" binding:"required"`
	Description string          `json:"description"`
	Price       int64           `json:"price" binding:"required"`
	Unit        Unit            `json:"unit" binding:"required"`
	Department  user.Department `json:"department" binding:"required"`
	MinStock    float64         `json:"min_stock"`
	MaxStock    float64         `json:"max_stock"`
}

// CreateProduct creates a new catalog product
func (s *Service) CreateProduct(req *CreateProductRequest) (*Product, error) {
	switch req.Unit {
	case UnitPiece, UnitBox, UnitKg:
	default:
		return nil, apperr.Validationf("unknown unit %q", req.Unit)
	}
	switch req.Department {
	case user.DepartmentBakery, user.DepartmentPastry, user.DepartmentHotKitchen:
	default:
		return nil, apperr.Validationf("unknown department %q", req.Department)
	}
	if req.Price <= 0 {
		return nil, apperr.Validationf("price must be positive")
	}

	var existing Product
	if err := s.db.Where("sku = ?", req.SKU).First(&existing).Error; err == nil {
		return nil, apperr.Conflictf("product with SKU %q", req.SKU)
	}

	p := &Product{
		SKU:         req.SKU,
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Unit:        req.Unit,
		Department:  req.Department,
		MinStock:    req.MinStock,
		MaxStock:    req.MaxStock,
		IsActive:    true,
	}

	if err := s.db.Create(p).Error; err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	return p, nil
}

// GetProduct retrieves a product by ID
func (s *Service) GetProduct(id uint) (*Product, error) {
	return getProduct(s.db, id)
}

// GetProducts retrieves all active products
func (s *Service) GetProducts() ([]Product, error) {
	var products []Product
	if err := s.db.Where("is_active = ?", true).Order("name").Find(&products).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve products: %w", err)
	}
	return products, nil
}

// GetProductTx retrieves a product inside an existing transaction. Used by
// order, assignment and return operations that validate prices, units and
// departments within the same transactional scope as their writes.
func GetProductTx(tx *gorm.DB, id uint) (*Product, error) {
	return getProduct(tx, id)
}

func getProduct(db *gorm.DB, id uint) (*Product, error) {
	var p Product
	if err := db.Where("id = ? AND is_active = ?", id, true).First(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFoundf("product", id)
		}
		return nil, fmt.Errorf("failed to retrieve product: %w", err)
	}
	return &p, nil
}
