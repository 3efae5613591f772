// internal/domain/inventory/service.go
package inventory

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/your-org/production-backend/internal/config"
	"github.com/your-org/production-backend/internal/pkg/apperr"
	"gorm.io/gorm"
)

// Service is the inventory ledger. Every stock mutation in the system goes
// through ApplyMovement; other components never write counters directly.
type Service struct {
	db     *gorm.DB
	config *config.Config
	logger *logrus.Logger
}

// NewService creates a new inventory service
func NewService(db *gorm.DB, cfg *config.Config, logger *logrus.Logger) *Service {
	return &Service{
		db:     db,
		config: cfg,
		logger: logger,
	}
}

// Movement describes one requested stock change
type Movement struct {
	BranchID  uint
	ProductID uint
	// Quantity is signed only for MovementAdjustment; all other kinds
	// interpret it as a positive magnitude.
	Quantity  float64
	Kind      MovementKind
	Reference string
	ActorID   uint
}

// ApplyMovement applies the movement in its own transaction
func (s *Service) ApplyMovement(m Movement) (*StockRecord, error) {
	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	record, err := s.ApplyMovementTx(tx, m)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("failed to commit movement: %w", err)
	}
	return record, nil
}

// ApplyMovementTx applies the movement inside the caller's transaction so it
// commits or rolls back together with the order/return mutation that caused
// it. The counter update is conditioned on the record's version; a lost race
// is retried against the refreshed record a bounded number of times.
func (s *Service) ApplyMovementTx(tx *gorm.DB, m Movement) (*StockRecord, error) {
	if m.Quantity == 0 {
		return nil, apperr.Validationf("movement quantity must not be zero")
	}
	if m.Kind != MovementAdjustment && m.Quantity < 0 {
		return nil, apperr.Validationf("movement quantity must be positive for kind %s", m.Kind)
	}

	for attempt := 0; attempt < s.config.Inventory.MaxUpdateRetries; attempt++ {
		record, err := s.loadOrCreateRecord(tx, m.BranchID, m.ProductID)
		if err != nil {
			return nil, err
		}

		newCurrent, newPending, newDamaged, direction, err := applyKind(record, m)
		if err != nil {
			return nil, err
		}

		// Compare-and-swap on the version column; zero rows affected
		// means another writer advanced the record first.
		result := tx.Model(&StockRecord{}).
			Where("id = ? AND version = ?", record.ID, record.Version).
			Updates(map[string]interface{}{
				"current_stock":        newCurrent,
				"pending_return_stock": newPending,
				"damaged_stock":        newDamaged,
				"version":              record.Version + 1,
				"updated_at":           time.Now().UTC(),
			})
		if result.Error != nil {
			return nil, fmt.Errorf("failed to update stock record: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			s.logger.WithFields(logrus.Fields{
				"branch_id":  m.BranchID,
				"product_id": m.ProductID,
				"attempt":    attempt + 1,
			}).Warn("stock record version conflict, retrying")
			continue
		}

		movement := &StockMovement{
			StockRecordID: record.ID,
			Kind:          m.Kind,
			Direction:     direction,
			Quantity:      math.Abs(m.Quantity),
			Reference:     m.Reference,
			CreatedBy:     m.ActorID,
			CreatedAt:     time.Now().UTC(),
		}
		if err := tx.Create(movement).Error; err != nil {
			return nil, fmt.Errorf("failed to record movement: %w", err)
		}

		history := &StockHistory{
			StockRecordID:   record.ID,
			Kind:            m.Kind,
			PreviousCurrent: record.CurrentStock,
			NewCurrent:      newCurrent,
			PreviousPending: record.PendingReturnStock,
			NewPending:      newPending,
			PreviousDamaged: record.DamagedStock,
			NewDamaged:      newDamaged,
			Reference:       m.Reference,
			CreatedBy:       m.ActorID,
			CreatedAt:       time.Now().UTC(),
		}
		if err := tx.Create(history).Error; err != nil {
			return nil, fmt.Errorf("failed to record stock history: %w", err)
		}

		record.CurrentStock = newCurrent
		record.PendingReturnStock = newPending
		record.DamagedStock = newDamaged
		record.Version++
		return record, nil
	}

	return nil, fmt.Errorf("%w: stock record branch=%d product=%d after %d attempts",
		apperr.ErrConcurrentUpdate, m.BranchID, m.ProductID, s.config.Inventory.MaxUpdateRetries)
}

// applyKind computes the new counter values for the movement and rejects any
// outcome that would drive a counter below zero.
func applyKind(record *StockRecord, m Movement) (current, pending, damaged float64, direction MovementDirection, err error) {
	current = record.CurrentStock
	pending = record.PendingReturnStock
	damaged = record.DamagedStock

	switch m.Kind {
	case MovementDelivery:
		current += m.Quantity
		direction = DirectionIn
	case MovementReturnPending:
		current -= m.Quantity
		pending += m.Quantity
		direction = DirectionOut
	case MovementReturnApproved:
		pending -= m.Quantity
		direction = DirectionOut
	case MovementReturnRejected:
		pending -= m.Quantity
		current += m.Quantity
		damaged += m.Quantity
		direction = DirectionIn
	case MovementDamage:
		current -= m.Quantity
		damaged += m.Quantity
		direction = DirectionOut
	case MovementAdjustment:
		current += m.Quantity
		if m.Quantity >= 0 {
			direction = DirectionIn
		} else {
			direction = DirectionOut
		}
	default:
		return 0, 0, 0, "", apperr.Validationf("unknown movement kind %q", m.Kind)
	}

	if current < 0 {
		return 0, 0, 0, "", fmt.Errorf("%w: current stock would become %.2f (branch=%d product=%d)",
			apperr.ErrNegativeStock, current, m.BranchID, m.ProductID)
	}
	if pending < 0 {
		return 0, 0, 0, "", fmt.Errorf("%w: pending-return stock would become %.2f (branch=%d product=%d)",
			apperr.ErrNegativeStock, pending, m.BranchID, m.ProductID)
	}
	if damaged < 0 {
		return 0, 0, 0, "", fmt.Errorf("%w: damaged stock would become %.2f (branch=%d product=%d)",
			apperr.ErrNegativeStock, damaged, m.BranchID, m.ProductID)
	}
	return current, pending, damaged, direction, nil
}

func (s *Service) loadOrCreateRecord(tx *gorm.DB, branchID, productID uint) (*StockRecord, error) {
	var record StockRecord
	err := tx.Where("branch_id = ? AND product_id = ?", branchID, productID).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		record = StockRecord{
			BranchID:  branchID,
			ProductID: productID,
		}
		if err := tx.Create(&record).Error; err != nil {
			return nil, fmt.Errorf("failed to create stock record: %w", err)
		}
		return &record, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load stock record: %w", err)
	}
	return &record, nil
}

// GetStockRecord retrieves the counters for one (branch, product) pair
func (s *Service) GetStockRecord(branchID, productID uint) (*StockRecord, error) {
	var record StockRecord
	if err := s.db.Where("branch_id = ? AND product_id = ?", branchID, productID).First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFoundf("stock record", fmt.Sprintf("branch=%d product=%d", branchID, productID))
		}
		return nil, fmt.Errorf("failed to load stock record: %w", err)
	}
	return &record, nil
}

// GetBranchStock lists all stock records for a branch
func (s *Service) GetBranchStock(branchID uint) ([]StockRecord, error) {
	var records []StockRecord
	if err := s.db.Where("branch_id = ?", branchID).Order("product_id").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to load branch stock: %w", err)
	}
	return records, nil
}

// GetMovements lists the movement log for one (branch, product) pair
func (s *Service) GetMovements(branchID, productID uint, limit int) ([]StockMovement, error) {
	record, err := s.GetStockRecord(branchID, productID)
	if err != nil {
		return nil, err
	}

	if limit <= 0 {
		limit = 50
	}
	var movements []StockMovement
	if err := s.db.Where("stock_record_id = ?", record.ID).
		Order("id DESC").Limit(limit).Find(&movements).Error; err != nil {
		return nil, fmt.Errorf("failed to load movements: %w", err)
	}
	return movements, nil
}

// HasMovementTx reports whether a movement with the given kind and reference
// was already recorded. Used as the idempotency marker for delivery credits.
func HasMovementTx(tx *gorm.DB, kind MovementKind, reference string) (bool, error) {
	var count int64
	if err := tx.Model(&StockMovement{}).
		Where("kind = ? AND reference = ?", kind, reference).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check movement marker: %w", err)
	}
	return count > 0, nil
}
