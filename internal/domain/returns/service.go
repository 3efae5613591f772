// internal/domain/returns/service.go
package returns

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/your-org/production-backend/internal/config"
	"github.com/your-org/production-backend/internal/domain/inventory"
	"github.com/your-org/production-backend/internal/domain/order"
	"github.com/your-org/production-backend/internal/domain/user"
	"github.com/your-org/production-backend/internal/events"
	"github.com/your-org/production-backend/internal/pkg/apperr"
	"github.com/your-org/production-backend/internal/pkg/sequence"
	"gorm.io/gorm"
)

// Service handles the return workflow
type Service struct {
	db               *gorm.DB
	config           *config.Config
	inventoryService *inventory.Service
	sequences        sequence.Generator
	publisher        events.Publisher
	logger           *logrus.Logger
}

// NewService creates a new returns service
func NewService(db *gorm.DB, cfg *config.Config, inventoryService *inventory.Service, sequences sequence.Generator, publisher events.Publisher, logger *logrus.Logger) *Service {
	return &Service{
		db:               db,
		config:           cfg,
		inventoryService: inventoryService,
		sequences:        sequences,
		publisher:        publisher,
		logger:           logger,
	}
}

// CreateReturnRequest represents return creation data
type CreateReturnRequest struct {
	OrderID uint              `json:"order_id" binding:"required"`
	Items   []ReturnItemInput `json:"items" binding:"required"`
}

// ReturnItemInput is one requested return line
type ReturnItemInput struct {
	OrderItemID uint    `json:"order_item_id" binding:"required"`
	Quantity    float64 `json:"quantity" binding:"required"`
	Reason      string  `json:"reason" binding:"required"`
}

// CreateReturn opens a return request against a delivered order. The
// returned quantity is reserved immediately: current stock is debited and
// pending-return stock credited, so the goods sit aside until review.
func (s *Service) CreateReturn(ctx context.Context, actor user.Actor, req *CreateReturnRequest) (*ReturnRequest, error) {
	if len(req.Items) == 0 {
		return nil, apperr.Validationf("return must contain at least one item")
	}

	merged := mergeLines(req.Items)

	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	var o order.Order
	if err := tx.Preload("Items").Where("id = ?", req.OrderID).First(&o).Error; err != nil {
		tx.Rollback()
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFoundf("order", req.OrderID)
		}
		return nil, fmt.Errorf("failed to load order: %w", err)
	}

	if !actor.CanActFor(o.BranchID) {
		tx.Rollback()
		return nil, apperr.Authorizationf("actor is bound to a different branch")
	}

	if o.Status != order.OrderStatusDelivered {
		tx.Rollback()
		return nil, apperr.Validationf("returns are only accepted for delivered orders, order %d is %s", o.ID, o.Status)
	}

	window := time.Duration(s.config.Orders.ReturnWindowDays) * 24 * time.Hour
	if o.DeliveredAt == nil || time.Since(*o.DeliveredAt) > window {
		tx.Rollback()
		return nil, apperr.Validationf("return window of %d days has closed for order %d",
			s.config.Orders.ReturnWindowDays, o.ID)
	}

	itemsByID := make(map[uint]*order.OrderItem, len(o.Items))
	for i := range o.Items {
		itemsByID[o.Items[i].ID] = &o.Items[i]
	}

	returnNumber, err := s.nextReturnNumber(ctx, tx, o.BranchID)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	var lines []ReturnItem
	for _, input := range merged {
		item, ok := itemsByID[input.OrderItemID]
		if !ok {
			tx.Rollback()
			return nil, apperr.NotFoundf("order item", input.OrderItemID)
		}
		if input.Quantity <= 0 {
			tx.Rollback()
			return nil, apperr.Validationf("return quantity must be positive")
		}
		if input.Quantity > item.RemainingQuantity() {
			tx.Rollback()
			return nil, apperr.Validationf("return quantity %.2f exceeds remaining %.2f for item %d",
				input.Quantity, item.RemainingQuantity(), item.ID)
		}

		// Physically set the goods aside pending review.
		if _, err := s.inventoryService.ApplyMovementTx(tx, inventory.Movement{
			BranchID:  o.BranchID,
			ProductID: item.ProductID,
			Quantity:  input.Quantity,
			Kind:      inventory.MovementReturnPending,
			Reference: fmt.Sprintf("return:%s", returnNumber),
			ActorID:   actor.UserID,
		}); err != nil {
			tx.Rollback()
			return nil, err
		}

		lines = append(lines, ReturnItem{
			OrderItemID: item.ID,
			ProductID:   item.ProductID,
			Quantity:    input.Quantity,
			Price:       item.Price,
			Reason:      input.Reason,
		})
	}

	request := ReturnRequest{
		ReturnNumber: returnNumber,
		OrderID:      o.ID,
		BranchID:     o.BranchID,
		Status:       ReturnStatusPendingApproval,
		CreatedBy:    actor.UserID,
		Items:        lines,
	}
	if err := tx.Create(&request).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to create return request: %w", err)
	}

	history := ReturnStatusHistory{
		ReturnRequestID: request.ID,
		Status:          ReturnStatusPendingApproval,
		Note:            "Return requested",
		CreatedBy:       actor.UserID,
		CreatedAt:       time.Now().UTC(),
	}
	if err := tx.Create(&history).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to create return history: %w", err)
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("failed to commit return: %w", err)
	}

	event := events.New(events.TopicReturnCreated)
	event.ReturnID = request.ID
	event.OrderID = o.ID
	event.BranchID = o.BranchID
	event.ActorID = actor.UserID
	s.publisher.Publish(ctx, event)

	return s.GetReturn(actor, request.ID)
}

// ApproveReturn accepts a pending return: the reservation is cleared, the
// order line is stamped with the returned quantity and reason, and the
// order's adjusted total drops by quantity x unit price, floored at zero.
func (s *Service) ApproveReturn(ctx context.Context, actor user.Actor, returnID uint) (*ReturnRequest, error) {
	return s.decide(ctx, actor, returnID, ReturnStatusApproved)
}

// RejectReturn declines a pending return: the goods go back into current
// stock but are flagged as branch-responsibility damaged stock.
func (s *Service) RejectReturn(ctx context.Context, actor user.Actor, returnID uint) (*ReturnRequest, error) {
	return s.decide(ctx, actor, returnID, ReturnStatusRejected)
}

func (s *Service) decide(ctx context.Context, actor user.Actor, returnID uint, decision ReturnStatus) (*ReturnRequest, error) {
	if !actor.HasRole(user.RoleAdmin, user.RoleProduction) {
		return nil, apperr.Authorizationf("role %s may not review returns", actor.Role)
	}

	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	var request ReturnRequest
	if err := tx.Preload("Items").Where("id = ?", returnID).First(&request).Error; err != nil {
		tx.Rollback()
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFoundf("return request", returnID)
		}
		return nil, fmt.Errorf("failed to load return request: %w", err)
	}

	if request.Status != ReturnStatusPendingApproval {
		tx.Rollback()
		return nil, apperr.Validationf("return %d is already %s", request.ID, request.Status)
	}

	var o order.Order
	if err := tx.Preload("Items").Where("id = ?", request.OrderID).First(&o).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to load order: %w", err)
	}

	movementKind := inventory.MovementReturnApproved
	note := "Return approved"
	if decision == ReturnStatusRejected {
		movementKind = inventory.MovementReturnRejected
		note = "Return rejected, goods marked damaged"
	}

	orderItems := make(map[uint]*order.OrderItem, len(o.Items))
	for i := range o.Items {
		orderItems[o.Items[i].ID] = &o.Items[i]
	}

	var refund int64
	for _, line := range request.Items {
		// Clearing the reservation fails with a negative-stock error if
		// the pending counter no longer covers the line, which guards
		// against concurrent double-settlement at the ledger level.
		if _, err := s.inventoryService.ApplyMovementTx(tx, inventory.Movement{
			BranchID:  request.BranchID,
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			Kind:      movementKind,
			Reference: fmt.Sprintf("return:%s", request.ReturnNumber),
			ActorID:   actor.UserID,
		}); err != nil {
			tx.Rollback()
			return nil, err
		}

		if decision != ReturnStatusApproved {
			continue
		}

		item, ok := orderItems[line.OrderItemID]
		if !ok {
			tx.Rollback()
			return nil, apperr.NotFoundf("order item", line.OrderItemID)
		}
		if err := tx.Model(item).Updates(map[string]interface{}{
			"returned_quantity": gorm.Expr("returned_quantity + ?", line.Quantity),
			"return_reason":     line.Reason,
		}).Error; err != nil {
			tx.Rollback()
			return nil, fmt.Errorf("failed to stamp returned quantity: %w", err)
		}
		refund += line.LineTotal()
	}

	if decision == ReturnStatusApproved && refund > 0 {
		adjusted := o.AdjustedTotal - refund
		if adjusted < 0 {
			adjusted = 0
		}
		if err := tx.Model(&o).Update("adjusted_total", adjusted).Error; err != nil {
			tx.Rollback()
			return nil, fmt.Errorf("failed to adjust order total: %w", err)
		}
	}

	now := time.Now().UTC()
	if err := tx.Model(&request).Updates(map[string]interface{}{
		"status":     decision,
		"decided_by": actor.UserID,
		"decided_at": now,
	}).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to update return status: %w", err)
	}

	history := ReturnStatusHistory{
		ReturnRequestID: request.ID,
		Status:          decision,
		Note:            note,
		CreatedBy:       actor.UserID,
		CreatedAt:       now,
	}
	if err := tx.Create(&history).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to create return history: %w", err)
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("failed to commit return decision: %w", err)
	}

	event := events.New(events.TopicReturnStatusChanged)
	event.ReturnID = request.ID
	event.OrderID = request.OrderID
	event.BranchID = request.BranchID
	event.ActorID = actor.UserID
	event.FromStatus = string(ReturnStatusPendingApproval)
	event.ToStatus = string(decision)
	s.publisher.Publish(ctx, event)

	return s.GetReturn(actor, returnID)
}

// GetReturn retrieves one return request with lines and history
func (s *Service) GetReturn(actor user.Actor, id uint) (*ReturnRequest, error) {
	var request ReturnRequest
	result := s.db.
		Preload("Items").
		Preload("StatusHistory", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Where("id = ?", id).
		First(&request)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFoundf("return request", id)
		}
		return nil, fmt.Errorf("failed to retrieve return request: %w", result.Error)
	}

	if !actor.CanActFor(request.BranchID) {
		return nil, apperr.Authorizationf("actor is bound to a different branch")
	}

	return &request, nil
}

// GetReturns lists return requests, branch-scoped for branch actors
func (s *Service) GetReturns(actor user.Actor, status ReturnStatus) ([]ReturnRequest, error) {
	query := s.db.Preload("Items")

	if actor.Role == user.RoleBranch {
		if actor.BranchID == nil {
			return nil, apperr.Authorizationf("branch actor without branch binding")
		}
		query = query.Where("branch_id = ?", *actor.BranchID)
	}
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var requests []ReturnRequest
	if err := query.Order("created_at DESC").Find(&requests).Error; err != nil {
		return nil, fmt.Errorf("failed to list return requests: %w", err)
	}
	return requests, nil
}

// mergeLines folds duplicate order-item lines into one by summing
// quantities, so a request split across several lines cannot slip past the
// remaining-quantity check. The first line's reason survives the merge.
func mergeLines(items []ReturnItemInput) []ReturnItemInput {
	index := make(map[uint]int)
	var merged []ReturnItemInput
	for _, item := range items {
		if at, ok := index[item.OrderItemID]; ok {
			merged[at].Quantity += item.Quantity
			continue
		}
		index[item.OrderItemID] = len(merged)
		merged = append(merged, item)
	}
	return merged
}

// nextReturnNumber draws RET-<day>-B<branch>-<seq> numbers from the
// per-(branch, day) counter. The counter is the primary uniqueness
// mechanism; the duplicate check is a safety net, retried with backoff and
// surfaced as a fatal sequence error once retries are exhausted.
func (s *Service) nextReturnNumber(ctx context.Context, tx *gorm.DB, branchID uint) (string, error) {
	day := time.Now().UTC().Format("20060102")
	key := fmt.Sprintf("returns:%d:%s", branchID, day)

	for attempt := 0; attempt < s.config.Orders.ReturnNumberMaxRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(s.config.Orders.ReturnNumberBackoff * time.Duration(attempt))
		}

		n, err := s.sequences.Next(ctx, key)
		if err != nil {
			s.logger.WithError(err).WithField("key", key).Warn("sequence increment failed")
			continue
		}
		candidate := fmt.Sprintf("RET-%s-B%d-%04d", day, branchID, n)

		var count int64
		if err := tx.Model(&ReturnRequest{}).
			Where("return_number = ?", candidate).
			Count(&count).Error; err != nil {
			return "", fmt.Errorf("failed to check return number: %w", err)
		}
		if count == 0 {
			return candidate, nil
		}

		s.logger.WithField("return_number", candidate).Warn("return number collision, retrying")
	}

	return "", fmt.Errorf("%w: could not allocate return number for branch %d after %d attempts",
		apperr.ErrSequenceExhausted, branchID, s.config.Orders.ReturnNumberMaxRetries)
}
