// internal/domain/order/service.go
package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/your-org/production-backend/internal/config"
	"github.com/your-org/production-backend/internal/domain/branch"
	"github.com/your-org/production-backend/internal/domain/inventory"
	"github.com/your-org/production-backend/internal/domain/product"
	"github.com/your-org/production-backend/internal/domain/user"
	"github.com/your-org/production-backend/internal/events"
	"github.com/your-org/production-backend/internal/pkg/apperr"
	"gorm.io/gorm"
)

// Service handles order business logic
type Service struct {
	db               *gorm.DB
	config           *config.Config
	inventoryService *inventory.Service
	publisher        events.Publisher
	logger           *logrus.Logger
}

// NewService creates a new order service
func NewService(db *gorm.DB, cfg *config.Config, inventoryService *inventory.Service, publisher events.Publisher, logger *logrus.Logger) *Service {
	return &Service{
		db:               db,
		config:           cfg,
		inventoryService: inventoryService,
		publisher:        publisher,
		logger:           logger,
	}
}

// CreateOrderRequest represents order creation data
type CreateOrderRequest struct {
	BranchID    uint                   `json:"branch_id" binding:"required"`
	OrderNumber string                 `json:"order_number,omitempty"`
	Priority    Priority               `json:"priority,omitempty"`
	Notes       string                 `json:"notes,omitempty"`
	Items       []CreateOrderItemInput `json:"items" binding:"required"`
}

// CreateOrderItemInput represents one requested line item
type CreateOrderItemInput struct {
	ProductID uint    `json:"product_id" binding:"required"`
	Quantity  float64 `json:"quantity" binding:"required"`
	Price     int64   `json:"price" binding:"required"` // Unit price in cents, checked against the catalog
}

// OrderListRequest represents order list query parameters
type OrderListRequest struct {
	Page     int         `form:"page,default=1"`
	Limit    int         `form:"limit,default=20"`
	Status   OrderStatus `form:"status"`
	BranchID uint        `form:"branch_id"`
}

// OrderListResponse represents order list response with pagination
type OrderListResponse struct {
	Orders     []Order    `json:"orders"`
	Pagination Pagination `json:"pagination"`
}

// Pagination represents pagination information
type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

// CreateOrder creates a new order for a branch. Duplicate product lines are
// merged, prices are checked against the catalog, and the order number must
// be unique within the branch.
func (s *Service) CreateOrder(ctx context.Context, actor user.Actor, req *CreateOrderRequest) (*Order, error) {
	if !actor.CanActFor(req.BranchID) {
		return nil, apperr.Authorizationf("actor is bound to a different branch")
	}
	if len(req.Items) == 0 {
		return nil, apperr.Validationf("order must contain at least one item")
	}

	merged := mergeItems(req.Items)

	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	var b branch.Branch
	if err := tx.Where("id = ? AND is_active = ?", req.BranchID, true).First(&b).Error; err != nil {
		tx.Rollback()
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFoundf("branch", req.BranchID)
		}
		return nil, fmt.Errorf("failed to load branch: %w", err)
	}

	// Uniqueness is evaluated inside the same transaction as the write to
	// close the check/write race.
	if req.OrderNumber != "" {
		var count int64
		if err := tx.Model(&Order{}).
			Where("order_number = ? AND branch_id = ?", req.OrderNumber, req.BranchID).
			Count(&count).Error; err != nil {
			tx.Rollback()
			return nil, fmt.Errorf("failed to check order number: %w", err)
		}
		if count > 0 {
			tx.Rollback()
			return nil, apperr.Conflictf("order number %q at branch %d", req.OrderNumber, req.BranchID)
		}
	}

	var items []OrderItem
	var total int64
	for _, line := range merged {
		p, err := product.GetProductTx(tx, line.ProductID)
		if err != nil {
			tx.Rollback()
			return nil, err
		}
		if line.Price != p.Price {
			tx.Rollback()
			return nil, apperr.Validationf("price %d for product %d does not match catalog price %d",
				line.Price, p.ID, p.Price)
		}
		if !p.ValidQuantity(line.Quantity) {
			tx.Rollback()
			return nil, apperr.Validationf("quantity %.2f is not valid for unit %s", line.Quantity, p.Unit)
		}

		item := OrderItem{
			ProductID: p.ID,
			Quantity:  line.Quantity,
			Price:     p.Price,
			Status:    ItemStatusPending,
		}
		total += item.LineTotal()
		items = append(items, item)
	}

	priority := req.Priority
	if priority == "" {
		priority = PriorityNormal
	}

	order := Order{
		OrderNumber:   req.OrderNumber,
		BranchID:      req.BranchID,
		Status:        OrderStatusPending,
		TotalAmount:   total,
		AdjustedTotal: total,
		Priority:      priority,
		Notes:         req.Notes,
		CreatedBy:     actor.UserID,
		Items:         items,
	}

	if err := tx.Create(&order).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	if order.OrderNumber == "" {
		order.OrderNumber = fmt.Sprintf("ORD-%s-%05d", time.Now().UTC().Format("20060102"), order.ID)
		if err := tx.Model(&order).Update("order_number", order.OrderNumber).Error; err != nil {
			tx.Rollback()
			return nil, fmt.Errorf("failed to update order number: %w", err)
		}
	}

	history := OrderStatusHistory{
		OrderID:   order.ID,
		Status:    OrderStatusPending,
		Note:      "Order created",
		CreatedBy: actor.UserID,
		CreatedAt: time.Now().UTC(),
	}
	if err := tx.Create(&history).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to create status history: %w", err)
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("failed to commit order transaction: %w", err)
	}

	event := events.New(events.TopicOrderCreated)
	event.OrderID = order.ID
	event.BranchID = order.BranchID
	event.ActorID = actor.UserID
	s.publisher.Publish(ctx, event)

	return s.GetOrder(actor, order.ID)
}

// ApproveOrder moves a pending order to approved
func (s *Service) ApproveOrder(ctx context.Context, actor user.Actor, orderID uint) (*Order, error) {
	if !actor.HasRole(user.RoleAdmin, user.RoleProduction) {
		return nil, apperr.Authorizationf("role %s may not approve orders", actor.Role)
	}

	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	order, err := loadOrderTx(tx, orderID)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	from := order.Status
	if err := TransitionTx(tx, order, OrderStatusApproved, actor.UserID, "Order approved"); err != nil {
		tx.Rollback()
		return nil, err
	}

	now := time.Now().UTC()
	if err := tx.Model(order).Updates(map[string]interface{}{
		"approved_by": actor.UserID,
		"approved_at": now,
	}).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to stamp approval: %w", err)
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("failed to commit approval: %w", err)
	}

	s.publishStatusChanged(ctx, order, from, actor.UserID)
	return s.GetOrder(actor, orderID)
}

// CancelOrder cancels an order that has not yet finished production
func (s *Service) CancelOrder(ctx context.Context, actor user.Actor, orderID uint, reason string) (*Order, error) {
	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	order, err := loadOrderTx(tx, orderID)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	if !actor.CanActFor(order.BranchID) {
		tx.Rollback()
		return nil, apperr.Authorizationf("actor is bound to a different branch")
	}

	note := "Order cancelled"
	if reason != "" {
		note = fmt.Sprintf("Order cancelled: %s", reason)
	}

	from := order.Status
	if err := TransitionTx(tx, order, OrderStatusCancelled, actor.UserID, note); err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("failed to commit cancellation: %w", err)
	}

	s.publishStatusChanged(ctx, order, from, actor.UserID)
	return s.GetOrder(actor, orderID)
}

// StartTransit marks a completed order as shipped towards its branch
func (s *Service) StartTransit(ctx context.Context, actor user.Actor, orderID uint) (*Order, error) {
	if !actor.HasRole(user.RoleProduction, user.RoleAdmin) {
		return nil, apperr.Authorizationf("role %s may not start transit", actor.Role)
	}

	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	order, err := loadOrderTx(tx, orderID)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	from := order.Status
	if err := TransitionTx(tx, order, OrderStatusInTransit, actor.UserID, "Transit started"); err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("failed to commit transit start: %w", err)
	}

	s.publishStatusChanged(ctx, order, from, actor.UserID)
	return s.GetOrder(actor, orderID)
}

// ConfirmDelivery marks an in-transit order as delivered and credits the
// delivered quantities, net of already-approved returns, into the branch's
// stock records. Crediting happens at most once per order: a movement marker
// keyed on the order guards against double credits.
func (s *Service) ConfirmDelivery(ctx context.Context, actor user.Actor, orderID uint) (*Order, error) {
	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	order, err := loadOrderTx(tx, orderID)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	if !actor.CanActFor(order.BranchID) {
		tx.Rollback()
		return nil, apperr.Authorizationf("actor is bound to a different branch")
	}

	from := order.Status
	if err := TransitionTx(tx, order, OrderStatusDelivered, actor.UserID, "Delivery confirmed"); err != nil {
		tx.Rollback()
		return nil, err
	}

	reference := DeliveryReference(order.ID)
	credited, err := inventory.HasMovementTx(tx, inventory.MovementDelivery, reference)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if !credited {
		for _, item := range order.Items {
			qty := item.RemainingQuantity()
			if qty <= 0 {
				continue
			}
			if _, err := s.inventoryService.ApplyMovementTx(tx, inventory.Movement{
				BranchID:  order.BranchID,
				ProductID: item.ProductID,
				Quantity:  qty,
				Kind:      inventory.MovementDelivery,
				Reference: reference,
				ActorID:   actor.UserID,
			}); err != nil {
				tx.Rollback()
				return nil, err
			}
		}
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("failed to commit delivery: %w", err)
	}

	s.publishStatusChanged(ctx, order, from, actor.UserID)
	return s.GetOrder(actor, orderID)
}

// GetOrder retrieves a single order with items and history
func (s *Service) GetOrder(actor user.Actor, id uint) (*Order, error) {
	var order Order
	result := s.db.
		Preload("Items").
		Preload("StatusHistory", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Where("id = ?", id).
		First(&order)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFoundf("order", id)
		}
		return nil, fmt.Errorf("failed to retrieve order: %w", result.Error)
	}

	if !actor.CanActFor(order.BranchID) {
		return nil, apperr.Authorizationf("actor is bound to a different branch")
	}

	return &order, nil
}

// GetOrders retrieves orders with filtering and pagination. Branch actors
// only ever see their own branch's orders.
func (s *Service) GetOrders(actor user.Actor, req *OrderListRequest) (*OrderListResponse, error) {
	if req.Page < 1 {
		req.Page = 1
	}
	if req.Limit < 1 {
		req.Limit = 20
	}

	query := s.db.Model(&Order{}).Preload("Items")

	if actor.Role == user.RoleBranch {
		if actor.BranchID == nil {
			return nil, apperr.Authorizationf("branch actor without branch binding")
		}
		query = query.Where("branch_id = ?", *actor.BranchID)
	} else if req.BranchID > 0 {
		query = query.Where("branch_id = ?", req.BranchID)
	}

	if req.Status != "" {
		query = query.Where("status = ?", req.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count orders: %w", err)
	}

	var orders []Order
	offset := (req.Page - 1) * req.Limit
	if err := query.Order("created_at DESC").Offset(offset).Limit(req.Limit).Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve orders: %w", err)
	}

	totalPages := int((total + int64(req.Limit) - 1) / int64(req.Limit))
	return &OrderListResponse{
		Orders: orders,
		Pagination: Pagination{
			Page:       req.Page,
			Limit:      req.Limit,
			Total:      total,
			TotalPages: totalPages,
		},
	}, nil
}

// TransitionTx validates and applies a status transition inside the caller's
// transaction, stamping lifecycle timestamps and appending exactly one
// status-history entry. actorID 0 marks a system-originated entry.
func TransitionTx(tx *gorm.DB, o *Order, next OrderStatus, actorID uint, note string) error {
	if !CanTransition(o.Status, next) {
		return apperr.InvalidTransitionf(string(o.Status), string(next))
	}

	now := time.Now().UTC()
	updates := map[string]interface{}{"status": next}
	switch next {
	case OrderStatusInTransit:
		updates["transit_started_at"] = now
	case OrderStatusDelivered:
		updates["delivered_at"] = now
	}

	if err := tx.Model(o).Updates(updates).Error; err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}

	history := OrderStatusHistory{
		OrderID:   o.ID,
		Status:    next,
		Note:      note,
		CreatedBy: actorID,
		CreatedAt: now,
	}
	if err := tx.Create(&history).Error; err != nil {
		return fmt.Errorf("failed to create status history: %w", err)
	}

	o.Status = next
	switch next {
	case OrderStatusInTransit:
		o.TransitStartedAt = &now
	case OrderStatusDelivered:
		o.DeliveredAt = &now
	}
	return nil
}

// DeliveryReference is the movement reference marking an order's one-time
// delivery credit.
func DeliveryReference(orderID uint) string {
	return fmt.Sprintf("order:%d:delivery", orderID)
}

func (s *Service) publishStatusChanged(ctx context.Context, o *Order, from OrderStatus, actorID uint) {
	event := events.New(events.TopicOrderStatusChanged)
	event.OrderID = o.ID
	event.BranchID = o.BranchID
	event.ActorID = actorID
	event.FromStatus = string(from)
	event.ToStatus = string(o.Status)
	s.publisher.Publish(ctx, event)
}

func loadOrderTx(tx *gorm.DB, id uint) (*Order, error) {
	var order Order
	if err := tx.Preload("Items").Where("id = ?", id).First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFoundf("order", id)
		}
		return nil, fmt.Errorf("failed to load order: %w", err)
	}
	return &order, nil
}

// mergeItems folds duplicate product lines into one by summing quantities.
// The client-supplied price survives the merge so tampering still surfaces
// during the catalog price check.
func mergeItems(items []CreateOrderItemInput) []CreateOrderItemInput {
	index := make(map[uint]int)
	var merged []CreateOrderItemInput
	for _, item := range items {
		if at, ok := index[item.ProductID]; ok {
			merged[at].Quantity += item.Quantity
			continue
		}
		index[item.ProductID] = len(merged)
		merged = append(merged, item)
	}
	return merged
}
