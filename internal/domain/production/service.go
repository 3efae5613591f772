// internal/domain/production/service.go
package production

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/your-org/production-backend/internal/config"
	"github.com/your-org/production-backend/internal/domain/order"
	"github.com/your-org/production-backend/internal/domain/product"
	"github.com/your-org/production-backend/internal/domain/user"
	"github.com/your-org/production-backend/internal/events"
	"github.com/your-org/production-backend/internal/pkg/apperr"
	"gorm.io/gorm"
)

// Service is the production assignment ledger
type Service struct {
	db        *gorm.DB
	config    *config.Config
	publisher events.Publisher
	logger    *logrus.Logger
}

// NewService creates a new production service
func NewService(db *gorm.DB, cfg *config.Config, publisher events.Publisher, logger *logrus.Logger) *Service {
	return &Service{
		db:        db,
		config:    cfg,
		publisher: publisher,
		logger:    logger,
	}
}

// AssignTasksRequest represents bulk chef assignment data
type AssignTasksRequest struct {
	OrderID uint        `json:"order_id" binding:"required"`
	Tasks   []TaskInput `json:"tasks" binding:"required"`
}

// TaskInput assigns one chef to one order line item
type TaskInput struct {
	OrderItemID uint    `json:"order_item_id" binding:"required"`
	ChefID      uint    `json:"chef_id" binding:"required"`
	Quantity    float64 `json:"quantity,omitempty"` // defaults to the item quantity
}

// AssignTasks upserts assignments for order line items. An order must be
// approved or already in production; assigning the first task moves an
// approved order into production. An existing assignment may only be
// re-issued to the same chef.
func (s *Service) AssignTasks(ctx context.Context, actor user.Actor, req *AssignTasksRequest) ([]Assignment, error) {
	if !actor.HasRole(user.RoleAdmin, user.RoleProduction) {
		return nil, apperr.Authorizationf("role %s may not assign production tasks", actor.Role)
	}
	if len(req.Tasks) == 0 {
		return nil, apperr.Validationf("at least one task is required")
	}

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

	if o.Status != order.OrderStatusApproved && o.Status != order.OrderStatusInProduction {
		tx.Rollback()
		return nil, apperr.InvalidTransitionf(string(o.Status), string(order.OrderStatusInProduction))
	}

	itemsByID := make(map[uint]*order.OrderItem, len(o.Items))
	for i := range o.Items {
		itemsByID[o.Items[i].ID] = &o.Items[i]
	}

	var assignments []Assignment
	for _, task := range req.Tasks {
		item, ok := itemsByID[task.OrderItemID]
		if !ok {
			tx.Rollback()
			return nil, apperr.NotFoundf("order item", task.OrderItemID)
		}

		assignment, err := s.upsertAssignmentTx(tx, &o, item, task)
		if err != nil {
			tx.Rollback()
			return nil, err
		}
		assignments = append(assignments, *assignment)
	}

	if o.Status == order.OrderStatusApproved {
		if err := order.TransitionTx(tx, &o, order.OrderStatusInProduction, actor.UserID, "Production started"); err != nil {
			tx.Rollback()
			return nil, err
		}
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("failed to commit assignments: %w", err)
	}

	for _, a := range assignments {
		event := events.New(events.TopicTaskAssigned)
		event.OrderID = a.OrderID
		event.ItemID = a.OrderItemID
		event.ActorID = actor.UserID
		s.publisher.Publish(ctx, event)
	}

	if _, err := s.SyncOrderTasks(ctx, req.OrderID); err != nil {
		s.logger.WithError(err).WithField("order_id", req.OrderID).Warn("post-assignment sync failed")
	}

	return assignments, nil
}

// upsertAssignmentTx creates or re-issues the assignment for (order, item).
// Reassigning to a different chef is rejected so in-progress work is never
// silently orphaned.
func (s *Service) upsertAssignmentTx(tx *gorm.DB, o *order.Order, item *order.OrderItem, task TaskInput) (*Assignment, error) {
	var chef user.User
	if err := tx.Where("id = ? AND is_active = ?", task.ChefID, true).First(&chef).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFoundf("chef", task.ChefID)
		}
		return nil, fmt.Errorf("failed to load chef: %w", err)
	}

	p, err := product.GetProductTx(tx, item.ProductID)
	if err != nil {
		return nil, err
	}

	if chef.Department != p.Department {
		return nil, fmt.Errorf("%w: chef %d is in %s, product %d belongs to %s",
			apperr.ErrDepartmentMismatch, chef.ID, chef.Department, p.ID, p.Department)
	}

	quantity := task.Quantity
	if quantity == 0 {
		quantity = item.Quantity
	}
	if !p.ValidQuantity(quantity) {
		return nil, fmt.Errorf("%w: %.2f is not a valid %s quantity", apperr.ErrInvalidQuantity, quantity, p.Unit)
	}

	var existing Assignment
	err = tx.Where("order_id = ? AND order_item_id = ?", o.ID, item.ID).First(&existing).Error
	switch {
	case err == nil:
		if existing.ChefID != task.ChefID {
			return nil, fmt.Errorf("%w: item %d is already assigned to chef %d",
				apperr.ErrReassignmentDenied, item.ID, existing.ChefID)
		}
		if err := tx.Model(&existing).Update("quantity", quantity).Error; err != nil {
			return nil, fmt.Errorf("failed to update assignment: %w", err)
		}
		existing.Quantity = quantity
		return &existing, nil

	case errors.Is(err, gorm.ErrRecordNotFound):
		assignment := Assignment{
			OrderID:     o.ID,
			OrderItemID: item.ID,
			ChefID:      task.ChefID,
			ProductID:   item.ProductID,
			Quantity:    quantity,
			Status:      AssignmentStatusPending,
		}
		if err := tx.Create(&assignment).Error; err != nil {
			return nil, fmt.Errorf("failed to create assignment: %w", err)
		}

		if err := tx.Model(item).Updates(map[string]interface{}{
			"status":      order.ItemStatusAssigned,
			"assigned_to": task.ChefID,
		}).Error; err != nil {
			return nil, fmt.Errorf("failed to mark item assigned: %w", err)
		}
		item.Status = order.ItemStatusAssigned
		item.AssignedTo = &task.ChefID
		return &assignment, nil

	default:
		return nil, fmt.Errorf("failed to load assignment: %w", err)
	}
}

// UpdateStatus advances one assignment along pending -> in_progress ->
// completed, stamping the timestamp on first entry into each state.
func (s *Service) UpdateStatus(ctx context.Context, actor user.Actor, assignmentID uint, next AssignmentStatus) (*Assignment, error) {
	switch next {
	case AssignmentStatusInProgress, AssignmentStatusCompleted:
	default:
		return nil, apperr.Validationf("unknown assignment status %q", next)
	}

	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	var assignment Assignment
	if err := tx.Where("id = ?", assignmentID).First(&assignment).Error; err != nil {
		tx.Rollback()
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFoundf("assignment", assignmentID)
		}
		return nil, fmt.Errorf("failed to load assignment: %w", err)
	}

	// Chefs may only report progress on their own assignments.
	if actor.Role == user.RoleChef && assignment.ChefID != actor.UserID {
		tx.Rollback()
		return nil, apperr.Authorizationf("assignment %d belongs to another chef", assignmentID)
	}
	if !actor.HasRole(user.RoleChef, user.RoleProduction, user.RoleAdmin) {
		tx.Rollback()
		return nil, apperr.Authorizationf("role %s may not update task status", actor.Role)
	}

	if assignment.Status == AssignmentStatusCompleted && next == AssignmentStatusCompleted {
		tx.Rollback()
		return nil, fmt.Errorf("%w: assignment %d", apperr.ErrAlreadyCompleted, assignmentID)
	}
	if !canAdvance(assignment.Status, next) {
		tx.Rollback()
		return nil, apperr.InvalidTransitionf(string(assignment.Status), string(next))
	}

	now := time.Now().UTC()
	updates := map[string]interface{}{"status": next}
	switch next {
	case AssignmentStatusInProgress:
		if assignment.StartedAt == nil {
			updates["started_at"] = now
			assignment.StartedAt = &now
		}
	case AssignmentStatusCompleted:
		if assignment.CompletedAt == nil {
			updates["completed_at"] = now
			assignment.CompletedAt = &now
		}
	}

	if err := tx.Model(&assignment).Updates(updates).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to update assignment status: %w", err)
	}
	assignment.Status = next

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("failed to commit status update: %w", err)
	}

	event := events.New(events.TopicTaskStatusChanged)
	event.OrderID = assignment.OrderID
	event.ItemID = assignment.OrderItemID
	event.ActorID = actor.UserID
	event.ToStatus = string(next)
	s.publisher.Publish(ctx, event)

	if _, err := s.SyncOrderTasks(ctx, assignment.OrderID); err != nil {
		s.logger.WithError(err).WithField("order_id", assignment.OrderID).Warn("post-update sync failed")
	}

	return &assignment, nil
}

// GetOrderAssignments lists the ledger rows for one order
func (s *Service) GetOrderAssignments(orderID uint) ([]Assignment, error) {
	var assignments []Assignment
	if err := s.db.Where("order_id = ?", orderID).Order("order_item_id").Find(&assignments).Error; err != nil {
		return nil, fmt.Errorf("failed to load assignments: %w", err)
	}
	return assignments, nil
}

// GetChefAssignments lists a chef's open assignments
func (s *Service) GetChefAssignments(chefID uint) ([]Assignment, error) {
	var assignments []Assignment
	if err := s.db.Where("chef_id = ? AND status <> ?", chefID, AssignmentStatusCompleted).
		Order("created_at").Find(&assignments).Error; err != nil {
		return nil, fmt.Errorf("failed to load chef assignments: %w", err)
	}
	return assignments, nil
}
