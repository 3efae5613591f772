// internal/domain/production/sync.go
package production

import (
	"context"
	"errors"
	"fmt"

	"github.com/your-org/production-backend/internal/domain/order"
	"github.com/your-org/production-backend/internal/events"
	"github.com/your-org/production-backend/internal/pkg/apperr"
	"gorm.io/gorm"
)

// SyncResult reports what one reconciliation pass changed
type SyncResult struct {
	ItemsUpdated       []uint `json:"items_updated"`
	MissingAssignments []uint `json:"missing_assignments"`
	OrderCompleted     bool   `json:"order_completed"`
}

// Changed reports whether the pass performed any writes
func (r *SyncResult) Changed() bool {
	return len(r.ItemsUpdated) > 0 || r.OrderCompleted
}

// SyncOrderTasks reconciles assignment state into the order. Once an
// assignment exists for an item it is the source of truth for the item's
// status and timestamps. Items with no assignment are surfaced as a
// missing-assignments signal so operators can assign them; that is not an
// error. When every item and every assignment is completed the order itself
// transitions to completed with a system-originated history entry.
//
// The pass is convergent: running it again on an unchanged state performs
// no writes and emits no events.
func (s *Service) SyncOrderTasks(ctx context.Context, orderID uint) (*SyncResult, error) {
	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	var o order.Order
	if err := tx.Preload("Items").Where("id = ?", orderID).First(&o).Error; err != nil {
		tx.Rollback()
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFoundf("order", orderID)
		}
		return nil, fmt.Errorf("failed to load order: %w", err)
	}

	var assignments []Assignment
	if err := tx.Where("order_id = ?", orderID).Find(&assignments).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to load assignments: %w", err)
	}

	byItemID := make(map[uint]*Assignment, len(assignments))
	for i := range assignments {
		byItemID[assignments[i].OrderItemID] = &assignments[i]
	}

	result := &SyncResult{}
	allItemsCompleted := len(o.Items) > 0
	for i := range o.Items {
		item := &o.Items[i]

		assignment, ok := byItemID[item.ID]
		if !ok {
			result.MissingAssignments = append(result.MissingAssignments, item.ID)
			allItemsCompleted = false
			continue
		}

		mirrored := assignment.ItemStatus()
		if item.Status != mirrored {
			if err := tx.Model(item).Updates(map[string]interface{}{
				"status":       mirrored,
				"assigned_to":  assignment.ChefID,
				"started_at":   assignment.StartedAt,
				"completed_at": assignment.CompletedAt,
			}).Error; err != nil {
				tx.Rollback()
				return nil, fmt.Errorf("failed to sync item %d: %w", item.ID, err)
			}
			item.Status = mirrored
			result.ItemsUpdated = append(result.ItemsUpdated, item.ID)
		}

		if item.Status != order.ItemStatusCompleted {
			allItemsCompleted = false
		}
	}

	allAssignmentsCompleted := len(assignments) > 0
	for i := range assignments {
		if assignments[i].Status != AssignmentStatusCompleted {
			allAssignmentsCompleted = false
			break
		}
	}

	alreadyPast := o.Status == order.OrderStatusCompleted ||
		o.Status == order.OrderStatusInTransit ||
		o.Status == order.OrderStatusDelivered ||
		o.Status == order.OrderStatusCancelled

	if allItemsCompleted && allAssignmentsCompleted && !alreadyPast {
		if err := order.TransitionTx(tx, &o, order.OrderStatusCompleted, 0, "All production tasks completed"); err != nil {
			tx.Rollback()
			return nil, err
		}
		result.OrderCompleted = true
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("failed to commit sync: %w", err)
	}

	// A converged pass stays silent; signals only accompany actual writes.
	if result.Changed() {
		if len(result.ItemsUpdated) > 0 {
			event := events.New(events.TopicItemStatusChanged)
			event.OrderID = o.ID
			event.BranchID = o.BranchID
			event.ItemIDs = result.ItemsUpdated
			s.publisher.Publish(ctx, event)
		}
		if result.OrderCompleted {
			event := events.New(events.TopicOrderCompleted)
			event.OrderID = o.ID
			event.BranchID = o.BranchID
			s.publisher.Publish(ctx, event)
		}
		if len(result.MissingAssignments) > 0 {
			event := events.New(events.TopicMissingAssignments)
			event.OrderID = o.ID
			event.BranchID = o.BranchID
			event.ItemIDs = result.MissingAssignments
			s.publisher.Publish(ctx, event)
		}
	}

	return result, nil
}
