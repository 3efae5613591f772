// internal/interfaces/http/handlers/task.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/your-org/production-backend/internal/domain/production"
	"github.com/your-org/production-backend/internal/interfaces/http/middleware"
)

// TaskHandler handles production assignment endpoints
type TaskHandler struct {
	productionService *production.Service
}

// NewTaskHandler creates a new task handler
func NewTaskHandler(productionService *production.Service) *TaskHandler {
	return &TaskHandler{
		productionService: productionService,
	}
}

// AssignTasks bulk-assigns chefs to order line items
func (h *TaskHandler) AssignTasks(c *gin.Context) {
	actor, ok := middleware.GetActorFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	var req production.AssignTasksRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	assignments, err := h.productionService.AssignTasks(c.Request.Context(), actor, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Tasks assigned successfully",
		"data":    assignments,
	})
}

// UpdateTaskStatus advances one assignment's production status
func (h *TaskHandler) UpdateTaskStatus(c *gin.Context) {
	actor, ok := middleware.GetActorFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	id, err := parseIDParam(c, "id")
	if err != nil {
		return
	}

	var req struct {
		Status production.AssignmentStatus `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	assignment, err := h.productionService.UpdateStatus(c.Request.Context(), actor, id, req.Status)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Task status updated successfully",
		"data":    assignment,
	})
}

// GetOrderTasks lists assignments for one order
func (h *TaskHandler) GetOrderTasks(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return
	}

	assignments, err := h.productionService.GetOrderAssignments(id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Assignments retrieved successfully",
		"data":    assignments,
	})
}

// GetMyTasks lists the calling chef's open assignments
func (h *TaskHandler) GetMyTasks(c *gin.Context) {
	actor, ok := middleware.GetActorFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	assignments, err := h.productionService.GetChefAssignments(actor.UserID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Assignments retrieved successfully",
		"data":    assignments,
	})
}

// SyncOrder runs a reconciliation pass for one order
func (h *TaskHandler) SyncOrder(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return
	}

	result, err := h.productionService.SyncOrderTasks(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Order synchronized successfully",
		"data":    result,
	})
}
