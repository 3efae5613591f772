// internal/interfaces/http/handlers/inventory.go
package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/your-org/production-backend/internal/domain/inventory"
	"github.com/your-org/production-backend/internal/interfaces/http/middleware"
)

// InventoryHandler handles stock ledger endpoints
type InventoryHandler struct {
	inventoryService *inventory.Service
}

// NewInventoryHandler creates a new inventory handler
func NewInventoryHandler(inventoryService *inventory.Service) *InventoryHandler {
	return &InventoryHandler{
		inventoryService: inventoryService,
	}
}

// AdjustmentRequest represents a manual stock adjustment
type AdjustmentRequest struct {
	BranchID  uint    `json:"branch_id" binding:"required"`
	ProductID uint    `json:"product_id" binding:"required"`
	Quantity  float64 `json:"quantity" binding:"required"` // Signed; negative reduces stock
	Kind      string  `json:"kind" binding:"required"`     // "adjustment" or "damage"
	Reference string  `json:"reference"`
}

// ApplyAdjustment applies a manual adjustment or damage write-off
func (h *InventoryHandler) ApplyAdjustment(c *gin.Context) {
	actor, ok := middleware.GetActorFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	var req AdjustmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	kind := inventory.MovementKind(req.Kind)
	if kind != inventory.MovementAdjustment && kind != inventory.MovementDamage {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Kind must be adjustment or damage"})
		return
	}

	record, err := h.inventoryService.ApplyMovement(inventory.Movement{
		BranchID:  req.BranchID,
		ProductID: req.ProductID,
		Quantity:  req.Quantity,
		Kind:      kind,
		Reference: req.Reference,
		ActorID:   actor.UserID,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Stock updated successfully",
		"data":    record,
	})
}

// GetBranchStock lists all stock records for a branch
func (h *InventoryHandler) GetBranchStock(c *gin.Context) {
	actor, ok := middleware.GetActorFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	branchID, err := parseIDParam(c, "branch_id")
	if err != nil {
		return
	}

	if !actor.CanActFor(branchID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Access to this branch denied"})
		return
	}

	records, err := h.inventoryService.GetBranchStock(branchID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Stock retrieved successfully",
		"data":    records,
	})
}

// GetStockRecord retrieves one (branch, product) stock record
func (h *InventoryHandler) GetStockRecord(c *gin.Context) {
	actor, ok := middleware.GetActorFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	branchID, err := parseIDParam(c, "branch_id")
	if err != nil {
		return
	}
	productID, err := parseIDParam(c, "product_id")
	if err != nil {
		return
	}

	if !actor.CanActFor(branchID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Access to this branch denied"})
		return
	}

	record, err := h.inventoryService.GetStockRecord(branchID, productID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Stock record retrieved successfully",
		"data":    record,
	})
}

// GetMovements lists the movement trail for one (branch, product)
func (h *InventoryHandler) GetMovements(c *gin.Context) {
	actor, ok := middleware.GetActorFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	branchID, err := parseIDParam(c, "branch_id")
	if err != nil {
		return
	}
	productID, err := parseIDParam(c, "product_id")
	if err != nil {
		return
	}

	if !actor.CanActFor(branchID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Access to this branch denied"})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	movements, err := h.inventoryService.GetMovements(branchID, productID, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Movements retrieved successfully",
		"data":    movements,
	})
}
