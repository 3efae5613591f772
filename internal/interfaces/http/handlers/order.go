// internal/interfaces/http/handlers/order.go
package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/your-org/production-backend/internal/domain/order"
	"github.com/your-org/production-backend/internal/domain/user"
	"github.com/your-org/production-backend/internal/interfaces/http/middleware"
)

// OrderHandler handles order lifecycle endpoints
type OrderHandler struct {
	orderService *order.Service
}

// NewOrderHandler creates a new order handler
func NewOrderHandler(orderService *order.Service) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
	}
}

// CreateOrder handles order creation
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	actor, ok := middleware.GetActorFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	var req order.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	o, err := h.orderService.CreateOrder(c.Request.Context(), actor, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Order created successfully",
		"data":    o,
	})
}

// GetOrders lists orders, branch-scoped for branch actors
func (h *OrderHandler) GetOrders(c *gin.Context) {
	actor, ok := middleware.GetActorFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	var req order.OrderListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid query parameters",
			"details": err.Error(),
		})
		return
	}

	response, err := h.orderService.GetOrders(actor, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Orders retrieved successfully",
		"data":    response,
	})
}

// GetOrder retrieves one order with items and history
func (h *OrderHandler) GetOrder(c *gin.Context) {
	actor, ok := middleware.GetActorFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	id, err := parseIDParam(c, "id")
	if err != nil {
		return
	}

	o, err := h.orderService.GetOrder(actor, id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Order retrieved successfully",
		"data":    o,
	})
}

// ApproveOrder moves a pending order to approved
func (h *OrderHandler) ApproveOrder(c *gin.Context) {
	h.transition(c, h.orderService.ApproveOrder, "Order approved successfully")
}

// StartTransit moves a completed order into transit
func (h *OrderHandler) StartTransit(c *gin.Context) {
	h.transition(c, h.orderService.StartTransit, "Order in transit")
}

// ConfirmDelivery marks an in-transit order delivered and credits stock
func (h *OrderHandler) ConfirmDelivery(c *gin.Context) {
	h.transition(c, h.orderService.ConfirmDelivery, "Delivery confirmed")
}

// CancelOrder cancels a non-terminal order
func (h *OrderHandler) CancelOrder(c *gin.Context) {
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
		Reason string `json:"reason"`
	}
	_ = c.ShouldBindJSON(&req)

	o, err := h.orderService.CancelOrder(c.Request.Context(), actor, id, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Order cancelled successfully",
		"data":    o,
	})
}

type transitionFunc func(ctx context.Context, actor user.Actor, orderID uint) (*order.Order, error)

func (h *OrderHandler) transition(c *gin.Context, fn transitionFunc, message string) {
	actor, ok := middleware.GetActorFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	id, err := parseIDParam(c, "id")
	if err != nil {
		return
	}

	o, err := fn(c.Request.Context(), actor, id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": message,
		"data":    o,
	})
}

// parseIDParam parses a positive uint path parameter or writes a 400
func parseIDParam(c *gin.Context, name string) (uint, error) {
	raw := c.Param(name)
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name + " parameter"})
		return 0, strconv.ErrSyntax
	}
	return uint(id), nil
}
