// internal/interfaces/http/handlers/return.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/your-org/production-backend/internal/domain/returns"
	"github.com/your-org/production-backend/internal/interfaces/http/middleware"
)

// ReturnHandler handles return workflow endpoints
type ReturnHandler struct {
	returnsService *returns.Service
}

// NewReturnHandler creates a new return handler
func NewReturnHandler(returnsService *returns.Service) *ReturnHandler {
	return &ReturnHandler{
		returnsService: returnsService,
	}
}

// CreateReturn opens a return request for a delivered order
func (h *ReturnHandler) CreateReturn(c *gin.Context) {
	actor, ok := middleware.GetActorFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	var req returns.CreateReturnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	request, err := h.returnsService.CreateReturn(c.Request.Context(), actor, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Return request created successfully",
		"data":    request,
	})
}

// ApproveReturn accepts a pending return request
func (h *ReturnHandler) ApproveReturn(c *gin.Context) {
	actor, ok := middleware.GetActorFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	id, err := parseIDParam(c, "id")
	if err != nil {
		return
	}

	request, err := h.returnsService.ApproveReturn(c.Request.Context(), actor, id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Return approved successfully",
		"data":    request,
	})
}

// RejectReturn declines a pending return request
func (h *ReturnHandler) RejectReturn(c *gin.Context) {
	actor, ok := middleware.GetActorFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	id, err := parseIDParam(c, "id")
	if err != nil {
		return
	}

	request, err := h.returnsService.RejectReturn(c.Request.Context(), actor, id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Return rejected",
		"data":    request,
	})
}

// GetReturn retrieves one return request
func (h *ReturnHandler) GetReturn(c *gin.Context) {
	actor, ok := middleware.GetActorFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	id, err := parseIDParam(c, "id")
	if err != nil {
		return
	}

	request, err := h.returnsService.GetReturn(actor, id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Return retrieved successfully",
		"data":    request,
	})
}

// GetReturns lists return requests
func (h *ReturnHandler) GetReturns(c *gin.Context) {
	actor, ok := middleware.GetActorFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	status := returns.ReturnStatus(c.Query("status"))

	requests, err := h.returnsService.GetReturns(actor, status)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Returns retrieved successfully",
		"data":    requests,
	})
}
