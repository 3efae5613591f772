package order_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/your-org/production-backend/internal/domain/order"
)

func TestCanTransition_LegalEdges(t *testing.T) {
	tests := []struct {
		from order.OrderStatus
		to   order.OrderStatus
	}{
		{order.OrderStatusPending, order.OrderStatusApproved},
		{order.OrderStatusPending, order.OrderStatusCancelled},
		{order.OrderStatusApproved, order.OrderStatusInProduction},
		{order.OrderStatusApproved, order.OrderStatusCancelled},
		{order.OrderStatusInProduction, order.OrderStatusCompleted},
		{order.OrderStatusInProduction, order.OrderStatusCancelled},
		{order.OrderStatusCompleted, order.OrderStatusInTransit},
		{order.OrderStatusInTransit, order.OrderStatusDelivered},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"_to_"+string(tt.to), func(t *testing.T) {
			assert.True(t, order.CanTransition(tt.from, tt.to))
		})
	}
}

func TestCanTransition_IllegalEdges(t *testing.T) {
	tests := []struct {
		from order.OrderStatus
		to   order.OrderStatus
	}{
		{order.OrderStatusPending, order.OrderStatusInProduction},
		{order.OrderStatusPending, order.OrderStatusInTransit},
		{order.OrderStatusPending, order.OrderStatusDelivered},
		{order.OrderStatusApproved, order.OrderStatusCompleted},
		{order.OrderStatusInProduction, order.OrderStatusInTransit},
		// Once production finished the goods exist; cancellation is closed.
		{order.OrderStatusCompleted, order.OrderStatusCancelled},
		{order.OrderStatusCompleted, order.OrderStatusDelivered},
		{order.OrderStatusInTransit, order.OrderStatusCancelled},
		{order.OrderStatusDelivered, order.OrderStatusCancelled},
		{order.OrderStatusDelivered, order.OrderStatusPending},
		{order.OrderStatusCancelled, order.OrderStatusPending},
		{order.OrderStatusCancelled, order.OrderStatusApproved},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"_to_"+string(tt.to), func(t *testing.T) {
			assert.False(t, order.CanTransition(tt.from, tt.to))
		})
	}
}

func TestIsTerminal(t *testing.T) {
	assert.True(t, (&order.Order{Status: order.OrderStatusDelivered}).IsTerminal())
	assert.True(t, (&order.Order{Status: order.OrderStatusCancelled}).IsTerminal())
	assert.False(t, (&order.Order{Status: order.OrderStatusCompleted}).IsTerminal())
	assert.False(t, (&order.Order{Status: order.OrderStatusPending}).IsTerminal())
}
