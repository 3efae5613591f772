// internal/domain/order/transitions.go
package order

// OrderStatus represents the aggregate order status
type OrderStatus string

const (
	OrderStatusPending      OrderStatus = "pending"
	OrderStatusApproved     OrderStatus = "approved"
	OrderStatusInProduction OrderStatus = "in_production"
	OrderStatusCompleted    OrderStatus = "completed"
	OrderStatusInTransit    OrderStatus = "in_transit"
	OrderStatusDelivered    OrderStatus = "delivered"
	OrderStatusCancelled    OrderStatus = "cancelled"
)

// transitions is the fixed legal state graph. Once production is complete
// the order can no longer be cancelled; delivered and cancelled are final.
var transitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:      {OrderStatusApproved, OrderStatusCancelled},
	OrderStatusApproved:     {OrderStatusInProduction, OrderStatusCancelled},
	OrderStatusInProduction: {OrderStatusCompleted, OrderStatusCancelled},
	OrderStatusCompleted:    {OrderStatusInTransit},
	OrderStatusInTransit:    {OrderStatusDelivered},
	OrderStatusDelivered:    {},
	OrderStatusCancelled:    {},
}

// CanTransition reports whether the edge current -> next exists in the
// status graph. Every entry point that mutates order status consults this
// before writing.
func CanTransition(current, next OrderStatus) bool {
	for _, allowed := range transitions[current] {
		if allowed == next {
			return true
		}
	}
	return false
}
