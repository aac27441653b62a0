package order

import "github.com/InfiniteGosi/YolmaFoodApp/pkg/models"

// successors lists the statuses reachable in one step. Cancellation is
// allowed from every non-terminal status.
var successors = map[models.OrderStatus][]models.OrderStatus{
	models.OrderStatusInitialized:    {models.OrderStatusConfirmed, models.OrderStatusCancelled},
	models.OrderStatusConfirmed:      {models.OrderStatusPreparing, models.OrderStatusCancelled},
	models.OrderStatusPreparing:      {models.OrderStatusOutForDelivery, models.OrderStatusCancelled},
	models.OrderStatusOutForDelivery: {models.OrderStatusDelivered, models.OrderStatusCancelled},
}

// IsTerminal reports whether no transition leaves s.
func IsTerminal(s models.OrderStatus) bool {
	return len(successors[s]) == 0
}

func CanTransition(from, to models.OrderStatus) bool {
	for _, next := range successors[from] {
		if next == to {
			return true
		}
	}
	return false
}
