package checkout

import (
	"context"
	"errors"

	"bakehouse/internal/model"
	"bakehouse/internal/store"

	"go.uber.org/zap"
)

// allowedPrev lists, per target status, the statuses an order may move from.
// The table deliberately allows staff to walk orders backwards (fulfilled ->
// ready, ready/fulfilled -> processing) to correct mistakes.
var allowedPrev = map[model.OrderStatus][]model.OrderStatus{
	model.StatusReady:          {model.StatusPending, model.StatusProcessing, model.StatusFulfilled},
	model.StatusFulfilled:      {model.StatusReady},
	model.StatusCancelled:      {model.StatusPending, model.StatusProcessing, model.StatusReady},
	model.StatusRefunded:       {model.StatusFulfilled, model.StatusCancelled},
	model.StatusActionRequired: {model.StatusPending, model.StatusProcessing},
	model.StatusProcessing:     {model.StatusReady, model.StatusFulfilled},
}

// statusTemplates maps a target status to the customer email template fired
// on a successful transition. Targets without a template notify nobody.
var statusTemplates = map[model.OrderStatus]string{
	model.StatusReady:          "order-ready",
	model.StatusFulfilled:      "order-fulfilled",
	model.StatusCancelled:      "order-cancelled",
	model.StatusRefunded:       "order-refunded",
	model.StatusActionRequired: "order-action-required",
}

// CanTransition reports whether an order may move from one status to another.
func CanTransition(from, to model.OrderStatus) bool {
	for _, s := range allowedPrev[to] {
		if s == from {
			return true
		}
	}
	return false
}

// UpdateOrderStatus applies one transition on behalf of a staff actor.
// The notification is fire-and-forget: a mail failure never fails the
// status change.
func (c *Coordinator) UpdateOrderStatus(ctx context.Context, actor *model.User, orderID uint, next model.OrderStatus) error {
	if actor == nil || !actor.Role.CanManageOrders() {
		return reject(CodeUnauthorized, "Unauthorized")
	}
	if _, ok := allowedPrev[next]; !ok {
		return reject(CodeValidation, "Unknown status %q", next)
	}

	order, err := c.store.Orders.FindByIDWithItems(ctx, orderID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return reject(CodeOrderNotFound, "Order not found")
		}
		c.log.Error("load order for status update", zap.Uint("order_id", orderID), zap.Error(err))
		return reject(CodeInternal, "Failed to update order status")
	}

	if !CanTransition(order.Status, next) {
		return reject(CodeBadTransition, "Cannot change status from %s to %s", order.Status, next)
	}

	if err := c.store.Orders.UpdateStatus(ctx, orderID, next); err != nil {
		c.log.Error("persist status update",
			zap.Uint("order_id", orderID),
			zap.String("next", string(next)),
			zap.Error(err))
		return reject(CodeInternal, "Failed to update order status")
	}

	c.log.Info("order status changed",
		zap.Uint("order_id", orderID),
		zap.String("order_no", order.OrderNo),
		zap.String("from", string(order.Status)),
		zap.String("to", string(next)),
		zap.String("actor", actor.Email))

	if template, ok := statusTemplates[next]; ok {
		c.notifyAsync(order.CustomerEmail, template, map[string]string{
			"order_no": order.OrderNo,
			"name":     order.CustomerName,
			"status":   string(next),
		})
	}

	c.invalidate(ctx, TagOrders, TagDashboard)
	return nil
}
