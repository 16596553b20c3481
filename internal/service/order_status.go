package service

import (
	"strings"

	"github.com/timestamp-store/internal/constants"
)

var allowedTransitions = map[string]map[string]bool{
	constants.OrderStatusPending: {
		constants.OrderStatusConfirmed: true,
		constants.OrderStatusCancelled: true,
	},
	constants.OrderStatusConfirmed: {
		constants.OrderStatusProcessing: true,
		constants.OrderStatusCancelled:  true,
	},
	constants.OrderStatusProcessing: {
		constants.OrderStatusShipped:   true,
		constants.OrderStatusCancelled: true,
	},
	constants.OrderStatusShipped: {
		constants.OrderStatusOutForDelivery: true,
		constants.OrderStatusCancelled:      true,
	},
	constants.OrderStatusOutForDelivery: {
		constants.OrderStatusDelivered: true,
		constants.OrderStatusCancelled: true,
	},
	constants.OrderStatusDelivered: {
		constants.OrderStatusReturned: true,
	},
	constants.OrderStatusCancelled: {},
	constants.OrderStatusReturned:  {},
}

// NormalizeOrderStatus 标准化订单状态，未知状态返回空
func NormalizeOrderStatus(status string) string {
	status = strings.ToLower(strings.TrimSpace(status))
	if _, ok := allowedTransitions[status]; ok {
		return status
	}
	return ""
}

// ValidateStatusTransition 校验订单状态流转，同状态视为允许
func ValidateStatusTransition(from, to string) error {
	if _, ok := allowedTransitions[to]; !ok {
		return ErrInvalidOrderStatus.WithMessagef("Unknown order status %q", to)
	}
	if from == to {
		return nil
	}
	next, ok := allowedTransitions[from]
	if !ok || !next[to] {
		return ErrInvalidTransition.WithMessagef("Cannot change order status from %s to %s", displayStatus(from), displayStatus(to))
	}
	return nil
}

// OrderRollup 根据订单项状态推导出的订单状态
type OrderRollup struct {
	Status        string
	PaymentStatus string
	MarkDelivered bool
	Changed       bool
}

// ResolveOrderStatusFromItems 由订单项状态集合推导订单状态，只依赖当前集合
func ResolveOrderStatusFromItems(itemStatuses []string, currentStatus, currentPayment string) OrderRollup {
	unchanged := OrderRollup{Status: currentStatus, PaymentStatus: currentPayment}
	if len(itemStatuses) == 0 {
		return unchanged
	}
	var cancelled, returned, delivered int
	for _, status := range itemStatuses {
		switch status {
		case constants.OrderItemStatusCancelled:
			cancelled++
		case constants.OrderItemStatusReturned:
			returned++
		case constants.OrderItemStatusDelivered:
			delivered++
		}
	}
	total := len(itemStatuses)
	switch {
	case cancelled == total:
		return rollupTo(currentStatus, constants.OrderStatusCancelled, constants.PaymentStatusCancelled, false)
	case returned == total:
		return rollupTo(currentStatus, constants.OrderStatusReturned, constants.PaymentStatusRefunded, false)
	case delivered > 0 && delivered+cancelled == total:
		return rollupTo(currentStatus, constants.OrderStatusDelivered, constants.PaymentStatusCompleted, true)
	default:
		return unchanged
	}
}

func rollupTo(current, status, payment string, markDelivered bool) OrderRollup {
	return OrderRollup{
		Status:        status,
		PaymentStatus: payment,
		MarkDelivered: markDelivered,
		Changed:       current != status,
	}
}

func displayStatus(status string) string {
	if status == "" {
		return "unknown"
	}
	return strings.ReplaceAll(status, "_", " ")
}
