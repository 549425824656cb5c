package lifecycle

import (
	"fmt"
	"strings"

	"github.com/shashiranjanraj/panaya/app/models"
)

var orderNext = map[models.OrderStatus][]models.OrderStatus{
	models.OrderPendingPayment:    {models.OrderPendingReview, models.OrderCancelled},
	models.OrderPendingReview:     {models.OrderPendingReview, models.OrderProcessing, models.OrderPendingPayment, models.OrderCancelled},
	models.OrderProcessing:        {models.OrderPreparingShipment, models.OrderInTransit, models.OrderCompleted, models.OrderCancelled},
	models.OrderPreparingShipment: {models.OrderPreparingShipment, models.OrderInTransit, models.OrderCompleted, models.OrderCancelled},
	models.OrderInTransit:         {models.OrderInTransit, models.OrderCompleted, models.OrderCancelled},
}

var paymentNext = map[models.PaymentStatus][]models.PaymentStatus{
	models.PaymentPending:     {models.PaymentUnderReview},
	models.PaymentUnderReview: {models.PaymentUnderReview, models.PaymentPaid, models.PaymentPending},
}

// CanOrder reports whether an order may move from one status to another.
func CanOrder(from, to models.OrderStatus) bool {
	for _, s := range orderNext[from] {
		if s == to {
			return true
		}
	}
	return false
}

func CanPayment(from, to models.PaymentStatus) bool {
	for _, s := range paymentNext[from] {
		if s == to {
			return true
		}
	}
	return false
}

// CanShipment allows same-or-higher rank moves out of unlocked statuses.
// Returning to pending_payment is only a no-op.
func CanShipment(from, to models.ShipmentStatus) bool {
	if !from.Valid() || !to.Valid() || from.Locked() {
		return false
	}
	if to == models.ShipmentPendingPayment {
		return from == models.ShipmentPendingPayment
	}
	return to.Rank() >= from.Rank()
}

func ParseOrderStatus(s string) (models.OrderStatus, error) {
	v := models.OrderStatus(strings.TrimSpace(s))
	if !v.Valid() {
		return "", fmt.Errorf("%w %q", ErrUnknownStatus, s)
	}
	return v, nil
}

func ParsePaymentStatus(s string) (models.PaymentStatus, error) {
	v := models.PaymentStatus(strings.TrimSpace(s))
	if !v.Valid() {
		return "", fmt.Errorf("%w %q", ErrUnknownStatus, s)
	}
	return v, nil
}

func ParseShipmentStatus(s string) (models.ShipmentStatus, error) {
	v := models.ShipmentStatus(strings.TrimSpace(s))
	if !v.Valid() {
		return "", fmt.Errorf("%w %q", ErrUnknownStatus, s)
	}
	return v, nil
}

// ForOrderStatus translates a requested order status into the action that
// produces it.
func ForOrderStatus(target models.OrderStatus) (Input, error) {
	switch target {
	case models.OrderProcessing:
		return Input{Action: ActionApprovePayment}, nil
	case models.OrderPendingPayment:
		return Input{Action: ActionRequestReupload}, nil
	case models.OrderPreparingShipment:
		return Input{Action: ActionUpdateShipment, Shipment: models.ShipmentPreparingShipment}, nil
	case models.OrderInTransit:
		return Input{Action: ActionUpdateShipment, Shipment: models.ShipmentInTransit}, nil
	case models.OrderCompleted:
		return Input{Action: ActionUpdateShipment, Shipment: models.ShipmentDelivered}, nil
	case models.OrderCancelled:
		return Input{Action: ActionCancel}, nil
	case models.OrderPendingReview:
		return Input{}, ErrProofRequired
	}
	return Input{}, fmt.Errorf("%w %q", ErrUnknownStatus, target)
}

func ForPaymentStatus(target models.PaymentStatus) (Input, error) {
	switch target {
	case models.PaymentPaid:
		return Input{Action: ActionApprovePayment}, nil
	case models.PaymentPending:
		return Input{Action: ActionRequestReupload}, nil
	case models.PaymentUnderReview:
		return Input{}, ErrProofRequired
	}
	return Input{}, fmt.Errorf("%w %q", ErrUnknownStatus, target)
}

// Drift lists the ways a stored triple disagrees with the machine. Terminal
// orders are not checked.
func Drift(s State) []string {
	if s.Order.Terminal() && s.Order != models.OrderCompleted {
		return nil
	}
	var out []string
	paidOnly := s.Order == models.OrderProcessing || s.Order == models.OrderPreparingShipment ||
		s.Order == models.OrderInTransit || s.Order == models.OrderCompleted
	if paidOnly && s.Payment != "" && s.Payment != models.PaymentPaid {
		out = append(out, fmt.Sprintf("order is %s but payment is %s", s.Order, s.Payment))
	}
	if s.Payment == models.PaymentPaid && s.Shipment != "" && s.Order != models.OrderProcessing {
		if want := s.Shipment.OrderStatus(); want != s.Order {
			out = append(out, fmt.Sprintf("order is %s but shipment %s implies %s", s.Order, s.Shipment, want))
		}
	}
	if s.Payment == models.PaymentUnderReview && s.Order != models.OrderPendingReview {
		out = append(out, fmt.Sprintf("payment is under review but order is %s", s.Order))
	}
	return out
}

// Repair returns the order status the shipment implies once payment is paid,
// or the current status when nothing better is known.
func Repair(s State) models.OrderStatus {
	switch {
	case s.Payment == models.PaymentPaid && s.Shipment != "":
		return s.Shipment.OrderStatus()
	case s.Payment == models.PaymentUnderReview:
		return models.OrderPendingReview
	case s.Payment == models.PaymentPending:
		return models.OrderPendingPayment
	}
	return s.Order
}
