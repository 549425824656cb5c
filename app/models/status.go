package models

type Role string

const (
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
)

func (r Role) Valid() bool { return r == RoleCustomer || r == RoleAdmin }

// OrderStatus is the customer-facing state of an order.
type OrderStatus string

const (
	OrderPendingPayment    OrderStatus = "pending_payment"
	OrderPendingReview     OrderStatus = "pending_review"
	OrderProcessing        OrderStatus = "processing"
	OrderPreparingShipment OrderStatus = "preparing_shipment"
	OrderInTransit         OrderStatus = "in_transit"
	OrderCompleted         OrderStatus = "completed"
	OrderCancelled         OrderStatus = "cancelled"
)

var orderStatuses = []OrderStatus{
	OrderPendingPayment, OrderPendingReview, OrderProcessing, OrderPreparingShipment,
	OrderInTransit, OrderCompleted, OrderCancelled,
}

func (s OrderStatus) Valid() bool {
	for _, v := range orderStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// Terminal orders accept no further transition.
func (s OrderStatus) Terminal() bool { return s == OrderCompleted || s == OrderCancelled }

type PaymentStatus string

const (
	PaymentPending     PaymentStatus = "pending_payment"
	PaymentUnderReview PaymentStatus = "under_review"
	PaymentPaid        PaymentStatus = "paid"
)

func (s PaymentStatus) Valid() bool {
	return s == PaymentPending || s == PaymentUnderReview || s == PaymentPaid
}

type ShipmentStatus string

const (
	ShipmentPendingPayment    ShipmentStatus = "pending_payment"
	ShipmentPreparingShipment ShipmentStatus = "preparing_shipment"
	ShipmentInTransit         ShipmentStatus = "in_transit"
	ShipmentDelivered         ShipmentStatus = "delivered"
	ShipmentCancelled         ShipmentStatus = "cancelled"
)

var shipmentRank = map[ShipmentStatus]int{
	ShipmentPendingPayment:    0,
	ShipmentPreparingShipment: 1,
	ShipmentInTransit:         2,
	ShipmentDelivered:         3,
	ShipmentCancelled:         4,
}

func (s ShipmentStatus) Valid() bool {
	_, ok := shipmentRank[s]
	return ok
}

// Rank orders shipment statuses; a shipment never moves to a lower rank.
// Unknown statuses rank -1.
func (s ShipmentStatus) Rank() int {
	if r, ok := shipmentRank[s]; ok {
		return r
	}
	return -1
}

// Locked shipments accept no further update.
func (s ShipmentStatus) Locked() bool { return s == ShipmentDelivered || s == ShipmentCancelled }

// OrderStatus is the order status implied by a shipment status.
func (s ShipmentStatus) OrderStatus() OrderStatus {
	switch s {
	case ShipmentPendingPayment:
		return OrderPendingPayment
	case ShipmentPreparingShipment:
		return OrderPreparingShipment
	case ShipmentInTransit:
		return OrderInTransit
	case ShipmentDelivered:
		return OrderCompleted
	case ShipmentCancelled:
		return OrderCancelled
	default:
		return OrderProcessing
	}
}
