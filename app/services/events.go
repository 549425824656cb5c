package services

import (
	"time"

	"github.com/shashiranjanraj/panaya/app/lifecycle"
	"github.com/shashiranjanraj/panaya/app/models"
)

const (
	EventOrderPlaced       = "order.placed"
	EventOrderTransitioned = "order.transitioned"
)

type Statuses struct {
	Order    models.OrderStatus    `json:"order"`
	Payment  models.PaymentStatus  `json:"payment,omitempty"`
	Shipment models.ShipmentStatus `json:"shipment,omitempty"`
}

func statusesOf(s lifecycle.State) Statuses {
	return Statuses{Order: s.Order, Payment: s.Payment, Shipment: s.Shipment}
}

// stateOf reads the triple off an order loaded with Payment and Shipment.
func stateOf(o *models.Order) lifecycle.State {
	st := lifecycle.State{Order: o.Status}
	if o.Payment != nil {
		st.Payment = o.Payment.PaymentStatus
	}
	if o.Shipment != nil {
		st.Shipment = o.Shipment.Status
	}
	return st
}

// OrderStatuses is the current status triple of o.
func OrderStatuses(o *models.Order) Statuses { return statusesOf(stateOf(o)) }

// OrderEvent is the payload of both order events. It is what listeners
// push to the broker, the websocket feed and the SSE stream.
type OrderEvent struct {
	Type           string    `json:"type"`
	OrderID        uint      `json:"order_id"`
	UserID         uint      `json:"user_id"`
	Action         string    `json:"action,omitempty"`
	From           *Statuses `json:"from,omitempty"`
	To             Statuses  `json:"to"`
	Note           string    `json:"note,omitempty"`
	TrackingNumber string    `json:"tracking_number,omitempty"`
	Total          float64   `json:"total_amount"`
	At             time.Time `json:"at"`
}
