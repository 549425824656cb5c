// Package lifecycle is the order state machine. It performs no I/O: callers
// load the current statuses, ask Plan for the outcome and persist it.
package lifecycle

import (
	"fmt"
	"strings"

	"github.com/shashiranjanraj/panaya/app/models"
)

type Action string

const (
	ActionSubmitProof     Action = "submit_proof"
	ActionApprovePayment  Action = "approve_payment"
	ActionRequestReupload Action = "request_reupload"
	ActionUpdateShipment  Action = "update_shipment"
	ActionCancel          Action = "cancel"
)

func ParseAction(s string) (Action, error) {
	a := Action(strings.TrimSpace(s))
	switch a {
	case ActionSubmitProof, ActionApprovePayment, ActionRequestReupload, ActionUpdateShipment, ActionCancel:
		return a, nil
	}
	return "", fmt.Errorf("%w %q", ErrUnknownAction, s)
}

// Event notes written by the machine.
const (
	NoteCheckout        = "Pending payment confirmation"
	NoteApproved        = "Payment approved by admin"
	NoteReuploadRequest = "Requested new payment proof"
	NoteCancelled       = "Order cancelled"
)

// State is the status triple of one order. Payment and Shipment are empty
// when the row does not exist.
type State struct {
	Order    models.OrderStatus
	Payment  models.PaymentStatus
	Shipment models.ShipmentStatus
}

func (s State) String() string {
	return fmt.Sprintf("order=%s payment=%s shipment=%s", s.Order, orNone(string(s.Payment)), orNone(string(s.Shipment)))
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}

type Input struct {
	Action  Action
	ByAdmin bool
	// Shipment is the update_shipment target; empty keeps the current status.
	Shipment models.ShipmentStatus
	Note     string
}

// ShipmentEvent is the log line to append. Nil means none.
type ShipmentEvent struct {
	Status models.ShipmentStatus
	Note   string
}

type Outcome struct {
	From  State
	To    State
	Event *ShipmentEvent

	ProofAccepted bool // proof stored, proof_uploaded_at set
	ProofReviewed bool // proof_reviewed_at set
	ClearProof    bool // proof object and fields dropped
	RestoreStock  bool // ordered quantities go back to the products
}

// Changed reports whether any status moves.
func (o Outcome) Changed() bool { return o.From != o.To }

// Plan decides the outcome of applying in to s.
func Plan(s State, in Input) (Outcome, error) {
	out := Outcome{From: s, To: s}
	if s.Order.Terminal() {
		return out, fmt.Errorf("%w: order is %s", ErrTransitionNotAllowed, s.Order)
	}

	switch in.Action {
	case ActionSubmitProof:
		return submitProof(out)
	case ActionApprovePayment:
		if !in.ByAdmin {
			return out, ErrAdminOnly
		}
		return approve(out)
	case ActionRequestReupload:
		if !in.ByAdmin {
			return out, ErrAdminOnly
		}
		return requestReupload(out)
	case ActionUpdateShipment:
		if !in.ByAdmin {
			return out, ErrAdminOnly
		}
		return updateShipment(out, in)
	case ActionCancel:
		if !in.ByAdmin && s.Order != models.OrderPendingPayment && s.Order != models.OrderPendingReview {
			return out, fmt.Errorf("%w: only unpaid orders can be cancelled by the customer", ErrTransitionNotAllowed)
		}
		return cancel(out, in.Note)
	}
	return out, fmt.Errorf("%w %q", ErrUnknownAction, in.Action)
}

func submitProof(out Outcome) (Outcome, error) {
	s := out.From
	if s.Payment == "" {
		return out, ErrNoPayment
	}
	if !CanPayment(s.Payment, models.PaymentUnderReview) {
		return out, fmt.Errorf("%w: payment is %s", ErrTransitionNotAllowed, s.Payment)
	}
	if !CanOrder(s.Order, models.OrderPendingReview) {
		return out, fmt.Errorf("%w: order is %s", ErrTransitionNotAllowed, s.Order)
	}
	out.To.Payment = models.PaymentUnderReview
	out.To.Order = models.OrderPendingReview
	out.ProofAccepted = true
	return out, nil
}

func approve(out Outcome) (Outcome, error) {
	s := out.From
	if s.Payment == "" {
		return out, ErrNoPayment
	}
	if !CanPayment(s.Payment, models.PaymentPaid) {
		return out, fmt.Errorf("%w: payment is %s, not under review", ErrTransitionNotAllowed, s.Payment)
	}
	if !CanOrder(s.Order, models.OrderProcessing) {
		return out, fmt.Errorf("%w: order is %s", ErrTransitionNotAllowed, s.Order)
	}
	out.To.Payment = models.PaymentPaid
	out.To.Order = models.OrderProcessing
	out.ProofReviewed = true
	if s.Shipment != "" {
		if err := checkShipment(s.Shipment, models.ShipmentPreparingShipment); err != nil {
			return out, err
		}
		out.To.Shipment = models.ShipmentPreparingShipment
		out.Event = &ShipmentEvent{Status: models.ShipmentPreparingShipment, Note: NoteApproved}
	}
	return out, nil
}

func requestReupload(out Outcome) (Outcome, error) {
	s := out.From
	if s.Payment == "" {
		return out, ErrNoPayment
	}
	if !CanPayment(s.Payment, models.PaymentPending) {
		return out, fmt.Errorf("%w: payment is %s, not under review", ErrTransitionNotAllowed, s.Payment)
	}
	if !CanOrder(s.Order, models.OrderPendingPayment) {
		return out, fmt.Errorf("%w: order is %s", ErrTransitionNotAllowed, s.Order)
	}
	out.To.Payment = models.PaymentPending
	out.To.Order = models.OrderPendingPayment
	out.ClearProof = true
	if s.Shipment != "" {
		if s.Shipment != models.ShipmentPendingPayment {
			return out, fmt.Errorf("%w: shipment is %s", ErrShipmentRegression, s.Shipment)
		}
		out.Event = &ShipmentEvent{Status: models.ShipmentPendingPayment, Note: NoteReuploadRequest}
	}
	return out, nil
}

func updateShipment(out Outcome, in Input) (Outcome, error) {
	s := out.From
	if s.Shipment == "" {
		return out, ErrNoShipment
	}
	target := in.Shipment
	if target == "" {
		target = s.Shipment
	}
	if !target.Valid() {
		return out, fmt.Errorf("%w %q", ErrUnknownStatus, target)
	}
	if target == models.ShipmentCancelled {
		return cancel(out, in.Note)
	}
	if s.Payment != models.PaymentPaid {
		return out, ErrPaymentNotApproved
	}
	if target == models.ShipmentPendingPayment {
		return out, fmt.Errorf("%w: paid shipments cannot return to pending_payment", ErrShipmentRegression)
	}
	if err := checkShipment(s.Shipment, target); err != nil {
		return out, err
	}

	order := target.OrderStatus()
	if !CanOrder(s.Order, order) {
		return out, fmt.Errorf("%w: order %s -> %s", ErrTransitionNotAllowed, s.Order, order)
	}
	out.To.Shipment = target
	out.To.Order = order
	if target != s.Shipment || strings.TrimSpace(in.Note) != "" {
		out.Event = &ShipmentEvent{Status: target, Note: strings.TrimSpace(in.Note)}
	}
	return out, nil
}

func cancel(out Outcome, note string) (Outcome, error) {
	s := out.From
	if s.Shipment != "" && s.Shipment.Locked() {
		return out, fmt.Errorf("%w: shipment is %s", ErrShipmentLocked, s.Shipment)
	}
	out.To.Order = models.OrderCancelled
	out.RestoreStock = true
	if s.Shipment != "" {
		out.To.Shipment = models.ShipmentCancelled
		if note = strings.TrimSpace(note); note == "" {
			note = NoteCancelled
		}
		out.Event = &ShipmentEvent{Status: models.ShipmentCancelled, Note: note}
	}
	return out, nil
}

// checkShipment turns a CanShipment refusal into the matching error.
func checkShipment(from, to models.ShipmentStatus) error {
	if CanShipment(from, to) {
		return nil
	}
	if from.Locked() {
		return fmt.Errorf("%w: shipment is %s", ErrShipmentLocked, from)
	}
	return fmt.Errorf("%w: %s -> %s", ErrShipmentRegression, from, to)
}
