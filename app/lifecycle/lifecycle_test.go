package lifecycle

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/panaya/app/models"
)

var (
	placed = State{Order: models.OrderPendingPayment, Payment: models.PaymentPending, Shipment: models.ShipmentPendingPayment}
	review = State{Order: models.OrderPendingReview, Payment: models.PaymentUnderReview, Shipment: models.ShipmentPendingPayment}
	paid   = State{Order: models.OrderProcessing, Payment: models.PaymentPaid, Shipment: models.ShipmentPreparingShipment}
)

func admin(a Action) Input { return Input{Action: a, ByAdmin: true} }

func TestSubmitProof(t *testing.T) {
	out, err := Plan(placed, Input{Action: ActionSubmitProof})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentUnderReview, out.To.Payment)
	assert.Equal(t, models.OrderPendingReview, out.To.Order)
	assert.Equal(t, models.ShipmentPendingPayment, out.To.Shipment)
	assert.True(t, out.ProofAccepted)
	assert.Nil(t, out.Event)

	// replacing a proof under review is allowed
	_, err = Plan(review, Input{Action: ActionSubmitProof})
	require.NoError(t, err)

	_, err = Plan(paid, Input{Action: ActionSubmitProof})
	assert.ErrorIs(t, err, ErrTransitionNotAllowed)

	_, err = Plan(State{Order: models.OrderPendingPayment}, Input{Action: ActionSubmitProof})
	assert.ErrorIs(t, err, ErrNoPayment)
}

func TestApprovePayment(t *testing.T) {
	out, err := Plan(review, admin(ActionApprovePayment))
	require.NoError(t, err)
	assert.Equal(t, State{Order: models.OrderProcessing, Payment: models.PaymentPaid, Shipment: models.ShipmentPreparingShipment}, out.To)
	require.NotNil(t, out.Event)
	assert.Equal(t, NoteApproved, out.Event.Note)
	assert.Equal(t, models.ShipmentPreparingShipment, out.Event.Status)
	assert.True(t, out.ProofReviewed)

	for name, s := range map[string]State{"paid": paid, "pending": placed} {
		_, err := Plan(s, admin(ActionApprovePayment))
		assert.ErrorIs(t, err, ErrTransitionNotAllowed, name)
	}

	_, err = Plan(review, Input{Action: ActionApprovePayment})
	assert.ErrorIs(t, err, ErrAdminOnly)
}

func TestApproveWithoutShipment(t *testing.T) {
	s := State{Order: models.OrderPendingReview, Payment: models.PaymentUnderReview}
	out, err := Plan(s, admin(ActionApprovePayment))
	require.NoError(t, err)
	assert.Nil(t, out.Event)
	assert.Equal(t, models.ShipmentStatus(""), out.To.Shipment)
}

func TestRequestReupload(t *testing.T) {
	out, err := Plan(review, admin(ActionRequestReupload))
	require.NoError(t, err)
	assert.Equal(t, placed, out.To)
	assert.True(t, out.ClearProof)
	require.NotNil(t, out.Event)
	assert.Equal(t, NoteReuploadRequest, out.Event.Note)

	_, err = Plan(placed, admin(ActionRequestReupload))
	assert.ErrorIs(t, err, ErrTransitionNotAllowed)
}

func TestUpdateShipmentForward(t *testing.T) {
	out, err := Plan(paid, Input{Action: ActionUpdateShipment, ByAdmin: true, Shipment: models.ShipmentInTransit})
	require.NoError(t, err)
	assert.Equal(t, models.OrderInTransit, out.To.Order)
	assert.Equal(t, models.ShipmentInTransit, out.To.Shipment)
	require.NotNil(t, out.Event)

	s := out.To
	out, err = Plan(s, Input{Action: ActionUpdateShipment, ByAdmin: true, Shipment: models.ShipmentDelivered})
	require.NoError(t, err)
	assert.Equal(t, models.OrderCompleted, out.To.Order)
}

func TestUpdateShipmentRejectsRegression(t *testing.T) {
	s := State{Order: models.OrderInTransit, Payment: models.PaymentPaid, Shipment: models.ShipmentInTransit}
	_, err := Plan(s, Input{Action: ActionUpdateShipment, ByAdmin: true, Shipment: models.ShipmentPreparingShipment})
	assert.ErrorIs(t, err, ErrShipmentRegression)

	_, err = Plan(s, Input{Action: ActionUpdateShipment, ByAdmin: true, Shipment: models.ShipmentPendingPayment})
	assert.ErrorIs(t, err, ErrShipmentRegression)
}

func TestLockedShipments(t *testing.T) {
	delivered := State{Order: models.OrderInTransit, Payment: models.PaymentPaid, Shipment: models.ShipmentDelivered}
	_, err := Plan(delivered, Input{Action: ActionUpdateShipment, ByAdmin: true, Shipment: models.ShipmentInTransit})
	assert.ErrorIs(t, err, ErrShipmentLocked)

	_, err = Plan(delivered, admin(ActionCancel))
	assert.ErrorIs(t, err, ErrShipmentLocked)

	done := State{Order: models.OrderCompleted, Payment: models.PaymentPaid, Shipment: models.ShipmentDelivered}
	_, err = Plan(done, Input{Action: ActionUpdateShipment, ByAdmin: true, Note: "late note"})
	assert.ErrorIs(t, err, ErrTransitionNotAllowed)
}

func TestUpdateShipmentNeedsPaidPayment(t *testing.T) {
	_, err := Plan(review, Input{Action: ActionUpdateShipment, ByAdmin: true, Shipment: models.ShipmentInTransit})
	assert.ErrorIs(t, err, ErrPaymentNotApproved)

	var le *Error
	require.True(t, errors.As(err, &le))
	assert.Equal(t, 409, le.StatusCode())
}

func TestUpdateShipmentNoteOnly(t *testing.T) {
	out, err := Plan(paid, Input{Action: ActionUpdateShipment, ByAdmin: true, Note: "packed"})
	require.NoError(t, err)
	require.NotNil(t, out.Event)
	assert.Equal(t, "packed", out.Event.Note)
	assert.Equal(t, models.ShipmentPreparingShipment, out.Event.Status)

	out, err = Plan(paid, Input{Action: ActionUpdateShipment, ByAdmin: true})
	require.NoError(t, err)
	assert.Nil(t, out.Event)
}

func TestCancel(t *testing.T) {
	out, err := Plan(placed, Input{Action: ActionCancel})
	require.NoError(t, err)
	assert.Equal(t, models.OrderCancelled, out.To.Order)
	assert.Equal(t, models.ShipmentCancelled, out.To.Shipment)
	assert.True(t, out.RestoreStock)
	assert.Equal(t, NoteCancelled, out.Event.Note)

	// customers cannot cancel once paid; admins can
	_, err = Plan(paid, Input{Action: ActionCancel})
	assert.ErrorIs(t, err, ErrTransitionNotAllowed)
	_, err = Plan(paid, admin(ActionCancel))
	assert.NoError(t, err)

	_, err = Plan(out.To, admin(ActionCancel))
	assert.ErrorIs(t, err, ErrTransitionNotAllowed)
}

func TestUpdateShipmentToCancelledCancelsOrder(t *testing.T) {
	out, err := Plan(paid, Input{Action: ActionUpdateShipment, ByAdmin: true, Shipment: models.ShipmentCancelled, Note: "lost"})
	require.NoError(t, err)
	assert.Equal(t, models.OrderCancelled, out.To.Order)
	assert.True(t, out.RestoreStock)
	assert.Equal(t, "lost", out.Event.Note)
}

func TestUnknownAction(t *testing.T) {
	_, err := Plan(placed, Input{Action: "refund", ByAdmin: true})
	assert.ErrorIs(t, err, ErrUnknownAction)

	_, err = ParseAction("refund")
	assert.ErrorIs(t, err, ErrUnknownAction)
	a, err := ParseAction(" cancel ")
	require.NoError(t, err)
	assert.Equal(t, ActionCancel, a)
}
