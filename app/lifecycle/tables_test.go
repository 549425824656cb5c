package lifecycle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/panaya/app/models"
)

func TestCanShipment(t *testing.T) {
	cases := []struct {
		from, to models.ShipmentStatus
		ok       bool
	}{
		{models.ShipmentPendingPayment, models.ShipmentPreparingShipment, true},
		{models.ShipmentPreparingShipment, models.ShipmentInTransit, true},
		{models.ShipmentInTransit, models.ShipmentInTransit, true},
		{models.ShipmentInTransit, models.ShipmentPreparingShipment, false},
		{models.ShipmentInTransit, models.ShipmentPendingPayment, false},
		{models.ShipmentDelivered, models.ShipmentDelivered, false},
		{models.ShipmentCancelled, models.ShipmentInTransit, false},
		{models.ShipmentInTransit, models.ShipmentCancelled, true},
		{models.ShipmentInTransit, "lost", false},
	}
	for _, c := range cases {
		assert.Equal(t, c.ok, CanShipment(c.from, c.to), "%s -> %s", c.from, c.to)
	}
}

func TestOrderAndPaymentTables(t *testing.T) {
	assert.True(t, CanOrder(models.OrderPendingReview, models.OrderProcessing))
	assert.False(t, CanOrder(models.OrderPendingPayment, models.OrderProcessing))
	assert.False(t, CanOrder(models.OrderCompleted, models.OrderCancelled))
	assert.False(t, CanOrder(models.OrderCancelled, models.OrderPendingPayment))

	assert.True(t, CanPayment(models.PaymentUnderReview, models.PaymentPaid))
	assert.False(t, CanPayment(models.PaymentPending, models.PaymentPaid))
	assert.False(t, CanPayment(models.PaymentPaid, models.PaymentPending))
}

func TestLegacyStatusMapping(t *testing.T) {
	in, err := ForOrderStatus(models.OrderCompleted)
	require.NoError(t, err)
	assert.Equal(t, ActionUpdateShipment, in.Action)
	assert.Equal(t, models.ShipmentDelivered, in.Shipment)

	in, err = ForOrderStatus(models.OrderProcessing)
	require.NoError(t, err)
	assert.Equal(t, ActionApprovePayment, in.Action)

	_, err = ForOrderStatus(models.OrderPendingReview)
	assert.ErrorIs(t, err, ErrProofRequired)

	_, err = ForOrderStatus("shipped")
	assert.ErrorIs(t, err, ErrUnknownStatus)

	in, err = ForPaymentStatus(models.PaymentPending)
	require.NoError(t, err)
	assert.Equal(t, ActionRequestReupload, in.Action)
}

func TestDriftAndRepair(t *testing.T) {
	assert.Empty(t, Drift(placed))
	assert.Empty(t, Drift(review))
	assert.Empty(t, Drift(paid))

	bad := State{Order: models.OrderProcessing, Payment: models.PaymentUnderReview, Shipment: models.ShipmentPendingPayment}
	assert.Len(t, Drift(bad), 2)
	assert.Equal(t, models.OrderPendingReview, Repair(bad))

	stale := State{Order: models.OrderPreparingShipment, Payment: models.PaymentPaid, Shipment: models.ShipmentInTransit}
	assert.Len(t, Drift(stale), 1)
	assert.Equal(t, models.OrderInTransit, Repair(stale))

	assert.Empty(t, Drift(State{Order: models.OrderCancelled, Payment: models.PaymentPending}))
}

func TestParseStatuses(t *testing.T) {
	s, err := ParseShipmentStatus("in_transit")
	require.NoError(t, err)
	assert.Equal(t, models.ShipmentInTransit, s)

	_, err = ParsePaymentStatus("refunded")
	assert.ErrorIs(t, err, ErrUnknownStatus)
	_, err = ParseOrderStatus("")
	assert.ErrorIs(t, err, ErrUnknownStatus)
}

func TestPlanUsesTransitionTables(t *testing.T) {
	all := []models.ShipmentStatus{
		models.ShipmentPendingPayment, models.ShipmentPreparingShipment, models.ShipmentInTransit,
		models.ShipmentDelivered, models.ShipmentCancelled,
	}
	for _, from := range all {
		for _, to := range all {
			err := checkShipment(from, to)
			if CanShipment(from, to) {
				assert.NoError(t, err, "%s -> %s", from, to)
				continue
			}
			assert.Error(t, err, "%s -> %s", from, to)
		}
	}

	for _, p := range []models.PaymentStatus{models.PaymentPending, models.PaymentPaid} {
		_, err := Plan(State{Order: models.OrderPendingReview, Payment: p}, Input{Action: ActionApprovePayment, ByAdmin: true})
		assert.ErrorIs(t, err, ErrTransitionNotAllowed, string(p))
	}
	_, err := Plan(State{Order: models.OrderPendingPayment, Payment: models.PaymentPaid}, Input{Action: ActionSubmitProof})
	assert.ErrorIs(t, err, ErrTransitionNotAllowed)
}
