package services_test

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/panaya/app/lifecycle"
	"github.com/shashiranjanraj/panaya/app/models"
	"github.com/shashiranjanraj/panaya/app/services"
)

func TestProofUploadThenApproval(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	o := f.place(t, f.alice)

	o, err := f.svc.Lifecycle.SubmitProof(ctx, f.alice, o.ID, pngBytes)
	require.NoError(t, err)
	assert.Equal(t, models.OrderPendingReview, o.Status)
	assert.Equal(t, models.PaymentUnderReview, o.Payment.PaymentStatus)
	assert.True(t, o.Payment.HasProof())
	assert.NotNil(t, o.Payment.ProofUploadedAt)

	data, ct, err := f.svc.Payments.Proof(ctx, f.alice, o.Payment.ID)
	require.NoError(t, err)
	assert.Equal(t, pngBytes, data)
	assert.Equal(t, "image/png", ct)

	// stored sealed, never as the raw bytes
	raw, err := f.disk.Get(ctx, o.Payment.ProofPath)
	require.NoError(t, err)
	assert.NotEqual(t, pngBytes, raw)

	_, err = f.svc.Lifecycle.Transition(ctx, f.alice, o.ID, services.TransitionInput{Action: "approve_payment"})
	assert.ErrorIs(t, err, lifecycle.ErrAdminOnly)

	o, err = f.svc.Lifecycle.Transition(ctx, f.admin, o.ID, services.TransitionInput{Action: "approve_payment"})
	require.NoError(t, err)
	assert.Equal(t, models.OrderProcessing, o.Status)
	assert.Equal(t, models.PaymentPaid, o.Payment.PaymentStatus)
	assert.NotNil(t, o.Payment.ProofReviewedAt)
	assert.Equal(t, models.ShipmentPreparingShipment, o.Shipment.Status)
	require.Len(t, o.Shipment.Events, 2)
	assert.Equal(t, lifecycle.NoteApproved, o.Shipment.Events[1].Note)
}

func TestApprovalNeedsAProofUnderReview(t *testing.T) {
	f := setup(t)
	o := f.place(t, f.alice)

	_, err := f.svc.Lifecycle.Transition(context.Background(), f.admin, o.ID, services.TransitionInput{Action: "approve_payment"})
	assert.ErrorIs(t, err, lifecycle.ErrTransitionNotAllowed)

	_, err = f.svc.Lifecycle.SetPaymentStatus(context.Background(), f.admin, o.ID, "under_review", nil)
	assert.ErrorIs(t, err, lifecycle.ErrProofRequired)
}

func TestProofIsValidated(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	o := f.place(t, f.alice)

	_, err := f.svc.Lifecycle.SubmitProof(ctx, f.alice, o.ID, []byte("%PDF-1.4 not an image"))
	assert.ErrorIs(t, err, services.ErrInvalidProof)

	_, err = f.svc.Lifecycle.SubmitProof(ctx, f.alice, o.ID, nil)
	var v services.ValidationError
	assert.ErrorAs(t, err, &v)

	_, err = f.svc.Lifecycle.SubmitProof(ctx, f.bob, o.ID, pngBytes)
	assert.ErrorIs(t, err, services.ErrForbidden)

	files, err := f.disk.AllFiles(ctx, "proofs")
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestTransitionAcceptsDataURLProof(t *testing.T) {
	f := setup(t)
	o := f.place(t, f.alice)

	o, err := f.svc.Lifecycle.Transition(context.Background(), f.alice, o.ID, services.TransitionInput{
		Action:     "submit_proof",
		ProofImage: "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngBytes),
	})
	require.NoError(t, err)
	assert.Equal(t, models.OrderPendingReview, o.Status)
}

func TestReuploadReplacesTheProof(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	o := f.place(t, f.alice)

	o, err := f.svc.Lifecycle.SubmitProof(ctx, f.alice, o.ID, pngBytes)
	require.NoError(t, err)
	first := o.Payment.ProofPath

	o, err = f.svc.Lifecycle.Transition(ctx, f.admin, o.ID, services.TransitionInput{Action: "request_reupload"})
	require.NoError(t, err)
	assert.Equal(t, models.OrderPendingPayment, o.Status)
	assert.Equal(t, models.PaymentPending, o.Payment.PaymentStatus)
	assert.False(t, o.Payment.HasProof())

	ok, err := f.disk.Exists(ctx, first)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestShipmentNeverMovesBackwards(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	o := f.paid(t, f.alice)

	o, err := f.svc.Lifecycle.UpdateShipment(ctx, f.admin, o.ID, services.ShipmentUpdate{Status: "in_transit", Note: "Picked up"})
	require.NoError(t, err)
	assert.Equal(t, models.OrderInTransit, o.Status)
	assert.NotNil(t, o.Shipment.ShippedAt)

	_, err = f.svc.Lifecycle.UpdateShipment(ctx, f.admin, o.ID, services.ShipmentUpdate{Status: "preparing_shipment"})
	assert.ErrorIs(t, err, lifecycle.ErrShipmentRegression)

	tracking := "  ZX991  "
	o, err = f.svc.Lifecycle.UpdateShipment(ctx, f.admin, o.ID, services.ShipmentUpdate{Status: "delivered", TrackingNumber: &tracking})
	require.NoError(t, err)
	assert.Equal(t, models.OrderCompleted, o.Status)
	assert.Equal(t, "ZX991", o.Shipment.TrackingNumber)
	assert.NotNil(t, o.Shipment.DeliveredAt)

	_, err = f.svc.Lifecycle.Transition(ctx, f.admin, o.ID, services.TransitionInput{Action: "cancel"})
	assert.ErrorIs(t, err, lifecycle.ErrTransitionNotAllowed)
}

func TestShipmentNeedsApprovedPayment(t *testing.T) {
	f := setup(t)
	o := f.place(t, f.alice)

	_, err := f.svc.Lifecycle.UpdateShipment(context.Background(), f.admin, o.ID, services.ShipmentUpdate{Status: "in_transit"})
	assert.ErrorIs(t, err, lifecycle.ErrPaymentNotApproved)

	var sh models.Shipment
	require.NoError(t, f.db.Where("order_id = ?", o.ID).First(&sh).Error)
	assert.Equal(t, models.ShipmentPendingPayment, sh.Status)
}

func TestCancelRestoresStock(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	p := f.product(t, "Kettle", 30, 4)
	res, err := f.svc.Checkout.Checkout(ctx, f.alice, services.CheckoutInput{
		Items: []services.CheckoutLine{{ProductID: p.ID, Quantity: 3}},
	}, "")
	require.NoError(t, err)
	assert.Equal(t, 1, f.stock(t, p.ID))

	o, err := f.svc.Lifecycle.Transition(ctx, f.alice, res.Order.ID, services.TransitionInput{Action: "cancel", Note: "changed my mind"})
	require.NoError(t, err)
	assert.Equal(t, models.OrderCancelled, o.Status)
	assert.Equal(t, models.ShipmentCancelled, o.Shipment.Status)
	assert.Equal(t, "changed my mind", o.Shipment.Events[len(o.Shipment.Events)-1].Note)
	assert.Equal(t, 4, f.stock(t, p.ID))

	_, err = f.svc.Lifecycle.Transition(ctx, f.alice, res.Order.ID, services.TransitionInput{Action: "cancel"})
	assert.ErrorIs(t, err, lifecycle.ErrTransitionNotAllowed)
	assert.Equal(t, 4, f.stock(t, p.ID))
}

func TestCustomerCannotCancelPaidOrder(t *testing.T) {
	f := setup(t)
	o := f.paid(t, f.alice)

	_, err := f.svc.Lifecycle.Transition(context.Background(), f.alice, o.ID, services.TransitionInput{Action: "cancel"})
	assert.ErrorIs(t, err, lifecycle.ErrTransitionNotAllowed)
}

func TestLegacyOrderStatusGoesThroughTheMachine(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	o := f.paid(t, f.alice)

	o, err := f.svc.Orders.Update(ctx, f.admin, o.ID, services.OrderUpdate{Status: "in_transit"})
	require.NoError(t, err)
	assert.Equal(t, models.OrderInTransit, o.Status)
	assert.Equal(t, models.ShipmentInTransit, o.Shipment.Status)

	_, err = f.svc.Orders.Update(ctx, f.admin, o.ID, services.OrderUpdate{Status: "shipped"})
	assert.ErrorIs(t, err, lifecycle.ErrUnknownStatus)
}

func TestUnknownActionRejected(t *testing.T) {
	f := setup(t)
	o := f.place(t, f.alice)

	_, err := f.svc.Lifecycle.Transition(context.Background(), f.admin, o.ID, services.TransitionInput{Action: "refund"})
	assert.ErrorIs(t, err, lifecycle.ErrUnknownAction)
}

func TestTransitionFiresEvent(t *testing.T) {
	f := setup(t)
	got := make(chan services.OrderEvent, 4)
	f.events.Listen(services.EventOrderTransitioned, func(_ context.Context, payload interface{}) error {
		got <- payload.(services.OrderEvent)
		return nil
	})
	o := f.place(t, f.alice)

	_, err := f.svc.Lifecycle.SubmitProof(context.Background(), f.alice, o.ID, pngBytes)
	require.NoError(t, err)

	ev := <-got
	assert.Equal(t, "submit_proof", ev.Action)
	require.NotNil(t, ev.From)
	assert.Equal(t, models.OrderPendingPayment, ev.From.Order)
	assert.Equal(t, models.OrderPendingReview, ev.To.Order)
	assert.Equal(t, models.PaymentUnderReview, ev.To.Payment)
}

func statusCode(err error) int {
	var coded interface{ StatusCode() int }
	if errors.As(err, &coded) {
		return coded.StatusCode()
	}
	return 0
}

func TestConcurrentApprovalSucceedsOnce(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	o := f.place(t, f.alice)
	_, err := f.svc.Lifecycle.SubmitProof(ctx, f.alice, o.ID, pngBytes)
	require.NoError(t, err)

	const admins = 6
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		approved int
		rejected int
	)
	for i := 0; i < admins; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Lifecycle.Transition(ctx, f.admin, o.ID, services.TransitionInput{Action: "approve_payment"})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				approved++
			case statusCode(err) == http.StatusConflict:
				rejected++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, approved)
	assert.Equal(t, admins-1, rejected)
	assert.Equal(t, int64(2), f.count(t, &models.ShipmentEvent{}))
}

func TestPaymentUpdateRejectsRepeatApproval(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	o := f.place(t, f.alice)
	_, err := f.svc.Lifecycle.SubmitProof(ctx, f.alice, o.ID, pngBytes)
	require.NoError(t, err)

	paid, method := string(models.PaymentPaid), "bank_transfer"
	p, err := f.svc.Payments.Update(ctx, f.admin, o.Payment.ID, services.PaymentUpdate{PaymentStatus: &paid, PaymentMethod: &method})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPaid, p.PaymentStatus)
	assert.Equal(t, method, p.PaymentMethod)

	other := "cash"
	_, err = f.svc.Payments.Update(ctx, f.admin, o.Payment.ID, services.PaymentUpdate{PaymentStatus: &paid, PaymentMethod: &other})
	assert.Equal(t, http.StatusConflict, statusCode(err))

	var stored models.Payment
	require.NoError(t, f.db.First(&stored, o.Payment.ID).Error)
	assert.Equal(t, method, stored.PaymentMethod, "a rejected status change writes nothing")
	assert.Equal(t, int64(2), f.count(t, &models.ShipmentEvent{}))

	p, err = f.svc.Payments.Update(ctx, f.admin, o.Payment.ID, services.PaymentUpdate{PaymentMethod: &other})
	require.NoError(t, err)
	assert.Equal(t, other, p.PaymentMethod)
}
