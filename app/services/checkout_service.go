package services

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/shashiranjanraj/panaya/app/lifecycle"
	"github.com/shashiranjanraj/panaya/app/models"
	"github.com/shashiranjanraj/panaya/app/repositories"
	"github.com/shashiranjanraj/panaya/pkg/logger"
	"github.com/shashiranjanraj/panaya/pkg/metrics"
)

type CheckoutService struct {
	d Deps
}

// CheckoutLine is one cart line. Price is what the client displayed; when
// present it must still match the catalog.
type CheckoutLine struct {
	ProductID uint     `json:"product_id" validate:"required"`
	Quantity  int      `json:"quantity" validate:"required|gte:1|lte:1000"`
	Price     *float64 `json:"price" validate:"gte:0"`
}

type CheckoutInput struct {
	Items []CheckoutLine `json:"items" validate:"dive"`
}

type CheckoutResult struct {
	Order *models.Order
	// Replayed is set when the Idempotency-Key matched an earlier checkout.
	Replayed bool
}

// Checkout places an order from lines posted by the client.
func (s *CheckoutService) Checkout(ctx context.Context, a Actor, in CheckoutInput, idemKey string) (*CheckoutResult, error) {
	return s.run(ctx, a, idemKey, func(tx *gorm.DB) ([]CheckoutLine, error) {
		return in.Items, nil
	})
}

// CheckoutCart places an order from the caller's server cart and empties
// it in the same transaction.
func (s *CheckoutService) CheckoutCart(ctx context.Context, a Actor, cartID uint, idemKey string) (*CheckoutResult, error) {
	return s.run(ctx, a, idemKey, func(tx *gorm.DB) ([]CheckoutLine, error) {
		var c models.Cart
		if err := tx.Preload("Items", func(q *gorm.DB) *gorm.DB { return q.Order("id") }).First(&c, cartID).Error; err != nil {
			return nil, translateNotFound(err)
		}
		if c.UserID != a.ID {
			return nil, ErrForbidden
		}
		lines := make([]CheckoutLine, len(c.Items))
		for i, it := range c.Items {
			lines[i] = CheckoutLine{ProductID: it.ProductID, Quantity: it.Quantity}
		}
		if err := tx.Where("cart_id = ?", c.ID).Delete(&models.CartItem{}).Error; err != nil {
			return nil, err
		}
		return lines, nil
	})
}

func (s *CheckoutService) run(ctx context.Context, a Actor, idemKey string, lines func(tx *gorm.DB) ([]CheckoutLine, error)) (res *CheckoutResult, err error) {
	store := s.d.Idempotency
	if idemKey != "" && store != nil {
		rec, reserved, rerr := store.Reserve(a.ID, idemKey)
		if rerr != nil {
			return nil, rerr
		}
		if !reserved {
			o, derr := repositories.NewOrderRepository(s.d.DB).Detail(ctx, rec.OrderID)
			if derr != nil {
				return nil, derr
			}
			return &CheckoutResult{Order: o, Replayed: true}, nil
		}
		defer func() {
			if err != nil {
				if rerr := store.Release(a.ID, idemKey); rerr != nil {
					logger.WithCtx(ctx).Warn("checkout: release idempotency key", "error", rerr)
				}
				return
			}
			if cerr := store.Complete(a.ID, idemKey, res.Order.ID); cerr != nil {
				logger.WithCtx(ctx).Warn("checkout: complete idempotency key", "error", cerr)
			}
		}()
	}

	var order *models.Order
	err = s.d.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ls, err := lines(tx)
		if err != nil {
			return err
		}
		order, err = s.place(tx, a.ID, ls)
		return err
	})
	if err != nil {
		metrics.CheckoutRejected.WithLabelValues(rejectReason(err)).Inc()
		return nil, err
	}

	metrics.OrdersPlaced.Inc()
	s.d.flushProducts(ctx)

	detail, err := repositories.NewOrderRepository(s.d.DB).Detail(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	tracking := ""
	if detail.Shipment != nil {
		tracking = detail.Shipment.TrackingNumber
	}
	s.d.fire(ctx, EventOrderPlaced, OrderEvent{
		Type:           EventOrderPlaced,
		OrderID:        detail.ID,
		UserID:         detail.UserID,
		To:             Statuses{Order: detail.Status, Payment: models.PaymentPending, Shipment: models.ShipmentPendingPayment},
		Note:           lifecycle.NoteCheckout,
		TrackingNumber: tracking,
		Total:          detail.TotalAmount,
		At:             detail.OrderDate,
	})
	return &CheckoutResult{Order: detail}, nil
}

// place writes the order rows. Stock is taken with a conditional update so
// concurrent checkouts can never push it below zero.
func (s *CheckoutService) place(tx *gorm.DB, userID uint, lines []CheckoutLine) (*models.Order, error) {
	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}

	items := make([]models.OrderItem, 0, len(lines))
	subtotal := 0.0
	for i, l := range lines {
		if l.Quantity <= 0 {
			return nil, invalid(fmt.Sprintf("items.%d.quantity", i), "The quantity must be at least 1.")
		}
		var p models.Product
		if err := tx.First(&p, l.ProductID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, invalid(fmt.Sprintf("items.%d.product_id", i), "The selected product_id is invalid.")
			}
			return nil, err
		}
		if l.Price != nil && models.RoundMoney(*l.Price) != models.RoundMoney(p.Price) {
			return nil, fmt.Errorf("%w (%s is now %.2f)", ErrPriceChanged, p.Name, p.Price)
		}

		res := tx.Model(&models.Product{}).
			Where("id = ? AND stock_quantity >= ?", p.ID, l.Quantity).
			UpdateColumn("stock_quantity", gorm.Expr("stock_quantity - ?", l.Quantity))
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 0 {
			return nil, &StockError{ProductID: p.ID, Name: p.Name, Requested: l.Quantity}
		}

		items = append(items, models.OrderItem{ProductID: p.ID, Quantity: l.Quantity, Price: p.Price})
		subtotal = models.RoundMoney(subtotal + p.Price*float64(l.Quantity))
	}

	now := s.d.Now()
	fee := models.RoundMoney(s.d.ShippingFee)
	order := &models.Order{
		UserID:      userID,
		OrderDate:   now,
		Subtotal:    subtotal,
		ShippingFee: fee,
		TotalAmount: models.RoundMoney(subtotal + fee),
		Status:      models.OrderPendingPayment,
	}
	if err := tx.Create(order).Error; err != nil {
		return nil, err
	}
	for i := range items {
		items[i].OrderID = order.ID
	}
	if err := tx.Create(&items).Error; err != nil {
		return nil, err
	}

	payment := models.Payment{
		OrderID:       order.ID,
		UserID:        userID,
		PaymentMethod: models.PaymentMethodManualTransfer,
		PaymentStatus: models.PaymentPending,
		Amount:        order.TotalAmount,
	}
	if err := tx.Create(&payment).Error; err != nil {
		return nil, err
	}
	if _, err := createShipment(tx, s.d, order.ID, models.ShipmentPendingPayment, lifecycle.NoteCheckout); err != nil {
		return nil, err
	}
	return order, nil
}

// createShipment adds a shipment with a fresh tracking number and its
// first event.
func createShipment(tx *gorm.DB, d Deps, orderID uint, status models.ShipmentStatus, note string) (*models.Shipment, error) {
	sh := &models.Shipment{
		OrderID:        orderID,
		Status:         status,
		TrackingNumber: "TRK" + d.Node.Generate().String(),
		Carrier:        models.DefaultCarrier,
	}
	if err := tx.Create(sh).Error; err != nil {
		return nil, err
	}
	ev := models.ShipmentEvent{ShipmentID: sh.ID, Status: status, Note: note, CreatedAt: d.Now()}
	if err := tx.Create(&ev).Error; err != nil {
		return nil, err
	}
	sh.Events = []models.ShipmentEvent{ev}
	return sh, nil
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, ErrInsufficientStock):
		return "stock"
	case errors.Is(err, ErrPriceChanged):
		return "price"
	case errors.Is(err, ErrEmptyCart):
		return "empty"
	}
	var v ValidationError
	if errors.As(err, &v) {
		return "validation"
	}
	return "error"
}
