package services

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/shashiranjanraj/panaya/app/lifecycle"
	"github.com/shashiranjanraj/panaya/app/models"
	"github.com/shashiranjanraj/panaya/app/repositories"
	"github.com/shashiranjanraj/panaya/pkg/crypt"
	"github.com/shashiranjanraj/panaya/pkg/metrics"
)

// LifecycleService is the only writer of order, payment and shipment
// statuses. It loads the current triple, asks lifecycle.Plan and applies
// the outcome with updates conditioned on the statuses it read, so two
// racing requests cannot both succeed.
type LifecycleService struct {
	d Deps
}

// TransitionInput is the body of POST /api/orders/{id}/transition.
type TransitionInput struct {
	Action         string  `json:"action" validate:"required"`
	Note           string  `json:"note" validate:"max:1000"`
	Status         string  `json:"status"`
	TrackingNumber *string `json:"tracking_number" validate:"max:64"`
	Carrier        *string `json:"carrier" validate:"max:100"`
	// ProofImage is a data URL, e.g. data:image/png;base64,....
	ProofImage string `json:"proof_image"`
}

// ShipmentUpdate is the body of PUT /api/shipments/{id}.
type ShipmentUpdate struct {
	Status         string  `json:"status"`
	TrackingNumber *string `json:"tracking_number" validate:"max:64"`
	Carrier        *string `json:"carrier" validate:"max:100"`
	Note           string  `json:"note" validate:"max:1000"`
}

type change struct {
	in       lifecycle.Input
	tracking *string
	carrier  *string
	method   *string
	proof    []byte
}

func (s *LifecycleService) Transition(ctx context.Context, a Actor, orderID uint, in TransitionInput) (*models.Order, error) {
	action, err := lifecycle.ParseAction(in.Action)
	if err != nil {
		return nil, err
	}
	c := change{
		in:       lifecycle.Input{Action: action, Note: in.Note},
		tracking: in.TrackingNumber,
		carrier:  in.Carrier,
	}
	if in.Status != "" {
		if c.in.Shipment, err = lifecycle.ParseShipmentStatus(in.Status); err != nil {
			return nil, err
		}
	}
	if action == lifecycle.ActionSubmitProof {
		if c.proof, err = decodeDataURL(in.ProofImage); err != nil {
			return nil, err
		}
	}
	return s.apply(ctx, a, orderID, c)
}

// SetOrderStatus serves the legacy status field of PUT /api/orders/{id}.
func (s *LifecycleService) SetOrderStatus(ctx context.Context, a Actor, orderID uint, status string) (*models.Order, error) {
	target, err := lifecycle.ParseOrderStatus(status)
	if err != nil {
		return nil, err
	}
	in, err := lifecycle.ForOrderStatus(target)
	if err != nil {
		return nil, err
	}
	return s.apply(ctx, a, orderID, change{in: in})
}

// SetPaymentStatus serves the legacy payment_status field. A non-nil method
// is written in the same transaction as the status change.
func (s *LifecycleService) SetPaymentStatus(ctx context.Context, a Actor, orderID uint, status string, method *string) (*models.Order, error) {
	target, err := lifecycle.ParsePaymentStatus(status)
	if err != nil {
		return nil, err
	}
	in, err := lifecycle.ForPaymentStatus(target)
	if err != nil {
		return nil, err
	}
	return s.apply(ctx, a, orderID, change{in: in, method: method})
}

func (s *LifecycleService) UpdateShipment(ctx context.Context, a Actor, orderID uint, u ShipmentUpdate) (*models.Order, error) {
	c := change{
		in:       lifecycle.Input{Action: lifecycle.ActionUpdateShipment, Note: u.Note},
		tracking: u.TrackingNumber,
		carrier:  u.Carrier,
	}
	if u.Status != "" {
		var err error
		if c.in.Shipment, err = lifecycle.ParseShipmentStatus(u.Status); err != nil {
			return nil, err
		}
	}
	return s.apply(ctx, a, orderID, c)
}

func (s *LifecycleService) SubmitProof(ctx context.Context, a Actor, orderID uint, data []byte) (*models.Order, error) {
	return s.apply(ctx, a, orderID, change{in: lifecycle.Input{Action: lifecycle.ActionSubmitProof}, proof: data})
}

func (s *LifecycleService) apply(ctx context.Context, a Actor, orderID uint, c change) (*models.Order, error) {
	c.in.ByAdmin = a.Admin()

	var proofType string
	if c.in.Action == lifecycle.ActionSubmitProof {
		var err error
		if proofType, err = s.checkProof(c.proof); err != nil {
			return nil, err
		}
	}

	var (
		out      lifecycle.Outcome
		order    models.Order
		newKey   string
		staleKey string
	)
	err := s.d.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&order, orderID).Error; err != nil {
			return translateNotFound(err)
		}
		if err := a.authorize(order.UserID); err != nil {
			return err
		}
		payment, err := optional[models.Payment](tx, "order_id = ?", order.ID)
		if err != nil {
			return err
		}
		shipment, err := optional[models.Shipment](tx, "order_id = ?", order.ID)
		if err != nil {
			return err
		}

		st := lifecycle.State{Order: order.Status}
		if payment != nil {
			st.Payment = payment.PaymentStatus
		}
		if shipment != nil {
			st.Shipment = shipment.Status
		}
		if out, err = lifecycle.Plan(st, c.in); err != nil {
			return err
		}

		now := s.d.Now()
		if out.ProofAccepted {
			newKey = fmt.Sprintf("%s/%d", proofDir(order.ID), now.UnixNano())
			sealed, err := crypt.Seal(c.proof, []byte(newKey))
			if err != nil {
				return err
			}
			if err := s.d.Disk.Put(ctx, newKey, sealed); err != nil {
				return fmt.Errorf("store payment proof: %w", err)
			}
		}

		if out.To.Order != out.From.Order {
			res := tx.Model(&models.Order{}).
				Where("id = ? AND status = ?", order.ID, out.From.Order).
				Update("status", out.To.Order)
			if err := affected(res); err != nil {
				return err
			}
		}

		if payment != nil {
			fields := map[string]interface{}{}
			if out.To.Payment != out.From.Payment {
				fields["payment_status"] = out.To.Payment
			}
			if c.method != nil {
				fields["payment_method"] = *c.method
			}
			if out.ProofAccepted {
				staleKey = payment.ProofPath
				fields["proof_path"] = newKey
				fields["proof_content_type"] = proofType
				fields["proof_uploaded_at"] = now
				fields["proof_reviewed_at"] = nil
			}
			if out.ProofReviewed {
				fields["proof_reviewed_at"] = now
			}
			if out.ClearProof {
				staleKey = payment.ProofPath
				fields["proof_path"] = ""
				fields["proof_content_type"] = ""
				fields["proof_uploaded_at"] = nil
				fields["proof_reviewed_at"] = nil
			}
			if len(fields) > 0 {
				res := tx.Model(&models.Payment{}).
					Where("id = ? AND payment_status = ?", payment.ID, out.From.Payment).
					Updates(fields)
				if err := affected(res); err != nil {
					return err
				}
			}
		}

		if shipment != nil {
			if err := s.writeShipment(tx, shipment, out, c, now); err != nil {
				return err
			}
		}

		if out.RestoreStock {
			if err := restoreStock(tx, order.ID); err != nil {
				return err
			}
		}
		return nil
	})

	result := "ok"
	if err != nil {
		result = "rejected"
	}
	metrics.OrderTransitions.WithLabelValues(string(c.in.Action), result).Inc()

	if err != nil {
		if newKey != "" {
			s.d.removeObjects(ctx, newKey)
		}
		return nil, err
	}
	s.d.removeObjects(ctx, staleKey)
	if out.RestoreStock {
		s.d.flushProducts(ctx)
	}

	detail, err := repositories.NewOrderRepository(s.d.DB).Detail(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	ev := OrderEvent{
		Type:    EventOrderTransitioned,
		OrderID: detail.ID,
		UserID:  detail.UserID,
		Action:  string(c.in.Action),
		From:    ptr(statusesOf(out.From)),
		To:      statusesOf(out.To),
		Total:   detail.TotalAmount,
		At:      s.d.Now(),
	}
	if out.Event != nil {
		ev.Note = out.Event.Note
	}
	if detail.Shipment != nil {
		ev.TrackingNumber = detail.Shipment.TrackingNumber
	}
	s.d.fire(ctx, EventOrderTransitioned, ev)
	return detail, nil
}

func (s *LifecycleService) writeShipment(tx *gorm.DB, sh *models.Shipment, out lifecycle.Outcome, c change, now time.Time) error {
	fields := map[string]interface{}{}
	if out.To.Shipment != out.From.Shipment {
		fields["status"] = out.To.Shipment
		switch out.To.Shipment {
		case models.ShipmentInTransit:
			if sh.ShippedAt == nil {
				fields["shipped_at"] = now
			}
		case models.ShipmentDelivered:
			fields["delivered_at"] = now
			if sh.ShippedAt == nil {
				fields["shipped_at"] = now
			}
		}
	}
	if c.in.Action == lifecycle.ActionUpdateShipment {
		if c.tracking != nil {
			fields["tracking_number"] = strings.TrimSpace(*c.tracking)
		}
		if c.carrier != nil {
			fields["carrier"] = strings.TrimSpace(*c.carrier)
		}
	}
	if len(fields) > 0 {
		res := tx.Model(&models.Shipment{}).
			Where("id = ? AND status = ?", sh.ID, out.From.Shipment).
			Updates(fields)
		if err := affected(res); err != nil {
			return err
		}
	}
	if out.Event != nil {
		ev := models.ShipmentEvent{ShipmentID: sh.ID, Status: out.Event.Status, Note: out.Event.Note, CreatedAt: now}
		if err := tx.Create(&ev).Error; err != nil {
			return err
		}
	}
	return nil
}

func restoreStock(tx *gorm.DB, orderID uint) error {
	var items []models.OrderItem
	if err := tx.Where("order_id = ?", orderID).Find(&items).Error; err != nil {
		return err
	}
	for _, it := range items {
		err := tx.Model(&models.Product{}).
			Where("id = ?", it.ProductID).
			UpdateColumn("stock_quantity", gorm.Expr("stock_quantity + ?", it.Quantity)).Error
		if err != nil {
			return err
		}
	}
	return nil
}

// checkProof enforces the size limit and sniffs the content type.
func (s *LifecycleService) checkProof(data []byte) (string, error) {
	if len(data) == 0 {
		return "", invalid("proof_image", "A payment proof image is required.")
	}
	if int64(len(data)) > s.d.ProofMaxBytes {
		return "", invalid("proof_image", fmt.Sprintf("The proof may not be larger than %d MB.", s.d.ProofMaxBytes>>20))
	}
	ct := http.DetectContentType(data)
	if !strings.HasPrefix(ct, "image/") {
		return "", ErrInvalidProof
	}
	return ct, nil
}

// decodeDataURL accepts data:<type>;base64,<payload>. The declared type is
// ignored; checkProof sniffs the bytes.
func decodeDataURL(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	head, payload, ok := strings.Cut(s, ",")
	if !ok || !strings.HasPrefix(head, "data:") || !strings.HasSuffix(head, ";base64") {
		return nil, invalid("proof_image", "The proof_image must be a base64 data URL.")
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, invalid("proof_image", "The proof_image is not valid base64.")
	}
	return data, nil
}

// affected turns a zero-row conditional update into ErrConflict.
func affected(res *gorm.DB) error {
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrConflict
	}
	return nil
}

// optional loads the first row matching cond, or nil when there is none.
func optional[T any](tx *gorm.DB, cond string, args ...interface{}) (*T, error) {
	var out T
	err := tx.Where(cond, args...).First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func ptr[T any](v T) *T { return &v }
