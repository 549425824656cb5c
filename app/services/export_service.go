package services

import (
	"context"
	"io"
	"time"

	"github.com/shashiranjanraj/panaya/app/models"
	"github.com/shashiranjanraj/panaya/app/repositories"
	"github.com/shashiranjanraj/panaya/pkg/export"
)

type ExportService struct {
	d Deps
}

type ExportFilter struct {
	UserID uint
	Status models.OrderStatus
}

// Rows builds one report line per order matching f, oldest first.
func (s *ExportService) Rows(ctx context.Context, f ExportFilter) ([]export.OrderRow, error) {
	rows := []export.OrderRow{}
	err := repositories.NewOrderRepository(s.d.DB).Each(ctx, repositories.OrderFilter{UserID: f.UserID, Status: f.Status}, 200, func(batch []models.Order) error {
		for _, o := range batch {
			rows = append(rows, toRow(o))
		}
		return nil
	})
	return rows, err
}

func (s *ExportService) Write(ctx context.Context, w io.Writer, format export.Format, f ExportFilter) error {
	rows, err := s.Rows(ctx, f)
	if err != nil {
		return err
	}
	return export.Write(w, format, rows)
}

func toRow(o models.Order) export.OrderRow {
	r := export.OrderRow{
		OrderID:     o.ID,
		OrderDate:   o.OrderDate.UTC().Format(time.RFC3339),
		Status:      string(o.Status),
		Subtotal:    o.Subtotal,
		ShippingFee: o.ShippingFee,
		Total:       o.TotalAmount,
	}
	if o.User != nil {
		r.Customer, r.Email = o.User.Name, o.User.Email
	}
	if o.Payment != nil {
		r.PaymentStatus = string(o.Payment.PaymentStatus)
	}
	if o.Shipment != nil {
		r.ShipmentStatus = string(o.Shipment.Status)
		r.TrackingNumber = o.Shipment.TrackingNumber
	}
	for _, it := range o.Items {
		r.Items += it.Quantity
	}
	return r
}
