package services

import (
	"context"

	"github.com/shashiranjanraj/panaya/app/lifecycle"
	"github.com/shashiranjanraj/panaya/app/models"
	"github.com/shashiranjanraj/panaya/app/repositories"
	"github.com/shashiranjanraj/panaya/pkg/logger"
	"github.com/shashiranjanraj/panaya/pkg/metrics"
)

// ReconcileService finds orders whose stored statuses disagree with the
// state machine, which can only happen through writes made outside it.
type ReconcileService struct {
	d Deps
}

type DriftedOrder struct {
	OrderID  uint               `json:"order_id"`
	State    Statuses           `json:"state"`
	Problems []string           `json:"problems"`
	Repaired models.OrderStatus `json:"repaired,omitempty"`
}

type ReconcileReport struct {
	Scanned int            `json:"scanned"`
	Drifted []DriftedOrder `json:"drifted"`
}

// Run scans every open order. With repair set, the order status is
// rewritten to what the payment and shipment imply.
func (s *ReconcileService) Run(ctx context.Context, repair bool) (*ReconcileReport, error) {
	orders, err := repositories.NewOrderRepository(s.d.DB).Open(ctx)
	if err != nil {
		return nil, err
	}

	report := &ReconcileReport{Scanned: len(orders), Drifted: []DriftedOrder{}}
	for i := range orders {
		o := &orders[i]
		st := stateOf(o)
		problems := lifecycle.Drift(st)
		if len(problems) == 0 {
			continue
		}
		d := DriftedOrder{OrderID: o.ID, State: statusesOf(st), Problems: problems}
		if repair {
			if want := lifecycle.Repair(st); want != o.Status {
				res := s.d.DB.WithContext(ctx).Model(&models.Order{}).
					Where("id = ? AND status = ?", o.ID, o.Status).
					Update("status", want)
				if err := affected(res); err != nil {
					logger.WithCtx(ctx).Warn("reconcile: repair skipped", "order_id", o.ID, "error", err)
				} else {
					d.Repaired = want
				}
			}
		}
		report.Drifted = append(report.Drifted, d)
	}

	remaining := 0
	for _, d := range report.Drifted {
		if d.Repaired == "" {
			remaining++
		}
	}
	metrics.OrdersDrifted.Set(float64(remaining))
	if len(report.Drifted) > 0 {
		logger.WithCtx(ctx).Warn("reconcile: drift found", "scanned", report.Scanned, "drifted", len(report.Drifted), "unrepaired", remaining)
	}
	return report, nil
}
