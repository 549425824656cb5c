// Package jobs holds the queue jobs fired after order events.
package jobs

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/shashiranjanraj/panaya/app/models"
	"github.com/shashiranjanraj/panaya/app/services"
	"github.com/shashiranjanraj/panaya/pkg/mail"
	"github.com/shashiranjanraj/panaya/pkg/notification"
)

const NotifyCustomerName = "notify_customer"

// NotifyCustomerJob mails the order owner about an order event and, when a
// webhook is configured, posts the event there too.
type NotifyCustomerJob struct {
	Event services.OrderEvent `json:"event"`

	db      *gorm.DB
	webhook string
}

func (NotifyCustomerJob) Name() string { return NotifyCustomerName }

func (j *NotifyCustomerJob) Handle(ctx context.Context) error {
	var u models.User
	if err := j.db.WithContext(ctx).Select("id", "name", "email").First(&u, j.Event.UserID).Error; err != nil {
		return fmt.Errorf("notify: load user %d: %w", j.Event.UserID, err)
	}
	return notification.Send(ctx, orderNotice{user: u, ev: j.Event, webhook: j.webhook})
}

type orderNotice struct {
	user    models.User
	ev      services.OrderEvent
	webhook string
}

func (n orderNotice) Via() []string {
	via := []string{notification.ChannelMail}
	if n.webhook != "" {
		via = append(via, notification.ChannelWebhook)
	}
	return via
}

func (n orderNotice) ToMail() *mail.Message {
	return mail.To(n.user.Email).
		Subject(fmt.Sprintf("Order #%d: %s", n.ev.OrderID, n.headline())).
		Template(mail.OrderUpdate, mail.OrderUpdateData{
			Name:           n.user.Name,
			OrderID:        n.ev.OrderID,
			Headline:       n.headline(),
			Status:         strings.ReplaceAll(string(n.ev.To.Order), "_", " "),
			Total:          fmt.Sprintf("%.2f", n.ev.Total),
			TrackingNumber: n.ev.TrackingNumber,
			Note:           n.ev.Note,
		})
}

func (n orderNotice) ToWebhook() notification.WebhookData {
	return notification.WebhookData{URL: n.webhook, Event: n.ev.Type, Payload: n.ev}
}

func (n orderNotice) headline() string {
	if n.ev.Type == services.EventOrderPlaced {
		return "we received your order"
	}
	switch n.ev.To.Order {
	case models.OrderPendingPayment:
		return "please upload your payment proof"
	case models.OrderPendingReview:
		return "your payment proof is being reviewed"
	case models.OrderProcessing, models.OrderPreparingShipment:
		return "payment approved, we are preparing your shipment"
	case models.OrderInTransit:
		return "your order is on its way"
	case models.OrderCompleted:
		return "your order was delivered"
	case models.OrderCancelled:
		return "your order was cancelled"
	}
	return "your order was updated"
}
