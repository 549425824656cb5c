// Package notification fans a customer notice out over mail and an
// optional webhook. A notification chooses its channels through Via and
// implements the matching To* method for each.
package notification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shashiranjanraj/panaya/pkg/http"
	"github.com/shashiranjanraj/panaya/pkg/logger"
	"github.com/shashiranjanraj/panaya/pkg/mail"
)

const (
	ChannelMail    = "mail"
	ChannelWebhook = "webhook"
)

type Notification interface {
	Via() []string
}

type Mailable interface {
	ToMail() *mail.Message
}

// WebhookData is POSTed as JSON to URL.
type WebhookData struct {
	URL     string
	Event   string
	Payload interface{}
}

type Webhookable interface {
	ToWebhook() WebhookData
}

// Send delivers n on every channel and joins the failures. One failing
// channel does not stop the others.
func Send(ctx context.Context, n Notification) error {
	var errs []error
	for _, ch := range n.Via() {
		if err := dispatch(ctx, ch, n); err != nil {
			logger.WithCtx(ctx).Error("notification: channel failed", "channel", ch, "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func dispatch(ctx context.Context, channel string, n Notification) error {
	switch channel {
	case ChannelMail:
		m, ok := n.(Mailable)
		if !ok {
			return fmt.Errorf("notification: %T is not mailable", n)
		}
		return m.ToMail().Send(ctx)
	case ChannelWebhook:
		w, ok := n.(Webhookable)
		if !ok {
			return fmt.Errorf("notification: %T has no webhook", n)
		}
		return sendWebhook(ctx, w.ToWebhook())
	default:
		return fmt.Errorf("notification: unknown channel %q", channel)
	}
}

func sendWebhook(ctx context.Context, d WebhookData) error {
	if d.URL == "" {
		return errors.New("notification: webhook URL is empty")
	}
	resp, err := http.Post(d.URL).
		Header("X-Panaya-Event", d.Event).
		Body(d.Payload).
		Timeout(5*time.Second).
		Retry(3, 500*time.Millisecond).
		Send(ctx)
	if err != nil {
		return fmt.Errorf("notification: webhook: %w", err)
	}
	return resp.Throw()
}
