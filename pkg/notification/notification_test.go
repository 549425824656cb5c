package notification_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/panaya/pkg/mail"
	"github.com/shashiranjanraj/panaya/pkg/notification"
	"github.com/shashiranjanraj/panaya/pkg/testkit"
)

type shipped struct{ hook string }

func (s shipped) Via() []string {
	return []string{notification.ChannelMail, notification.ChannelWebhook}
}

func (s shipped) ToMail() *mail.Message {
	return mail.To("ana@example.com").Subject("Order #4 shipped").Text("on its way")
}

func (s shipped) ToWebhook() notification.WebhookData {
	return notification.WebhookData{URL: s.hook, Event: "order.transitioned", Payload: map[string]uint{"order_id": 4}}
}

func TestSendAllChannels(t *testing.T) {
	m := testkit.InstallMail(t)
	mt := testkit.NewMockTransport().Install(t)
	mt.Stub(http.MethodPost, "https://hooks.example.com", http.StatusOK, `{}`)

	require.NoError(t, notification.Send(context.Background(), shipped{hook: "https://hooks.example.com/panaya"}))

	require.Len(t, m.Sent(), 1)
	assert.Equal(t, "Order #4 shipped", m.Sent()[0].Subject)
	reqs := mt.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "order.transitioned", reqs[0].Header.Get("X-Panaya-Event"))
}

func TestSendKeepsGoingAfterFailure(t *testing.T) {
	m := testkit.InstallMail(t)
	testkit.NewMockTransport().Install(t)

	err := notification.Send(context.Background(), shipped{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "webhook URL is empty")
	assert.Len(t, m.Sent(), 1)
}
