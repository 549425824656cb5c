package testkit

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/mock"

	"github.com/shashiranjanraj/panaya/pkg/mail"
)

// MailMock records deliveries. Without expectations every Deliver succeeds;
// once Expect is called, deliveries go through testify expectations on
// (recipient, subject).
type MailMock struct {
	mock.Mock

	mu     sync.Mutex
	sent   []mail.Envelope
	strict bool
}

// InstallMail replaces the mail sender until the test ends.
func InstallMail(t *testing.T) *MailMock {
	m := &MailMock{}
	prev := mail.SetSender(m)
	t.Cleanup(func() { mail.SetSender(prev) })
	return m
}

func (m *MailMock) Expect(to, subject interface{}) *mock.Call {
	m.mu.Lock()
	m.strict = true
	m.mu.Unlock()
	return m.On("Deliver", to, subject)
}

func (m *MailMock) Deliver(_ context.Context, e mail.Envelope) error {
	m.mu.Lock()
	m.sent = append(m.sent, e)
	strict := m.strict
	m.mu.Unlock()

	if !strict {
		return nil
	}
	to := ""
	if len(e.To) > 0 {
		to = e.To[0]
	}
	return m.Called(to, e.Subject).Error(0)
}

func (m *MailMock) Sent() []mail.Envelope {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]mail.Envelope(nil), m.sent...)
}
