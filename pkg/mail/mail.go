// Package mail sends order notifications over SMTP.
//
//	err := mail.To(user.Email).
//	    Subject("Your order #12 is in transit").
//	    Template(mail.OrderUpdate, data).
//	    Send(ctx)
package mail

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"html/template"
	"net"
	"net/smtp"
	"strings"
	"sync"
	"time"

	"github.com/shashiranjanraj/panaya/config"
)

var ErrNoRecipient = errors.New("mail: no recipient")

type SMTP struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
	FromName string
}

func FromConfig() SMTP {
	return SMTP{
		Host:     config.Get("MAIL_HOST", "localhost"),
		Port:     config.Get("MAIL_PORT", "1025"),
		Username: config.Get("MAIL_USERNAME", ""),
		Password: config.Get("MAIL_PASSWORD", ""),
		From:     config.Get("MAIL_FROM", "orders@panaya.local"),
		FromName: config.Get("MAIL_FROM_NAME", "Panaya"),
	}
}

// Envelope is a rendered message ready for delivery.
type Envelope struct {
	From    string
	To      []string
	Subject string
	Raw     []byte
}

// Sender delivers envelopes. The SMTP sender is the default; tests swap it
// with SetSender.
type Sender interface {
	Deliver(ctx context.Context, e Envelope) error
}

var (
	senderMu sync.RWMutex
	sender   Sender
)

// SetSender replaces the process-wide sender and returns the previous one.
func SetSender(s Sender) Sender {
	senderMu.Lock()
	defer senderMu.Unlock()
	prev := sender
	sender = s
	return prev
}

func current() Sender {
	senderMu.RLock()
	defer senderMu.RUnlock()
	if sender != nil {
		return sender
	}
	return SMTPSender{Config: FromConfig()}
}

type Message struct {
	to      []string
	subject string
	body    string
	isHTML  bool
	err     error
	from    SMTP
}

func To(addresses ...string) *Message {
	var to []string
	for _, a := range addresses {
		if a = strings.TrimSpace(a); a != "" {
			to = append(to, a)
		}
	}
	return &Message{to: to, isHTML: true, from: FromConfig()}
}

func (m *Message) Subject(s string) *Message {
	m.subject = s
	return m
}

func (m *Message) HTML(body string) *Message {
	m.body, m.isHTML = body, true
	return m
}

func (m *Message) Text(body string) *Message {
	m.body, m.isHTML = body, false
	return m
}

// Template renders t with data as the HTML body. A render failure is
// reported by Send.
func (m *Message) Template(t *template.Template, data interface{}) *Message {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		m.err = fmt.Errorf("mail: render %s: %w", t.Name(), err)
		return m
	}
	return m.HTML(buf.String())
}

func (m *Message) Send(ctx context.Context) error {
	if m.err != nil {
		return m.err
	}
	if len(m.to) == 0 {
		return ErrNoRecipient
	}
	return current().Deliver(ctx, m.Envelope())
}

// Envelope renders the message headers and body.
func (m *Message) Envelope() Envelope {
	ct := "text/plain"
	if m.isHTML {
		ct = "text/html"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s <%s>\r\n", m.from.FromName, m.from.From)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(m.to, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", sanitizeHeader(m.subject))
	fmt.Fprintf(&b, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&b, "Content-Type: %s; charset=\"UTF-8\"\r\n\r\n", ct)
	b.WriteString(m.body)
	return Envelope{From: m.from.From, To: m.to, Subject: m.subject, Raw: []byte(b.String())}
}

func sanitizeHeader(s string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(s)
}

// SMTPSender talks to the configured relay. Port 465 uses implicit TLS;
// other ports send plain and upgrade through STARTTLS when offered.
// Authentication is skipped when no username is set, which suits local
// catchers such as MailHog.
type SMTPSender struct {
	Config SMTP
}

func (s SMTPSender) Deliver(ctx context.Context, e Envelope) error {
	cfg := s.Config
	addr := net.JoinHostPort(cfg.Host, cfg.Port)

	d := net.Dialer{Timeout: 10 * time.Second}
	var (
		conn net.Conn
		err  error
	)
	if cfg.Port == "465" {
		conn, err = (&tls.Dialer{NetDialer: &d, Config: &tls.Config{ServerName: cfg.Host}}).DialContext(ctx, "tcp", addr)
	} else {
		conn, err = d.DialContext(ctx, "tcp", addr)
	}
	if err != nil {
		return fmt.Errorf("mail: dial %s: %w", addr, err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	c, err := smtp.NewClient(conn, cfg.Host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("mail: handshake: %w", err)
	}
	defer c.Close()

	if ok, _ := c.Extension("STARTTLS"); ok && cfg.Port != "465" {
		if err := c.StartTLS(&tls.Config{ServerName: cfg.Host}); err != nil {
			return fmt.Errorf("mail: starttls: %w", err)
		}
	}
	if cfg.Username != "" {
		if err := c.Auth(smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)); err != nil {
			return fmt.Errorf("mail: auth: %w", err)
		}
	}
	if err := c.Mail(e.From); err != nil {
		return err
	}
	for _, rcpt := range e.To {
		if err := c.Rcpt(rcpt); err != nil {
			return fmt.Errorf("mail: rcpt %s: %w", rcpt, err)
		}
	}
	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(e.Raw); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return c.Quit()
}
