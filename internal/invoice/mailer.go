package invoice

import (
	"fmt"
	"net/smtp"
	"strings"

	"github.com/jordan-wright/email"
	"github.com/sirupsen/logrus"
)

// MailConfig is the SMTP account invoices are sent from
type MailConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
}

// Mailer shares invoices by email
type Mailer struct {
	cfg    MailConfig
	logger *logrus.Logger
	send   func(e *email.Email, addr string, auth smtp.Auth) error
}

// NewMailer creates a new invoice mailer
func NewMailer(cfg MailConfig, logger *logrus.Logger) *Mailer {
	return &Mailer{
		cfg:    cfg,
		logger: logger,
		send: func(e *email.Email, addr string, auth smtp.Auth) error {
			return e.Send(addr, auth)
		},
	}
}

// Enabled reports whether an SMTP host is configured
func (m *Mailer) Enabled() bool {
	return m.cfg.Host != ""
}

// Share sends the invoice with its HTML copy attached
func (m *Mailer) Share(inv *Invoice, to string) error {
	if !m.Enabled() {
		return fmt.Errorf("invoice sharing is not configured")
	}
	html, err := inv.HTML()
	if err != nil {
		return err
	}

	e := email.NewEmail()
	e.From = m.cfg.From
	e.To = []string{to}
	e.Subject = fmt.Sprintf("Invoice %s", inv.Number)
	if inv.Business.Name != "" {
		e.Subject = fmt.Sprintf("%s - Invoice %s", inv.Business.Name, inv.Number)
	}
	e.Text = []byte(inv.Text())
	e.HTML = []byte(html)
	if _, err := e.Attach(strings.NewReader(html), inv.Number+".html", "text/html; charset=utf-8"); err != nil {
		return fmt.Errorf("failed to attach invoice: %w", err)
	}

	addr := fmt.Sprintf("%s:%s", m.cfg.Host, m.cfg.Port)
	auth := smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	if err := m.send(e, addr, auth); err != nil {
		m.logger.Errorf("Failed to send invoice %s to %s: %v", inv.Number, to, err)
		return fmt.Errorf("failed to send invoice: %w", err)
	}

	m.logger.Infof("Invoice %s sent to %s", inv.Number, to)
	return nil
}
