package infra

import (
	"bytes"
	"fmt"
	"net/smtp"

	"github.com/luksuri-reka/advanta-cc-sub001/internal/config"

	"github.com/jordan-wright/email"
)

// Attachment is an in-memory file attached to an outgoing mail.
type Attachment struct {
	Name        string
	ContentType string
	Data        []byte
}

// Mail is one outgoing notification.
type Mail struct {
	To          []string
	Subject     string
	Body        string
	Attachments []Attachment
}

// Mailer wraps SMTP configuration for sending notifications.
type Mailer struct {
	host     string
	user     string
	password string
	from     string
	addr     string
}

func NewMailer(cfg *config.Config) *Mailer {
	return &Mailer{
		host:     cfg.SMTPHost,
		user:     cfg.SMTPUser,
		password: cfg.SMTPPassword,
		from:     cfg.NotifyFrom,
		addr:     fmt.Sprintf("%s:%d", cfg.SMTPHost, cfg.SMTPPort),
	}
}

// Configured reports whether an SMTP host was set; without one mail jobs are dropped.
func (m *Mailer) Configured() bool { return m.host != "" }

// Send delivers the mail through the configured relay.
func (m *Mailer) Send(msg Mail) error {
	e := email.NewEmail()
	e.From = m.from
	e.To = msg.To
	e.Subject = msg.Subject
	e.Text = []byte(msg.Body)

	for _, a := range msg.Attachments {
		if _, err := e.Attach(bytes.NewReader(a.Data), a.Name, a.ContentType); err != nil {
			return fmt.Errorf("mailer: attach %s: %w", a.Name, err)
		}
	}

	var auth smtp.Auth
	if m.user != "" {
		auth = smtp.PlainAuth("", m.user, m.password, m.host)
	}
	return e.Send(m.addr, auth)
}
