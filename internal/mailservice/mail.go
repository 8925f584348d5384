package mailservice

import (
	"fmt"
	"time"

	"github.com/go-mail/mail/v2"
)

// replier is template data that names an address replies should go to.
type replier interface {
	ReplyTo() string
}

// ReplyTo lets the blog owner answer a contact message directly.
func (c ContactMessage) ReplyTo() string {
	return c.Email
}

// NewMailer creates a mailer that renders templates with tp and sends through the given SMTP server.
func NewMailer(host string, port int, username, password, sender string, tp *Template) *Mail {
	dialer := mail.NewDialer(host, port, username, password)
	dialer.Timeout = 5 * time.Second

	return &Mail{
		dialer: dialer,
		sender: sender,
		parser: tp,
	}
}

func (m *Mail) send(recipient string, data any, templateFile string) error {
	subject, plainBody, htmlBody, err := m.parser.ParseTemplate(templateFile, data)
	if err != nil {
		return fmt.Errorf("could not render %s: %w", templateFile, err)
	}

	msg := mail.NewMessage()
	msg.SetHeader("From", m.sender)
	msg.SetHeader("To", recipient)
	msg.SetHeader("Subject", subject.String())
	if r, ok := data.(replier); ok && r.ReplyTo() != "" {
		msg.SetHeader("Reply-To", r.ReplyTo())
	}
	msg.SetBody("text/plain", plainBody.String())
	msg.AddAlternative("text/html", htmlBody.String())

	m.mu.Lock()
	defer m.mu.Unlock()

	return m.dialer.DialAndSend(msg)
}
