package mailservice

import (
	"bytes"
	"context"
	"sync"
	"time"

	"github.com/go-mail/mail/v2"

	"github.com/sushihentaime/quill/internal/common"
)

const (
	WelcomeTemplate = "welcome_email.html"
	ContactTemplate = "contact_message.html"
)

type MailService struct {
	mb               common.MessageConsumer
	m                Mailer
	logger           MailLogger
	contactRecipient string
	maxRetries       int
	baseDelay        time.Duration
	ctx              context.Context
	cancel           context.CancelFunc
}

type MailLogger interface {
	Error(msg string, args ...any)
	Info(msg string, args ...any)
}

type Mail struct {
	mu     sync.Mutex
	dialer Dialer
	parser TemplateParser
	sender string
}

type Mailer interface {
	send(recipient string, data any, templateFile string) error
}

type Template struct{}

type Dialer interface {
	DialAndSend(m ...*mail.Message) error
}

type TemplateParser interface {
	ParseTemplate(name string, data any) (*bytes.Buffer, *bytes.Buffer, *bytes.Buffer, error)
}

// RegisteredUser is the user.registered payload.
type RegisteredUser struct {
	Email string
	Name  string
}

// ContactMessage is the contact.submitted payload.
type ContactMessage struct {
	Name    string
	Email   string
	Phone   string
	Message string
}
