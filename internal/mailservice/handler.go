package mailservice

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sushihentaime/quill/internal/common"
	"golang.org/x/exp/rand"
)

var errNoRecipient = errors.New("no recipient")

func NewMailService(mb common.MessageConsumer, host, username, password, sender string, port int, contactRecipient string, logger MailLogger) *MailService {
	ctx, cancel := context.WithCancel(context.Background())
	return &MailService{
		mb:               mb,
		m:                NewMailer(host, port, username, password, sender, NewTemplate()),
		logger:           logger,
		contactRecipient: contactRecipient,
		maxRetries:       5,
		baseDelay:        500 * time.Millisecond,
		ctx:              ctx,
		cancel:           cancel,
	}
}

// SendWelcomeEmail greets every newly registered user.
func (s *MailService) SendWelcomeEmail() {
	s.listen("welcome email", common.UserRegisteredKey, common.UserRegisteredQueue, func(body []byte) (string, any, error) {
		var data RegisteredUser
		if err := json.Unmarshal(body, &data); err != nil {
			return "", nil, err
		}
		return data.Email, data, nil
	}, WelcomeTemplate)
}

// ForwardContactMessages sends contact form submissions to the configured recipient.
func (s *MailService) ForwardContactMessages() {
	s.listen("contact message", common.ContactSubmittedKey, common.ContactSubmittedQueue, func(body []byte) (string, any, error) {
		if s.contactRecipient == "" {
			return "", nil, errNoRecipient
		}

		var data ContactMessage
		if err := json.Unmarshal(body, &data); err != nil {
			return "", nil, err
		}
		return s.contactRecipient, data, nil
	}, ContactTemplate)
}

// listen consumes queue until the service is closed. decode turns a delivery into the recipient
// and template data; a delivery that cannot be decoded is dropped.
func (s *MailService) listen(kind string, key common.BindingKey, queue common.Queue, decode func([]byte) (string, any, error), templateFile string) {
	msgs, err := s.mb.Consume(key, common.BlogExchange, queue)
	if err != nil {
		s.logger.Error("could not consume message", slog.String("queue", string(queue)), slog.String("error", err.Error()))
		return
	}

	go func() {
		for {
			select {
			case msg, ok := <-msgs:
				if !ok {
					return
				}

				recipient, data, err := decode(msg.Body)
				if err != nil {
					s.logger.Error("could not decode message", slog.String("kind", kind), slog.String("error", err.Error()))
					_ = msg.Ack(false)
					continue
				}

				s.deliver(msg, kind, recipient, data, templateFile)

			case <-s.ctx.Done():
				s.logger.Info("stopping mail consumer due to context cancellation", slog.String("kind", kind))
				return
			}
		}
	}()
}

// deliver sends one email using exponential backoff with jitter. The delivery is acked either way
// so a bad address cannot block the queue.
func (s *MailService) deliver(msg amqp.Delivery, kind, recipient string, data any, templateFile string) {
	for attempt := 0; attempt < s.maxRetries; attempt++ {
		err := s.m.send(recipient, data, templateFile)
		if err == nil {
			s.logger.Info(kind+" sent", slog.String("email", recipient))
			_ = msg.Ack(false)
			return
		}

		delay := time.Duration(rand.Int63n(int64(s.baseDelay) << uint(attempt)))
		s.logger.Info("delaying "+kind, slog.String("email", recipient), slog.Int("attempt", attempt), slog.Duration("delay", delay))

		select {
		case <-time.After(delay):
		case <-s.ctx.Done():
			return
		}
	}

	s.logger.Error("could not send "+kind, slog.String("email", recipient))
	_ = msg.Ack(false)
}

func (s *MailService) Close() {
	s.cancel()
}
