package mail

import (
	"context"
	"fmt"
	"sync"

	"github.com/mailgun/mailgun-go/v4"
	"github.com/mrcrandell/fourgreenfieldsfarm-api/internal/config"
	log "github.com/sirupsen/logrus"
)

type Message struct {
	To      string
	Subject string
	Html    string
}

type Sender interface {
	Send(ctx context.Context, msg Message) error
}

type MailgunSender struct {
	mg   *mailgun.MailgunImpl
	from string
}

func NewMailgunSender(cfg config.Mail) *MailgunSender {
	return &MailgunSender{mg: mailgun.NewMailgun(cfg.Domain, cfg.ApiKey), from: cfg.From}
}

func (s *MailgunSender) Send(ctx context.Context, msg Message) error {
	m := s.mg.NewMessage(s.from, msg.Subject, "", msg.To)
	m.SetHtml(msg.Html)

	_, id, err := s.mg.Send(ctx, m)
	if err != nil {
		return fmt.Errorf("mailgun send to %s: %w", msg.To, err)
	}
	log.Debugf("Sent %q to %s (id %s)", msg.Subject, msg.To, id)
	return nil
}

// StubSender records messages instead of sending them. Err, when set, is returned from Send.
type StubSender struct {
	mu   sync.Mutex
	Sent []Message
	Err  error
}

func (s *StubSender) Send(ctx context.Context, msg Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	s.Sent = append(s.Sent, msg)
	return nil
}
