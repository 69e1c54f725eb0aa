package report

import (
	"fmt"
	"net/smtp"
	"strings"

	"github.com/rdjoudi/mybak/internal/logger"
)

// SendMailFunc is the smtp.SendMail signature, injectable for tests.
type SendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Option overrides a Mailer default.
type Option func(*Mailer)

// Mailer sends the outcome notification with the run transcript as body.
// Sending is best effort: the run's outcome is already decided when a
// notification goes out, so callers log failures and move on.
type Mailer struct {
	addr     string
	from     string
	rcpts    []string
	sendMail SendMailFunc
	log      logger.Logger
}

// New returns a Mailer delivering through the SMTP server at addr.
func New(addr, from string, rcpts []string, log logger.Logger, opts ...Option) *Mailer {
	m := &Mailer{
		addr:     addr,
		from:     from,
		rcpts:    rcpts,
		sendMail: smtp.SendMail,
		log:      log,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// WithSendMail overrides the SMTP transport.
func WithSendMail(fn SendMailFunc) Option {
	return func(m *Mailer) {
		if fn != nil {
			m.sendMail = fn
		}
	}
}

// Send mails body under the given subject to the configured recipients.
// Without recipients it is a no-op.
func (m *Mailer) Send(subject string, body []byte) error {
	if len(m.rcpts) == 0 {
		return nil
	}

	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", m.from)
	fmt.Fprintf(&msg, "To: %s\r\n", strings.Join(m.rcpts, ", "))
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	msg.WriteString("\r\n")
	msg.Write(body)

	if err := m.sendMail(m.addr, nil, m.from, m.rcpts, []byte(msg.String())); err != nil {
		return fmt.Errorf("send notification via %s: %w", m.addr, err)
	}
	m.log.Info("notification sent", "rcpts", strings.Join(m.rcpts, ","), "subject", subject)
	return nil
}
