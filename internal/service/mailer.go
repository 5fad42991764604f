package service

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"go.uber.org/zap"

	"github.com/incidex/incidex/internal/config"
	"github.com/incidex/incidex/internal/events"
)

// Mailer delivers outbound mail. Implementations are fire-and-forget from
// the workflow's point of view.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// SMTPMailer sends plain-text mail through a configured relay.
type SMTPMailer struct {
	cfg config.MailConfig
}

// NewSMTPMailer builds the mailer.
func NewSMTPMailer(cfg config.MailConfig) *SMTPMailer {
	return &SMTPMailer{cfg: cfg}
}

// Send delivers one message. Unconfigured host means delivery is off.
func (m *SMTPMailer) Send(_ context.Context, to, subject, body string) error {
	if strings.TrimSpace(m.cfg.Host) == "" {
		return nil
	}
	addr := m.cfg.Host + ":" + m.cfg.Port
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s\r\n",
		m.cfg.From, to, subject, body)
	return smtp.SendMail(addr, nil, m.cfg.From, []string{to}, []byte(msg))
}

// MailNotifier subscribes to ticket events and emails the support inbox.
// Every failure is logged and swallowed; mail never affects the
// transaction that produced the event.
type MailNotifier struct {
	mailer Mailer
	cfg    config.MailConfig
	logger *zap.Logger
}

// NewMailNotifier creates the consumer.
func NewMailNotifier(mailer Mailer, cfg config.MailConfig, logger *zap.Logger) *MailNotifier {
	return &MailNotifier{mailer: mailer, cfg: cfg, logger: logger}
}

// RegisterHandlers subscribes to the events worth a mail.
func (m *MailNotifier) RegisterHandlers(dispatcher events.Dispatcher) {
	if dispatcher == nil {
		return
	}
	dispatcher.Subscribe(events.EventTicketCreated, m.handle)
	dispatcher.Subscribe(events.EventStatusChanged, m.handle)
	dispatcher.Subscribe(events.EventTicketReassigned, m.handle)
}

func (m *MailNotifier) handle(ctx context.Context, event events.Event) error {
	subject := fmt.Sprintf("[Incidex] %s %s", event.TicketCode, event.Type)
	body := fmt.Sprintf("Ticket %s: evento %s", event.TicketCode, event.Type)
	if err := m.mailer.Send(ctx, m.cfg.To, subject, body); err != nil {
		m.logger.Warn("mail dispatch failed",
			zap.String("ticket_code", event.TicketCode),
			zap.String("event_type", string(event.Type)),
			zap.Error(err))
	}
	return nil
}
