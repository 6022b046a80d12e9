// Package mailer relays mailing-list subscriptions and contact-form messages
// through SendGrid. User-supplied text is sanitized before it is embedded in
// outbound HTML.
package mailer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"

	"github.com/devshare/devshare/pkg/config"
	"github.com/devshare/devshare/pkg/logging"
)

var (
	// ErrNotConfigured is returned when the SendGrid key or sender address
	// is missing
	ErrNotConfigured = errors.New("mail relay not configured")
	// ErrInvalidEmail is returned for a syntactically invalid address
	ErrInvalidEmail = errors.New("valid email is required")
	// ErrEmptyMessage is returned for a blank contact-form message
	ErrEmptyMessage = errors.New("message is required")
)

var emailPattern = regexp.MustCompile(`^\S+@\S+\.\S+$`)

const sendGridHost = "https://api.sendgrid.com"

// Sender is the slice of the SendGrid client the mailer uses. Tests inject
// a fake.
type Sender interface {
	SendMail(ctx context.Context, msg *mail.SGMailV3) (*rest.Response, error)
	API(ctx context.Context, req rest.Request) (*rest.Response, error)
}

type sendGridSender struct {
	key string
}

func (s *sendGridSender) SendMail(ctx context.Context, msg *mail.SGMailV3) (*rest.Response, error) {
	return sendgrid.NewSendClient(s.key).SendWithContext(ctx, msg)
}

func (s *sendGridSender) API(ctx context.Context, req rest.Request) (*rest.Response, error) {
	return sendgrid.MakeRequestWithContext(ctx, req)
}

// Mailer implements the subscribe and contact relays
type Mailer struct {
	sender   Sender
	cfg      config.MailConfig
	sanitize *bluemonday.Policy
	logger   *zap.Logger
}

// New creates a mailer on the production SendGrid client
func New(cfg config.MailConfig) *Mailer {
	return NewWithSender(cfg, &sendGridSender{key: cfg.SendGridKey})
}

// NewWithSender creates a mailer with an injected request sender
func NewWithSender(cfg config.MailConfig, sender Sender) *Mailer {
	return &Mailer{
		sender:   sender,
		cfg:      cfg,
		sanitize: bluemonday.StrictPolicy(),
		logger:   logging.GetLogger().With(zap.String("service", "mailer")),
	}
}

func (m *Mailer) configured() error {
	if m.cfg.SendGridKey == "" || m.cfg.FromEmail == "" {
		return ErrNotConfigured
	}
	return nil
}

// Subscribe sends the welcome mail to the address and, when a marketing list
// is configured, upserts the address as a contact on it. The dynamic template
// is used when configured, otherwise a plain welcome message.
func (m *Mailer) Subscribe(ctx context.Context, email string) error {
	if err := m.configured(); err != nil {
		return err
	}
	email = strings.TrimSpace(email)
	if !emailPattern.MatchString(email) {
		return ErrInvalidEmail
	}

	var msg *mail.SGMailV3
	if m.cfg.TemplateID != "" {
		msg = mail.NewV3Mail()
		msg.SetFrom(mail.NewEmail("", m.cfg.FromEmail))
		msg.SetTemplateID(m.cfg.TemplateID)
		p := mail.NewPersonalization()
		p.AddTos(mail.NewEmail("", email))
		p.SetDynamicTemplateData("email", email)
		msg.AddPersonalizations(p)
	} else {
		msg = mail.NewSingleEmail(
			mail.NewEmail("", m.cfg.FromEmail),
			"Thanks for subscribing!",
			mail.NewEmail("", email),
			"You are now subscribed to DevShare updates.",
			"<p>You are now subscribed to <strong>DevShare</strong> updates.</p>",
		)
	}

	if err := m.send(ctx, msg); err != nil {
		return fmt.Errorf("sending welcome mail: %w", err)
	}

	if m.cfg.ListID != "" {
		if err := m.upsertContact(ctx, email); err != nil {
			return fmt.Errorf("adding contact to list: %w", err)
		}
	}

	m.logger.Info("subscription processed", zap.String("email", email))
	return nil
}

// Contact relays a contact-form message to the configured inbox with the
// sender set as reply-to. Name and message pass through the HTML sanitizer
// before embedding.
func (m *Mailer) Contact(ctx context.Context, name, email, message string) error {
	if err := m.configured(); err != nil {
		return err
	}
	email = strings.TrimSpace(email)
	if !emailPattern.MatchString(email) {
		return ErrInvalidEmail
	}
	if strings.TrimSpace(message) == "" {
		return ErrEmptyMessage
	}
	if strings.TrimSpace(name) == "" {
		name = "Anonymous"
	}

	to := m.cfg.ContactTo
	if to == "" {
		to = m.cfg.FromEmail
	}

	// The address pattern admits angle brackets, so the email gets escaped
	// along with the free-text fields
	safeName := m.sanitize.Sanitize(name)
	safeEmail := html.EscapeString(email)
	safeMessage := m.sanitize.Sanitize(message)
	body := fmt.Sprintf("<p><strong>From:</strong> %s &lt;%s&gt;</p><p>%s</p>",
		safeName, safeEmail, strings.ReplaceAll(safeMessage, "\n", "<br>"))

	msg := mail.NewSingleEmail(
		mail.NewEmail("", m.cfg.FromEmail),
		fmt.Sprintf("Contact form – %s", safeName),
		mail.NewEmail("", to),
		message,
		body,
	)
	msg.SetReplyTo(mail.NewEmail(name, email))

	if err := m.send(ctx, msg); err != nil {
		return fmt.Errorf("relaying contact message: %w", err)
	}

	m.logger.Info("contact message relayed", zap.String("from", email))
	return nil
}

func (m *Mailer) send(ctx context.Context, msg *mail.SGMailV3) error {
	resp, err := m.sender.SendMail(ctx, msg)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("sendgrid status %d: %s", resp.StatusCode, resp.Body)
	}
	return nil
}

func (m *Mailer) upsertContact(ctx context.Context, email string) error {
	body, err := json.Marshal(map[string]interface{}{
		"list_ids": []string{m.cfg.ListID},
		"contacts": []map[string]string{{"email": email}},
	})
	if err != nil {
		return err
	}

	req := sendgrid.GetRequest(m.cfg.SendGridKey, "/v3/marketing/contacts", sendGridHost)
	req.Method = rest.Put
	req.Body = body

	resp, err := m.sender.API(ctx, req)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("sendgrid status %d: %s", resp.StatusCode, resp.Body)
	}
	return nil
}
