// Package email provides the send-email workflow action.
package email

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jobdeck/automata/pkg/protocol"
	"github.com/jobdeck/automata/pkg/template"
)

// ErrNoRecipient is returned when the recipient template resolves to an
// empty string, usually a client record without an email address.
var ErrNoRecipient = errors.New("email recipient resolved to empty string")

// defaultRecipient resolves the client's email field from the trigger
// context when the step does not configure an explicit recipient.
const defaultRecipient = "{{client.email}}"

// Action renders subject and body templates against the trigger context
// and sends the result through the messaging collaborator.
type Action struct {
	To      string
	Subject string
	Body    string

	mailer protocol.Mailer
}

// NewAction creates a send-email action from step configuration.
func NewAction(config map[string]any, mailer protocol.Mailer) (*Action, error) {
	subject, _ := config["subject"].(string)
	body, _ := config["body"].(string)

	if subject == "" && body == "" {
		return nil, errors.New("email action requires a subject or body")
	}

	to, _ := config["to"].(string)
	if to == "" {
		to = defaultRecipient
	}

	return &Action{
		To:      to,
		Subject: subject,
		Body:    body,
		mailer:  mailer,
	}, nil
}

// Execute sends the rendered email. Collaborator errors are returned as-is;
// the engine records them against the step without retrying.
func (a *Action) Execute(ctx context.Context, triggerData map[string]any, logger *slog.Logger) (string, error) {
	logger = logger.With("action_type", "email")

	to := strings.TrimSpace(template.Render(a.To, triggerData))
	if to == "" {
		return "", ErrNoRecipient
	}

	msg := protocol.EmailMessage{
		To:      to,
		Subject: template.Render(a.Subject, triggerData),
		Body:    template.Render(a.Body, triggerData),
	}

	logger.InfoContext(ctx, "Sending email", "to", to, "subject", msg.Subject)

	receipt, err := a.mailer.SendEmail(ctx, msg)
	if err != nil {
		return "", fmt.Errorf("send email to %s: %w", to, err)
	}

	return fmt.Sprintf("email sent to %s (provider id %s)", to, receipt.ProviderMessageID), nil
}
