// Package sms provides the send-sms workflow action.
package sms

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/jobdeck/automata/pkg/protocol"
	"github.com/jobdeck/automata/pkg/template"
)

// providerBodyLimit is the maximum SMS body length the provider accepts;
// longer bodies are truncated, not rejected.
const providerBodyLimit = 1600

const defaultRecipient = "{{client.phone}}"

var (
	// ErrNoRecipient is returned when the recipient template resolves to
	// an empty string.
	ErrNoRecipient = errors.New("sms recipient resolved to empty string")

	// ErrInvalidPhone is returned when the resolved recipient is not an
	// E.164 phone number.
	ErrInvalidPhone = errors.New("sms recipient is not a valid E.164 number")
)

var e164 = regexp.MustCompile(`^\+[1-9]\d{6,14}$`)

// Action renders a body template and sends it as an SMS to the resolved
// recipient.
type Action struct {
	To   string
	Body string

	texter protocol.Texter
}

// NewAction creates a send-sms action from step configuration.
func NewAction(config map[string]any, texter protocol.Texter) (*Action, error) {
	body, _ := config["body"].(string)
	if body == "" {
		return nil, errors.New("sms action requires a body")
	}

	to, _ := config["to"].(string)
	if to == "" {
		to = defaultRecipient
	}

	return &Action{To: to, Body: body, texter: texter}, nil
}

// Execute sends the rendered SMS.
func (a *Action) Execute(ctx context.Context, triggerData map[string]any, logger *slog.Logger) (string, error) {
	logger = logger.With("action_type", "sms")

	to := strings.TrimSpace(template.Render(a.To, triggerData))
	if to == "" {
		return "", ErrNoRecipient
	}

	if !e164.MatchString(to) {
		return "", fmt.Errorf("%w: %q", ErrInvalidPhone, to)
	}

	body := template.Render(a.Body, triggerData)
	if len(body) > providerBodyLimit {
		logger.WarnContext(ctx, "SMS body exceeds provider limit, truncating",
			"length", len(body), "limit", providerBodyLimit)

		body = body[:providerBodyLimit]
	}

	logger.InfoContext(ctx, "Sending SMS", "to", to, "length", len(body))

	receipt, err := a.texter.SendSMS(ctx, protocol.SMSMessage{To: to, Body: body})
	if err != nil {
		return "", fmt.Errorf("send sms to %s: %w", to, err)
	}

	return fmt.Sprintf("sms sent to %s (provider id %s)", to, receipt.ProviderMessageID), nil
}
