package sms

import (
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/jobdeck/automata/pkg/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTexter struct {
	sent []protocol.SMSMessage
}

func (f *fakeTexter) SendSMS(_ context.Context, msg protocol.SMSMessage) (protocol.MessageReceipt, error) {
	f.sent = append(f.sent, msg)

	return protocol.MessageReceipt{ProviderMessageID: "sms-1"}, nil
}

func TestExecute_SendsRenderedBody(t *testing.T) {
	texter := &fakeTexter{}

	action, err := NewAction(map[string]any{
		"body": "Hi {{client.firstName}}, see you at {{job.window}}.",
	}, texter)
	require.NoError(t, err)

	data := map[string]any{
		"client": map[string]any{"firstName": "Sam", "phone": "+15125550100"},
		"job":    map[string]any{"window": "9-11am"},
	}

	_, err = action.Execute(context.Background(), data, slog.Default())
	require.NoError(t, err)

	require.Len(t, texter.sent, 1)
	assert.Equal(t, "+15125550100", texter.sent[0].To)
	assert.Equal(t, "Hi Sam, see you at 9-11am.", texter.sent[0].Body)
}

func TestExecute_RejectsNonE164(t *testing.T) {
	action, err := NewAction(map[string]any{"body": "hi"}, &fakeTexter{})
	require.NoError(t, err)

	data := map[string]any{"client": map[string]any{"phone": "512-555-0100"}}

	_, err = action.Execute(context.Background(), data, slog.Default())
	require.ErrorIs(t, err, ErrInvalidPhone)
}

func TestExecute_MissingRecipient(t *testing.T) {
	action, err := NewAction(map[string]any{"body": "hi"}, &fakeTexter{})
	require.NoError(t, err)

	_, err = action.Execute(context.Background(), map[string]any{}, slog.Default())
	require.ErrorIs(t, err, ErrNoRecipient)
}

func TestExecute_TruncatesToProviderLimit(t *testing.T) {
	texter := &fakeTexter{}

	action, err := NewAction(map[string]any{"body": strings.Repeat("x", providerBodyLimit+50)}, texter)
	require.NoError(t, err)

	data := map[string]any{"client": map[string]any{"phone": "+15125550100"}}

	_, err = action.Execute(context.Background(), data, slog.Default())
	require.NoError(t, err)
	assert.Len(t, texter.sent[0].Body, providerBodyLimit)
}
