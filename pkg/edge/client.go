// Package edge implements the collaborator contracts against the hosted
// edge functions (send-email, send-sms, create-task, update-record).
//
// The engine treats these as potentially slow and fallible network calls:
// every method is bounded by the client timeout and returns the remote
// error string instead of panicking or hanging.
package edge

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/jobdeck/automata/pkg/protocol"
)

const (
	defaultTimeout = 30 * time.Second
	maxAttempts    = 2
	retryDelay     = 500 * time.Millisecond
)

// ErrEdgeFunction is wrapped around every error string returned by an edge
// function so callers can detect collaborator failures with errors.Is.
var ErrEdgeFunction = errors.New("edge function call failed")

// Client talks to the edge function gateway. It implements Mailer, Texter,
// TaskCreator and RecordUpdater.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates an edge function client rooted at baseURL.
func NewClient(baseURL, apiKey string, logger *slog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		logger: logger.With("module", "edge_client"),
	}
}

// Collaborators returns the client wired into the bundle the action
// factories expect.
func (c *Client) Collaborators() protocol.Collaborators {
	return protocol.Collaborators{
		Mailer:        c,
		Texter:        c,
		TaskCreator:   c,
		RecordUpdater: c,
	}
}

type messageResponse struct {
	Success           bool   `json:"success"`
	ProviderMessageID string `json:"provider_message_id"`
	Error             string `json:"error"`
}

// SendEmail calls the send-email edge function.
func (c *Client) SendEmail(ctx context.Context, msg protocol.EmailMessage) (protocol.MessageReceipt, error) {
	var resp messageResponse

	err := c.post(ctx, "/send-email", msg, &resp)
	if err != nil {
		return protocol.MessageReceipt{}, err
	}

	if !resp.Success {
		return protocol.MessageReceipt{}, fmt.Errorf("%w: %s", ErrEdgeFunction, resp.Error)
	}

	return protocol.MessageReceipt{ProviderMessageID: resp.ProviderMessageID}, nil
}

// SendSMS calls the send-sms edge function.
func (c *Client) SendSMS(ctx context.Context, msg protocol.SMSMessage) (protocol.MessageReceipt, error) {
	var resp messageResponse

	err := c.post(ctx, "/send-sms", msg, &resp)
	if err != nil {
		return protocol.MessageReceipt{}, err
	}

	if !resp.Success {
		return protocol.MessageReceipt{}, fmt.Errorf("%w: %s", ErrEdgeFunction, resp.Error)
	}

	return protocol.MessageReceipt{ProviderMessageID: resp.ProviderMessageID}, nil
}

type taskResponse struct {
	ID    string `json:"id"`
	Error string `json:"error"`
}

// CreateTask calls the create-task edge function and returns the created
// record id.
func (c *Client) CreateTask(ctx context.Context, req protocol.TaskRequest) (string, error) {
	var resp taskResponse

	err := c.post(ctx, "/create-task", req, &resp)
	if err != nil {
		return "", err
	}

	if resp.ID == "" {
		return "", fmt.Errorf("%w: %s", ErrEdgeFunction, resp.Error)
	}

	return resp.ID, nil
}

type updateResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// UpdateRecord calls the update-record edge function.
func (c *Client) UpdateRecord(ctx context.Context, update protocol.RecordUpdate) error {
	var resp updateResponse

	err := c.post(ctx, "/update-record", update, &resp)
	if err != nil {
		return err
	}

	if !resp.Success {
		return fmt.Errorf("%w: %s", ErrEdgeFunction, resp.Error)
	}

	return nil
}

// post sends a JSON body and decodes a JSON response, retrying once on
// transport errors and 5xx responses.
func (c *Client) post(ctx context.Context, path string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request body: %w", err)
	}

	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			c.logger.Warn("Retrying edge function call", "path", path, "attempt", attempt)
			time.Sleep(retryDelay)
		}

		lastErr = c.doOnce(ctx, path, payload, out)
		if lastErr == nil {
			return nil
		}

		if !retryable(lastErr) {
			return lastErr
		}
	}

	return lastErr
}

var errServerStatus = errors.New("server error status")

func retryable(err error) bool {
	return errors.Is(err, errServerStatus) || errors.Is(err, context.DeadlineExceeded)
}

func (c *Client) doOnce(ctx context.Context, path string, payload []byte, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request failed: %w", err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("%w: %d from %s", errServerStatus, resp.StatusCode, path)
	}

	err = json.Unmarshal(raw, out)
	if err != nil {
		return fmt.Errorf("failed to decode response from %s: %w", path, err)
	}

	return nil
}
