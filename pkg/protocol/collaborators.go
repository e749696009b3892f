package protocol

import "context"

// EmailMessage is the input shape of the send-email collaborator.
type EmailMessage struct {
	To       string            `json:"to"`
	Subject  string            `json:"subject"`
	Body     string            `json:"body"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// SMSMessage is the input shape of the send-sms collaborator. To must be an
// E.164 phone number; Body is truncated to the provider limit before send.
type SMSMessage struct {
	To       string            `json:"to"`
	Body     string            `json:"body"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// MessageReceipt is returned by the messaging collaborators on success.
type MessageReceipt struct {
	ProviderMessageID string `json:"provider_message_id"`
}

// TaskRequest is the input shape of the create-task collaborator.
type TaskRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	JobID       string `json:"job_id,omitempty"`
	ClientID    string `json:"client_id,omitempty"`
	AssigneeID  string `json:"assignee_id,omitempty"`
}

// RecordUpdate is the input shape of the update-record collaborator.
type RecordUpdate struct {
	EntityType string         `json:"entity_type"`
	EntityID   string         `json:"entity_id"`
	Fields     map[string]any `json:"fields"`
}

// Mailer sends an email through the messaging edge function. Safe to retry
// at the caller's discretion; the engine itself does not retry.
type Mailer interface {
	SendEmail(ctx context.Context, msg EmailMessage) (MessageReceipt, error)
}

// Texter sends an SMS through the messaging edge function.
type Texter interface {
	SendSMS(ctx context.Context, msg SMSMessage) (MessageReceipt, error)
}

// TaskCreator writes a task record via the data-layer collaborator and
// returns the created record id.
type TaskCreator interface {
	CreateTask(ctx context.Context, req TaskRequest) (string, error)
}

// RecordUpdater applies field updates to a business entity via the
// data-layer collaborator.
type RecordUpdater interface {
	UpdateRecord(ctx context.Context, update RecordUpdate) error
}

// Collaborators bundles every external contract the built-in actions use.
type Collaborators struct {
	Mailer        Mailer
	Texter        Texter
	TaskCreator   TaskCreator
	RecordUpdater RecordUpdater
}
