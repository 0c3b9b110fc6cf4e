package amqp

import (
	"encoding/json"
	"time"

	"rechnungen/internal/core"

	"github.com/google/uuid"
)

// InvoiceNotificationMessage announces that an invoice is due or has a
// reminder on the given day.
type InvoiceNotificationMessage struct {
	MessageID string    `json:"message_id"`
	Kind      string    `json:"kind"`
	InvoiceID int64     `json:"invoice_id"`
	Name      string    `json:"name"`
	Date      string    `json:"date"`
	Timestamp time.Time `json:"timestamp"`
}

// NewInvoiceNotificationMessage builds a message with a fresh id.
func NewInvoiceNotificationMessage(n core.Notification) *InvoiceNotificationMessage {
	return &InvoiceNotificationMessage{
		MessageID: uuid.NewString(),
		Kind:      string(n.Kind),
		InvoiceID: n.InvoiceID,
		Name:      n.Name,
		Date:      n.Date,
		Timestamp: time.Now(),
	}
}

// Notification converts the message back to the domain value.
func (m *InvoiceNotificationMessage) Notification() core.Notification {
	return core.Notification{
		Kind:      core.NotificationKind(m.Kind),
		InvoiceID: m.InvoiceID,
		Name:      m.Name,
		Date:      m.Date,
	}
}

// ToJSON converts the message to JSON bytes
func (m *InvoiceNotificationMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// InvoiceNotificationMessageFromJSON creates a message from JSON bytes
func InvoiceNotificationMessageFromJSON(data []byte) (*InvoiceNotificationMessage, error) {
	var msg InvoiceNotificationMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
