package services

import (
	"context"
	"fmt"
	"time"

	"rechnungen/internal/core"
	"rechnungen/internal/log"
)

type DueReminderReader interface {
	DueAndReminderInvoices(ctx context.Context, day core.Date) (due, reminders []core.Invoice, err error)
}

// NotificationPublisher forwards notifications to an external channel.
type NotificationPublisher interface {
	PublishInvoiceNotification(ctx context.Context, n core.Notification) error
}

// Notifier finds invoices due today and reminders set for today.
type Notifier struct {
	store     DueReminderReader
	publisher NotificationPublisher
	logger    *log.Logger
	now       func() time.Time
}

// NewNotifier creates a notifier. publisher may be nil.
func NewNotifier(store DueReminderReader, publisher NotificationPublisher, logger *log.Logger) *Notifier {
	return &Notifier{
		store:     store,
		publisher: publisher,
		logger:    logger.WithComponent(log.ComponentNotifier),
		now:       time.Now,
	}
}

// Today returns the current local calendar day.
func (n *Notifier) Today() core.Date {
	return core.DateOf(n.now())
}

// Check collects the notifications for day without publishing them.
func (n *Notifier) Check(ctx context.Context, day core.Date) (core.Notifications, error) {
	due, reminders, err := n.store.DueAndReminderInvoices(ctx, day)
	if err != nil {
		return core.Notifications{}, fmt.Errorf("due and reminder invoices: %w", err)
	}

	var out core.Notifications
	for _, inv := range due {
		out.Due = append(out.Due, core.Notification{
			Kind: core.KindDue, InvoiceID: inv.ID, Name: inv.Name, Date: inv.DueDate.String(),
		})
	}
	for _, inv := range reminders {
		out.Reminders = append(out.Reminders, core.Notification{
			Kind: core.KindReminder, InvoiceID: inv.ID, Name: inv.Name, Date: inv.ReminderDate.String(),
		})
	}
	return out, nil
}

// CheckToday runs Check for today, logs the result and publishes every
// notification when a publisher is configured. Publish failures are logged.
func (n *Notifier) CheckToday(ctx context.Context) (core.Notifications, error) {
	day := n.Today()
	notes, err := n.Check(ctx, day)
	if err != nil {
		n.logger.ErrorContext(ctx, "Notification check failed", log.FieldDate, day.String(), log.FieldError, err)
		return core.Notifications{}, err
	}

	if notes.Empty() {
		n.logger.InfoContext(ctx, "No notifications for today", log.FieldDate, day.String())
		return notes, nil
	}

	n.logger.InfoContext(ctx, "Notifications for today",
		log.FieldDate, day.String(),
		"due", len(notes.Due),
		"reminders", len(notes.Reminders))

	if n.publisher == nil {
		return notes, nil
	}
	for _, note := range notes.All() {
		if err := n.publisher.PublishInvoiceNotification(ctx, note); err != nil {
			n.logger.WarnContext(ctx, "Failed to publish notification",
				log.FieldInvoiceID, note.InvoiceID, "kind", string(note.Kind), log.FieldError, err)
		}
	}
	return notes, nil
}
