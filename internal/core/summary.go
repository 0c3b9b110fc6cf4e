package core

import "strings"

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name   string
	Amount Money
}

// NotificationKind distinguishes due invoices from reminders.
type NotificationKind string

const (
	KindDue      NotificationKind = "due"
	KindReminder NotificationKind = "reminder"
)

// Notification is a single due or reminder hit for a given day.
type Notification struct {
	Kind      NotificationKind
	InvoiceID int64
	Name      string
	Date      string
}

// Notifications groups the day's due invoices and reminders.
type Notifications struct {
	Due       []Notification
	Reminders []Notification
}

func (n Notifications) Empty() bool {
	return len(n.Due) == 0 && len(n.Reminders) == 0
}

// All returns due entries followed by reminders.
func (n Notifications) All() []Notification {
	out := make([]Notification, 0, len(n.Due)+len(n.Reminders))
	out = append(out, n.Due...)
	return append(out, n.Reminders...)
}

// Message renders the notifications as the multi-line text shown on startup.
func (n Notifications) Message() string {
	if n.Empty() {
		return ""
	}
	var b strings.Builder
	b.WriteString("Wichtige Benachrichtigungen für heute:\n\n")
	if len(n.Due) > 0 {
		b.WriteString("Fällige Rechnungen:\n")
		for _, d := range n.Due {
			b.WriteString("- " + d.Name + " (fällig am " + d.Date + ")\n")
		}
		b.WriteString("\n")
	}
	if len(n.Reminders) > 0 {
		b.WriteString("Erinnerungen (Kündigung/Verlängerung):\n")
		for _, r := range n.Reminders {
			b.WriteString("- " + r.Name + " (Erinnerung am " + r.Date + ")\n")
		}
		b.WriteString("\n")
	}
	return b.String()
}
