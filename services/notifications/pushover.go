package notifications

import (
	"github.com/gregdel/pushover"
)

// Pushover caps per their API; longer content gets truncated rather than
// failing the send.
const (
	pushoverTitleLimit   = 250
	pushoverMessageLimit = 1024
)

// PushoverForwarder delivers notifications through Pushover.
type PushoverForwarder struct {
	app       *pushover.Pushover
	recipient *pushover.Recipient
}

func NewPushoverForwarder(apiToken, userKey string) *PushoverForwarder {
	return &PushoverForwarder{
		app:       pushover.New(apiToken),
		recipient: pushover.NewRecipient(userKey),
	}
}

func (f *PushoverForwarder) Forward(title, message string) error {
	if message == "" {
		message = title
	}
	msg := pushover.NewMessageWithTitle(
		truncate(message, pushoverMessageLimit),
		truncate(title, pushoverTitleLimit),
	)
	_, err := f.app.SendMessage(msg, f.recipient)
	return err
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit]
}
