package notify

import (
	"context"
	"fmt"

	"github.com/gregdel/pushover"
)

type messageSender interface {
	SendMessage(message *pushover.Message, recipient *pushover.Recipient) (*pushover.Response, error)
}

// Pushover sink delivering reminders as push notifications
type Pushover struct {
	app       messageSender
	recipient *pushover.Recipient
	device    string
}

// NewPushover sink for the user key, device may be empty to reach every device
func NewPushover(apiToken, userKey, device string) *Pushover {
	return &Pushover{
		app:       pushover.New(apiToken),
		recipient: pushover.NewRecipient(userKey),
		device:    device,
	}
}

// Notify sends the reminder message
func (p *Pushover) Notify(ctx context.Context, dosage, medicineName string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	message := pushover.NewMessageWithTitle(Message(dosage, medicineName), Title)
	message.DeviceName = p.device
	message.Priority = pushover.PriorityHigh

	_, err := p.app.SendMessage(message, p.recipient)
	if err != nil {
		return fmt.Errorf("failed to send pushover reminder for %s: %w", medicineName, err)
	}

	return nil
}
