// Package notify delivers fired reminders to the user.
package notify

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"git.0xdad.com/tblyler/medilens/logging"
)

// Title of every reminder notification
const Title = "Medication reminder"

// Sink of reminder notifications
type Sink interface {
	Notify(ctx context.Context, dosage, medicineName string) error
}

// Message text for a reminder
func Message(dosage, medicineName string) string {
	return fmt.Sprintf("REMINDER: Time to take %s of %s", dosage, medicineName)
}

// Log sink writing reminders to a logger
type Log struct {
	logger *zap.Logger
}

// NewLog sink
func NewLog(logger *zap.Logger) *Log {
	return &Log{logger: logging.OrNop(logger)}
}

// Notify logs the reminder message
func (l *Log) Notify(_ context.Context, dosage, medicineName string) error {
	l.logger.Info(Message(dosage, medicineName),
		zap.String("medicine", medicineName),
		zap.String("dosage", dosage))

	return nil
}

// Multi fans a notification out to every sink
type Multi []Sink

// Notify every sink, failures are joined and do not stop later sinks
func (m Multi) Notify(ctx context.Context, dosage, medicineName string) error {
	var errs []error
	for _, sink := range m {
		err := sink.Notify(ctx, dosage, medicineName)
		if err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
