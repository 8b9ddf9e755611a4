// Package notify delivers best-effort out-of-band messages to team members.
package notify

import (
	"context"
	"strconv"

	"go.uber.org/zap"

	"crewdesk/internal/model"
)

// All addresses every member with a registered contact.
const All = model.AllMembers

// Notifier delivers a message to a member id or to All. Callers treat it as
// fire-and-forget: an error is logged, never acted upon.
type Notifier interface {
	Notify(ctx context.Context, target, message string) error
}

// Member formats a member id as a notification target.
func Member(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

// Log writes notifications to the logger. It is used when no Telegram token is configured.
type Log struct {
	log *zap.Logger
}

func NewLog(log *zap.Logger) *Log {
	return &Log{log: log.Named("notify")}
}

func (l *Log) Notify(_ context.Context, target, message string) error {
	l.log.Info("notification", zap.String("target", target), zap.String("message", message))
	return nil
}

// Multi sends through every notifier and reports the first failure.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, target, message string) error {
	var first error
	for _, n := range m {
		if err := n.Notify(ctx, target, message); err != nil && first == nil {
			first = err
		}
	}
	return first
}
