package notify

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"crewdesk/internal/model"
)

// ErrNoContact means the target member has no Telegram chat registered.
var ErrNoContact = errors.New("member has no telegram contact")

// Sender is the part of the Telegram API the notifier needs.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Roster resolves notification targets to members.
type Roster interface {
	FindByID(ctx context.Context, id uint) (*model.Member, error)
	ListActive(ctx context.Context) ([]model.Member, error)
}

// Telegram sends notifications as private chat messages.
type Telegram struct {
	sender Sender
	roster Roster
	log    *zap.Logger
}

func NewTelegram(sender Sender, roster Roster, log *zap.Logger) *Telegram {
	return &Telegram{sender: sender, roster: roster, log: log.Named("notify.telegram")}
}

func (t *Telegram) Notify(ctx context.Context, target, message string) error {
	if target == All {
		return t.broadcast(ctx, message)
	}

	id, err := strconv.ParseUint(target, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid notification target %q", target)
	}
	member, err := t.roster.FindByID(ctx, uint(id))
	if err != nil {
		return fmt.Errorf("find member %d: %w", id, err)
	}
	return t.send(member, message)
}

// broadcast fans out one message per member; a failed chat does not stop the rest.
func (t *Telegram) broadcast(ctx context.Context, message string) error {
	members, err := t.roster.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("list members: %w", err)
	}
	var errs []error
	for i := range members {
		if err := ctx.Err(); err != nil {
			return err
		}
		if members[i].TelegramID == nil {
			continue
		}
		if err := t.send(&members[i], message); err != nil {
			t.log.Warn("broadcast delivery failed", zap.Uint("member", members[i].ID), zap.Error(err))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (t *Telegram) send(member *model.Member, message string) error {
	if member.TelegramID == nil {
		return fmt.Errorf("member %d: %w", member.ID, ErrNoContact)
	}
	msg := tgbotapi.NewMessage(*member.TelegramID, message)
	msg.ParseMode = tgbotapi.ModeHTML
	if _, err := t.sender.Send(msg); err != nil {
		return fmt.Errorf("send to member %d: %w", member.ID, err)
	}
	return nil
}
