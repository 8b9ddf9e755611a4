package bot

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"crewdesk/internal/model"
	"crewdesk/internal/service"
)

// API is the part of the Telegram client the bot uses. *tgbotapi.BotAPI implements it.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Services bundles what the bot drives.
type Services struct {
	Members   *service.MemberService
	Tasks     *service.TaskService
	Rewards   *service.RewardService
	Reminders *service.ReminderService
	Engine    *service.Engine
	Clock     service.Clock
}

const (
	cbProofPrefix   = "proof:"
	cbApprovePrefix = "approve:"
	cbRejectPrefix  = "reject:"
)

type conversationStage int

const (
	stageNone conversationStage = iota
	stageProof
)

type conversationState struct {
	stage  conversationStage
	taskID uint
}

type confirmationAction int

const (
	actionApprove confirmationAction = iota
	actionReject
)

type confirmationRequest struct {
	taskID uint
	action confirmationAction
}

// Bot aggregates Telegram API with services.
type Bot struct {
	api           API
	svc           Services
	codes         *Codec
	log           *zap.Logger
	conversations map[int64]*conversationState
	confirmations map[int64]confirmationRequest
	mu            sync.Mutex
}

func New(api API, svc Services, codes *Codec, log *zap.Logger) *Bot {
	return &Bot{
		api:           api,
		svc:           svc,
		codes:         codes,
		log:           log.Named("bot"),
		conversations: make(map[int64]*conversationState),
		confirmations: make(map[int64]confirmationRequest),
	}
}

// Start begins polling updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := b.api.GetUpdatesChan(updateConfig)

	b.log.Info("start polling updates")

	go func() {
		<-ctx.Done()
		b.api.StopReceivingUpdates()
	}()

	for update := range updates {
		b.handleUpdate(ctx, update)
	}
	return nil
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		if err := b.handleCallback(ctx, update.CallbackQuery); err != nil {
			b.log.Error("handle callback", zap.Error(err))
		}
	case update.Message != nil:
		if update.Message.Chat == nil || !update.Message.Chat.IsPrivate() {
			return
		}
		if err := b.handleMessage(ctx, update.Message); err != nil {
			b.log.Error("handle message", zap.Int64("from", update.Message.Chat.ID), zap.Error(err))
		}
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	if msg.From == nil {
		return nil
	}

	member, err := b.ensureMember(ctx, msg.From)
	if err != nil {
		return err
	}
	if !member.Active {
		return b.sendPlain(msg.Chat.ID, "Your account is disabled. Ask an admin to re-activate it.")
	}

	if !msg.IsCommand() && isCancelDialogInput(msg.Text) {
		b.clearConversation(msg.From.ID)
		b.clearConfirmation(msg.From.ID)
		return b.sendText(msg.Chat.ID, member, "⏪ Cancelled.")
	}

	if proofFileID(msg) != "" {
		return b.handleProofUpload(ctx, msg, member)
	}

	if !msg.IsCommand() {
		if handled, err := b.handleMenuAlias(ctx, msg, member); handled {
			return err
		}
	}

	if msg.IsCommand() {
		b.log.Info("command", zap.Int64("from", msg.From.ID), zap.String("command", msg.Command()), zap.String("args", msg.CommandArguments()))
		return b.handleCommand(ctx, msg, member)
	}

	if pending, ok := b.getConfirmation(msg.From.ID); ok {
		return b.handleConfirmationResponse(ctx, msg, member, pending)
	}

	if state := b.getConversation(msg.From.ID); state != nil && state.stage == stageProof {
		return b.sendWithReplyMarkup(msg.Chat.ID, "📷 I am waiting for a photo of the finished task.", cancelKeyboard())
	}

	return b.sendText(msg.Chat.ID, member, "I did not get that. Try /tasks or /help.")
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message, member *model.Member) error {
	switch msg.Command() {
	case "start":
		return b.handleStart(msg, member)
	case "help":
		return b.handleHelp(msg, member)
	case "tasks":
		return b.sendTaskList(ctx, msg.Chat.ID, member)
	case "proof":
		return b.handleProofCommand(ctx, msg, member)
	case "points":
		return b.handlePoints(ctx, msg, member)
	case "report":
		return b.handleReport(ctx, msg, member)
	case "review":
		return b.adminOnly(msg, member, func() error { return b.sendReviewQueue(ctx, msg.Chat.ID, member) })
	case "approve":
		return b.adminOnly(msg, member, func() error { return b.handleDecisionCommand(ctx, msg, member, actionApprove) })
	case "reject":
		return b.adminOnly(msg, member, func() error { return b.handleDecisionCommand(ctx, msg, member, actionReject) })
	case "generate":
		return b.adminOnly(msg, member, func() error { return b.handleGenerate(ctx, msg, member) })
	case "cancel":
		b.clearConversation(msg.From.ID)
		b.clearConfirmation(msg.From.ID)
		return b.sendText(msg.Chat.ID, member, "⏪ Cancelled.")
	default:
		return b.sendText(msg.Chat.ID, member, "Unknown command. See /help.")
	}
}

func (b *Bot) handleMenuAlias(ctx context.Context, msg *tgbotapi.Message, member *model.Member) (bool, error) {
	text := strings.TrimSpace(strings.ToLower(msg.Text))
	switch text {
	case strings.ToLower(menuLabelTasks):
		return true, b.sendTaskList(ctx, msg.Chat.ID, member)
	case strings.ToLower(menuLabelPoints):
		return true, b.handlePoints(ctx, msg, member)
	case strings.ToLower(menuLabelReport):
		return true, b.handleReport(ctx, msg, member)
	case strings.ToLower(menuLabelHelp):
		return true, b.handleHelp(msg, member)
	case strings.ToLower(menuLabelReview):
		return true, b.adminOnly(msg, member, func() error { return b.sendReviewQueue(ctx, msg.Chat.ID, member) })
	case strings.ToLower(menuLabelGenerate):
		return true, b.adminOnly(msg, member, func() error { return b.handleGenerate(ctx, msg, member) })
	default:
		return false, nil
	}
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
	if cb == nil || cb.From == nil || cb.Message == nil {
		return nil
	}
	if _, err := b.api.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		b.log.Warn("callback ack", zap.Error(err))
	}

	member, err := b.ensureMember(ctx, cb.From)
	if err != nil {
		return err
	}
	chatID := cb.Message.Chat.ID
	data := cb.Data
	b.log.Info("callback", zap.Int64("from", cb.From.ID), zap.String("data", data))

	switch {
	case strings.HasPrefix(data, cbProofPrefix):
		taskID, err := b.codes.Decode(strings.TrimPrefix(data, cbProofPrefix))
		if err != nil {
			return nil
		}
		return b.askForProof(ctx, chatID, cb.From.ID, member, taskID)
	case strings.HasPrefix(data, cbApprovePrefix), strings.HasPrefix(data, cbRejectPrefix):
		if !member.IsAdmin() {
			return b.sendText(chatID, member, "⛔ Only admins can review proofs.")
		}
		action, prefix := actionApprove, cbApprovePrefix
		if strings.HasPrefix(data, cbRejectPrefix) {
			action, prefix = actionReject, cbRejectPrefix
		}
		taskID, err := b.codes.Decode(strings.TrimPrefix(data, prefix))
		if err != nil {
			return nil
		}
		return b.askDecisionConfirmation(ctx, chatID, cb.From.ID, member, taskID, action)
	default:
		return nil
	}
}

func (b *Bot) adminOnly(msg *tgbotapi.Message, member *model.Member, fn func() error) error {
	if !member.IsAdmin() {
		return b.sendText(msg.Chat.ID, member, "⛔ This command is for admins only.")
	}
	return fn()
}

func (b *Bot) ensureMember(ctx context.Context, from *tgbotapi.User) (*model.Member, error) {
	name := strings.TrimSpace(strings.TrimSpace(from.FirstName) + " " + strings.TrimSpace(from.LastName))
	return b.svc.Members.Register(ctx, from.ID, name, from.UserName)
}

// SendDailyReports sends a summary to every active member with a Telegram chat.
func (b *Bot) SendDailyReports(ctx context.Context) error {
	members, err := b.svc.Members.ListActive(ctx)
	if err != nil {
		return err
	}
	now := b.svc.Clock()
	var errs []error
	for i := range members {
		member := &members[i]
		if err := ctx.Err(); err != nil {
			return err
		}
		if member.TelegramID == nil {
			continue
		}
		text, err := b.svc.Reminders.DailySummary(ctx, *member, now)
		if err != nil {
			b.log.Error("build summary", zap.Uint("member", member.ID), zap.Error(err))
			errs = append(errs, err)
			continue
		}
		if err := b.sendText(*member.TelegramID, member, text); err != nil {
			b.log.Warn("send summary", zap.Uint("member", member.ID), zap.Error(err))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (b *Bot) sendText(chatID int64, member *model.Member, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = mainMenuKeyboard(member != nil && member.IsAdmin())
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) sendPlain(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) sendWithReplyMarkup(chatID int64, text string, markup interface{}) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = markup
	_, err := b.api.Send(msg)
	return err
}

// sendError renders a service error for a chat user.
func (b *Bot) sendError(chatID int64, member *model.Member, err error) error {
	var text string
	switch {
	case errors.Is(err, service.ErrNotFound):
		text = "Task not found."
	case errors.Is(err, service.ErrForbidden):
		text = "⛔ That task belongs to someone else."
	case errors.Is(err, model.ErrProofRequired):
		text = "A photo is required as proof."
	case errors.Is(err, model.ErrInvalidTransition):
		text = "That task can no longer be changed this way."
	case errors.Is(err, model.ErrExtensionLimit):
		text = "That task has used all its extensions."
	default:
		b.log.Error("request failed", zap.Int64("chat", chatID), zap.Error(err))
		text = fmt.Sprintf("Something went wrong: %s", escape(err.Error()))
	}
	return b.sendText(chatID, member, text)
}

func (b *Bot) getConfirmation(userID int64) (confirmationRequest, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	req, ok := b.confirmations[userID]
	return req, ok
}

func (b *Bot) setConfirmation(userID int64, req confirmationRequest) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.confirmations[userID] = req
}

func (b *Bot) clearConfirmation(userID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.confirmations, userID)
}

func (b *Bot) setConversation(userID int64, state *conversationState) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.conversations[userID] = state
}

func (b *Bot) getConversation(userID int64) *conversationState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.conversations[userID]
}

func (b *Bot) clearConversation(userID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.conversations, userID)
}

func escape(s string) string {
	return html.EscapeString(s)
}
