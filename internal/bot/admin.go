package bot

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"crewdesk/internal/model"
)

func (b *Bot) sendReviewQueue(ctx context.Context, chatID int64, member *model.Member) error {
	tasks, err := b.svc.Tasks.ListAwaitingReview(ctx)
	if err != nil {
		return b.sendError(chatID, member, err)
	}
	if len(tasks) == 0 {
		return b.sendText(chatID, member, "🕵️ No proofs are waiting for review.")
	}

	now := b.svc.Clock()
	var builder strings.Builder
	builder.WriteString("🕵️ <b>Waiting for review</b>\n\n")
	var buttons [][]tgbotapi.InlineKeyboardButton
	for _, task := range tasks {
		code := b.codes.Encode(task.ID)
		builder.WriteString(formatReview(task, code, now))
		buttons = append(buttons, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ "+code, cbApprovePrefix+code),
			tgbotapi.NewInlineKeyboardButtonData("🚫 "+code, cbRejectPrefix+code),
		))
	}

	msg := tgbotapi.NewMessage(chatID, strings.TrimSpace(builder.String()))
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(buttons...)
	msg.ParseMode = tgbotapi.ModeHTML
	if _, err := b.api.Send(msg); err != nil {
		return err
	}

	for _, task := range tasks {
		photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileID(task.ProofImage))
		photo.Caption = fmt.Sprintf("%s · %s", b.codes.Encode(task.ID), normalizeTitle(task.Title))
		if _, err := b.api.Send(photo); err != nil {
			b.log.Warn("send proof photo", zap.Uint("task", task.ID), zap.Error(err))
		}
	}
	return nil
}

func (b *Bot) handleDecisionCommand(ctx context.Context, msg *tgbotapi.Message, member *model.Member, action confirmationAction) error {
	args := strings.TrimSpace(msg.CommandArguments())
	if args == "" {
		return b.sendText(msg.Chat.ID, member, "Add the task code, for example /approve <code>k3Jd9</code>.")
	}
	taskID, err := b.codes.Decode(args)
	if err != nil {
		return b.sendText(msg.Chat.ID, member, "I do not know that task code.")
	}
	return b.askDecisionConfirmation(ctx, msg.Chat.ID, msg.From.ID, member, taskID, action)
}

func (b *Bot) askDecisionConfirmation(ctx context.Context, chatID, userID int64, member *model.Member, taskID uint, action confirmationAction) error {
	task, err := b.svc.Tasks.GetTask(ctx, taskID)
	if err != nil {
		return b.sendError(chatID, member, err)
	}
	if task.ProofSubmittedAt == nil {
		return b.sendText(chatID, member, "That task has no proof yet.")
	}

	verb := "Approve"
	if action == actionReject {
		verb = "Reject"
	}
	text := fmt.Sprintf("%s the proof for «%s» (%s)?", verb, escape(normalizeTitle(task.Title)), b.codes.Encode(task.ID))
	b.setConfirmation(userID, confirmationRequest{taskID: task.ID, action: action})
	return b.sendWithReplyMarkup(chatID, text, confirmKeyboard())
}

func (b *Bot) handleConfirmationResponse(ctx context.Context, msg *tgbotapi.Message, member *model.Member, req confirmationRequest) error {
	text := strings.TrimSpace(msg.Text)
	switch {
	case isConfirmInput(text):
		b.clearConfirmation(msg.From.ID)
		return b.decide(ctx, msg.Chat.ID, member, req)
	case isCancelInput(text):
		b.clearConfirmation(msg.From.ID)
		return b.sendText(msg.Chat.ID, member, "↩️ Nothing changed.")
	default:
		return b.sendWithReplyMarkup(msg.Chat.ID, "Confirm or cancel the review decision.", confirmKeyboard())
	}
}

func (b *Bot) decide(ctx context.Context, chatID int64, member *model.Member, req confirmationRequest) error {
	if !member.IsAdmin() {
		return b.sendText(chatID, member, "⛔ Only admins can review proofs.")
	}
	code := b.codes.Encode(req.taskID)
	if req.action == actionReject {
		if _, err := b.svc.Rewards.Reject(ctx, req.taskID); err != nil {
			return b.sendError(chatID, member, err)
		}
		b.log.Info("proof rejected via bot", zap.Uint("task", req.taskID), zap.Uint("admin", member.ID))
		return b.sendText(chatID, member, fmt.Sprintf("🚫 Proof %s rejected.", code))
	}

	result, err := b.svc.Rewards.Approve(ctx, req.taskID)
	if err != nil {
		return b.sendError(chatID, member, err)
	}
	b.log.Info("proof approved via bot", zap.Uint("task", req.taskID), zap.Uint("admin", member.ID))
	if result.Reward == nil {
		return b.sendText(chatID, member, fmt.Sprintf("⌛ Proof %s accepted as late. No points granted.", code))
	}
	return b.sendText(chatID, member, fmt.Sprintf("✅ Proof %s approved: +%d points.", code, result.Reward.Amount))
}

func (b *Bot) handleGenerate(ctx context.Context, msg *tgbotapi.Message, member *model.Member) error {
	summary, err := b.svc.Engine.GenerateNow(ctx)
	if err != nil {
		return b.sendError(msg.Chat.ID, member, err)
	}
	text := fmt.Sprintf("⚙️ <b>Generation finished</b>\n"+
		"• schedules checked: %d\n"+
		"• due today: %d\n"+
		"• tasks created: %d\n"+
		"• already present: %d\n"+
		"• failed: %d",
		summary.Evaluated, summary.Due, summary.Created, summary.Duplicates, summary.Failed)
	return b.sendText(msg.Chat.ID, member, text)
}
