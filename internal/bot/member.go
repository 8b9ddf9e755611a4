package bot

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"crewdesk/internal/model"
)

func (b *Bot) handleStart(msg *tgbotapi.Message, member *model.Member) error {
	name := strings.TrimSpace(msg.From.FirstName)
	if name == "" {
		name = "there"
	}
	text := fmt.Sprintf(
		"👋 Hi, %s!\n<b>I keep track of your event tasks and points.</b>\n\n", escape(name)) + helpText(member)
	return b.sendText(msg.Chat.ID, member, text)
}

func (b *Bot) handleHelp(msg *tgbotapi.Message, member *model.Member) error {
	return b.sendText(msg.Chat.ID, member, "ℹ️ <b>Commands</b>\n"+helpText(member))
}

func helpText(member *model.Member) string {
	text := "• /tasks — your open tasks\n" +
		"• /proof &lt;code&gt; — then send a photo to finish a task\n" +
		"• /points — your points balance\n" +
		"• /report — your daily report\n" +
		"• /cancel — stop the current step"
	if member != nil && member.IsAdmin() {
		text += "\n\n<b>Admin</b>\n" +
			"• /review — proofs waiting for a decision\n" +
			"• /approve &lt;code&gt; — approve a proof\n" +
			"• /reject &lt;code&gt; — reject a proof\n" +
			"• /generate — create today's scheduled tasks now"
	}
	return text
}

func (b *Bot) sendTaskList(ctx context.Context, chatID int64, member *model.Member) error {
	tasks, err := b.svc.Tasks.ListForMember(ctx, member.ID)
	if err != nil {
		return b.sendError(chatID, member, err)
	}
	if len(tasks) == 0 {
		return b.sendText(chatID, member, "🎉 You have no open tasks.")
	}

	now := b.svc.Clock()
	var builder strings.Builder
	builder.WriteString("📋 <b>Your tasks</b>\n")
	builder.WriteString("Tap a task to send its proof photo.\n\n")

	var buttons [][]tgbotapi.InlineKeyboardButton
	for _, task := range tasks {
		code := b.codes.Encode(task.ID)
		builder.WriteString(formatTask(task, code, now))
		buttons = append(buttons, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("📷 %s · %s", code, shortTitle(task.Title, 24)), cbProofPrefix+code),
		))
	}

	msg := tgbotapi.NewMessage(chatID, strings.TrimSpace(builder.String()))
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(buttons...)
	msg.ParseMode = tgbotapi.ModeHTML
	_, err = b.api.Send(msg)
	return err
}

func (b *Bot) handleProofCommand(ctx context.Context, msg *tgbotapi.Message, member *model.Member) error {
	args := strings.TrimSpace(msg.CommandArguments())
	if args == "" {
		return b.sendText(msg.Chat.ID, member, "Tell me which task: /proof <code>code</code>. Codes are listed in /tasks.")
	}
	taskID, err := b.codes.Decode(args)
	if err != nil {
		return b.sendText(msg.Chat.ID, member, "I do not know that task code.")
	}
	return b.askForProof(ctx, msg.Chat.ID, msg.From.ID, member, taskID)
}

// askForProof checks the task can take a proof and waits for the photo.
func (b *Bot) askForProof(ctx context.Context, chatID, userID int64, member *model.Member, taskID uint) error {
	task, err := b.svc.Tasks.GetTask(ctx, taskID)
	if err != nil {
		return b.sendError(chatID, member, err)
	}
	if task.MemberID != member.ID {
		return b.sendText(chatID, member, "⛔ That task belongs to someone else.")
	}
	if task.Status != model.TaskPending {
		return b.sendText(chatID, member, "That task is already closed.")
	}
	b.setConversation(userID, &conversationState{stage: stageProof, taskID: task.ID})
	text := fmt.Sprintf("📷 Send a photo proving «%s» is done.", escape(normalizeTitle(task.Title)))
	return b.sendWithReplyMarkup(chatID, text, cancelKeyboard())
}

// handleProofUpload takes a photo either after /proof or with the task code as caption.
func (b *Bot) handleProofUpload(ctx context.Context, msg *tgbotapi.Message, member *model.Member) error {
	var taskID uint
	if state := b.getConversation(msg.From.ID); state != nil && state.stage == stageProof {
		taskID = state.taskID
	} else if caption := strings.Fields(msg.Caption); len(caption) > 0 {
		code := caption[len(caption)-1]
		id, err := b.codes.Decode(code)
		if err != nil {
			return b.sendText(msg.Chat.ID, member, "I do not know that task code.")
		}
		taskID = id
	}
	if taskID == 0 {
		return b.sendText(msg.Chat.ID, member, "Which task is this for? Use /proof <code>code</code> first, or put the code in the caption.")
	}

	task, err := b.svc.Rewards.SubmitProof(ctx, taskID, member.ID, proofFileID(msg))
	b.clearConversation(msg.From.ID)
	if err != nil {
		return b.sendError(msg.Chat.ID, member, err)
	}

	b.log.Info("proof received", zap.Uint("task", task.ID), zap.Uint("member", member.ID))
	text := fmt.Sprintf("✅ Proof for «%s» received. An admin will review it.", escape(normalizeTitle(task.Title)))
	if task.CompletedOnTime != nil && !*task.CompletedOnTime {
		text += "\n⌛ It arrived after the deadline, so it will not earn points."
	}
	return b.sendText(msg.Chat.ID, member, text)
}

// proofFileID returns the Telegram file id of the largest attached image.
func proofFileID(msg *tgbotapi.Message) string {
	if len(msg.Photo) > 0 {
		return msg.Photo[len(msg.Photo)-1].FileID
	}
	if msg.Document != nil && strings.HasPrefix(msg.Document.MimeType, "image/") {
		return msg.Document.FileID
	}
	return ""
}

func (b *Bot) handlePoints(ctx context.Context, msg *tgbotapi.Message, member *model.Member) error {
	balance, err := b.svc.Rewards.Balance(ctx, member.ID)
	if err != nil {
		return b.sendError(msg.Chat.ID, member, err)
	}
	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("🏆 You have <b>%d</b> points.\n", balance.Points))
	for _, reward := range latestRewards(balance.Rewards, recentRewards) {
		builder.WriteString(fmt.Sprintf("• +%d %s <i>(%s)</i>\n", reward.Amount, escape(reward.Reason), reward.Date))
	}
	return b.sendText(msg.Chat.ID, member, strings.TrimSpace(builder.String()))
}

const recentRewards = 5

// latestRewards keeps the first n entries of a newest-first listing.
func latestRewards(rewards []model.Reward, n int) []model.Reward {
	if len(rewards) > n {
		return rewards[:n]
	}
	return rewards
}

func (b *Bot) handleReport(ctx context.Context, msg *tgbotapi.Message, member *model.Member) error {
	text, err := b.svc.Reminders.DailySummary(ctx, *member, b.svc.Clock())
	if err != nil {
		return b.sendText(msg.Chat.ID, member, fmt.Sprintf("Could not build the report: %s", escape(err.Error())))
	}
	return b.sendText(msg.Chat.ID, member, text)
}
