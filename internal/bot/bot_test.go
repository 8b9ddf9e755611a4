package bot

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"crewdesk/internal/model"
	"crewdesk/internal/notify"
	"crewdesk/internal/repository"
	"crewdesk/internal/service"
)

type fakeAPI struct {
	mu   sync.Mutex
	sent []tgbotapi.Chattable
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, c)
	return tgbotapi.Message{}, nil
}

func (f *fakeAPI) Request(tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeAPI) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return make(chan tgbotapi.Update)
}

func (f *fakeAPI) StopReceivingUpdates() {}

// last returns the text of the most recent message sent to chatID.
func (f *fakeAPI) last(chatID int64) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.sent) - 1; i >= 0; i-- {
		if msg, ok := f.sent[i].(tgbotapi.MessageConfig); ok && msg.ChatID == chatID {
			return msg.Text
		}
	}
	return ""
}

type harness struct {
	api   *fakeAPI
	bot   *Bot
	svc   Services
	codes *Codec
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := repository.NewDB(fmt.Sprintf("file:bot_%s?mode=memory&cache=shared", name), nil)
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	log := zap.NewNop()
	clock := func() time.Time { return time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC) }
	members := repository.NewMemberRepository(db)
	schedules := repository.NewScheduleRepository(db)
	tasks := repository.NewTaskRepository(db)
	rewards := repository.NewRewardRepository(db)
	notifier := notify.NewLog(log)

	codes, err := NewCodec()
	require.NoError(t, err)
	svc := Services{
		Members:   service.NewMemberService(members, log),
		Tasks:     service.NewTaskService(tasks, rewards, members, clock, log),
		Rewards:   service.NewRewardService(tasks, rewards, members, notifier, clock, 10, log),
		Reminders: service.NewReminderService(tasks, rewards).WithTaskLabel(codes.Encode),
		Engine:    service.NewEngine(schedules, tasks, members, notifier, clock, log),
		Clock:     clock,
	}
	api := &fakeAPI{}
	return &harness{api: api, bot: New(api, svc, codes, log), svc: svc, codes: codes}
}

func command(userID int64, text string) tgbotapi.Update {
	cmd := strings.Fields(text)[0]
	msg := message(userID, text)
	msg.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(cmd)}}
	return tgbotapi.Update{Message: msg}
}

func message(userID int64, text string) *tgbotapi.Message {
	return &tgbotapi.Message{
		From: &tgbotapi.User{ID: userID, FirstName: fmt.Sprintf("user%d", userID)},
		Chat: &tgbotapi.Chat{ID: userID, Type: "private"},
		Text: text,
	}
}

func photo(userID int64, caption string) tgbotapi.Update {
	msg := message(userID, "")
	msg.Caption = caption
	msg.Photo = []tgbotapi.PhotoSize{{FileID: "thumb"}, {FileID: "full-size"}}
	return tgbotapi.Update{Message: msg}
}

func (h *harness) send(update tgbotapi.Update) {
	h.bot.handleUpdate(context.Background(), update)
}

func (h *harness) assignTask(t *testing.T, telegramID int64) *model.Task {
	t.Helper()
	ctx := context.Background()
	member, err := h.svc.Members.ByTelegram(ctx, telegramID)
	require.NoError(t, err)
	task, err := h.svc.Tasks.CreateTask(ctx, service.TaskInput{Title: "hang the banner", MemberID: member.ID})
	require.NoError(t, err)
	return task
}

const (
	adminChat  int64 = 1
	memberChat int64 = 2
)

func TestStartRegistersMember(t *testing.T) {
	h := newHarness(t)
	h.send(command(memberChat, "/start"))

	member, err := h.svc.Members.ByTelegram(context.Background(), memberChat)
	require.NoError(t, err)
	assert.Equal(t, model.RoleMember, member.Role)
	assert.Contains(t, h.api.last(memberChat), "/proof")
	assert.NotContains(t, h.api.last(memberChat), "/generate")
}

func TestProofApprovalFlow(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	_, err := h.svc.Members.EnsureAdmin(ctx, adminChat)
	require.NoError(t, err)
	h.send(command(memberChat, "/start"))
	task := h.assignTask(t, memberChat)
	code := h.codes.Encode(task.ID)

	h.send(command(memberChat, "/tasks"))
	assert.Contains(t, h.api.last(memberChat), code)

	h.send(command(memberChat, "/proof "+code))
	assert.Contains(t, h.api.last(memberChat), "Send a photo")

	h.send(photo(memberChat, ""))
	assert.Contains(t, h.api.last(memberChat), "received")
	stored, err := h.svc.Tasks.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TaskCompleted, stored.Status)
	assert.Equal(t, "full-size", stored.ProofImage)

	h.send(command(adminChat, "/review"))
	assert.Contains(t, h.api.last(adminChat), code)

	h.send(command(adminChat, "/approve "+code))
	assert.Contains(t, h.api.last(adminChat), "Approve the proof")
	h.send(tgbotapi.Update{Message: message(adminChat, btnConfirm)})
	assert.Contains(t, h.api.last(adminChat), "+10 points")

	h.send(command(memberChat, "/points"))
	assert.Contains(t, h.api.last(memberChat), "<b>10</b> points")
}

func TestProofByCaption(t *testing.T) {
	h := newHarness(t)
	h.send(command(memberChat, "/start"))
	task := h.assignTask(t, memberChat)

	h.send(photo(memberChat, "done "+h.codes.Encode(task.ID)))
	stored, err := h.svc.Tasks.GetTask(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TaskCompleted, stored.Status)
}

func TestProofForSomeoneElsesTask(t *testing.T) {
	h := newHarness(t)
	h.send(command(memberChat, "/start"))
	h.send(command(3, "/start"))
	task := h.assignTask(t, memberChat)

	h.send(command(3, "/proof "+h.codes.Encode(task.ID)))
	assert.Contains(t, h.api.last(3), "someone else")

	h.send(photo(3, h.codes.Encode(task.ID)))
	assert.Contains(t, h.api.last(3), "someone else")
	stored, err := h.svc.Tasks.GetTask(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TaskPending, stored.Status)
}

func TestAdminCommandsRequireRole(t *testing.T) {
	h := newHarness(t)
	h.send(command(memberChat, "/generate"))
	assert.Contains(t, h.api.last(memberChat), "admins only")
	h.send(command(memberChat, "/approve 1"))
	assert.Contains(t, h.api.last(memberChat), "admins only")
}

func TestGenerateCommand(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	_, err := h.svc.Members.EnsureAdmin(ctx, adminChat)
	require.NoError(t, err)

	h.send(command(adminChat, "/generate"))
	assert.Contains(t, h.api.last(adminChat), "Generation finished")
}

func TestSendDailyReports(t *testing.T) {
	h := newHarness(t)
	h.send(command(memberChat, "/start"))
	h.assignTask(t, memberChat)

	require.NoError(t, h.bot.SendDailyReports(context.Background()))
	report := h.api.last(memberChat)
	assert.Contains(t, report, "Daily report")
	assert.Contains(t, report, "hang the banner")
}

func TestCancelClearsProofWait(t *testing.T) {
	h := newHarness(t)
	h.send(command(memberChat, "/start"))
	task := h.assignTask(t, memberChat)

	h.send(command(memberChat, "/proof "+h.codes.Encode(task.ID)))
	h.send(tgbotapi.Update{Message: message(memberChat, btnCancelDialog)})
	assert.Nil(t, h.bot.getConversation(memberChat))

	h.send(photo(memberChat, ""))
	assert.Contains(t, h.api.last(memberChat), "Which task")
}
