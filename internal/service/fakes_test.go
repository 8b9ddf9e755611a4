package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"gorm.io/gorm"

	"crewdesk/internal/model"
	"crewdesk/internal/repository"
)

var utc = time.UTC

func at(day string, clock string) time.Time {
	t, err := time.ParseInLocation("2006-01-02 15:04", day+" "+clock, utc)
	if err != nil {
		panic(err)
	}
	return t
}

func fixedClock(t time.Time) Clock {
	return func() time.Time { return t }
}

type fakeSchedules struct {
	mu       sync.Mutex
	items    map[uint]*model.ScheduledTask
	nextID   uint
	claimErr error
	claims   int
	releases int
	listErr  error
}

func newFakeSchedules(schedules ...model.ScheduledTask) *fakeSchedules {
	f := &fakeSchedules{items: map[uint]*model.ScheduledTask{}}
	for _, s := range schedules {
		s := s
		_ = f.Create(context.Background(), &s)
	}
	return f
}

func (f *fakeSchedules) Create(_ context.Context, s *model.ScheduledTask) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s.Normalize()
	if s.ID == 0 {
		f.nextID++
		s.ID = f.nextID
	} else if s.ID > f.nextID {
		f.nextID = s.ID
	}
	copied := *s
	f.items[s.ID] = &copied
	return nil
}

func (f *fakeSchedules) Save(_ context.Context, s *model.ScheduledTask) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.items[s.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	s.Normalize()
	copied := *s
	f.items[s.ID] = &copied
	return nil
}

func (f *fakeSchedules) FindByID(_ context.Context, id uint) (*model.ScheduledTask, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.items[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *s
	return &copied, nil
}

func (f *fakeSchedules) list(active bool) ([]model.ScheduledTask, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []model.ScheduledTask
	for _, s := range f.items {
		if active && !s.IsActive {
			continue
		}
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeSchedules) ListActive(context.Context) ([]model.ScheduledTask, error) {
	return f.list(true)
}

func (f *fakeSchedules) ListAll(context.Context) ([]model.ScheduledTask, error) {
	return f.list(false)
}

func (f *fakeSchedules) Delete(_ context.Context, id uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.items[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(f.items, id)
	return nil
}

func (f *fakeSchedules) ClaimGeneration(_ context.Context, id uint, day model.Date, oneTime bool) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.claimErr != nil {
		return false, f.claimErr
	}
	s, ok := f.items[id]
	if !ok || !s.IsActive || s.LastGenerated == day {
		return false, nil
	}
	if oneTime {
		if s.Status != model.SchedulePending {
			return false, nil
		}
		s.Status = model.ScheduleCompleted
	}
	s.LastGenerated = day
	f.claims++
	return true, nil
}

func (f *fakeSchedules) ReleaseGeneration(_ context.Context, id uint, day, previous model.Date, previousStatus model.ScheduleStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.items[id]
	if !ok || s.LastGenerated != day {
		return nil
	}
	s.LastGenerated = previous
	s.Status = previousStatus
	f.releases++
	return nil
}

type fakeTasks struct {
	mu      sync.Mutex
	items   map[uint]*model.Task
	nextID  uint
	failFor map[uint]error
	saveErr error
	listErr error
	creates int
}

func newFakeTasks(tasks ...model.Task) *fakeTasks {
	f := &fakeTasks{items: map[uint]*model.Task{}, failFor: map[uint]error{}}
	for _, t := range tasks {
		t := t
		f.put(&t)
	}
	return f
}

func (f *fakeTasks) put(t *model.Task) {
	if t.ID == 0 {
		f.nextID++
		t.ID = f.nextID
	} else if t.ID > f.nextID {
		f.nextID = t.ID
	}
	copied := *t
	f.items[t.ID] = &copied
}

func (f *fakeTasks) Create(_ context.Context, t *model.Task) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failFor[t.MemberID]; err != nil {
		return err
	}
	if t.OriginScheduleID != nil {
		for _, existing := range f.items {
			if existing.OriginScheduleID != nil && *existing.OriginScheduleID == *t.OriginScheduleID &&
				existing.MemberID == t.MemberID && existing.GenerationDay == t.GenerationDay {
				return fmt.Errorf("create task: %w", repository.ErrDuplicate)
			}
		}
	}
	t.Normalize()
	f.creates++
	f.put(t)
	return nil
}

func (f *fakeTasks) Save(_ context.Context, t *model.Task) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	if _, ok := f.items[t.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	copied := *t
	f.items[t.ID] = &copied
	return nil
}

func (f *fakeTasks) FindByID(_ context.Context, id uint) (*model.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.items[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *t
	return &copied, nil
}

func (f *fakeTasks) List(_ context.Context, filter repository.TaskFilter) ([]model.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []model.Task
	for _, t := range f.items {
		if filter.MemberID != 0 && t.MemberID != filter.MemberID {
			continue
		}
		if filter.Status != "" && t.Status != filter.Status {
			continue
		}
		if filter.RewardStatus != "" && t.RewardStatus != filter.RewardStatus {
			continue
		}
		if filter.DueDate != "" && t.DueDate != filter.DueDate {
			continue
		}
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeTasks) ListOpen(ctx context.Context) ([]model.Task, error) {
	return f.List(ctx, repository.TaskFilter{Status: model.TaskPending})
}

func (f *fakeTasks) ListGenerated(_ context.Context, scheduleID uint, day model.Date) ([]model.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Task
	for _, t := range f.items {
		if t.OriginScheduleID != nil && *t.OriginScheduleID == scheduleID && t.GenerationDay == day {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (f *fakeTasks) Delete(_ context.Context, id uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.items[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(f.items, id)
	return nil
}

func (f *fakeTasks) get(id uint) model.Task {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.items[id]
}

func (f *fakeTasks) all() []model.Task {
	out, _ := f.List(context.Background(), repository.TaskFilter{})
	return out
}

type fakeRewards struct {
	mu     sync.Mutex
	items  map[uint]*model.Reward
	nextID uint
}

func newFakeRewards() *fakeRewards {
	return &fakeRewards{items: map[uint]*model.Reward{}}
}

func (f *fakeRewards) FindByTask(_ context.Context, taskID uint) (*model.Reward, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.items {
		if r.TaskID != nil && *r.TaskID == taskID {
			copied := *r
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRewards) UpsertForTask(_ context.Context, reward *model.Reward) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.items {
		if r.TaskID != nil && reward.TaskID != nil && *r.TaskID == *reward.TaskID {
			reward.ID = r.ID
			copied := *reward
			f.items[r.ID] = &copied
			return nil
		}
	}
	f.nextID++
	reward.ID = f.nextID
	copied := *reward
	f.items[reward.ID] = &copied
	return nil
}

func (f *fakeRewards) DeleteByTask(_ context.Context, taskID uint) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for id, r := range f.items {
		if r.TaskID != nil && *r.TaskID == taskID {
			delete(f.items, id)
			n++
		}
	}
	return n, nil
}

func (f *fakeRewards) ListByMember(_ context.Context, memberID uint) ([]model.Reward, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Reward
	for _, r := range f.items {
		if r.MemberID == memberID {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeRewards) TotalPoints(_ context.Context, memberID uint) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, r := range f.items {
		if r.MemberID == memberID {
			total += r.Amount
		}
	}
	return total, nil
}

func (f *fakeRewards) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.items)
}

type fakeMembers struct {
	mu     sync.Mutex
	items  map[uint]*model.Member
	nextID uint
}

func newFakeMembers(members ...model.Member) *fakeMembers {
	f := &fakeMembers{items: map[uint]*model.Member{}}
	for _, m := range members {
		m := m
		_ = f.Create(context.Background(), &m)
	}
	return f
}

func (f *fakeMembers) Create(_ context.Context, m *model.Member) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m.Normalize()
	if m.ID == 0 {
		f.nextID++
		m.ID = f.nextID
	} else if m.ID > f.nextID {
		f.nextID = m.ID
	}
	copied := *m
	f.items[m.ID] = &copied
	return nil
}

func (f *fakeMembers) Save(_ context.Context, m *model.Member) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.items[m.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	m.Normalize()
	copied := *m
	f.items[m.ID] = &copied
	return nil
}

func (f *fakeMembers) UpsertFromTelegram(ctx context.Context, telegramID int64, name, username string) (*model.Member, error) {
	if m, err := f.FindByTelegramID(ctx, telegramID); err == nil {
		return m, nil
	}
	id := telegramID
	m := &model.Member{Name: name, Username: username, TelegramID: &id, Role: model.RoleMember, Active: true}
	if err := f.Create(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

func (f *fakeMembers) FindByID(_ context.Context, id uint) (*model.Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.items[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *m
	return &copied, nil
}

func (f *fakeMembers) FindByTelegramID(_ context.Context, telegramID int64) (*model.Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.items {
		if m.TelegramID != nil && *m.TelegramID == telegramID {
			copied := *m
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeMembers) list(active bool) []model.Member {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Member
	for _, m := range f.items {
		if active && !m.Active {
			continue
		}
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (f *fakeMembers) ListActive(context.Context) ([]model.Member, error) {
	return f.list(true), nil
}

func (f *fakeMembers) ListAll(context.Context) ([]model.Member, error) {
	return f.list(false), nil
}

type sentMessage struct {
	Target  string
	Message string
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentMessage
	err  error
}

func (n *recordingNotifier) Notify(_ context.Context, target, message string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentMessage{Target: target, Message: message})
	return n.err
}

func (n *recordingNotifier) to(target string) []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []string
	for _, m := range n.sent {
		if m.Target == target {
			out = append(out, m.Message)
		}
	}
	return out
}

func roster(n int) *fakeMembers {
	var members []model.Member
	for i := 1; i <= n; i++ {
		members = append(members, model.Member{Name: fmt.Sprintf("member-%d", i), Role: model.RoleMember, Active: true})
	}
	return newFakeMembers(members...)
}
