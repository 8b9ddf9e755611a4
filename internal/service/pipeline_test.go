package service

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"crewdesk/internal/model"
	"crewdesk/internal/notify"
)

type engineFixture struct {
	schedules *fakeSchedules
	tasks     *fakeTasks
	members   *fakeMembers
	notifier  *recordingNotifier
}

func (f engineFixture) engine(now string) *Engine {
	return NewEngine(f.schedules, f.tasks, f.members, f.notifier, fixedClock(at(now[:10], now[11:])), zap.NewNop())
}

func TestPipelineTuesdayVariation(t *testing.T) {
	ctx := context.Background()
	f := engineFixture{
		schedules: newFakeSchedules(model.ScheduledTask{
			Title:           "Daily check",
			Description:     "Default checklist",
			MemberID:        model.AllMembers,
			Recurrence:      model.RecurWeekdays,
			IsActive:        true,
			DailyVariations: model.Variations{2: {Title: "Tuesday Check"}},
		}),
		tasks:    newFakeTasks(),
		members:  roster(2),
		notifier: &recordingNotifier{},
	}

	report, err := f.engine("2026-10-20 00:05").RunPipeline(ctx)
	require.NoError(t, err)
	_, err = uuid.Parse(report.RunID)
	assert.NoError(t, err)
	assert.Equal(t, 2, report.Generation.Created)

	for _, task := range f.tasks.all() {
		assert.Equal(t, "Tuesday Check", task.Title)
		assert.Equal(t, "Default checklist", task.Description)
	}
	messages := f.notifier.to(notify.Member(1))
	require.Len(t, messages, 1)
	assert.True(t, strings.Contains(messages[0], "Tuesday Check"))
}

func TestPipelineSkipsAlreadyGenerated(t *testing.T) {
	ctx := context.Background()
	schedule := dailyAll()
	schedule.LastGenerated = "2026-10-19"
	f := engineFixture{
		schedules: newFakeSchedules(schedule),
		tasks:     newFakeTasks(),
		members:   roster(3),
		notifier:  &recordingNotifier{},
	}

	report, err := f.engine("2026-10-19 12:00").RunPipeline(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Generation.Evaluated)
	assert.Zero(t, report.Generation.Due)
	assert.Empty(t, f.tasks.all())
}

func TestPipelineIsIdempotentPerDay(t *testing.T) {
	ctx := context.Background()
	f := engineFixture{
		schedules: newFakeSchedules(dailyAll()),
		tasks:     newFakeTasks(),
		members:   roster(3),
		notifier:  &recordingNotifier{},
	}

	first, err := f.engine("2026-10-19 00:05").RunPipeline(ctx)
	require.NoError(t, err)
	before := f.tasks.all()

	second, err := f.engine("2026-10-19 13:00").RunPipeline(ctx)
	require.NoError(t, err)

	assert.Equal(t, 3, first.Generation.Created)
	assert.Zero(t, second.Generation.Created)
	assert.Equal(t, before, f.tasks.all())
	assert.NotEqual(t, first.RunID, second.RunID)
}

func TestPipelineExtendsThenEliminates(t *testing.T) {
	ctx := context.Background()
	extendable := overdue(2)
	exhausted := overdue(model.MaxExtensions)
	exhausted.DueDate = "2026-10-18"
	exhausted.EndTime = "18:00"
	f := engineFixture{
		schedules: newFakeSchedules(),
		tasks:     newFakeTasks(extendable, exhausted),
		members:   roster(1),
		notifier:  &recordingNotifier{},
	}

	report, err := f.engine("2026-10-19 00:05").RunPipeline(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Extension.Changed)
	assert.Equal(t, 1, report.Elimination.Changed)

	first := f.tasks.get(1)
	assert.Equal(t, model.Date("2026-10-19"), first.DueDate)
	assert.Equal(t, 3, first.ExtensionCount)
	assert.Equal(t, model.TaskPending, first.Status, "today's deadline has not passed yet")
	assert.Equal(t, model.TaskEliminated, f.tasks.get(2).Status)

	// The next day the freshly capped task is past its deadline.
	next, err := f.engine("2026-10-20 00:05").RunPipeline(ctx)
	require.NoError(t, err)
	assert.Zero(t, next.Extension.Changed)
	assert.Equal(t, 1, next.Elimination.Changed)
	assert.Equal(t, model.TaskEliminated, f.tasks.get(1).Status)
}

func TestPipelineGenerationFailureStillEliminates(t *testing.T) {
	ctx := context.Background()
	f := engineFixture{
		schedules: newFakeSchedules(dailyAll()),
		tasks:     newFakeTasks(overdue(model.MaxExtensions)),
		members:   roster(1),
		notifier:  &recordingNotifier{},
	}
	f.schedules.listErr = assert.AnError

	report, err := f.engine("2026-10-19 09:00").RunPipeline(ctx)
	require.NoError(t, err)
	assert.Zero(t, report.Generation.Created)
	assert.Equal(t, 1, report.Elimination.Changed)
}

func TestGenerateNowCounts(t *testing.T) {
	ctx := context.Background()
	single := dailyAll()
	single.MemberID = "2"
	f := engineFixture{
		schedules: newFakeSchedules(dailyAll(), single),
		tasks:     newFakeTasks(),
		members:   roster(3),
		notifier:  &recordingNotifier{},
	}
	f.tasks.failFor[3] = assert.AnError

	summary, err := f.engine("2026-10-19 08:00").GenerateNow(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Evaluated)
	assert.Equal(t, 2, summary.Due)
	assert.Equal(t, 2, summary.Claimed)
	assert.Equal(t, 3, summary.Created)
	assert.Equal(t, 1, summary.Failed)
	require.Len(t, summary.Schedules, 2)
	assert.False(t, summary.Schedules[0].Complete())
	assert.True(t, summary.Schedules[1].Complete())

	again, err := f.engine("2026-10-19 09:00").GenerateNow(ctx)
	require.NoError(t, err)
	assert.Zero(t, again.Due)
}

func TestManualExtendAndEliminate(t *testing.T) {
	ctx := context.Background()
	task := overdue(0)
	f := engineFixture{
		schedules: newFakeSchedules(),
		tasks:     newFakeTasks(task),
		members:   roster(1),
		notifier:  &recordingNotifier{},
	}
	engine := f.engine("2026-10-19 10:00")

	extended, err := engine.ExtendTask(ctx, 1, "2026-10-22")
	require.NoError(t, err)
	assert.Equal(t, model.Date("2026-10-22"), extended.DueDate)
	assert.Equal(t, 1, extended.ExtensionCount)

	extended, err = engine.ExtendTask(ctx, 1, "")
	require.NoError(t, err)
	assert.Equal(t, model.Date("2026-10-23"), extended.DueDate)
	extended, err = engine.ExtendTask(ctx, 1, "2026-10-01")
	require.NoError(t, err)
	assert.Equal(t, model.Date("2026-10-19"), extended.DueDate)
	assert.Equal(t, model.MaxExtensions, extended.ExtensionCount)

	_, err = engine.ExtendTask(ctx, 1, "")
	assert.ErrorIs(t, err, model.ErrExtensionLimit)
	_, err = engine.ExtendTask(ctx, 1, "tomorrow")
	assert.ErrorIs(t, err, ErrValidation)

	eliminated, err := engine.EliminateTask(ctx, 1, "")
	require.NoError(t, err)
	assert.Equal(t, model.TaskEliminated, eliminated.Status)
	assert.Contains(t, eliminated.Description, "[admin]")

	_, err = engine.EliminateTask(ctx, 1, "again")
	assert.ErrorIs(t, err, model.ErrInvalidTransition)

	_, err = engine.EliminateTask(ctx, 7, "")
	assert.ErrorIs(t, err, ErrNotFound)
}

// gatedTasks holds ListOpen until released, keeping a pipeline run in flight.
type gatedTasks struct {
	*fakeTasks
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (g *gatedTasks) ListOpen(ctx context.Context) ([]model.Task, error) {
	g.once.Do(func() { close(g.entered) })
	<-g.release
	return g.fakeTasks.ListOpen(ctx)
}

func TestManualActionsWaitForPipelineRun(t *testing.T) {
	ctx := context.Background()
	tasks := &gatedTasks{
		fakeTasks: newFakeTasks(overdue(0), overdue(0)),
		entered:   make(chan struct{}),
		release:   make(chan struct{}),
	}
	engine := NewEngine(newFakeSchedules(), tasks, roster(1), &recordingNotifier{}, fixedClock(at("2026-10-19", "10:00")), zap.NewNop())

	pipelineDone := make(chan error, 1)
	go func() {
		_, err := engine.RunPipeline(ctx)
		pipelineDone <- err
	}()
	<-tasks.entered

	extendDone := make(chan error, 1)
	eliminateDone := make(chan error, 1)
	go func() {
		_, err := engine.ExtendTask(ctx, 1, "2026-10-25")
		extendDone <- err
	}()
	go func() {
		_, err := engine.EliminateTask(ctx, 2, "")
		eliminateDone <- err
	}()

	select {
	case <-extendDone:
		t.Fatal("manual extension ran during a pipeline run")
	case <-eliminateDone:
		t.Fatal("manual elimination ran during a pipeline run")
	case <-time.After(50 * time.Millisecond):
	}

	close(tasks.release)
	require.NoError(t, <-pipelineDone)
	require.NoError(t, <-extendDone)
	require.NoError(t, <-eliminateDone)

	// The pipeline moved task 1 to today first; the manual extension then applied on top.
	extended := tasks.get(1)
	assert.Equal(t, model.Date("2026-10-25"), extended.DueDate)
	assert.Equal(t, 2, extended.ExtensionCount)
	assert.Equal(t, model.TaskEliminated, tasks.get(2).Status)
}
