package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"crewdesk/internal/model"
)

// ScheduleService manages recurrence templates.
type ScheduleService struct {
	schedules ScheduleStore
	members   MemberStore
	clock     Clock
	log       *zap.Logger
}

func NewScheduleService(schedules ScheduleStore, members MemberStore, clock Clock, log *zap.Logger) *ScheduleService {
	return &ScheduleService{schedules: schedules, members: members, clock: clock, log: log.Named("schedules")}
}

func (s *ScheduleService) Create(ctx context.Context, schedule model.ScheduledTask) (*model.ScheduledTask, error) {
	if err := s.checkAssignee(ctx, schedule); err != nil {
		return nil, err
	}
	schedule.ID = 0
	schedule.LastGenerated = ""
	if schedule.Recurrence == model.RecurOneTime {
		schedule.Status = model.SchedulePending
	}
	now := s.clock()
	schedule.CreatedAt = now
	schedule.UpdatedAt = now
	if err := s.schedules.Create(ctx, &schedule); err != nil {
		return nil, translate(err, "create schedule")
	}
	s.log.Info("schedule created",
		zap.Uint("schedule", schedule.ID),
		zap.String("recurrence", string(schedule.Recurrence)),
		zap.String("assignee", schedule.MemberID))
	return &schedule, nil
}

// Update replaces the editable fields of a schedule. The generation marker is
// kept; moving a one-time schedule to a new start re-arms it.
func (s *ScheduleService) Update(ctx context.Context, id uint, input model.ScheduledTask) (*model.ScheduledTask, error) {
	current, err := s.schedules.FindByID(ctx, id)
	if err != nil {
		return nil, translate(err, fmt.Sprintf("schedule %d", id))
	}
	if err := s.checkAssignee(ctx, input); err != nil {
		return nil, err
	}

	rearm := input.Recurrence == model.RecurOneTime &&
		(current.Recurrence != model.RecurOneTime || !sameInstant(current.ScheduledAt, input.ScheduledAt))

	input.ID = current.ID
	input.LastGenerated = current.LastGenerated
	input.Status = current.Status
	input.CreatedAt = current.CreatedAt
	input.UpdatedAt = s.clock()
	if rearm {
		input.Status = model.SchedulePending
	}
	if err := s.schedules.Save(ctx, &input); err != nil {
		return nil, translate(err, "save schedule")
	}
	s.log.Info("schedule updated", zap.Uint("schedule", input.ID), zap.Bool("rearmed", rearm))
	return &input, nil
}

func (s *ScheduleService) Get(ctx context.Context, id uint) (*model.ScheduledTask, error) {
	schedule, err := s.schedules.FindByID(ctx, id)
	if err != nil {
		return nil, translate(err, fmt.Sprintf("schedule %d", id))
	}
	return schedule, nil
}

func (s *ScheduleService) List(ctx context.Context) ([]model.ScheduledTask, error) {
	schedules, err := s.schedules.ListAll(ctx)
	if err != nil {
		return nil, translate(err, "list schedules")
	}
	return schedules, nil
}

// Delete removes the template. Tasks it already produced stay.
func (s *ScheduleService) Delete(ctx context.Context, id uint) error {
	if err := s.schedules.Delete(ctx, id); err != nil {
		return translate(err, fmt.Sprintf("schedule %d", id))
	}
	s.log.Info("schedule deleted", zap.Uint("schedule", id))
	return nil
}

func (s *ScheduleService) checkAssignee(ctx context.Context, schedule model.ScheduledTask) error {
	if schedule.TargetsAll() {
		return nil
	}
	id, ok := schedule.TargetMember()
	if !ok {
		// left to the store's validation
		return nil
	}
	if _, err := s.members.FindByID(ctx, id); err != nil {
		return translate(err, fmt.Sprintf("member %d", id))
	}
	return nil
}

func sameInstant(a, b *time.Time) bool {
	switch {
	case a == nil || b == nil:
		return a == b
	default:
		return a.Equal(*b)
	}
}
