package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"crewdesk/internal/model"
	"crewdesk/internal/repository"
)

// TaskInput represents data required to create a task by hand.
type TaskInput struct {
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	MemberID     uint       `json:"memberId"`
	EventName    string     `json:"eventName"`
	DueDate      model.Date `json:"dueDate"`
	EndTime      string     `json:"endTime"`
	AutoExtend   bool       `json:"autoExtend"`
	RewardAmount int        `json:"rewardAmount"`
}

// TaskService wraps the admin-facing task operations.
type TaskService struct {
	tasks   TaskStore
	rewards RewardStore
	members MemberStore
	clock   Clock
	log     *zap.Logger
}

func NewTaskService(tasks TaskStore, rewards RewardStore, members MemberStore, clock Clock, log *zap.Logger) *TaskService {
	return &TaskService{tasks: tasks, rewards: rewards, members: members, clock: clock, log: log.Named("tasks")}
}

// CreateTask assigns a one-off task that no schedule produced.
func (s *TaskService) CreateTask(ctx context.Context, input TaskInput) (*model.Task, error) {
	if strings.TrimSpace(input.Title) == "" {
		return nil, errors.Wrap(ErrValidation, "title is required")
	}
	if _, err := s.members.FindByID(ctx, input.MemberID); err != nil {
		return nil, translate(err, fmt.Sprintf("member %d", input.MemberID))
	}

	now := s.clock()
	due := input.DueDate
	if due.IsZero() {
		due = model.DateOf(now)
	}
	task := model.Task{
		Title:        strings.TrimSpace(input.Title),
		Description:  input.Description,
		MemberID:     input.MemberID,
		EventName:    input.EventName,
		DueDate:      due,
		EndTime:      input.EndTime,
		Status:       model.TaskPending,
		AutoExtend:   input.AutoExtend,
		RewardAmount: input.RewardAmount,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.tasks.Create(ctx, &task); err != nil {
		return nil, translate(err, "create task")
	}
	s.log.Info("task created", zap.Uint("task", task.ID), zap.Uint("member", task.MemberID))
	return &task, nil
}

func (s *TaskService) List(ctx context.Context, filter repository.TaskFilter) ([]model.Task, error) {
	tasks, err := s.tasks.List(ctx, filter)
	if err != nil {
		return nil, translate(err, "list tasks")
	}
	return tasks, nil
}

// ListForMember returns the member's tasks that still need work.
func (s *TaskService) ListForMember(ctx context.Context, memberID uint) ([]model.Task, error) {
	return s.List(ctx, repository.TaskFilter{MemberID: memberID, Status: model.TaskPending})
}

// ListAwaitingReview returns completed tasks whose proof has not been decided yet.
func (s *TaskService) ListAwaitingReview(ctx context.Context) ([]model.Task, error) {
	return s.List(ctx, repository.TaskFilter{Status: model.TaskCompleted, RewardStatus: model.RewardPending})
}

func (s *TaskService) GetTask(ctx context.Context, taskID uint) (*model.Task, error) {
	task, err := s.tasks.FindByID(ctx, taskID)
	if err != nil {
		return nil, translate(err, fmt.Sprintf("task %d", taskID))
	}
	return task, nil
}

// DeleteTask removes a task together with any reward granted for it.
func (s *TaskService) DeleteTask(ctx context.Context, taskID uint) error {
	if _, err := s.tasks.FindByID(ctx, taskID); err != nil {
		return translate(err, fmt.Sprintf("task %d", taskID))
	}
	if _, err := s.rewards.DeleteByTask(ctx, taskID); err != nil {
		return translate(err, "delete reward")
	}
	if err := s.tasks.Delete(ctx, taskID); err != nil {
		return translate(err, "delete task")
	}
	s.log.Info("task deleted", zap.Uint("task", taskID))
	return nil
}
