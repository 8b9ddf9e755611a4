package model

import (
	"strings"
	"time"

	"github.com/pkg/errors"
)

// MaxExtensions bounds how many times a task's due date may be rolled forward.
const MaxExtensions = 3

var (
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrProofRequired     = errors.New("proof image is required")
	ErrExtensionLimit    = errors.New("extension limit reached")
)

var taskTransitions = map[TaskStatus][]TaskStatus{
	TaskPending: {TaskCompleted, TaskEliminated},
}

// A decided review may be revised by an admin; it never returns to pending.
var rewardTransitions = map[RewardStatus][]RewardStatus{
	RewardNone:     {RewardPending},
	RewardPending:  {RewardApproved, RewardRejected, RewardLate},
	RewardApproved: {RewardApproved, RewardRejected, RewardLate},
	RewardRejected: {RewardApproved, RewardRejected, RewardLate},
	RewardLate:     {RewardApproved, RewardRejected, RewardLate},
}

func allowed[S ~string](table map[S][]S, from, to S) bool {
	for _, next := range table[from] {
		if next == to {
			return true
		}
	}
	return false
}

func (t *Task) moveTo(to TaskStatus) error {
	if !allowed(taskTransitions, t.Status, to) {
		return errors.Wrapf(ErrInvalidTransition, "task %d: %s -> %s", t.ID, t.Status, to)
	}
	t.Status = to
	return nil
}

func (t *Task) moveRewardTo(to RewardStatus) error {
	if !allowed(rewardTransitions, t.RewardStatus, to) {
		return errors.Wrapf(ErrInvalidTransition, "task %d reward: %q -> %q", t.ID, t.RewardStatus, to)
	}
	t.RewardStatus = to
	return nil
}

// OnTimeAt reports whether a completion at the given instant meets the due date's end of day.
func (t Task) OnTimeAt(at time.Time) bool {
	end, err := t.DueDate.EndOfDay(at.Location())
	if err != nil {
		return false
	}
	return !at.After(end)
}

// Deadline is the due date at the task's end time.
func (t Task) Deadline(loc *time.Location) (time.Time, error) {
	return t.DueDate.At(loc, t.EffectiveEndTime())
}

// SubmitProof completes a pending task with the given proof.
func (t *Task) SubmitProof(image string, now time.Time) error {
	image = strings.TrimSpace(image)
	if image == "" {
		return ErrProofRequired
	}
	if err := t.moveTo(TaskCompleted); err != nil {
		return err
	}
	submitted := now
	onTime := t.OnTimeAt(submitted)
	t.ProofImage = image
	t.ProofSubmittedAt = &submitted
	t.CompletedOnTime = &onTime
	if t.RewardStatus == RewardNone {
		t.RewardStatus = RewardPending
	}
	t.UpdatedAt = now
	return nil
}

func (t Task) hasProof() bool {
	return strings.TrimSpace(t.ProofImage) != "" && t.ProofSubmittedAt != nil
}

// Approve accepts the submitted proof. The on-time flag is recomputed from the
// submission instant; a late submission ends in RewardLate. It returns whether
// the task earned a reward.
func (t *Task) Approve(now time.Time) (bool, error) {
	if !t.hasProof() {
		return false, errors.Wrapf(ErrProofRequired, "task %d", t.ID)
	}
	onTime := t.OnTimeAt(t.ProofSubmittedAt.In(now.Location()))
	t.CompletedOnTime = &onTime

	if !onTime {
		if err := t.moveRewardTo(RewardLate); err != nil {
			return false, err
		}
		t.RewardApprovedAt = nil
		t.UpdatedAt = now
		return false, nil
	}

	if err := t.moveRewardTo(RewardApproved); err != nil {
		return false, err
	}
	approved := now
	t.RewardApprovedAt = &approved
	t.UpdatedAt = now
	return true, nil
}

// Reject declines the proof.
func (t *Task) Reject(now time.Time) error {
	if !t.hasProof() {
		return errors.Wrapf(ErrProofRequired, "task %d", t.ID)
	}
	if err := t.moveRewardTo(RewardRejected); err != nil {
		return err
	}
	rejected := now
	t.RewardRejectedAt = &rejected
	t.RewardApprovedAt = nil
	t.UpdatedAt = now
	return nil
}

// ExtendTo rolls the due date of a pending task forward and counts the extension.
func (t *Task) ExtendTo(day Date, now time.Time) error {
	if t.Status != TaskPending {
		return errors.Wrapf(ErrInvalidTransition, "task %d: cannot extend %s task", t.ID, t.Status)
	}
	if t.ExtensionCount >= MaxExtensions {
		return errors.Wrapf(ErrExtensionLimit, "task %d", t.ID)
	}
	t.DueDate = day
	t.ExtensionCount++
	t.UpdatedAt = now
	return nil
}

// Eliminate moves the task into the terminal failed state and records why.
func (t *Task) Eliminate(note string, now time.Time) error {
	if err := t.moveTo(TaskEliminated); err != nil {
		return err
	}
	note = strings.TrimSpace(note)
	if note != "" {
		if strings.TrimSpace(t.Description) == "" {
			t.Description = note
		} else {
			t.Description = strings.TrimRight(t.Description, "\n") + "\n\n" + note
		}
	}
	t.UpdatedAt = now
	return nil
}
