package scheduler

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

const (
	TaskVisitReminder = "scheduling.visit.reminder"
)

type VisitReminderPayload struct {
	VisitID int64 `json:"visitId"`
	// StartsAt pins the slot the reminder was planned for. A reschedule
	// enqueues a new task, and the stale one notices the mismatch.
	StartsAt string `json:"startsAt"`
}

func NewVisitReminderTask(payload VisitReminderPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskVisitReminder, data), nil
}

func ParseVisitReminderPayload(task *asynq.Task) (VisitReminderPayload, error) {
	var payload VisitReminderPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return VisitReminderPayload{}, err
	}
	if payload.VisitID <= 0 {
		return VisitReminderPayload{}, fmt.Errorf("%w: visit id missing", asynq.SkipRetry)
	}
	return payload, nil
}
