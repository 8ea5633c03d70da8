package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskMissingDocumentSweep = "tasks.sweep.missing_documents"

// MissingDocumentSweepPayload carries the sweep trigger. RequestedAt is
// informational, for tracing a run back to the tick that enqueued it.
type MissingDocumentSweepPayload struct {
	RequestedAt string `json:"requestedAt"`
}

func NewMissingDocumentSweepTask(payload MissingDocumentSweepPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskMissingDocumentSweep, data), nil
}

func ParseMissingDocumentSweepPayload(task *asynq.Task) (MissingDocumentSweepPayload, error) {
	var payload MissingDocumentSweepPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return MissingDocumentSweepPayload{}, err
	}
	return payload, nil
}
