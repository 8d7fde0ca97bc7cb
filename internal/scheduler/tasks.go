package scheduler

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

const TaskIdentityPublicationRetry = "accesscontrol.identity_publication.retry"

type IdentityPublicationRetryPayload struct {
	OutboxID   string `json:"outboxId"`
	TenantID   string `json:"tenantId"`
	EmployeeID int64  `json:"employeeId"`
}

func NewIdentityPublicationRetryTask(payload IdentityPublicationRetryPayload) (*asynq.Task, error) {
	if _, err := uuid.Parse(payload.OutboxID); err != nil {
		return nil, fmt.Errorf("invalid outbox id: %w", err)
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskIdentityPublicationRetry, data), nil
}

func ParseIdentityPublicationRetryPayload(task *asynq.Task) (IdentityPublicationRetryPayload, error) {
	var payload IdentityPublicationRetryPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return IdentityPublicationRetryPayload{}, err
	}
	return payload, nil
}
