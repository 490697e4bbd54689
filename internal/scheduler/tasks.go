// Package scheduler provides the asynq-backed background jobs: periodic
// funnel warming so dashboards hit a fresh cache instead of recomputing.
package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskFunnelWarm = "funnel.warm"

// FunnelWarmPayload scopes one warm job to a branch and trailing period.
type FunnelWarmPayload struct {
	Branch     string `json:"branch"`
	PeriodDays int    `json:"periodDays"`
}

func NewFunnelWarmTask(payload FunnelWarmPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskFunnelWarm, data), nil
}

func ParseFunnelWarmPayload(task *asynq.Task) (FunnelWarmPayload, error) {
	var payload FunnelWarmPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return FunnelWarmPayload{}, err
	}
	return payload, nil
}
