package jobs

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/cashcast/internal/artifacts"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskXeroSync is the task type for pulling reports and refreshing artifacts.
	TaskXeroSync = "xero:sync"
)

// SyncPayload selects the artifact slots a sync run refreshes. An empty list
// refreshes every slot.
type SyncPayload struct {
	Artifacts []string `json:"artifacts"`
}

// Slots validates the requested slot names.
func (p SyncPayload) Slots() ([]artifacts.Slot, error) {
	if len(p.Artifacts) == 0 {
		return artifacts.Slots(), nil
	}
	out := make([]artifacts.Slot, 0, len(p.Artifacts))
	seen := make(map[artifacts.Slot]struct{}, len(p.Artifacts))
	for _, raw := range p.Artifacts {
		slot, err := artifacts.ParseSlot(raw)
		if err != nil {
			return nil, err
		}
		if _, ok := seen[slot]; ok {
			continue
		}
		seen[slot] = struct{}{}
		out = append(out, slot)
	}
	return out, nil
}

// NewSyncTask constructs an Asynq task refreshing the given slots.
func NewSyncTask(slots ...artifacts.Slot) (*asynq.Task, error) {
	payload := SyncPayload{Artifacts: make([]string, 0, len(slots))}
	for _, s := range slots {
		payload.Artifacts = append(payload.Artifacts, string(s))
	}
	if _, err := payload.Slots(); err != nil {
		return nil, err
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("jobs: encode sync payload: %w", err)
	}
	return asynq.NewTask(TaskXeroSync, data, asynq.Queue(QueueDefault)), nil
}
