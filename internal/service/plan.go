package service

import (
	"fmt"
	"time"

	"github.com/nshaw/storydrip/internal/domain"
)

// PlanEntry is one computed stage availability in a session's unlock plan.
type PlanEntry struct {
	StageID     int64
	AvailableAt time.Time
}

// ComputeUnlockPlan computes each stage's absolute availability timestamp
// for a session created at createdAt. Pure: no I/O, deterministic, preserves
// catalog order. An empty catalog is a configuration error, never a session
// with zero stages.
func ComputeUnlockPlan(createdAt time.Time, catalog []*domain.StageDefinition) ([]PlanEntry, error) {
	if len(catalog) == 0 {
		return nil, fmt.Errorf("stage catalog is empty")
	}

	plan := make([]PlanEntry, 0, len(catalog))
	for _, stage := range catalog {
		plan = append(plan, PlanEntry{
			StageID:     stage.ID,
			AvailableAt: createdAt.Add(time.Duration(stage.UnlockOffsetMinutes) * time.Minute),
		})
	}

	return plan, nil
}

// LastUnlockAt returns the latest availability in a plan, which is when the
// full story is expected to have unlocked. Offsets are not required to be
// monotonic, so this is a maximum, not the final entry.
func LastUnlockAt(plan []PlanEntry) time.Time {
	var last time.Time
	for _, entry := range plan {
		if entry.AvailableAt.After(last) {
			last = entry.AvailableAt
		}
	}
	return last
}
