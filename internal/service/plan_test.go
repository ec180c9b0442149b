package service

import (
	"testing"
	"time"

	"github.com/nshaw/storydrip/internal/domain"
)

func TestComputeUnlockPlanPreservesOrderAndOffsets(t *testing.T) {
	t.Parallel()

	createdAt := time.Date(2026, time.March, 1, 21, 30, 0, 0, time.UTC)
	catalog := []*domain.StageDefinition{
		{ID: 1, Slug: "night-1", UnlockOffsetMinutes: 0, OrderIndex: 1},
		{ID: 2, Slug: "night-2", UnlockOffsetMinutes: 90, OrderIndex: 2},
		{ID: 3, Slug: "morning-1", UnlockOffsetMinutes: 360, OrderIndex: 3},
	}

	plan, err := ComputeUnlockPlan(createdAt, catalog)
	if err != nil {
		t.Fatalf("compute plan: %v", err)
	}

	if len(plan) != len(catalog) {
		t.Fatalf("plan length = %d, want %d", len(plan), len(catalog))
	}
	for i, stage := range catalog {
		if plan[i].StageID != stage.ID {
			t.Fatalf("plan[%d].StageID = %d, want %d", i, plan[i].StageID, stage.ID)
		}
		want := createdAt.Add(time.Duration(stage.UnlockOffsetMinutes) * time.Minute)
		if !plan[i].AvailableAt.Equal(want) {
			t.Fatalf("plan[%d].AvailableAt = %v, want %v", i, plan[i].AvailableAt, want)
		}
	}
}

func TestComputeUnlockPlanEmptyCatalogFails(t *testing.T) {
	t.Parallel()

	if _, err := ComputeUnlockPlan(time.Now(), nil); err == nil {
		t.Fatal("expected error for empty catalog")
	}
}

func TestLastUnlockAtIsMaximumNotFinalEntry(t *testing.T) {
	t.Parallel()

	createdAt := time.Date(2026, time.March, 1, 21, 30, 0, 0, time.UTC)
	// Offsets deliberately non-monotonic.
	catalog := []*domain.StageDefinition{
		{ID: 1, UnlockOffsetMinutes: 360, OrderIndex: 1},
		{ID: 2, UnlockOffsetMinutes: 0, OrderIndex: 2},
	}

	plan, err := ComputeUnlockPlan(createdAt, catalog)
	if err != nil {
		t.Fatalf("compute plan: %v", err)
	}

	want := createdAt.Add(360 * time.Minute)
	if got := LastUnlockAt(plan); !got.Equal(want) {
		t.Fatalf("last unlock = %v, want %v", got, want)
	}
}

func TestComputeUnlockPlanZeroOffsetUnlocksImmediately(t *testing.T) {
	t.Parallel()

	createdAt := time.Date(2026, time.March, 1, 21, 30, 0, 0, time.UTC)
	catalog := []*domain.StageDefinition{
		{ID: 1, UnlockOffsetMinutes: 0, OrderIndex: 1},
	}

	plan, err := ComputeUnlockPlan(createdAt, catalog)
	if err != nil {
		t.Fatalf("compute plan: %v", err)
	}
	if !plan[0].AvailableAt.Equal(createdAt) {
		t.Fatalf("zero-offset stage available at %v, want %v", plan[0].AvailableAt, createdAt)
	}
}
