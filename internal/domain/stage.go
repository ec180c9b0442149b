package domain

import (
	"context"
	"time"
)

// DayPart groups stages for display purposes only; scheduling ignores it.
type DayPart string

const (
	DayPartNight   DayPart = "night"
	DayPartMorning DayPart = "morning"
)

// StageDefinition is one unit of time-gated content in the story catalog.
// Definitions are seeded once and immutable at runtime; many sessions share
// the same catalog.
type StageDefinition struct {
	ID                  int64
	Slug                string
	Label               string
	DayPart             DayPart
	UnlockOffsetMinutes int
	OrderIndex          int
}

// StageContent is the payload revealed when a stage unlocks. MessageText may
// contain the {{name}} placeholder, substituted per session.
type StageContent struct {
	VideoURL    string
	ImageURL    string
	MessageText string
}

// StageEntry is one row per (session, stage definition) pair. AvailableAt is
// immutable once written; CompletedAt transitions only nil -> set.
type StageEntry struct {
	ID          int64
	SessionID   int64
	StageID     int64
	AvailableAt time.Time
	CompletedAt *time.Time
}

// StageEventType classifies entries in the append-only interaction log.
type StageEventType string

const (
	StageEventView     StageEventType = "view"
	StageEventComplete StageEventType = "complete"
)

// StageEvent records a single view or complete occurrence. The log is
// write-only from the core's perspective; analytics read it elsewhere.
type StageEvent struct {
	ID        int64
	SessionID int64
	StageID   int64
	Type      StageEventType
	CreatedAt time.Time
}

// StageSeed pairs a definition with its content for one-time seeding.
type StageSeed struct {
	Definition StageDefinition
	Content    StageContent
}

// StageRepository provides read access to the stage catalog and its content.
// Seed runs once at startup and is a no-op when the catalog already exists.
type StageRepository interface {
	Seed(ctx context.Context, seeds []StageSeed) error
	Catalog(ctx context.Context) ([]*StageDefinition, error)
	GetBySlug(ctx context.Context, slug string) (*StageDefinition, error)
	GetContent(ctx context.Context, stageID int64) (*StageContent, error)
}
