package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/nshaw/storydrip/internal/domain"
)

// TrackerView is the unlock state of every stage in a session, assembled
// for the polling client.
type TrackerView struct {
	UserName    string      `json:"userName"`
	GeneratedAt time.Time   `json:"generatedAt"`
	Stages      []StageView `json:"stages"`
}

// StageView is one stage's display metadata plus, only when unlocked, its
// content payload. Locked stages carry a nil Content so nothing leaks ahead
// of time.
type StageView struct {
	Slug        string            `json:"slug"`
	Label       string            `json:"label"`
	DayPart     domain.DayPart    `json:"dayPart"`
	OrderIndex  int               `json:"orderIndex"`
	IsUnlocked  bool              `json:"isUnlocked"`
	IsCompleted bool              `json:"isCompleted"`
	AvailableAt time.Time         `json:"availableAt"`
	Content     *StageContentView `json:"content"`
}

// StageContentView is the unlocked content payload with per-session name
// substitution applied.
type StageContentView struct {
	VideoURL    string `json:"videoUrl"`
	ImageURL    string `json:"imageUrl"`
	MessageText string `json:"messageText"`
}

// TrackerService resolves tracker views and records stage interactions.
// Possession of the token is the only credential; the service never logs it.
type TrackerService struct {
	stageRepo   domain.StageRepository
	sessionRepo domain.SessionRepository
	clock       Clock
}

// NewTrackerService creates a new TrackerService.
func NewTrackerService(stageRepo domain.StageRepository, sessionRepo domain.SessionRepository, clock Clock) *TrackerService {
	return &TrackerService{
		stageRepo:   stageRepo,
		sessionRepo: sessionRepo,
		clock:       clock,
	}
}

// ResolveView assembles the current unlock state for a token. Strictly
// read-only: it compares availability against the clock and never mutates.
func (s *TrackerService) ResolveView(ctx context.Context, token string) (*TrackerView, error) {
	session, err := s.sessionRepo.GetByToken(ctx, token)
	if err != nil {
		return nil, err
	}

	user, err := s.sessionRepo.GetUser(ctx, session.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session owner: %w", err)
	}

	catalog, err := s.stageRepo.Catalog(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}
	stagesByID := make(map[int64]*domain.StageDefinition, len(catalog))
	for _, stage := range catalog {
		stagesByID[stage.ID] = stage
	}

	entries, err := s.sessionRepo.GetEntries(ctx, session.ID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	view := &TrackerView{
		UserName:    user.Name,
		GeneratedAt: now,
		Stages:      make([]StageView, 0, len(entries)),
	}

	for _, entry := range entries {
		stage, ok := stagesByID[entry.StageID]
		if !ok {
			// Entry references a stage removed from the catalog; a session's
			// plan is fixed at signup, so surface it rather than hide it.
			return nil, fmt.Errorf("stage %d missing from catalog", entry.StageID)
		}

		unlocked := !now.Before(entry.AvailableAt)
		stageView := StageView{
			Slug:        stage.Slug,
			Label:       stage.Label,
			DayPart:     stage.DayPart,
			OrderIndex:  stage.OrderIndex,
			IsUnlocked:  unlocked,
			IsCompleted: entry.CompletedAt != nil,
			AvailableAt: entry.AvailableAt,
		}

		if unlocked {
			content, err := s.stageRepo.GetContent(ctx, stage.ID)
			if err != nil {
				return nil, err
			}
			if content != nil {
				stageView.Content = &StageContentView{
					VideoURL:    content.VideoURL,
					ImageURL:    content.ImageURL,
					MessageText: personalize(content.MessageText, session.GuestName),
				}
			}
		}

		view.Stages = append(view.Stages, stageView)
	}

	return view, nil
}

// RecordStageView appends a view event. Always logs, never changes state.
func (s *TrackerService) RecordStageView(ctx context.Context, token, stageSlug string) error {
	session, entry, err := s.lookupEntry(ctx, token, stageSlug)
	if err != nil {
		return err
	}

	return s.sessionRepo.AddEvent(ctx, &domain.StageEvent{
		SessionID: session.ID,
		StageID:   entry.StageID,
		Type:      domain.StageEventView,
		CreatedAt: s.clock.Now(),
	})
}

// RecordStageComplete marks a stage completed. Completing a locked stage is
// rejected; completing an already-completed stage keeps the earlier
// timestamp. Every call appends an event for analytics fidelity.
func (s *TrackerService) RecordStageComplete(ctx context.Context, token, stageSlug string) error {
	session, entry, err := s.lookupEntry(ctx, token, stageSlug)
	if err != nil {
		return err
	}

	now := s.clock.Now()
	if now.Before(entry.AvailableAt) {
		return fmt.Errorf("%w: stage %s is not yet unlocked", domain.ErrValidation, stageSlug)
	}

	// Conditional update: first completion wins, repeats are no-ops.
	if _, err := s.sessionRepo.CompleteEntry(ctx, entry.ID, now); err != nil {
		return err
	}

	return s.sessionRepo.AddEvent(ctx, &domain.StageEvent{
		SessionID: session.ID,
		StageID:   entry.StageID,
		Type:      domain.StageEventComplete,
		CreatedAt: now,
	})
}

func (s *TrackerService) lookupEntry(ctx context.Context, token, stageSlug string) (*domain.Session, *domain.StageEntry, error) {
	session, err := s.sessionRepo.GetByToken(ctx, token)
	if err != nil {
		return nil, nil, err
	}

	stage, err := s.stageRepo.GetBySlug(ctx, stageSlug)
	if err != nil {
		return nil, nil, err
	}

	entry, err := s.sessionRepo.GetEntry(ctx, session.ID, stage.ID)
	if err != nil {
		return nil, nil, err
	}

	return session, entry, nil
}

func personalize(text, name string) string {
	return strings.ReplaceAll(text, "{{name}}", name)
}
