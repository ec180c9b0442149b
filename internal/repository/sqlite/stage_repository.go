package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/nshaw/storydrip/internal/domain"
)

// StageRepository implements domain.StageRepository using SQLite.
type StageRepository struct {
	db *Database
}

// NewStageRepository creates a new StageRepository.
func NewStageRepository(db *Database) *StageRepository {
	return &StageRepository{db: db}
}

// Seed inserts the catalog and its content if the catalog table is empty.
func (r *StageRepository) Seed(ctx context.Context, seeds []domain.StageSeed) error {
	var count int
	err := r.db.GetDB().QueryRowContext(ctx, `SELECT COUNT(*) FROM stage_definitions`).Scan(&count)
	if err != nil {
		return fmt.Errorf("failed to count stage definitions: %w", err)
	}
	if count > 0 {
		return nil
	}

	tx, err := r.db.GetDB().BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin seed transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, seed := range seeds {
		result, err := tx.ExecContext(ctx, `
			INSERT INTO stage_definitions (slug, label, day_part, unlock_offset_minutes, order_index)
			VALUES (?, ?, ?, ?, ?)
		`,
			seed.Definition.Slug,
			seed.Definition.Label,
			seed.Definition.DayPart,
			seed.Definition.UnlockOffsetMinutes,
			seed.Definition.OrderIndex,
		)
		if err != nil {
			return fmt.Errorf("failed to seed stage %s: %w", seed.Definition.Slug, err)
		}

		stageID, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get stage ID: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO stage_contents (stage_id, video_url, image_url, message_text)
			VALUES (?, ?, ?, ?)
		`,
			stageID,
			seed.Content.VideoURL,
			seed.Content.ImageURL,
			seed.Content.MessageText,
		); err != nil {
			return fmt.Errorf("failed to seed content for stage %s: %w", seed.Definition.Slug, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit seed transaction: %w", err)
	}

	return nil
}

// Catalog returns all stage definitions in catalog order.
func (r *StageRepository) Catalog(ctx context.Context) ([]*domain.StageDefinition, error) {
	rows, err := r.db.GetDB().QueryContext(ctx, `
		SELECT id, slug, label, day_part, unlock_offset_minutes, order_index
		FROM stage_definitions
		ORDER BY order_index
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to get catalog: %w", err)
	}
	defer rows.Close()

	var catalog []*domain.StageDefinition

	for rows.Next() {
		stage := &domain.StageDefinition{}

		err := rows.Scan(
			&stage.ID,
			&stage.Slug,
			&stage.Label,
			&stage.DayPart,
			&stage.UnlockOffsetMinutes,
			&stage.OrderIndex,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan stage definition: %w", err)
		}

		catalog = append(catalog, stage)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate stage definitions: %w", err)
	}

	return catalog, nil
}

// GetBySlug retrieves a stage definition by its slug.
func (r *StageRepository) GetBySlug(ctx context.Context, slug string) (*domain.StageDefinition, error) {
	stage := &domain.StageDefinition{}

	err := r.db.GetDB().QueryRowContext(ctx, `
		SELECT id, slug, label, day_part, unlock_offset_minutes, order_index
		FROM stage_definitions
		WHERE slug = ?
	`, slug).Scan(
		&stage.ID,
		&stage.Slug,
		&stage.Label,
		&stage.DayPart,
		&stage.UnlockOffsetMinutes,
		&stage.OrderIndex,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get stage by slug: %w", err)
	}

	return stage, nil
}

// GetContent retrieves the content payload for a stage, or nil when the
// stage has no content row.
func (r *StageRepository) GetContent(ctx context.Context, stageID int64) (*domain.StageContent, error) {
	content := &domain.StageContent{}

	err := r.db.GetDB().QueryRowContext(ctx, `
		SELECT video_url, image_url, message_text
		FROM stage_contents
		WHERE stage_id = ?
	`, stageID).Scan(
		&content.VideoURL,
		&content.ImageURL,
		&content.MessageText,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get stage content: %w", err)
	}

	return content, nil
}
