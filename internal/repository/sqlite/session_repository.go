package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/nshaw/storydrip/internal/domain"
)

// SessionRepository implements domain.SessionRepository using SQLite.
type SessionRepository struct {
	db *Database
}

// NewSessionRepository creates a new SessionRepository.
func NewSessionRepository(db *Database) *SessionRepository {
	return &SessionRepository{db: db}
}

// CreateWithPlan inserts the user, session, stage entries, and notification
// schedule in one transaction so partial signups are never visible.
func (r *SessionRepository) CreateWithPlan(ctx context.Context, user *domain.User, session *domain.Session, entries []*domain.StageEntry, schedule *domain.NotificationSchedule) error {
	tx, err := r.db.GetDB().BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin signup transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	result, err := tx.ExecContext(ctx, `
		INSERT INTO users (name, email, created_at)
		VALUES (?, ?, ?)
	`,
		user.Name,
		user.Email,
		toMillis(user.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	userID, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get user ID: %w", err)
	}
	user.ID = userID
	session.UserID = userID

	result, err = tx.ExecContext(ctx, `
		INSERT INTO sessions (token, user_id, guest_name, utm_source, utm_medium, utm_campaign, referrer, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		session.Token,
		session.UserID,
		session.GuestName,
		session.Attribution.Source,
		session.Attribution.Medium,
		session.Attribution.Campaign,
		session.Attribution.Referrer,
		toMillis(session.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	sessionID, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get session ID: %w", err)
	}
	session.ID = sessionID

	for _, entry := range entries {
		entry.SessionID = sessionID
		result, err := tx.ExecContext(ctx, `
			INSERT INTO stage_entries (session_id, stage_id, available_at)
			VALUES (?, ?, ?)
		`,
			entry.SessionID,
			entry.StageID,
			toMillis(entry.AvailableAt),
		)
		if err != nil {
			return fmt.Errorf("failed to create stage entry: %w", err)
		}
		entryID, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get stage entry ID: %w", err)
		}
		entry.ID = entryID
	}

	schedule.SessionID = sessionID
	result, err = tx.ExecContext(ctx, `
		INSERT INTO notification_schedules (session_id, scheduled_for, status)
		VALUES (?, ?, ?)
	`,
		schedule.SessionID,
		toMillis(schedule.ScheduledFor),
		domain.NotificationPending,
	)
	if err != nil {
		return fmt.Errorf("failed to create notification schedule: %w", err)
	}
	scheduleID, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get schedule ID: %w", err)
	}
	schedule.ID = scheduleID
	schedule.Status = domain.NotificationPending

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit signup transaction: %w", err)
	}

	return nil
}

// GetByToken retrieves a session by its tracker token.
func (r *SessionRepository) GetByToken(ctx context.Context, token string) (*domain.Session, error) {
	session := &domain.Session{}
	var createdAt int64

	err := r.db.GetDB().QueryRowContext(ctx, `
		SELECT id, token, user_id, guest_name, utm_source, utm_medium, utm_campaign, referrer, created_at
		FROM sessions
		WHERE token = ?
	`, token).Scan(
		&session.ID,
		&session.Token,
		&session.UserID,
		&session.GuestName,
		&session.Attribution.Source,
		&session.Attribution.Medium,
		&session.Attribution.Campaign,
		&session.Attribution.Referrer,
		&createdAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	session.CreatedAt = fromMillis(createdAt)

	return session, nil
}

// GetUser retrieves a user by ID.
func (r *SessionRepository) GetUser(ctx context.Context, userID int64) (*domain.User, error) {
	user := &domain.User{}
	var createdAt int64

	err := r.db.GetDB().QueryRowContext(ctx, `
		SELECT id, name, email, created_at
		FROM users
		WHERE id = ?
	`, userID).Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&createdAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	user.CreatedAt = fromMillis(createdAt)

	return user, nil
}

// GetEntries retrieves all stage entries for a session in catalog order.
func (r *SessionRepository) GetEntries(ctx context.Context, sessionID int64) ([]*domain.StageEntry, error) {
	rows, err := r.db.GetDB().QueryContext(ctx, `
		SELECT e.id, e.session_id, e.stage_id, e.available_at, e.completed_at
		FROM stage_entries e
		JOIN stage_definitions d ON d.id = e.stage_id
		WHERE e.session_id = ?
		ORDER BY d.order_index
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get stage entries: %w", err)
	}
	defer rows.Close()

	var entries []*domain.StageEntry

	for rows.Next() {
		entry := &domain.StageEntry{}
		var availableAt int64
		var completedAt sql.NullInt64

		err := rows.Scan(
			&entry.ID,
			&entry.SessionID,
			&entry.StageID,
			&availableAt,
			&completedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan stage entry: %w", err)
		}

		entry.AvailableAt = fromMillis(availableAt)
		entry.CompletedAt = fromNullMillis(completedAt)

		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate stage entries: %w", err)
	}

	return entries, nil
}

// GetEntry retrieves one stage entry for a (session, stage) pair.
func (r *SessionRepository) GetEntry(ctx context.Context, sessionID, stageID int64) (*domain.StageEntry, error) {
	entry := &domain.StageEntry{}
	var availableAt int64
	var completedAt sql.NullInt64

	err := r.db.GetDB().QueryRowContext(ctx, `
		SELECT id, session_id, stage_id, available_at, completed_at
		FROM stage_entries
		WHERE session_id = ? AND stage_id = ?
	`, sessionID, stageID).Scan(
		&entry.ID,
		&entry.SessionID,
		&entry.StageID,
		&availableAt,
		&completedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get stage entry: %w", err)
	}

	entry.AvailableAt = fromMillis(availableAt)
	entry.CompletedAt = fromNullMillis(completedAt)

	return entry, nil
}

// CompleteEntry sets completed_at only when it is still null. Returns false
// when the entry was already completed.
func (r *SessionRepository) CompleteEntry(ctx context.Context, entryID int64, completedAt time.Time) (bool, error) {
	result, err := r.db.GetDB().ExecContext(ctx, `
		UPDATE stage_entries
		SET completed_at = ?
		WHERE id = ? AND completed_at IS NULL
	`,
		toMillis(completedAt),
		entryID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to complete stage entry: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected > 0, nil
}

// AddEvent appends a row to the interaction log.
func (r *SessionRepository) AddEvent(ctx context.Context, event *domain.StageEvent) error {
	result, err := r.db.GetDB().ExecContext(ctx, `
		INSERT INTO stage_events (session_id, stage_id, event_type, created_at)
		VALUES (?, ?, ?, ?)
	`,
		event.SessionID,
		event.StageID,
		event.Type,
		toMillis(event.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to add stage event: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get event ID: %w", err)
	}
	event.ID = id

	return nil
}
