package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"code-sprint/internal/models"
	"code-sprint/internal/progress"
)

// ProgressStore persists profiles and completions in Postgres.
type ProgressStore struct {
	db *sql.DB
}

func NewProgressStore(db *sql.DB) *ProgressStore {
	return &ProgressStore{db: db}
}

const profileColumns = `user_id, username, source_language, target_language, xp, current_streak, longest_streak, last_completed_date`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProfile(row rowScanner) (*models.Profile, error) {
	var (
		p        models.Profile
		username sql.NullString
		last     sql.NullTime
	)
	err := row.Scan(&p.UserID, &username, &p.SourceLang, &p.TargetLang, &p.XP, &p.CurrentStreak, &p.LongestStreak, &last)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, progress.ErrProfileNotFound
	}
	if err != nil {
		return nil, err
	}
	p.Username = username.String
	if last.Valid {
		t := last.Time
		p.LastCompletedDate = &t
	}
	return &p, nil
}

func (s *ProgressStore) FetchCompleted(ctx context.Context, userID int, sourceLang, targetLang string) (models.CompletedSet, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT lesson_id FROM completed_lessons
		 WHERE user_id = $1 AND source_language = $2 AND target_language = $3`,
		userID, sourceLang, targetLang)
	if err != nil {
		return nil, fmt.Errorf("failed to query completed lessons: %w", err)
	}
	defer rows.Close()

	set := models.CompletedSet{}
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan completed lesson: %w", err)
		}
		set[id] = struct{}{}
	}
	return set, rows.Err()
}

const upsertCompletionSQL = `
	INSERT INTO completed_lessons (user_id, source_language, target_language, lesson_id, completed_at)
	VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT (user_id, source_language, target_language, lesson_id)
	DO UPDATE SET completed_at = EXCLUDED.completed_at`

// UpsertCompletion reports whether the row was newly inserted.
func (s *ProgressStore) UpsertCompletion(ctx context.Context, rec models.CompletionRecord) (bool, error) {
	var inserted bool
	err := s.db.QueryRowContext(ctx, upsertCompletionSQL+` RETURNING (xmax = 0)`,
		rec.UserID, rec.SourceLang, rec.TargetLang, rec.LessonID, rec.CompletedAt,
	).Scan(&inserted)
	if err != nil {
		return false, fmt.Errorf("failed to upsert completion: %w", err)
	}
	return inserted, nil
}

func (s *ProgressStore) ReadProfile(ctx context.Context, userID int) (*models.Profile, error) {
	return scanProfile(s.db.QueryRowContext(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE user_id = $1`, userID))
}

const insertDefaultProfileSQL = `
	INSERT INTO profiles (user_id, source_language, target_language)
	VALUES ($1, $2, $3)
	ON CONFLICT (user_id) DO NOTHING`

// CreateDefaultProfile is safe against a concurrent session creating it first.
func (s *ProgressStore) CreateDefaultProfile(ctx context.Context, userID int) (*models.Profile, error) {
	d := progress.DefaultProfile(userID)
	if _, err := s.db.ExecContext(ctx, insertDefaultProfileSQL, d.UserID, d.SourceLang, d.TargetLang); err != nil {
		return nil, fmt.Errorf("failed to create profile: %w", err)
	}
	return s.ReadProfile(ctx, userID)
}

func (s *ProgressStore) UpdateProfile(ctx context.Context, userID int, update models.ProfileUpdate) (*models.Profile, error) {
	return scanProfile(s.db.QueryRowContext(ctx, `
		UPDATE profiles SET
			username = COALESCE($2, username),
			source_language = COALESCE($3, source_language),
			target_language = COALESCE($4, target_language)
		WHERE user_id = $1
		RETURNING `+profileColumns,
		userID, update.Username, update.SourceLang, update.TargetLang))
}

// RecordCompletion locks the learner's profile row first, so concurrent
// completions for the same user serialize and only one sees the key as new.
func (s *ProgressStore) RecordCompletion(ctx context.Context, rec models.CompletionRecord, mutate func(models.Profile) models.Profile) (progress.CompletionResult, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return progress.CompletionResult{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	d := progress.DefaultProfile(rec.UserID)
	if _, err := tx.ExecContext(ctx, insertDefaultProfileSQL, d.UserID, d.SourceLang, d.TargetLang); err != nil {
		return progress.CompletionResult{}, fmt.Errorf("failed to ensure profile: %w", err)
	}

	p, err := scanProfile(tx.QueryRowContext(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE user_id = $1 FOR UPDATE`, rec.UserID))
	if err != nil {
		return progress.CompletionResult{}, fmt.Errorf("failed to lock profile: %w", err)
	}

	var existed bool
	err = tx.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM completed_lessons
			WHERE user_id = $1 AND source_language = $2 AND target_language = $3 AND lesson_id = $4
		)`, rec.UserID, rec.SourceLang, rec.TargetLang, rec.LessonID).Scan(&existed)
	if err != nil {
		return progress.CompletionResult{}, fmt.Errorf("failed to check completion: %w", err)
	}

	if _, err := tx.ExecContext(ctx, upsertCompletionSQL,
		rec.UserID, rec.SourceLang, rec.TargetLang, rec.LessonID, rec.CompletedAt); err != nil {
		return progress.CompletionResult{}, fmt.Errorf("failed to upsert completion: %w", err)
	}

	result := progress.CompletionResult{AlreadyCompleted: existed, Profile: *p}
	if !existed {
		next := mutate(*p)
		_, err = tx.ExecContext(ctx, `
			UPDATE profiles SET xp = $2, current_streak = $3, longest_streak = $4, last_completed_date = $5
			WHERE user_id = $1`,
			rec.UserID, next.XP, next.CurrentStreak, next.LongestStreak, next.LastCompletedDate)
		if err != nil {
			return progress.CompletionResult{}, fmt.Errorf("failed to update streak: %w", err)
		}
		result.Profile = next
	}

	if err := tx.Commit(); err != nil {
		return progress.CompletionResult{}, fmt.Errorf("failed to commit completion: %w", err)
	}
	return result, nil
}
