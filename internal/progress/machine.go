// Package progress owns lesson completion: deriving lesson states for
// display and turning a passing grade into a durable completion with
// streak and XP credit.
package progress

import (
	"context"
	"errors"
	"fmt"
	"time"

	"code-sprint/internal/models"

	"go.uber.org/zap"
)

// LanguageResolver maps learner-facing names to canonical language ids.
type LanguageResolver interface {
	Canonical(name string) (string, error)
}

type Options struct {
	XPPerLesson int
	// Location decides where calendar days start for streaks.
	Location *time.Location
	Now      func() time.Time
}

type Machine struct {
	store       Store
	languages   LanguageResolver
	xpPerLesson int
	loc         *time.Location
	now         func() time.Time
	logger      *zap.Logger
}

func NewMachine(store Store, languages LanguageResolver, opts Options, logger *zap.Logger) *Machine {
	m := &Machine{
		store:       store,
		languages:   languages,
		xpPerLesson: opts.XPPerLesson,
		loc:         opts.Location,
		now:         opts.Now,
		logger:      logger,
	}
	if m.loc == nil {
		m.loc = time.UTC
	}
	if m.now == nil {
		m.now = time.Now
	}
	return m
}

// Completion describes what OnPass changed.
type Completion struct {
	Record          models.CompletionRecord `json:"record"`
	FirstCompletion bool                    `json:"first_completion"`
	XPAwarded       int                     `json:"xp_awarded"`
	Profile         models.Profile          `json:"profile"`
}

// OnPass records a passing grade. Calling it again for the same
// (user, source, target, lesson) refreshes the timestamp but grants nothing.
func (m *Machine) OnPass(ctx context.Context, userID int, sourceLang, targetLang string, lessonID int) (*Completion, error) {
	now := m.now()
	rec := models.CompletionRecord{
		UserID:      userID,
		SourceLang:  sourceLang,
		TargetLang:  targetLang,
		LessonID:    lessonID,
		CompletedAt: now.UTC(),
	}
	today := now.In(m.loc)

	res, err := m.store.RecordCompletion(ctx, rec, func(p models.Profile) models.Profile {
		p = AdvanceStreak(p, today)
		p.XP += m.xpPerLesson
		return p
	})
	if err != nil {
		m.logger.Error("failed to record completion",
			zap.Int("user_id", userID),
			zap.Int("lesson_id", lessonID),
			zap.Error(err))
		return nil, unavailable(err)
	}

	c := &Completion{Record: rec, FirstCompletion: !res.AlreadyCompleted, Profile: res.Profile}
	if c.FirstCompletion {
		c.XPAwarded = m.xpPerLesson
	}
	m.logger.Info("lesson completed",
		zap.Int("user_id", userID),
		zap.String("pair", sourceLang+"->"+targetLang),
		zap.Int("lesson_id", lessonID),
		zap.Bool("first", c.FirstCompletion),
		zap.Int("streak", res.Profile.CurrentStreak))
	return c, nil
}

// Profile returns the learner's profile, creating the default one on first access.
func (m *Machine) Profile(ctx context.Context, userID int) (*models.Profile, error) {
	p, err := m.store.ReadProfile(ctx, userID)
	if errors.Is(err, ErrProfileNotFound) {
		m.logger.Info("creating default profile", zap.Int("user_id", userID))
		p, err = m.store.CreateDefaultProfile(ctx, userID)
	}
	if err != nil {
		return nil, unavailable(err)
	}
	return p, nil
}

// UpdateProfile changes the username or language pair. Completion records of
// other pairs are left untouched; they simply stop being displayed.
func (m *Machine) UpdateProfile(ctx context.Context, userID int, update models.ProfileUpdate) (*models.Profile, error) {
	current, err := m.Profile(ctx, userID)
	if err != nil {
		return nil, err
	}

	source, target := current.SourceLang, current.TargetLang
	if update.SourceLang != nil {
		if source, err = m.languages.Canonical(*update.SourceLang); err != nil {
			return nil, fmt.Errorf("%w: source language: %w", ErrInvalidProfile, err)
		}
		update.SourceLang = &source
	}
	if update.TargetLang != nil {
		if target, err = m.languages.Canonical(*update.TargetLang); err != nil {
			return nil, fmt.Errorf("%w: target language: %w", ErrInvalidProfile, err)
		}
		update.TargetLang = &target
	}
	if source == target {
		return nil, fmt.Errorf("%w: source and target language are both %s", ErrInvalidProfile, source)
	}

	p, err := m.store.UpdateProfile(ctx, userID, update)
	if err != nil {
		return nil, unavailable(err)
	}
	return p, nil
}

// LessonsView is the lesson map for the learner's active language pair.
type LessonsView struct {
	SourceLang string `json:"source_language"`
	TargetLang string `json:"target_language"`
	Overview
}

func (m *Machine) Lessons(ctx context.Context, userID int, chapters []models.Chapter) (*LessonsView, error) {
	p, err := m.Profile(ctx, userID)
	if err != nil {
		return nil, err
	}
	completed, err := m.store.FetchCompleted(ctx, userID, p.SourceLang, p.TargetLang)
	if err != nil {
		return nil, unavailable(err)
	}
	return &LessonsView{
		SourceLang: p.SourceLang,
		TargetLang: p.TargetLang,
		Overview:   DeriveStates(chapters, completed),
	}, nil
}

// Lesson finds one lesson of the view by question id.
func (v *LessonsView) Lesson(id int) (LessonView, bool) {
	for _, ch := range v.Chapters {
		for _, l := range ch.Lessons {
			if l.ID == id {
				return l, true
			}
		}
	}
	return LessonView{}, false
}

func unavailable(err error) error {
	if errors.Is(err, ErrStoreUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
}
