// Package practice ties one learner action to the grading engine and the
// progress machine: run both programs, then record the pass if the attempt
// is still the latest one.
package practice

import (
	"context"
	"errors"
	"fmt"

	"code-sprint/internal/generation"
	"code-sprint/internal/grading"
	"code-sprint/internal/models"
	"code-sprint/internal/progress"

	"go.uber.org/zap"
)

var (
	// ErrStaleAttempt means a newer attempt for the same lesson started
	// before this one finished. Its result is discarded.
	ErrStaleAttempt = errors.New("attempt superseded by a newer one")
	ErrLessonLocked = errors.New("lesson is locked")
)

// Catalog is the read-only question source.
type Catalog interface {
	Question(id int) (models.Question, error)
	Chapters() []models.Chapter
}

type Service struct {
	engine    *grading.Engine
	attempts  grading.AttemptCounter
	machine   *progress.Machine
	catalog   Catalog
	generator generation.Generator
	logger    *zap.Logger
}

// NewService wires the practice flow. generator may be nil, in which case
// the generation helpers return generation.ErrNotConfigured.
func NewService(engine *grading.Engine, attempts grading.AttemptCounter, machine *progress.Machine, catalog Catalog, generator generation.Generator, logger *zap.Logger) *Service {
	return &Service{
		engine:    engine,
		attempts:  attempts,
		machine:   machine,
		catalog:   catalog,
		generator: generator,
		logger:    logger,
	}
}

// Result is what a graded submission produced. Completion is set on the
// first pass; RecordErr is set when the verdict stands but recording it failed.
type Result struct {
	LessonID   int                   `json:"lesson_id"`
	SourceLang string                `json:"source_language"`
	TargetLang string                `json:"target_language"`
	Attempt    uint64                `json:"attempt"`
	Outcome    models.GradingOutcome `json:"outcome"`
	Completion *progress.Completion  `json:"completion,omitempty"`
	RecordErr  error                 `json:"-"`
}

// Submit grades a translation of lessonID under the learner's active pair.
// When grading fails after the programs ran, the returned Result still
// carries whatever output each side produced, next to the error.
func (s *Service) Submit(ctx context.Context, userID, lessonID int, referenceCode, targetCode string) (*Result, error) {
	// Rejected before anything is read, created or counted.
	if (models.Submission{ReferenceCode: referenceCode, TargetCode: targetCode}).Empty() {
		return nil, grading.ErrEmptySubmission
	}

	lesson, view, err := s.lesson(ctx, userID, lessonID)
	if err != nil {
		return nil, err
	}
	if !lesson.Available && lesson.State != models.StateComplete {
		return nil, fmt.Errorf("%w: %d", ErrLessonLocked, lessonID)
	}

	sub := models.Submission{
		SourceLang:    view.SourceLang,
		TargetLang:    view.TargetLang,
		ReferenceCode: referenceCode,
		TargetCode:    targetCode,
	}
	key := grading.AttemptKey(userID, view.SourceLang, view.TargetLang, lessonID)
	attempt, err := s.attempts.Begin(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to begin attempt: %w", err)
	}

	outcome, err := s.engine.Grade(ctx, sub)
	res := &Result{
		LessonID:   lessonID,
		SourceLang: view.SourceLang,
		TargetLang: view.TargetLang,
		Attempt:    attempt,
		Outcome:    outcome,
	}
	if err != nil {
		return res, err
	}
	if err := s.checkCurrent(ctx, key, attempt); err != nil {
		s.logger.Info("discarding superseded attempt",
			zap.Int("user_id", userID),
			zap.Int("lesson_id", lessonID),
			zap.Uint64("attempt", attempt),
			zap.Error(err))
		return res, err
	}

	if !outcome.Passed() {
		return res, nil
	}
	res.Completion, res.RecordErr = s.machine.OnPass(ctx, userID, view.SourceLang, view.TargetLang, lessonID)
	return res, nil
}

func (s *Service) checkCurrent(ctx context.Context, key string, attempt uint64) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrStaleAttempt, err)
	}
	latest, err := s.attempts.Latest(ctx, key)
	if err != nil {
		return fmt.Errorf("failed to read attempt counter: %w", err)
	}
	if latest != attempt {
		return fmt.Errorf("%w: attempt %d, latest %d", ErrStaleAttempt, attempt, latest)
	}
	return nil
}

// RetryCompletion re-applies a pass whose recording failed. It never
// executes code again.
func (s *Service) RetryCompletion(ctx context.Context, userID int, sourceLang, targetLang string, lessonID int) (*progress.Completion, error) {
	if _, err := s.catalog.Question(lessonID); err != nil {
		return nil, err
	}
	return s.machine.OnPass(ctx, userID, sourceLang, targetLang, lessonID)
}

// Run executes a single program.
func (s *Service) Run(ctx context.Context, language, source string) (models.ExecutionResult, error) {
	return s.engine.Run(ctx, language, source)
}

// Lessons returns the lesson map for the learner's active pair.
func (s *Service) Lessons(ctx context.Context, userID int) (*progress.LessonsView, error) {
	return s.machine.Lessons(ctx, userID, s.catalog.Chapters())
}

// Lesson returns one lesson with its derived state.
func (s *Service) Lesson(ctx context.Context, userID, lessonID int) (progress.LessonView, error) {
	l, _, err := s.lesson(ctx, userID, lessonID)
	return l, err
}

func (s *Service) lesson(ctx context.Context, userID, lessonID int) (progress.LessonView, *progress.LessonsView, error) {
	if _, err := s.catalog.Question(lessonID); err != nil {
		return progress.LessonView{}, nil, err
	}
	view, err := s.Lessons(ctx, userID)
	if err != nil {
		return progress.LessonView{}, nil, err
	}
	l, ok := view.Lesson(lessonID)
	if !ok {
		return progress.LessonView{}, nil, fmt.Errorf("lesson %d missing from lesson map", lessonID)
	}
	return l, view, nil
}

// Generated is model output tagged with the language it is written in.
type Generated struct {
	LessonID int    `json:"lesson_id"`
	Language string `json:"language,omitempty"`
	Text     string `json:"text"`
}

// GenerateReference writes a solution in the learner's source language.
func (s *Service) GenerateReference(ctx context.Context, userID, lessonID int) (*Generated, error) {
	return s.generate(ctx, userID, lessonID, func(q models.Question, p *models.Profile) (string, string, error) {
		code, err := s.generator.Reference(ctx, generation.ProblemText(q), p.SourceLang)
		return p.SourceLang, code, err
	})
}

// GenerateStarter scaffolds the lesson in the learner's target language.
func (s *Service) GenerateStarter(ctx context.Context, userID, lessonID int) (*Generated, error) {
	return s.generate(ctx, userID, lessonID, func(q models.Question, p *models.Profile) (string, string, error) {
		problem := generation.ProblemText(q)
		if q.StarterCodePrompt != "" {
			problem += "\n" + q.StarterCodePrompt
		}
		code, err := s.generator.Starter(ctx, problem, p.TargetLang)
		return p.TargetLang, code, err
	})
}

// GeneratePractice writes a fresh problem statement modelled on the lesson.
func (s *Service) GeneratePractice(ctx context.Context, userID, lessonID int) (*Generated, error) {
	return s.generate(ctx, userID, lessonID, func(q models.Question, _ *models.Profile) (string, string, error) {
		text, err := s.generator.Practice(ctx, q)
		return "", text, err
	})
}

func (s *Service) generate(ctx context.Context, userID, lessonID int, fn func(models.Question, *models.Profile) (string, string, error)) (*Generated, error) {
	if s.generator == nil {
		return nil, generation.ErrNotConfigured
	}
	q, err := s.catalog.Question(lessonID)
	if err != nil {
		return nil, err
	}
	p, err := s.machine.Profile(ctx, userID)
	if err != nil {
		return nil, err
	}
	lang, text, err := fn(q, p)
	if err != nil {
		return nil, err
	}
	return &Generated{LessonID: lessonID, Language: lang, Text: text}, nil
}
