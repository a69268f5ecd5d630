// Package grading runs a reference program and its translation side by side
// and decides whether the translation prints the same thing.
package grading

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"code-sprint/internal/models"
	"code-sprint/internal/sandbox"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ErrEmptySubmission is a precondition failure: nothing was executed.
var ErrEmptySubmission = errors.New("reference and target code must both be non-empty")

type Engine struct {
	executor sandbox.Executor
	metrics  *Metrics
	logger   *zap.Logger
}

func NewEngine(executor sandbox.Executor, metrics *Metrics, logger *zap.Logger) *Engine {
	return &Engine{executor: executor, metrics: metrics, logger: logger}
}

// Grade executes both programs concurrently and waits for both before
// classifying. A sandbox failure on either side is returned as an error,
// never as a verdict; whatever the other side produced is still in the outcome.
func (e *Engine) Grade(ctx context.Context, sub models.Submission) (models.GradingOutcome, error) {
	if sub.Empty() {
		return models.GradingOutcome{}, ErrEmptySubmission
	}

	var (
		reference, target models.ExecutionResult
		refErr, targetErr error
		g                 errgroup.Group
	)
	g.Go(func() error {
		reference, refErr = e.run(ctx, sub.SourceLang, sub.ReferenceCode)
		if refErr != nil {
			refErr = fmt.Errorf("reference program: %w", refErr)
		}
		return refErr
	})
	g.Go(func() error {
		target, targetErr = e.run(ctx, sub.TargetLang, sub.TargetCode)
		if targetErr != nil {
			targetErr = fmt.Errorf("target program: %w", targetErr)
		}
		return targetErr
	})
	if err := g.Wait(); err != nil {
		err = errors.Join(refErr, targetErr)
		e.logger.Warn("grading aborted by sandbox failure",
			zap.String("source_lang", sub.SourceLang),
			zap.String("target_lang", sub.TargetLang),
			zap.Error(err))
		return models.GradingOutcome{Reference: reference, Target: target}, err
	}

	outcome := Classify(reference, target)
	e.metrics.observeOutcome(outcome)
	e.logger.Debug("graded submission",
		zap.String("source_lang", sub.SourceLang),
		zap.String("target_lang", sub.TargetLang),
		zap.String("verdict", string(outcome.Verdict)),
		zap.String("reason", string(outcome.Reason)))
	return outcome, nil
}

// Run executes a single program, for the editor's plain "Run" action.
func (e *Engine) Run(ctx context.Context, language, source string) (models.ExecutionResult, error) {
	if strings.TrimSpace(source) == "" {
		return models.ExecutionResult{}, ErrEmptySubmission
	}
	return e.run(ctx, language, source)
}

func (e *Engine) run(ctx context.Context, language, source string) (models.ExecutionResult, error) {
	start := time.Now()
	res, err := e.executor.Execute(ctx, language, source)

	label := "ok"
	switch {
	case errors.Is(err, sandbox.ErrUnsupportedLanguage):
		label = "unsupported"
	case err != nil:
		label = "unreachable"
	case res.Errored():
		label = "program_error"
	}
	e.metrics.observeCall(language, label, time.Since(start))
	return res, err
}

// Classify turns two finished executions into a verdict.
func Classify(reference, target models.ExecutionResult) models.GradingOutcome {
	out := models.GradingOutcome{Verdict: models.VerdictFail, Reference: reference, Target: target}
	switch {
	case reference.Errored() && target.Errored():
		out.Reason = models.ReasonBothErrored
	case reference.Errored():
		out.Reason = models.ReasonReferenceError
	case target.Errored():
		out.Reason = models.ReasonTargetError
	case Normalize(reference.Stdout) != Normalize(target.Stdout):
		out.Reason = models.ReasonOutputMismatch
	default:
		out.Verdict = models.VerdictPass
	}
	return out
}
