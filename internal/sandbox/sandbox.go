// Package sandbox runs untrusted source code on remote execution services
// and hides the differences between their APIs behind Executor.
package sandbox

import (
	"context"
	"errors"
	"fmt"
	"time"

	"code-sprint/internal/models"
)

var (
	// ErrUnreachable covers transport failures, timeouts and rejected requests.
	// Callers may retry; it never means the program itself failed.
	ErrUnreachable = errors.New("sandbox unreachable")

	// ErrUnsupportedLanguage means no backend has a toolchain for the language,
	// either by mapping or because the backend reports the runtime missing.
	ErrUnsupportedLanguage = errors.New("unsupported language")
)

const defaultTimeout = 15 * time.Second

// Executor runs one program and returns what it printed.
type Executor interface {
	Execute(ctx context.Context, language, source string) (models.ExecutionResult, error)
}

// Backend is an Executor that can tell whether it knows a language.
type Backend interface {
	Executor
	Name() string
	Supports(language string) bool
}

// Router sends each language to the first backend that supports it.
// It does not fail over on ErrUnreachable.
type Router struct {
	backends []Backend
}

func NewRouter(backends ...Backend) *Router {
	return &Router{backends: backends}
}

func (r *Router) Execute(ctx context.Context, language, source string) (models.ExecutionResult, error) {
	for _, b := range r.backends {
		if b.Supports(language) {
			return b.Execute(ctx, language, source)
		}
	}
	return models.ExecutionResult{}, fmt.Errorf("%w: %q", ErrUnsupportedLanguage, language)
}

// Supports reports whether any backend can run language.
func (r *Router) Supports(language string) bool {
	for _, b := range r.backends {
		if b.Supports(language) {
			return true
		}
	}
	return false
}

func unreachable(backend string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrUnreachable, backend, err)
}
