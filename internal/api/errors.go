package api

import (
	"context"
	"errors"
	"net/http"

	"code-sprint/internal/content"
	"code-sprint/internal/generation"
	"code-sprint/internal/grading"
	"code-sprint/internal/models"
	"code-sprint/internal/practice"
	"code-sprint/internal/progress"
	"code-sprint/internal/sandbox"

	"go.uber.org/zap"
)

// statusFor keeps transport and store failures apart from verdicts: a
// client must never read "could not run your code" as "your code is wrong".
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, grading.ErrEmptySubmission):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, progress.ErrInvalidProfile):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, sandbox.ErrUnsupportedLanguage):
		return http.StatusUnprocessableEntity, err.Error()
	case errors.Is(err, sandbox.ErrUnreachable):
		return http.StatusBadGateway, "Code execution service is unreachable, please retry"
	case errors.Is(err, generation.ErrEmptyGeneration):
		return http.StatusBadGateway, "Code generation returned nothing, please retry"
	case errors.Is(err, generation.ErrGenerationFailed):
		return http.StatusBadGateway, "Code generation failed, please retry"
	case errors.Is(err, progress.ErrStoreUnavailable):
		return http.StatusServiceUnavailable, "Progress store is unavailable, please retry"
	case errors.Is(err, generation.ErrNotConfigured):
		return http.StatusServiceUnavailable, "Code generation is not configured"
	case errors.Is(err, practice.ErrStaleAttempt):
		return http.StatusConflict, "A newer attempt for this lesson replaced this one"
	case errors.Is(err, practice.ErrLessonLocked):
		return http.StatusForbidden, "Lesson is locked"
	case errors.Is(err, content.ErrQuestionNotFound):
		return http.StatusNotFound, "Lesson not found"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "Request timed out"
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}

func (h *ApiHandler) respondWithServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status, message := h.serviceStatus(r, err)
	respondWithError(w, status, message)
}

// GradeErrorResponse carries whatever output each program produced before
// grading failed, so a learner still sees the side that ran.
type GradeErrorResponse struct {
	Error     string                  `json:"error"`
	Reference *models.ExecutionResult `json:"reference,omitempty"`
	Target    *models.ExecutionResult `json:"target,omitempty"`
}

func (h *ApiHandler) respondWithGradeError(w http.ResponseWriter, r *http.Request, err error, res *practice.Result) {
	status, message := h.serviceStatus(r, err)
	body := GradeErrorResponse{Error: message}
	if res != nil {
		if ref := res.Outcome.Reference; ref != (models.ExecutionResult{}) {
			body.Reference = &ref
		}
		if target := res.Outcome.Target; target != (models.ExecutionResult{}) {
			body.Target = &target
		}
	}
	respondWithJSON(w, status, body)
}

func (h *ApiHandler) serviceStatus(r *http.Request, err error) (int, string) {
	status, message := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed",
			zap.String("path", r.URL.Path),
			zap.Int("status", status),
			zap.Error(err))
	}
	return status, message
}
