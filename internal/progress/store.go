package progress

import (
	"context"
	"errors"

	"code-sprint/internal/models"
)

var (
	// ErrStoreUnavailable wraps any persistence failure. The completion may
	// or may not have been recorded; the caller should retry the upsert.
	ErrStoreUnavailable = errors.New("progress store unavailable")

	ErrProfileNotFound = errors.New("profile not found")
	ErrInvalidProfile  = errors.New("invalid profile update")
)

// Store is the persistent profile/progress collaborator. Implementations
// must treat every write as an upsert keyed by the natural identity.
type Store interface {
	FetchCompleted(ctx context.Context, userID int, sourceLang, targetLang string) (models.CompletedSet, error)
	UpsertCompletion(ctx context.Context, rec models.CompletionRecord) (created bool, err error)
	ReadProfile(ctx context.Context, userID int) (*models.Profile, error)
	CreateDefaultProfile(ctx context.Context, userID int) (*models.Profile, error)
	UpdateProfile(ctx context.Context, userID int, update models.ProfileUpdate) (*models.Profile, error)

	// RecordCompletion upserts rec and, only if the key was not completed
	// before, applies mutate to the learner's profile. Both happen atomically
	// with respect to other completions for the same user.
	RecordCompletion(ctx context.Context, rec models.CompletionRecord, mutate func(models.Profile) models.Profile) (CompletionResult, error)
}

type CompletionResult struct {
	AlreadyCompleted bool
	Profile          models.Profile
}

// DefaultProfile is what a new account starts with.
func DefaultProfile(userID int) models.Profile {
	return models.Profile{
		UserID:     userID,
		SourceLang: "python",
		TargetLang: "rust",
	}
}
