package progress

import (
	"context"
	"sort"
	"sync"

	"code-sprint/internal/models"
)

type completionKey struct {
	userID     int
	sourceLang string
	targetLang string
	lessonID   int
}

func keyOf(rec models.CompletionRecord) completionKey {
	return completionKey{rec.UserID, rec.SourceLang, rec.TargetLang, rec.LessonID}
}

// MemoryStore keeps profiles and completions in process behind one mutex.
type MemoryStore struct {
	mu          sync.Mutex
	profiles    map[int]models.Profile
	completions map[completionKey]models.CompletionRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		profiles:    make(map[int]models.Profile),
		completions: make(map[completionKey]models.CompletionRecord),
	}
}

func (s *MemoryStore) FetchCompleted(_ context.Context, userID int, sourceLang, targetLang string) (models.CompletedSet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	set := models.CompletedSet{}
	for k := range s.completions {
		if k.userID == userID && k.sourceLang == sourceLang && k.targetLang == targetLang {
			set[k.lessonID] = struct{}{}
		}
	}
	return set, nil
}

func (s *MemoryStore) UpsertCompletion(_ context.Context, rec models.CompletionRecord) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.upsertLocked(rec), nil
}

func (s *MemoryStore) upsertLocked(rec models.CompletionRecord) bool {
	k := keyOf(rec)
	_, existed := s.completions[k]
	s.completions[k] = rec
	return !existed
}

func (s *MemoryStore) ReadProfile(_ context.Context, userID int) (*models.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.profiles[userID]
	if !ok {
		return nil, ErrProfileNotFound
	}
	return &p, nil
}

func (s *MemoryStore) CreateDefaultProfile(_ context.Context, userID int) (*models.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.profileLocked(userID)
	return &p, nil
}

// profileLocked returns the existing profile or stores the default one.
func (s *MemoryStore) profileLocked(userID int) models.Profile {
	p, ok := s.profiles[userID]
	if !ok {
		p = DefaultProfile(userID)
		s.profiles[userID] = p
	}
	return p
}

func (s *MemoryStore) UpdateProfile(_ context.Context, userID int, update models.ProfileUpdate) (*models.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.profiles[userID]
	if !ok {
		return nil, ErrProfileNotFound
	}
	if update.Username != nil {
		p.Username = *update.Username
	}
	if update.SourceLang != nil {
		p.SourceLang = *update.SourceLang
	}
	if update.TargetLang != nil {
		p.TargetLang = *update.TargetLang
	}
	s.profiles[userID] = p
	return &p, nil
}

func (s *MemoryStore) RecordCompletion(_ context.Context, rec models.CompletionRecord, mutate func(models.Profile) models.Profile) (CompletionResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.profileLocked(rec.UserID)
	if !s.upsertLocked(rec) {
		return CompletionResult{AlreadyCompleted: true, Profile: p}, nil
	}
	p = mutate(p)
	s.profiles[rec.UserID] = p
	return CompletionResult{Profile: p}, nil
}

// Completions lists a user's records across all pairs, ordered by lesson id.
func (s *MemoryStore) Completions(userID int) []models.CompletionRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.CompletionRecord
	for k, rec := range s.completions {
		if k.userID == userID {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].LessonID != out[j].LessonID {
			return out[i].LessonID < out[j].LessonID
		}
		return out[i].TargetLang < out[j].TargetLang
	})
	return out
}
