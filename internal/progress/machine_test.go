package progress

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"code-sprint/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeLanguages map[string]string

func (f fakeLanguages) Canonical(name string) (string, error) {
	if id, ok := f[strings.ToLower(name)]; ok {
		return id, nil
	}
	return "", fmt.Errorf("unsupported language %q", name)
}

var testLangs = fakeLanguages{"python": "python", "rust": "rust", "go": "go", "cpp": "c++"}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestMachine(store Store) (*Machine, *clock) {
	c := &clock{now: time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)}
	m := NewMachine(store, testLangs, Options{XPPerLesson: 20, Now: c.Now}, zap.NewNop())
	return m, c
}

func TestOnPass_IsIdempotentPerKey(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	m, _ := newTestMachine(store)

	first, err := m.OnPass(ctx, 1, "python", "rust", 3)
	require.NoError(t, err)
	assert.True(t, first.FirstCompletion)
	assert.Equal(t, 20, first.XPAwarded)

	again, err := m.OnPass(ctx, 1, "python", "rust", 3)
	require.NoError(t, err)
	assert.False(t, again.FirstCompletion)
	assert.Zero(t, again.XPAwarded)

	assert.Len(t, store.Completions(1), 1)
	p, err := m.Profile(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 20, p.XP)
	assert.Equal(t, 1, p.CurrentStreak)
}

func TestOnPass_TwoLessonsSameDayCountOnce(t *testing.T) {
	ctx := context.Background()
	m, c := newTestMachine(NewMemoryStore())

	_, err := m.OnPass(ctx, 1, "python", "rust", 1)
	require.NoError(t, err)
	c.advance(3 * time.Hour)
	second, err := m.OnPass(ctx, 1, "python", "rust", 2)
	require.NoError(t, err)

	assert.True(t, second.FirstCompletion)
	assert.Equal(t, 1, second.Profile.CurrentStreak)
	assert.Equal(t, 40, second.Profile.XP)
}

func TestOnPass_NextDayExtendsAndGapResets(t *testing.T) {
	ctx := context.Background()
	m, c := newTestMachine(NewMemoryStore())

	_, err := m.OnPass(ctx, 1, "python", "rust", 1)
	require.NoError(t, err)

	c.advance(24 * time.Hour)
	res, err := m.OnPass(ctx, 1, "python", "rust", 2)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Profile.CurrentStreak)
	assert.Equal(t, 2, res.Profile.LongestStreak)

	c.advance(72 * time.Hour)
	res, err = m.OnPass(ctx, 1, "python", "rust", 3)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Profile.CurrentStreak)
	assert.Equal(t, 2, res.Profile.LongestStreak)
}

func TestOnPass_ConcurrentSameKey(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	m, _ := newTestMachine(store)

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		firsts int
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c, err := m.OnPass(ctx, 7, "python", "rust", 4)
			if !assert.NoError(t, err) {
				return
			}
			if c.FirstCompletion {
				mu.Lock()
				firsts++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, firsts)
	assert.Len(t, store.Completions(7), 1)
	p, err := m.Profile(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, 20, p.XP)
	assert.Equal(t, 1, p.CurrentStreak)
}

func TestLessons_ScopedToLanguagePair(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	m, _ := newTestMachine(store)
	chapters := []models.Chapter{chapter("Basics", 1, 2)}

	_, err := m.OnPass(ctx, 1, "python", "rust", 1)
	require.NoError(t, err)

	view, err := m.Lessons(ctx, 1, chapters)
	require.NoError(t, err)
	assert.Equal(t, "python", view.SourceLang)
	l, ok := view.Lesson(1)
	require.True(t, ok)
	assert.Equal(t, models.StateComplete, l.State)

	target := "Go"
	_, err = m.UpdateProfile(ctx, 1, models.ProfileUpdate{TargetLang: &target})
	require.NoError(t, err)

	view, err = m.Lessons(ctx, 1, chapters)
	require.NoError(t, err)
	assert.Equal(t, "go", view.TargetLang)
	l, _ = view.Lesson(1)
	assert.Equal(t, models.StateActive, l.State, "completions do not carry over to another pair")

	assert.Len(t, store.Completions(1), 1, "switching pairs deletes nothing")
}

func TestProfile_CreatedWithDefaults(t *testing.T) {
	m, _ := newTestMachine(NewMemoryStore())

	p, err := m.Profile(context.Background(), 9)
	require.NoError(t, err)
	assert.Equal(t, DefaultProfile(9), *p)
}

func TestUpdateProfile_Validation(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestMachine(NewMemoryStore())

	cobol := "cobol"
	_, err := m.UpdateProfile(ctx, 1, models.ProfileUpdate{SourceLang: &cobol})
	assert.ErrorIs(t, err, ErrInvalidProfile)

	rust := "rust"
	_, err = m.UpdateProfile(ctx, 1, models.ProfileUpdate{SourceLang: &rust})
	assert.ErrorIs(t, err, ErrInvalidProfile, "source equal to target")

	name, cpp := "ferris", "CPP"
	p, err := m.UpdateProfile(ctx, 1, models.ProfileUpdate{Username: &name, SourceLang: &cpp})
	require.NoError(t, err)
	assert.Equal(t, "ferris", p.Username)
	assert.Equal(t, "c++", p.SourceLang)
}

// brokenStore fails every completion write.
type brokenStore struct {
	*MemoryStore
}

func (b brokenStore) RecordCompletion(context.Context, models.CompletionRecord, func(models.Profile) models.Profile) (CompletionResult, error) {
	return CompletionResult{}, errors.New("connection reset")
}

func TestOnPass_StoreFailure(t *testing.T) {
	m, _ := newTestMachine(brokenStore{NewMemoryStore()})

	_, err := m.OnPass(context.Background(), 1, "python", "rust", 1)
	assert.ErrorIs(t, err, ErrStoreUnavailable)
}
