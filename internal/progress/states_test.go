package progress

import (
	"testing"

	"code-sprint/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chapter(title string, ids ...int) models.Chapter {
	ch := models.Chapter{Title: title}
	for _, id := range ids {
		ch.Questions = append(ch.Questions, models.Question{ID: id, Chapter: title})
	}
	return ch
}

func states(cv ChapterView) []models.LessonState {
	var out []models.LessonState
	for _, l := range cv.Lessons {
		out = append(out, l.State)
	}
	return out
}

func TestDeriveStates_FirstCompleteThenActiveThenLocked(t *testing.T) {
	ov := DeriveStates([]models.Chapter{chapter("Basics", 1, 2, 3)}, models.NewCompletedSet(1))

	require.Len(t, ov.Chapters, 1)
	lessons := ov.Chapters[0].Lessons
	assert.Equal(t, models.StateComplete, lessons[0].State)
	assert.Equal(t, models.StateActive, lessons[1].State)
	assert.True(t, lessons[1].Available, "the active lesson is also available")
	assert.Equal(t, models.StateLocked, lessons[2].State)
	assert.False(t, lessons[2].Available)
}

func TestDeriveStates(t *testing.T) {
	tests := []struct {
		name      string
		completed models.CompletedSet
		want      []models.LessonState
	}{
		{
			name:      "nothing done",
			completed: models.NewCompletedSet(),
			want:      []models.LessonState{models.StateActive, models.StateLocked, models.StateLocked},
		},
		{
			name:      "chapter done",
			completed: models.NewCompletedSet(1, 2, 3),
			want:      []models.LessonState{models.StateComplete, models.StateComplete, models.StateComplete},
		},
		{
			name:      "gap after an incomplete lesson",
			completed: models.NewCompletedSet(2),
			want:      []models.LessonState{models.StateActive, models.StateComplete, models.StateAvailable},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ov := DeriveStates([]models.Chapter{chapter("Basics", 1, 2, 3)}, tt.completed)
			assert.Equal(t, tt.want, states(ov.Chapters[0]))
		})
	}
}

func TestDeriveStates_ChaptersAreIndependent(t *testing.T) {
	ov := DeriveStates(
		[]models.Chapter{chapter("Basics", 1, 2), chapter("Ownership", 3, 4)},
		models.NewCompletedSet(1, 2),
	)

	assert.Equal(t, []models.LessonState{models.StateComplete, models.StateComplete}, states(ov.Chapters[0]))
	assert.Equal(t, []models.LessonState{models.StateActive, models.StateLocked}, states(ov.Chapters[1]))
	assert.Equal(t, 2, ov.Completed)
	assert.Equal(t, 4, ov.Total)
	assert.Equal(t, 50, ov.Percent)
	assert.Equal(t, 2, ov.Chapters[0].Completed)
}

func TestDeriveStates_ExactlyOneActivePerIncompleteChapter(t *testing.T) {
	ov := DeriveStates([]models.Chapter{chapter("Loops", 5, 6, 7, 8)}, models.NewCompletedSet(5, 7))

	active := 0
	for _, l := range ov.Chapters[0].Lessons {
		if l.State == models.StateActive {
			active++
		}
	}
	assert.Equal(t, 1, active)
	assert.Equal(t, []models.LessonState{models.StateComplete, models.StateActive, models.StateComplete, models.StateAvailable}, states(ov.Chapters[0]))
}
