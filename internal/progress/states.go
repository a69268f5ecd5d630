package progress

import "code-sprint/internal/models"

type LessonView struct {
	models.Question
	State     models.LessonState `json:"state"`
	Available bool               `json:"available"`
}

type ChapterView struct {
	Title     string       `json:"title"`
	Lessons   []LessonView `json:"lessons"`
	Completed int          `json:"completed"`
	Total     int          `json:"total"`
}

type Overview struct {
	Chapters  []ChapterView `json:"chapters"`
	Completed int           `json:"completed"`
	Total     int           `json:"total"`
	Percent   int           `json:"percent"`
}

// DeriveStates projects the completed set onto the chapters. It is a pure
// function; lesson states are never stored.
func DeriveStates(chapters []models.Chapter, completed models.CompletedSet) Overview {
	var ov Overview
	for _, ch := range chapters {
		cv := ChapterView{Title: ch.Title, Total: len(ch.Questions)}
		activeSeen := false
		for i, q := range ch.Questions {
			var state models.LessonState
			switch {
			case completed.Has(q.ID):
				state = models.StateComplete
				cv.Completed++
			case !activeSeen:
				state = models.StateActive
				activeSeen = true
			case i == 0 || completed.Has(ch.Questions[i-1].ID):
				state = models.StateAvailable
			default:
				state = models.StateLocked
			}
			cv.Lessons = append(cv.Lessons, LessonView{Question: q, State: state, Available: state.Available()})
		}
		ov.Completed += cv.Completed
		ov.Total += cv.Total
		ov.Chapters = append(ov.Chapters, cv)
	}
	if ov.Total > 0 {
		ov.Percent = ov.Completed * 100 / ov.Total
	}
	return ov
}
