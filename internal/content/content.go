// Package content loads the static question catalog.
package content

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"code-sprint/internal/models"
)

//go:embed questions.json
var defaultQuestions []byte

var ErrQuestionNotFound = errors.New("question not found")

// Catalog is immutable after loading.
type Catalog struct {
	questions []models.Question
	byID      map[int]models.Question
	chapters  []models.Chapter
}

type catalogFile struct {
	Questions []models.Question `json:"questions"`
}

// Load reads a catalog file, or the built-in catalog when path is empty.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Parse(defaultQuestions)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read question catalog %s: %w", path, err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Catalog, error) {
	var f catalogFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse question catalog: %w", err)
	}
	if len(f.Questions) == 0 {
		return nil, fmt.Errorf("question catalog is empty")
	}

	c := &Catalog{questions: f.Questions, byID: make(map[int]models.Question, len(f.Questions))}
	chapterIndex := make(map[string]int)
	for _, q := range f.Questions {
		if q.ID <= 0 {
			return nil, fmt.Errorf("question %q has invalid id %d", q.Title, q.ID)
		}
		if _, dup := c.byID[q.ID]; dup {
			return nil, fmt.Errorf("duplicate question id %d", q.ID)
		}
		if strings.TrimSpace(q.Chapter) == "" {
			return nil, fmt.Errorf("question %d has no chapter", q.ID)
		}
		c.byID[q.ID] = q

		// chapters keep first-seen order
		i, ok := chapterIndex[q.Chapter]
		if !ok {
			i = len(c.chapters)
			chapterIndex[q.Chapter] = i
			c.chapters = append(c.chapters, models.Chapter{Title: q.Chapter})
		}
		c.chapters[i].Questions = append(c.chapters[i].Questions, q)
	}
	return c, nil
}

func (c *Catalog) Question(id int) (models.Question, error) {
	q, ok := c.byID[id]
	if !ok {
		return models.Question{}, fmt.Errorf("%w: %d", ErrQuestionNotFound, id)
	}
	return q, nil
}

func (c *Catalog) Chapters() []models.Chapter {
	return c.chapters
}

func (c *Catalog) Len() int {
	return len(c.questions)
}
