// Package generation asks a hosted model for reference solutions, starter
// code and fresh practice problems. Its output is opaque text: the only
// check applied is that it is not empty.
package generation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"code-sprint/internal/models"
)

var (
	ErrEmptyGeneration  = errors.New("generation service returned nothing")
	ErrNotConfigured    = errors.New("generation service is not configured")
	ErrGenerationFailed = errors.New("generation service request failed")
)

type Generator interface {
	// Reference solves the problem in the learner's known language.
	Reference(ctx context.Context, problem, language string) (string, error)
	// Starter scaffolds the problem in the language being learned, unsolved.
	Starter(ctx context.Context, problem, language string) (string, error)
	// Practice writes a new problem statement similar to q.
	Practice(ctx context.Context, q models.Question) (string, error)
}

const systemPrompt = "You are a programming language tutor helping users learn new languages through coding problems."

// ProblemText renders a question as the problem statement sent to the model.
func ProblemText(q models.Question) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\n%s\n", q.Title, q.Description)
	if q.ExampleOutput != "" {
		fmt.Fprintf(&b, "\nExpected output:\n%s\n", q.ExampleOutput)
	}
	if len(q.Constraints) > 0 {
		b.WriteString("\nConstraints:\n")
		for _, c := range q.Constraints {
			fmt.Fprintf(&b, "- %s\n", c)
		}
	}
	return b.String()
}

func referencePrompt(problem, language string) string {
	return fmt.Sprintf("Generate a complete, clean, and well-commented solution for the following problem in %s. "+
		"Only output the code block, nothing else.\n\nProblem: %s", language, problem)
}

func starterPrompt(problem, language string) string {
	return fmt.Sprintf("Generate starter code in %s for the following problem. Do NOT solve the problem.\n"+
		"Only output the code block, nothing else.\n\nProblem: %s", language, problem)
}

func practicePrompt(q models.Question) string {
	return fmt.Sprintf("Generate a new coding problem similar to this one but with different specifics:\n\n"+
		"Title: %s\nChapter: %s\nDescription: %s\n\n"+
		"Reply with the title, a description and the exact expected output.", q.Title, q.Chapter, q.Description)
}

// StripFences returns the body of the first markdown code block, or the
// trimmed text when there is none.
func StripFences(text string) string {
	start := strings.Index(text, "```")
	if start < 0 {
		return strings.TrimSpace(text)
	}
	body := text[start+3:]
	// drop the info string ("python", "rust", ...)
	if nl := strings.IndexByte(body, '\n'); nl >= 0 {
		body = body[nl+1:]
	} else {
		return ""
	}
	if end := strings.Index(body, "```"); end >= 0 {
		body = body[:end]
	}
	return strings.TrimRight(body, " \t\r\n")
}
