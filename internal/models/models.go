package models

import (
	"strings"
	"time"
)

// Question is one translation exercise from the static content catalog.
type Question struct {
	ID                int      `json:"id"`
	Chapter           string   `json:"chapter"`
	Title             string   `json:"title"`
	Description       string   `json:"description"`
	ExampleOutput     string   `json:"example_output"`
	Constraints       []string `json:"constraints"`
	StarterCodePrompt string   `json:"starter_code_prompt"`
}

// Chapter groups questions sharing the same Question.Chapter, in collection order.
type Chapter struct {
	Title     string     `json:"title"`
	Questions []Question `json:"questions"`
}

// Submission is one "run both" attempt. It is never persisted.
type Submission struct {
	SourceLang    string `json:"source_lang"`
	TargetLang    string `json:"target_lang"`
	ReferenceCode string `json:"reference_code"`
	TargetCode    string `json:"target_code"`
}

// Empty reports whether either program is blank.
func (s Submission) Empty() bool {
	return strings.TrimSpace(s.ReferenceCode) == "" || strings.TrimSpace(s.TargetCode) == ""
}

// ExecutionResult is what a sandbox captured for one program.
type ExecutionResult struct {
	Stdout string `json:"stdout"`
	Stderr string `json:"stderr"`
}

// Errored reports a compile or runtime failure.
func (r ExecutionResult) Errored() bool {
	return r.Stderr != ""
}

type Verdict string

const (
	VerdictPass Verdict = "pass"
	VerdictFail Verdict = "fail"
)

type FailReason string

const (
	ReasonNone           FailReason = ""
	ReasonOutputMismatch FailReason = "output_mismatch"
	ReasonReferenceError FailReason = "reference_error"
	ReasonTargetError    FailReason = "target_error"
	ReasonBothErrored    FailReason = "both_errored"
)

// GradingOutcome is the verdict for one submission. Both raw results are
// always present so the caller can show what each program printed.
type GradingOutcome struct {
	Verdict   Verdict         `json:"verdict"`
	Reason    FailReason      `json:"reason,omitempty"`
	Reference ExecutionResult `json:"reference"`
	Target    ExecutionResult `json:"target"`
}

func (o GradingOutcome) Passed() bool {
	return o.Verdict == VerdictPass
}

// CompletionRecord is keyed by (UserID, SourceLang, TargetLang, LessonID).
type CompletionRecord struct {
	UserID      int       `json:"user_id"`
	SourceLang  string    `json:"source_lang"`
	TargetLang  string    `json:"target_lang"`
	LessonID    int       `json:"lesson_id"`
	CompletedAt time.Time `json:"completed_at"`
}

// Profile is the learner's settings plus streak and XP counters.
type Profile struct {
	UserID            int        `json:"user_id"`
	Username          string     `json:"username,omitempty"`
	SourceLang        string     `json:"source_language"`
	TargetLang        string     `json:"target_language"`
	XP                int        `json:"xp"`
	CurrentStreak     int        `json:"current_streak"`
	LongestStreak     int        `json:"longest_streak"`
	LastCompletedDate *time.Time `json:"last_completed_date"`
}

// ProfileUpdate carries the fields a learner may change. Nil means "keep".
type ProfileUpdate struct {
	Username   *string `json:"username,omitempty"`
	SourceLang *string `json:"source_language,omitempty"`
	TargetLang *string `json:"target_language,omitempty"`
}

// CompletedSet holds the lesson ids completed under one language pair.
type CompletedSet map[int]struct{}

func NewCompletedSet(ids ...int) CompletedSet {
	s := make(CompletedSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

func (s CompletedSet) Has(id int) bool {
	_, ok := s[id]
	return ok
}

// LessonState is derived on every read and never stored.
type LessonState string

const (
	StateLocked    LessonState = "locked"
	StateAvailable LessonState = "available"
	StateActive    LessonState = "active"
	StateComplete  LessonState = "complete"
)

// Available is true for lessons the learner may open; the active lesson is
// always available.
func (s LessonState) Available() bool {
	return s == StateAvailable || s == StateActive
}

// User is an account row used by register/login.
type User struct {
	ID           int    `json:"id"`
	Email        string `json:"email"`
	PasswordHash string `json:"-"`
}
