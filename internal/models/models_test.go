package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExecutionResultErrored(t *testing.T) {
	assert.False(t, ExecutionResult{}.Errored(), "silent program is not an error")
	assert.False(t, ExecutionResult{Stdout: "6\n"}.Errored())
	assert.True(t, ExecutionResult{Stderr: "panic: boom"}.Errored())
}

func TestCompletedSet(t *testing.T) {
	s := NewCompletedSet(1, 3)
	assert.True(t, s.Has(1))
	assert.False(t, s.Has(2))
	assert.True(t, s.Has(3))
}

func TestLessonStateAvailable(t *testing.T) {
	assert.True(t, StateActive.Available())
	assert.True(t, StateAvailable.Available())
	assert.False(t, StateLocked.Available())
	assert.False(t, StateComplete.Available())
}

func TestSubmissionEmpty(t *testing.T) {
	assert.True(t, Submission{ReferenceCode: "print(6)", TargetCode: " \n\t"}.Empty())
	assert.True(t, Submission{TargetCode: "fn main() {}"}.Empty())
	assert.False(t, Submission{ReferenceCode: "print(6)", TargetCode: "fn main() {}"}.Empty())
}
