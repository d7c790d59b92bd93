package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTaskQueueLinearProgress(t *testing.T) {
	var q TaskQueueState
	q.Push(TaskStep{StepDescription: "open settings"}, TaskStep{StepDescription: "click dark mode"})

	assert.Equal(t, 2, q.Remaining())

	step, ok := q.Next()
	assert.True(t, ok)
	assert.Equal(t, "open settings", step.StepDescription)

	step, ok = q.Next()
	assert.True(t, ok)
	assert.Equal(t, "click dark mode", step.StepDescription)

	_, ok = q.Next()
	assert.False(t, ok)
	assert.Equal(t, 0, q.Remaining())
}

func TestTaskQueueFailStopsServing(t *testing.T) {
	var q TaskQueueState
	q.Push(TaskStep{StepDescription: "a"}, TaskStep{StepDescription: "b"})

	_, ok := q.Next()
	assert.True(t, ok)

	q.Fail()
	_, ok = q.Next()
	assert.False(t, ok)
	assert.Equal(t, 0, q.Remaining())
}

func TestTaskQueueReset(t *testing.T) {
	var q TaskQueueState
	q.Push(TaskStep{StepDescription: "a"})
	q.Fail()
	q.Reset()

	assert.False(t, q.Failed)
	assert.Equal(t, 0, q.Remaining())

	q.Push(TaskStep{StepDescription: "b"})
	step, ok := q.Next()
	assert.True(t, ok)
	assert.Equal(t, "b", step.StepDescription)
}
