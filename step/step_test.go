package step_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/polyfile/pfdbg/step"
)

func TestControllerDefaultsToRunning(t *testing.T) {
	t.Parallel()

	c := step.NewController()
	assert.Equal(t, step.Running, c.Mode())
	assert.False(t, c.ShouldBreak(true))
	assert.False(t, c.ShouldBreak(false))
}

func TestControllerSingleStepping(t *testing.T) {
	t.Parallel()

	c := step.NewController()
	c.Step()

	assert.Equal(t, step.SingleStepping, c.Mode())
	assert.True(t, c.ShouldBreak(true))
	assert.True(t, c.ShouldBreak(false))
}

func TestControllerNextOnlyBreaksOnMatch(t *testing.T) {
	t.Parallel()

	c := step.NewController()
	c.Next()

	assert.Equal(t, step.Next, c.Mode())
	assert.True(t, c.ShouldBreak(true))
	assert.False(t, c.ShouldBreak(false))
}

func TestControllerContinueResetsToRunning(t *testing.T) {
	t.Parallel()

	c := step.NewController()
	c.Step()
	c.Continue()

	assert.Equal(t, step.Running, c.Mode())
	assert.False(t, c.ShouldBreak(true))
}

func TestModeString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "running", step.Running.String())
	assert.Equal(t, "single-stepping", step.SingleStepping.String())
	assert.Equal(t, "next", step.Next.String())
}
