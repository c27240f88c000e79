package envutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDuration(t *testing.T) {
	t.Setenv("X_DUR", "90")
	assert.Equal(t, 90*time.Second, Duration("X_DUR", time.Second))

	t.Setenv("X_DUR", "2m")
	assert.Equal(t, 2*time.Minute, Duration("X_DUR", time.Second))

	t.Setenv("X_DUR", "soon")
	assert.Equal(t, time.Second, Duration("X_DUR", time.Second))
}

func TestBoolAndList(t *testing.T) {
	t.Setenv("X_BOOL", "yes")
	assert.True(t, Bool("X_BOOL", false))
	t.Setenv("X_BOOL", "maybe")
	assert.True(t, Bool("X_BOOL", true))

	t.Setenv("X_LIST", " a, ,b ")
	assert.Equal(t, []string{"a", "b"}, List("X_LIST", nil))
	assert.Equal(t, []string{"d"}, List("X_UNSET_LIST", []string{"d"}))
}
