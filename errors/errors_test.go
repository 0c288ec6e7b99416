package errors

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrap(t *testing.T) {
	original := New("original")
	wrapped := Wrap(original, "wrapped")

	assert.Contains(t, wrapped.Error(), "wrapped")
	assert.Contains(t, wrapped.Error(), "original")
	assert.True(t, Is(wrapped, original))
}

func TestBuildFailure(t *testing.T) {
	cause := New("exit status 101")
	err := BuildFailure(cause, "emoji")

	require.Error(t, err)
	assert.True(t, IsBuildFailure(err))
	assert.False(t, IsNoArtifact(err))
	assert.Contains(t, err.Error(), "build of emoji failed")
	assert.Contains(t, err.Error(), "exit status 101")
}

func TestSearchFailure(t *testing.T) {
	err := SearchFailure(New("connection reset"), "files")

	assert.True(t, Is(err, ErrSearchFailed))
	assert.Contains(t, err.Error(), "search via files failed")
}

func TestNewNotFoundError(t *testing.T) {
	err := NewNotFoundError("plugin %q", "clipboard")

	assert.True(t, IsPluginNotFound(err))
	assert.Contains(t, err.Error(), "clipboard")
}

func TestPredicatesNil(t *testing.T) {
	assert.False(t, IsBuildFailure(nil))
	assert.False(t, IsNoArtifact(nil))
	assert.False(t, IsPluginNotFound(nil))
}

func TestWithHint(t *testing.T) {
	err := WithHint(New("root directory missing"), "pass the plugin root as the first argument")

	hints := GetAllHints(err)
	require.Len(t, hints, 1)
	assert.Equal(t, "pass the plugin root as the first argument", hints[0])
}
