package local

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebSearch_Search(t *testing.T) {
	w := NewWebSearch(nil)

	resp, err := w.Search(context.Background(), "golang channels")
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)

	result := resp.Results[0]
	assert.Equal(t, "golang channels", result.ID)
	assert.Equal(t, "Search Google for 'golang channels'", result.Title)
	assert.Equal(t, "Open in browser", result.Subtitle)

	action, ok := result.PrimaryAction()
	require.True(t, ok)
	assert.Equal(t, "search", action.ID)
	assert.Equal(t, "Enter", action.Shortcut)
}

func TestWebSearch_EmptyQuery(t *testing.T) {
	resp, err := NewWebSearch(nil).Search(context.Background(), "   ")
	require.NoError(t, err)
	assert.Empty(t, resp.Results)
}

func TestWebSearch_Execute(t *testing.T) {
	var opened []string
	w := NewWebSearch(func(ctx context.Context, target string) error {
		opened = append(opened, target)
		return nil
	})

	msg, err := w.Execute(context.Background(), "a&b c", "search")
	require.NoError(t, err)
	assert.Equal(t, "Opened Google search", msg)
	assert.Equal(t, []string{"https://www.google.com/search?q=a%26b+c"}, opened)

	_, err = w.Execute(context.Background(), "x", "copy")
	assert.Error(t, err)
}

func TestWebSearch_Info(t *testing.T) {
	info := NewWebSearch(nil).Info()
	assert.Equal(t, WebSearchID, info.ID)
	assert.Equal(t, "g", info.Prefix)
}
