package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestChanModeHierarchy(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)

	fixtures := []struct {
		mode string
		want string
	}{
		{mode: "-v", want: ""},  // nothing to remove
		{mode: "x", want: ""},   // not a remembered mode
		{mode: "v", want: "v"},  // inserted
		{mode: "o", want: "o"},  // upgraded
		{mode: "h", want: "o"},  // never downgraded
		{mode: "-h", want: "o"}, // removal must match
		{mode: "-o", want: ""},  // removed
		{mode: "h", want: "h"},
	}

	for i, fix := range fixtures {
		require.NoError(t, s.UpdateChanMode(ctx, "#Chan", "Bob", fix.mode))
		got, err := s.ChanMode(ctx, "#chan", "bob")
		require.NoError(t, err)
		assert.Equal(t, fix.want, got, "step %d (%s)", i, fix.mode)
	}
}

func TestChanModeMissing(t *testing.T) {
	s := testStore(t)

	mode, err := s.ChanMode(context.Background(), "#chan", "nobody")
	assert.NoError(t, err)
	assert.Equal(t, "", mode)
}

func TestNewsRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)

	_, ok, err := s.News(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.SetNews(ctx, "first", "alice"))
	require.NoError(t, s.SetNews(ctx, "second", "bob"))

	news, ok, err := s.News(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "second", news.Text)
	assert.Equal(t, "bob", news.Setter)
}

func TestCommandLogTrimmed(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)

	for i := 0; i < maxEntries+5; i++ {
		require.NoError(t, s.LogCommand(ctx, "bob!b@host", fmt.Sprintf("cmd %d", i)))
	}

	all, err := s.RecentCommands(ctx, maxEntries*2)
	require.NoError(t, err)
	assert.Len(t, all, maxEntries)
	assert.Equal(t, fmt.Sprintf("cmd %d", maxEntries+4), all[0].Command)
	assert.Equal(t, "cmd 5", all[len(all)-1].Command)
}
