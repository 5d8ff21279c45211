package confirm

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAlways(t *testing.T) {
	ok, err := Always(true).Confirm(context.Background(), Request{Page: "Roma"})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = Always(false).Confirm(context.Background(), Request{Page: "Roma"})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPrompt_RefusesWithoutTerminal(t *testing.T) {
	f, err := os.Create(filepath.Join(t.TempDir(), "stdin"))
	require.NoError(t, err)
	defer f.Close()

	var out bytes.Buffer
	ok, err := NewPrompt(f, &out).Confirm(context.Background(), Request{Page: "Roma", Before: "a", After: "b"})
	assert.ErrorIs(t, err, ErrNotInteractive)
	assert.False(t, ok)
	assert.Empty(t, out.String())
}

func TestRender(t *testing.T) {
	before := "a\nb\nc\nd\ne\nf\n"
	after := "a\nb\nX\nd\ne\nf\n"
	assert.Equal(t, "@@\n  b\n- c\n+ X\n  d\n", Render(before, after, 1))
	assert.Equal(t, "", Render(before, before, 3))
}

func TestStats(t *testing.T) {
	added, removed := Stats("a\nb\n", "a\nc\nd\n")
	assert.Equal(t, 2, added)
	assert.Equal(t, 1, removed)
}
