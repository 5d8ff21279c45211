package events

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/voybot/internal/section"
)

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestRunLog_LineFormat(t *testing.T) {
	var buf bytes.Buffer
	rl := NewRunLog(&buf, discard())
	rl.now = func() time.Time { return time.Date(2024, 5, 17, 9, 3, 4, 0, time.UTC) }

	rl.Info("Roma", "added wikidata")
	rl.Violation("Milano", section.Violation{Kind: section.MissingSectionKind, Location: "page", Detail: "Da sapere"})
	rl.Follow("Napoli", "ambiguous\nsection")

	assert.Equal(t,
		"2024-05-17 09:03:04 [info] Roma: added wikidata\n"+
			"2024-05-17 09:03:04 [violation] Milano: missing_section at page: Da sapere\n"+
			"2024-05-17 09:03:04 [follow] Napoli: ambiguous section\n",
		buf.String())

	follow := rl.Filter(KindFollow)
	require.Len(t, follow, 1)
	assert.Equal(t, "Napoli", follow[0].Page)
	assert.Len(t, rl.Events(), 3)
}

func TestOpenRunLog_Appends(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")

	rl, err := OpenRunLog(dir, "itemlist-wikidata", discard())
	require.NoError(t, err)
	rl.Save("Roma", "Completo itemlists con codici wikidata")
	require.NoError(t, rl.Close())

	rl, err = OpenRunLog(dir, "itemlist-wikidata", discard())
	require.NoError(t, err)
	rl.Warning("Milano", "no Citylist")
	require.NoError(t, rl.Close())
	require.NoError(t, rl.Close())

	data, err := os.ReadFile(filepath.Join(dir, "itemlist-wikidata.log"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "[save] Roma: Completo itemlists")
	assert.Contains(t, lines[1], "[warning] Milano: no Citylist")
}

func TestOpenRunLog_MemoryOnly(t *testing.T) {
	rl, err := OpenRunLog("", "x", discard())
	require.NoError(t, err)
	rl.Info("p", "m")
	assert.Len(t, rl.Events(), 1)
	assert.NoError(t, rl.Close())
}
