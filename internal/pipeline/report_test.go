package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFollowUpList(t *testing.T) {
	s := Summary{
		FinishedAt: time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC),
		FollowUps: []FollowUp{
			{Page: "Roma", Reason: "in Capitali"},
			{Page: "Roma", Reason: "no wikidata item linked"},
			{Page: "Milano", Reason: "in Capitali"},
		},
	}

	wiki, err := s.FollowUpList(ListWikitext)
	require.NoError(t, err)
	assert.Equal(t,
		"* [[Roma]] <small>(check eseguito il 2024-05-01 10:30:00)</small>\n"+
			"* [[Milano]] <small>(check eseguito il 2024-05-01 10:30:00)</small>\n",
		string(wiki))

	js, err := s.FollowUpList(ListJSON)
	require.NoError(t, err)
	assert.JSONEq(t, `["Roma","Milano"]`, string(js))

	text, err := s.FollowUpList(ListText)
	require.NoError(t, err)
	assert.Equal(t, "Roma\nMilano\n", string(text))

	_, err = s.FollowUpList("csv")
	assert.Error(t, err)

	empty, err := Summary{}.FollowUpList(ListJSON)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(empty))
}
