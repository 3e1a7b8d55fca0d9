package feedback_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calvin-seamons/shadowscribe/internal/feedback"
)

func newStore(t *testing.T) *feedback.FileStore {
	t.Helper()
	path := filepath.Join(t.TempDir(), "feedback.jsonl")
	return feedback.NewFileStore(path)
}

func TestAppend_ThenExportReturnsIt(t *testing.T) {
	fs := newStore(t)
	rec := feedback.Record{QID: "q1", Risk: 0.2, LatencyMS: feedback.LatencyBreakdown{TotalMS: 120}}
	require.NoError(t, fs.Append(rec))

	exported, err := fs.Export()
	require.NoError(t, err)
	require.Len(t, exported, 1)
	assert.Equal(t, "q1", exported[0].QID)
}

func TestExport_IsIdempotent(t *testing.T) {
	fs := newStore(t)
	require.NoError(t, fs.Append(feedback.Record{QID: "q1"}))

	first, err := fs.Export()
	require.NoError(t, err)
	require.Len(t, first, 1)

	second, err := fs.Export()
	require.NoError(t, err)
	assert.Empty(t, second, "a record already exported must not be returned again")
}

func TestExport_OnlyReturnsUnexportedRecords(t *testing.T) {
	fs := newStore(t)
	require.NoError(t, fs.Append(feedback.Record{QID: "q1"}))
	_, err := fs.Export()
	require.NoError(t, err)

	require.NoError(t, fs.Append(feedback.Record{QID: "q2"}))
	second, err := fs.Export()
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.Equal(t, "q2", second[0].QID)
}

func TestCorrect_IsPerTool(t *testing.T) {
	fs := newStore(t)
	require.NoError(t, fs.Append(feedback.Record{
		QID: "q1",
		Plan: feedback.Plan{ToolsNeeded: []feedback.PlanEntry{
			{Tool: "character_data", Intention: "combat_info"},
			{Tool: "rulebook", Intention: "spell_lookup"},
		}},
	}))

	require.NoError(t, fs.Correct("q1", "rulebook", false, nil))

	exported, err := fs.Export()
	require.NoError(t, err)
	require.Len(t, exported, 1)
	assert.False(t, exported[0].LabelsGold["rulebook"])
	_, hasCharacter := exported[0].LabelsGold["character_data"]
	assert.False(t, hasCharacter, "correcting one tool must not fabricate a label for another")
}

func TestCorrect_UnknownQIDFails(t *testing.T) {
	fs := newStore(t)
	err := fs.Correct("nonexistent", "rulebook", true, nil)
	require.Error(t, err)
}

func TestCorrect_SetsResultQuality(t *testing.T) {
	fs := newStore(t)
	require.NoError(t, fs.Append(feedback.Record{QID: "q1"}))
	quality := 4
	require.NoError(t, fs.Correct("q1", "session_notes", true, &quality))

	exported, err := fs.Export()
	require.NoError(t, err)
	require.Len(t, exported, 1)
	require.NotNil(t, exported[0].ResultQuality)
	assert.Equal(t, 4, *exported[0].ResultQuality)
}
