package historystore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"webpilot/internal/domain/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func record(step int, url string, results ...entity.ActionResult) entity.StepRecord {
	return entity.StepRecord{
		StepNumber: step,
		ProposedActions: []entity.ActionIntent{
			{Name: "click_element", Params: map[string]any{"index": float64(step)}},
		},
		Results: results,
		State: entity.StateSummary{
			URL: url,
			InteractedElements: []*entity.ElementSnapshot{
				{Index: step, Tag: "button", XPath: "/html/body/button", PathHash: "abc"},
			},
		},
	}
}

func TestSinkAndLoad_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs", "history.jsonl")
	ctx := context.Background()

	sink, err := OpenSink(path, "find pricing")
	require.NoError(t, err)
	require.NoError(t, sink.Write(ctx, "run-a", record(1, "https://a.test")))
	require.NoError(t, sink.Write(ctx, "run-b", record(1, "https://b.test")))
	require.NoError(t, sink.Write(ctx, "run-a", record(2, "https://a.test/2", entity.ActionResult{IsDone: true, Success: true})))
	require.NoError(t, sink.Close())
	require.NoError(t, sink.Close())

	h, err := Load(path, "run-a")
	require.NoError(t, err)
	assert.Equal(t, "run-a", h.RunID)
	assert.Equal(t, "find pricing", h.Task)
	assert.Equal(t, []string{"https://a.test", "https://a.test/2"}, h.URLs())
	assert.True(t, h.IsDone())
	require.Len(t, h.Records[0].State.InteractedElements, 1)
	assert.Equal(t, "abc", h.Records[0].State.InteractedElements[0].PathHash)
	assert.Equal(t, float64(1), h.Records[0].ProposedActions[0].Params["index"])

	latest, err := Load(path, "")
	require.NoError(t, err)
	assert.Equal(t, "run-a", latest.RunID, "last written line belongs to run-a")

	_, err = Load(path, "run-z")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestSink_WriteAfterClose(t *testing.T) {
	sink, err := OpenSink(filepath.Join(t.TempDir(), "h.jsonl"), "")
	require.NoError(t, err)
	require.NoError(t, sink.Close())

	assert.ErrorIs(t, sink.Write(context.Background(), "r", record(1, "")), os.ErrClosed)
}

func TestLoad_TruncatedTail(t *testing.T) {
	path := filepath.Join(t.TempDir(), "h.jsonl")
	sink, err := OpenSink(path, "")
	require.NoError(t, err)
	require.NoError(t, sink.Write(context.Background(), "r", record(1, "https://a.test")))
	require.NoError(t, sink.Close())

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString(`{"run_id":"r","record":{"step_nu`)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	h, err := Load(path, "r")
	require.NoError(t, err)
	assert.Len(t, h.Records, 1)
}

func TestLoad_CorruptMiddleLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "h.jsonl")
	require.NoError(t, os.WriteFile(path, []byte("{oops\n{\"run_id\":\"r\",\"record\":{}}\n"), 0o644))

	_, err := Load(path, "r")
	assert.ErrorContains(t, err, "history line 1")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "none.jsonl"), "")
	assert.Error(t, err)
}
