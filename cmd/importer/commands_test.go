package main

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"poetry-search/internal/application/ingest"
)

func TestPrintReport_Text(t *testing.T) {
	jsonOutput = false
	report := &ingest.RunReport{
		FilesTotal:     3,
		FilesProcessed: 2,
		FilesFailed:    1,
		FailedFiles:    []string{"tang/poet.tang.0.json"},
		Poems:          5,
		Lines:          12,
		Duration:       1500 * time.Millisecond,
	}

	var out bytes.Buffer
	require.NoError(t, printReport(&out, report, 7))

	text := out.String()
	assert.Contains(t, text, "files: 3 total, 0 skipped, 2 processed, 0 empty, 1 failed")
	assert.Contains(t, text, "poems: 5, lines: 12, dropped sentences: 0")
	assert.Contains(t, text, "checkpoint: 7 files recorded")
	assert.Contains(t, text, "failed: tang/poet.tang.0.json")
}

func TestPrintReport_JSON(t *testing.T) {
	jsonOutput = true
	t.Cleanup(func() { jsonOutput = false })

	var out bytes.Buffer
	require.NoError(t, printReport(&out, &ingest.RunReport{FilesTotal: 4, Poems: 9}, 4))

	var got map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	assert.EqualValues(t, 4, got["files_total"])
	assert.EqualValues(t, 9, got["poems"])
	assert.EqualValues(t, 4, got["checkpoint_files"])
}
