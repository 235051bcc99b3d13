package cli_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlanCommand(t *testing.T) {
	t.Run("PreviewsChunking", func(t *testing.T) {
		ops := writeOpsFile(t, deleteOpsYAML(5))

		out, _, err := runRoot(t, nil, "plan", "--input", ops, "--batch-size", "2")
		require.NoError(t, err)

		assert.Contains(t, out, "Operations:")
		assert.Contains(t, out, "Batch size:")
		assert.Contains(t, out, "Batches:")
		assert.Contains(t, out, "BATCH")
	})

	t.Run("JSONReportsSizes", func(t *testing.T) {
		ops := writeOpsFile(t, deleteOpsYAML(5))

		out, _, err := runRoot(t, nil, "plan", "--input", ops, "--batch-size", "2", "--output", "json")
		require.NoError(t, err)

		var view struct {
			Operations int   `json:"operations"`
			BatchSize  int   `json:"batch_size"`
			Batches    int   `json:"batches"`
			Sizes      []int `json:"sizes"`
		}
		require.NoError(t, json.Unmarshal([]byte(out), &view))
		assert.Equal(t, 5, view.Operations)
		assert.Equal(t, 2, view.BatchSize)
		assert.Equal(t, 3, view.Batches)
		assert.Equal(t, []int{2, 2, 1}, view.Sizes)
	})

	t.Run("EmptyDocument", func(t *testing.T) {
		out, _, err := runRoot(t, nil, "plan", "--input", writeOpsFile(t, "[]\n"), "--output", "json")
		require.NoError(t, err)

		var view struct {
			Operations int   `json:"operations"`
			Batches    int   `json:"batches"`
			Sizes      []int `json:"sizes"`
		}
		require.NoError(t, json.Unmarshal([]byte(out), &view))
		assert.Zero(t, view.Operations)
		assert.Zero(t, view.Batches)
		assert.Empty(t, view.Sizes)
	})

	t.Run("ReadsStdin", func(t *testing.T) {
		stdin := strings.NewReader(`[{"action":"delete","key":"item-1"}]`)

		out, _, err := runRoot(t, stdin, "plan", "--input", "-", "--output", "json")
		require.NoError(t, err)
		assert.Contains(t, out, `"operations": 1`)
	})

	t.Run("RejectsInvalidDocument", func(t *testing.T) {
		ops := writeOpsFile(t, "- action: update\n  key: item-1\n")

		_, _, err := runRoot(t, nil, "plan", "--input", ops)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "at least one field")
	})

	t.Run("RejectsBatchSizeOutOfBounds", func(t *testing.T) {
		ops := writeOpsFile(t, deleteOpsYAML(1))

		_, _, err := runRoot(t, nil, "plan", "--input", ops, "--batch-size", "0")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "batch size")

		_, _, err = runRoot(t, nil, "plan", "--input", ops, "--batch-size", "1001")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "batch size")
	})
}
