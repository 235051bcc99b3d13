package cli_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bulklist/bulklist/internal/cli"
	"github.com/bulklist/bulklist/internal/config"
)

// receivedBatch records one batch envelope as the fake service saw it.
type receivedBatch struct {
	Seq        int               `json:"seq"`
	OnError    string            `json:"on_error"`
	Operations []json.RawMessage `json:"operations"`
}

// fakeService is a minimal in-process list service: GET /info plus the
// batch endpoint. Per-batch transport failures and per-key operation
// failures are configurable.
type fakeService struct {
	srv *httptest.Server

	mu       sync.Mutex
	batches  []receivedBatch
	infoHits int

	protocol string
	failSeq  map[int]int       // batch seq -> HTTP status to answer with
	failKeys map[string]string // operation key -> failure message
}

func newFakeService(t *testing.T) *fakeService {
	t.Helper()
	f := &fakeService{
		protocol: "1.0.0",
		failSeq:  map[int]int{},
		failKeys: map[string]string{},
	}
	f.srv = httptest.NewServer(http.HandlerFunc(f.handle))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeService) handle(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method == http.MethodGet && r.URL.Path == "/info" {
		f.mu.Lock()
		f.infoHits++
		protocol := f.protocol
		f.mu.Unlock()
		fmt.Fprintf(w, `{"name":"listd","version":"9.9.9","protocol":%q}`, protocol)
		return
	}

	var envelope struct {
		Batch receivedBatch `json:"batch"`
	}
	if err := json.NewDecoder(r.Body).Decode(&envelope); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	f.mu.Lock()
	f.batches = append(f.batches, envelope.Batch)
	status := f.failSeq[envelope.Batch.Seq]
	f.mu.Unlock()

	if status != 0 {
		w.WriteHeader(status)
		fmt.Fprint(w, `{"error":"injected failure"}`)
		return
	}

	results := make([]map[string]any, 0, len(envelope.Batch.Operations))
	for _, op := range envelope.Batch.Operations {
		var descriptor struct {
			Key string `json:"key"`
		}
		_ = json.Unmarshal(op, &descriptor)
		if msg, failed := f.failKeys[descriptor.Key]; failed {
			results = append(results, map[string]any{
				"key": descriptor.Key, "status": "error", "code": 409, "message": msg,
			})
			continue
		}
		results = append(results, map[string]any{"key": descriptor.Key, "status": "ok"})
	}
	_ = json.NewEncoder(w).Encode(map[string]any{"list": "tasks", "results": results})
}

// received returns a copy of the batch envelopes seen so far.
func (f *fakeService) received() []receivedBatch {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]receivedBatch(nil), f.batches...)
}

// infoCount returns how many times GET /info was hit.
func (f *fakeService) infoCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.infoHits
}

// sizesBySeq maps batch seq to operation count for order-independent
// assertions; completion order varies with concurrent submissions.
func (f *fakeService) sizesBySeq() map[int]int {
	sizes := make(map[int]int)
	for _, b := range f.received() {
		sizes[b.Seq] = len(b.Operations)
	}
	return sizes
}

// runRoot executes the root command with the given args against an isolated
// config home, capturing stdout and stderr.
func runRoot(t *testing.T, stdin io.Reader, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv(config.EnvHome, t.TempDir())

	root := cli.NewRootCmd("test")
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	if stdin != nil {
		root.SetIn(stdin)
	}
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), errOut.String(), err
}

// writeOpsFile writes an operations document to a temp file.
func writeOpsFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ops.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

// deleteOpsYAML builds a YAML document of n delete operations with keys
// item-1 through item-n.
func deleteOpsYAML(n int) string {
	var sb strings.Builder
	for i := 1; i <= n; i++ {
		fmt.Fprintf(&sb, "- action: delete\n  key: item-%d\n", i)
	}
	return sb.String()
}

func TestApplyCommand(t *testing.T) {
	t.Run("AppliesDocumentInBatches", func(t *testing.T) {
		svc := newFakeService(t)
		ops := writeOpsFile(t, deleteOpsYAML(5))

		out, _, err := runRoot(t, nil,
			"apply", "--input", ops,
			"--service", svc.srv.URL, "--list", "tasks",
			"--batch-size", "2",
		)
		require.NoError(t, err)

		assert.Equal(t, map[int]int{1: 2, 2: 2, 3: 1}, svc.sizesBySeq())
		for _, b := range svc.received() {
			assert.Equal(t, "continue", b.OnError)
		}

		assert.Contains(t, out, "SUCCESS: all batches completed")
		assert.Contains(t, out, "Operations:")
		assert.Contains(t, out, "Batches:")
		assert.Contains(t, out, "3")
	})

	t.Run("SingleBatchJSONEmbedsServicePayload", func(t *testing.T) {
		svc := newFakeService(t)
		ops := writeOpsFile(t, deleteOpsYAML(2))

		out, _, err := runRoot(t, nil,
			"apply", "--input", ops,
			"--service", svc.srv.URL, "--list", "tasks",
			"--output", "json",
		)
		require.NoError(t, err)

		var view struct {
			Status   string          `json:"status"`
			Batches  int             `json:"batches"`
			Response json.RawMessage `json:"response"`
		}
		require.NoError(t, json.Unmarshal([]byte(out), &view))
		assert.Equal(t, "success", view.Status)
		assert.Equal(t, 1, view.Batches)

		// A single batch yields the service document itself, not a
		// one-element array.
		var payload struct {
			List    string           `json:"list"`
			Results []map[string]any `json:"results"`
		}
		require.NoError(t, json.Unmarshal(view.Response, &payload))
		assert.Equal(t, "tasks", payload.List)
		assert.Len(t, payload.Results, 2)
	})

	t.Run("MultiBatchJSONResponseIsArray", func(t *testing.T) {
		svc := newFakeService(t)
		ops := writeOpsFile(t, deleteOpsYAML(3))

		out, _, err := runRoot(t, nil,
			"apply", "--input", ops,
			"--service", svc.srv.URL, "--list", "tasks",
			"--batch-size", "1", "--output", "json",
		)
		require.NoError(t, err)

		var view struct {
			Response []json.RawMessage `json:"response"`
		}
		require.NoError(t, json.Unmarshal([]byte(out), &view))
		assert.Len(t, view.Response, 3)
	})

	t.Run("OperationFailureExitsNonZero", func(t *testing.T) {
		svc := newFakeService(t)
		svc.failKeys["item-2"] = "duplicate key"
		ops := writeOpsFile(t, deleteOpsYAML(3))

		out, _, err := runRoot(t, nil,
			"apply", "--input", ops,
			"--service", svc.srv.URL, "--list", "tasks",
		)
		require.Error(t, err)

		var exitErr *cli.ExitError
		require.ErrorAs(t, err, &exitErr)
		assert.Equal(t, 1, exitErr.ExitCode)
		assert.Equal(t, "duplicate key", exitErr.Reason)
		assert.Contains(t, out, "ERROR: duplicate key")
	})

	t.Run("TransportFailureDoesNotStopSiblings", func(t *testing.T) {
		svc := newFakeService(t)
		svc.failSeq[2] = http.StatusInternalServerError
		ops := writeOpsFile(t, deleteOpsYAML(3))

		out, _, err := runRoot(t, nil,
			"apply", "--input", ops,
			"--service", svc.srv.URL, "--list", "tasks",
			"--batch-size", "1",
		)
		require.Error(t, err)

		var exitErr *cli.ExitError
		require.ErrorAs(t, err, &exitErr)
		assert.Contains(t, exitErr.Reason, "status 500")

		// All three batches reached the service despite the failure.
		assert.Len(t, svc.received(), 3)
		assert.Contains(t, out, "Failures:")
	})

	t.Run("EmptyDocumentMakesNoRequests", func(t *testing.T) {
		svc := newFakeService(t)
		ops := writeOpsFile(t, "[]\n")

		out, _, err := runRoot(t, nil,
			"apply", "--input", ops,
			"--service", svc.srv.URL, "--list", "tasks",
		)
		require.NoError(t, err)

		assert.Empty(t, svc.received())
		assert.Zero(t, svc.infoCount())
		assert.Contains(t, out, "SUCCESS: all batches completed")
	})

	t.Run("QuietPrintsOnlyStatusLine", func(t *testing.T) {
		svc := newFakeService(t)
		ops := writeOpsFile(t, deleteOpsYAML(2))

		out, _, err := runRoot(t, nil,
			"apply", "--input", ops,
			"--service", svc.srv.URL, "--list", "tasks",
			"--quiet",
		)
		require.NoError(t, err)
		assert.Equal(t, "SUCCESS: all batches completed\n", out)
	})

	t.Run("ReadsStdin", func(t *testing.T) {
		svc := newFakeService(t)
		stdin := strings.NewReader(`[{"action":"delete","key":"item-1"}]`)

		_, _, err := runRoot(t, stdin,
			"apply", "--input", "-",
			"--service", svc.srv.URL, "--list", "tasks",
		)
		require.NoError(t, err)
		require.Len(t, svc.received(), 1)
		assert.Len(t, svc.received()[0].Operations, 1)
	})

	t.Run("MissingListFails", func(t *testing.T) {
		svc := newFakeService(t)
		ops := writeOpsFile(t, deleteOpsYAML(1))

		_, _, err := runRoot(t, nil,
			"apply", "--input", ops, "--service", svc.srv.URL,
		)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "list name is required")
	})

	t.Run("InvalidDocumentFails", func(t *testing.T) {
		ops := writeOpsFile(t, "- action: explode\n  key: item-1\n")

		_, _, err := runRoot(t, nil,
			"apply", "--input", ops,
			"--service", "https://lists.example.com", "--list", "tasks",
		)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown action")
	})

	t.Run("UnknownOnErrorFails", func(t *testing.T) {
		svc := newFakeService(t)
		ops := writeOpsFile(t, deleteOpsYAML(1))

		_, _, err := runRoot(t, nil,
			"apply", "--input", ops,
			"--service", svc.srv.URL, "--list", "tasks",
			"--on-error", "halt",
		)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "error directive")
	})

	t.Run("FlagsOverrideFileAndEnv", func(t *testing.T) {
		svc := newFakeService(t)
		ops := writeOpsFile(t, deleteOpsYAML(3))

		home := t.TempDir()
		t.Setenv(config.EnvHome, home)
		require.NoError(t, os.WriteFile(
			filepath.Join(home, "config.yaml"),
			[]byte("dispatch:\n  batch_size: 1\n  concurrency: 2\n  on_error: continue\n"),
			0600,
		))
		t.Setenv(config.EnvOnError, "return")

		root := cli.NewRootCmd("test")
		var out bytes.Buffer
		root.SetOut(&out)
		root.SetErr(&out)
		root.SetArgs([]string{
			"apply", "--input", ops,
			"--service", svc.srv.URL, "--list", "tasks",
			"--batch-size", "3",
		})
		require.NoError(t, root.Execute())

		// The flag beats the file's batch_size; the env beats the file's
		// on_error.
		received := svc.received()
		require.Len(t, received, 1)
		assert.Len(t, received[0].Operations, 3)
		assert.Equal(t, "return", received[0].OnError)
	})

	t.Run("MissingInputFlagFails", func(t *testing.T) {
		_, _, err := runRoot(t, nil, "apply")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "input")
	})
}
