package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/bulklist/bulklist/internal/batch"
	"github.com/bulklist/bulklist/internal/config"
	"github.com/bulklist/bulklist/internal/dispatch"
	"github.com/bulklist/bulklist/internal/listops"
	"github.com/bulklist/bulklist/internal/transport"
)

// applyParams holds the flag values for the apply command.
type applyParams struct {
	input       string
	service     string
	list        string
	batchSize   int
	concurrency int
	onError     string
	output      string
	quiet       bool
}

// NewApplyCmd creates the apply command, which parses an operations
// document, cuts it into batches, and dispatches them against the service.
func NewApplyCmd() *cobra.Command {
	var params applyParams

	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Apply a document of list operations in batches",
		Long: `Apply parses a YAML or JSON document of list operations, cuts it into
size-limited batches, and submits them with a bounded number of requests in
flight. Every batch is submitted exactly once; the command reports one
aggregated result and exits non-zero when any batch failed.`,
		Example: `  # Apply operations from a file
  bulklist apply --input ops.yaml

  # Abort each batch on its first failing operation
  bulklist apply --input ops.yaml --on-error return

  # Read operations from stdin, print the aggregated result as JSON
  cat ops.json | bulklist apply --input - --output json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return executeApply(cmd, params)
		},
	}

	cmd.Flags().StringVarP(&params.input, "input", "i", "", `operations document (YAML or JSON); "-" reads stdin`)
	cmd.Flags().StringVar(&params.service, "service", "", "service base URL (overrides config)")
	cmd.Flags().StringVar(&params.list, "list", "", "target list name (overrides config)")
	cmd.Flags().IntVar(&params.batchSize, "batch-size", 0, "operations per batch (overrides config)")
	cmd.Flags().IntVar(&params.concurrency, "concurrency", 0, "batches in flight at once (overrides config)")
	cmd.Flags().StringVar(&params.onError, "on-error", "", `intra-batch directive, "continue" or "return" (overrides config)`)
	cmd.Flags().StringVarP(&params.output, "output", "o", outputFormatText, "output format: text or json")
	cmd.Flags().BoolVarP(&params.quiet, "quiet", "q", false, "print only the final status line")
	_ = cmd.MarkFlagRequired("input")

	return cmd
}

// executeApply runs the full apply flow: read, parse, dispatch, render.
func executeApply(cmd *cobra.Command, params applyParams) error {
	ctx := cmd.Context()
	cfg := applyFlagOverrides(configFromContext(ctx), cmd, params)

	doc, err := readDocument(cmd, params.input)
	if err != nil {
		return err
	}

	changes, err := listops.ParseDocument(doc)
	if err != nil {
		return err
	}
	descriptors, err := listops.SerializeAll(changes)
	if err != nil {
		return err
	}
	queue := listops.NewQueue(descriptors)

	if cfg.Service.List == "" {
		return fmt.Errorf("%w (set --list, BULKLIST_LIST, or service.list in the config)", transport.ErrListRequired)
	}
	tsp, err := transport.New(transportConfig(cfg))
	if err != nil {
		return err
	}

	// Warn-only compatibility probe: the batch endpoint stays the
	// authoritative answer, so an unreachable /info never blocks an apply.
	// An empty queue resolves without any network activity, probe included.
	if !queue.IsEmpty() {
		checkServiceProtocol(ctx, tsp)
	}

	directive, err := batch.ParseDirective(cfg.Dispatch.OnError)
	if err != nil {
		return err
	}
	dispatcher, err := dispatch.New(tsp, dispatch.Options{
		BatchSize:   cfg.Dispatch.BatchSize,
		Concurrency: cfg.Dispatch.Concurrency,
		OnError:     directive,
		OnProgress: func(s batch.ProgressSnapshot) {
			logger.Debug().Ctx(ctx).
				Int("done_batches", s.DoneBatches).
				Int("total_batches", s.TotalBatches).
				Int("done_ops", s.DoneOps).
				Msg("batch completed")
		},
	})
	if err != nil {
		return err
	}

	result, err := dispatcher.Dispatch(ctx, queue)
	if err != nil {
		return err
	}

	if err := renderResult(cmd.OutOrStdout(), result, params.output, params.quiet); err != nil {
		return err
	}

	if result.Failed() {
		return &ExitError{ExitCode: 1, Reason: result.Message}
	}
	return nil
}

// applyFlagOverrides copies the loaded config and overlays flags the user
// set explicitly. The copy keeps repeated executions, as in tests,
// independent of each other.
func applyFlagOverrides(loaded *config.Config, cmd *cobra.Command, params applyParams) *config.Config {
	cfg := *loaded
	if cmd.Flags().Changed("service") {
		cfg.Service.BaseURL = params.service
	}
	if cmd.Flags().Changed("list") {
		cfg.Service.List = params.list
	}
	if cmd.Flags().Changed("batch-size") {
		cfg.Dispatch.BatchSize = params.batchSize
	}
	if cmd.Flags().Changed("concurrency") {
		cfg.Dispatch.Concurrency = params.concurrency
	}
	if cmd.Flags().Changed("on-error") {
		cfg.Dispatch.OnError = params.onError
	}
	return &cfg
}

// transportConfig maps the service config section onto a transport config.
func transportConfig(cfg *config.Config) transport.Config {
	return transport.Config{
		BaseURL:   cfg.Service.BaseURL,
		List:      cfg.Service.List,
		Timeout:   time.Duration(cfg.Service.TimeoutSeconds) * time.Second,
		Retries:   cfg.Service.Retries,
		UserAgent: cfg.Service.UserAgent,
	}
}

// readDocument loads the operations document from a file or stdin.
func readDocument(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("reading operations from stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading operations document: %w", err)
	}
	return data, nil
}

// checkServiceProtocol warns when the service is unreachable or speaks an
// incompatible batch protocol. Dispatching proceeds either way.
func checkServiceProtocol(ctx context.Context, tsp *transport.HTTP) {
	info, err := tsp.Info(ctx)
	if err != nil {
		logger.Warn().Ctx(ctx).Err(err).Msg("could not fetch service info")
		return
	}
	if err := transport.CheckProtocol(info); err != nil {
		logger.Warn().Ctx(ctx).Err(err).Msg("service protocol mismatch")
	}
}
