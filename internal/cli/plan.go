package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/bulklist/bulklist/internal/batch"
	"github.com/bulklist/bulklist/internal/listops"
)

// planParams holds the flag values for the plan command.
type planParams struct {
	input     string
	batchSize int
	output    string
}

// NewPlanCmd creates the plan command, which previews how a document would
// be cut into batches without any network access.
func NewPlanCmd() *cobra.Command {
	var params planParams

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Preview how a document would be cut into batches",
		Long: `Plan parses and validates an operations document and reports how apply
would chunk it: the operation count, the number of batches, and each batch's
size. Nothing is sent to the service.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return executePlan(cmd, params)
		},
	}

	cmd.Flags().StringVarP(&params.input, "input", "i", "", `operations document (YAML or JSON); "-" reads stdin`)
	cmd.Flags().IntVar(&params.batchSize, "batch-size", 0, "operations per batch (overrides config)")
	cmd.Flags().StringVarP(&params.output, "output", "o", outputFormatText, "output format: text or json")
	_ = cmd.MarkFlagRequired("input")

	return cmd
}

func executePlan(cmd *cobra.Command, params planParams) error {
	cfg := configFromContext(cmd.Context())
	size := cfg.Dispatch.BatchSize
	if cmd.Flags().Changed("batch-size") {
		size = params.batchSize
	}
	if size < batch.MinBatchSize || size > batch.MaxBatchSize {
		return fmt.Errorf("%w: got %d", batch.ErrInvalidBatchSize, size)
	}

	doc, err := readDocument(cmd, params.input)
	if err != nil {
		return err
	}
	changes, err := listops.ParseDocument(doc)
	if err != nil {
		return err
	}
	// Serializing validates every change, so plan rejects exactly the
	// documents apply would reject.
	descriptors, err := listops.SerializeAll(changes)
	if err != nil {
		return err
	}

	view := planView{
		Operations: len(descriptors),
		BatchSize:  size,
		Batches:    batch.Count(len(descriptors), size),
		Sizes:      batch.Plan(len(descriptors), size),
	}

	switch params.output {
	case outputFormatJSON:
		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		return encoder.Encode(view)
	case outputFormatText:
		return renderPlanText(cmd.OutOrStdout(), view)
	default:
		return fmt.Errorf("unknown output format %q (expected text or json)", params.output)
	}
}

// planView is the JSON rendering of a chunking preview.
type planView struct {
	Operations int   `json:"operations"`
	BatchSize  int   `json:"batch_size"`
	Batches    int   `json:"batches"`
	Sizes      []int `json:"sizes,omitempty"`
}

func renderPlanText(w io.Writer, view planView) error {
	p := message.NewPrinter(language.English)
	tw := tabwriter.NewWriter(w, 0, 0, tabPadding, ' ', 0)
	p.Fprintf(tw, "Operations:\t%d\n", view.Operations)
	p.Fprintf(tw, "Batch size:\t%d\n", view.BatchSize)
	p.Fprintf(tw, "Batches:\t%d\n", view.Batches)
	if err := tw.Flush(); err != nil {
		return err
	}

	if len(view.Sizes) == 0 {
		return nil
	}

	if _, err := fmt.Fprintln(w); err != nil {
		return err
	}
	tw = tabwriter.NewWriter(w, 0, 0, tabPadding, ' ', 0)
	fmt.Fprintln(tw, "BATCH\tOPS")
	fmt.Fprintln(tw, "-----\t---")
	for i, size := range view.Sizes {
		p.Fprintf(tw, "%d\t%d\n", i+1, size)
	}
	return tw.Flush()
}
