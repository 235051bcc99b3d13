package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/bulklist/bulklist/internal/dispatch"
)

// Output format names accepted by --output.
const (
	outputFormatText = "text"
	outputFormatJSON = "json"
)

const tabPadding = 2

// statusOKColor returns the Lip Gloss color used for successful results.
func statusOKColor() lipgloss.Color { return lipgloss.Color("42") }

// statusErrorColor returns the Lip Gloss color used for failed results.
func statusErrorColor() lipgloss.Color { return lipgloss.Color("196") }

// isWriterTerminal reports whether w writes to an interactive terminal.
// Buffers, as used in tests and pipes, get plain output.
func isWriterTerminal(w io.Writer) bool {
	if f, ok := w.(*os.File); ok {
		return isTerminal(f)
	}
	return false
}

// renderResult writes the aggregated dispatch result in the requested
// format. quiet trims text output down to the status line.
func renderResult(w io.Writer, result *dispatch.Result, format string, quiet bool) error {
	switch format {
	case outputFormatJSON:
		return renderResultJSON(w, result)
	case outputFormatText:
		if quiet {
			_, err := fmt.Fprintln(w, statusLine(w, result))
			return err
		}
		return renderResultText(w, result)
	default:
		return fmt.Errorf("unknown output format %q (expected text or json)", format)
	}
}

// statusLine formats the one-line verdict, styled when w is a terminal.
func statusLine(w io.Writer, result *dispatch.Result) string {
	label := "SUCCESS"
	color := statusOKColor()
	if result.Failed() {
		label = "ERROR"
		color = statusErrorColor()
	}

	if !isWriterTerminal(w) {
		return fmt.Sprintf("%s: %s", label, result.Message)
	}

	style := lipgloss.NewStyle().Bold(true).Foreground(color)
	return fmt.Sprintf("%s: %s", style.Render(label), result.Message)
}

// renderResultText writes the human-readable summary: the status line, the
// dispatch totals, and one row per batch in completion order.
func renderResultText(w io.Writer, result *dispatch.Result) error {
	if _, err := fmt.Fprintln(w, statusLine(w, result)); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w); err != nil {
		return err
	}

	p := message.NewPrinter(language.English)
	tw := tabwriter.NewWriter(w, 0, 0, tabPadding, ' ', 0)
	p.Fprintf(tw, "Operations:\t%d\n", result.Stats.Operations)
	p.Fprintf(tw, "Batches:\t%d\n", result.Stats.Batches)
	p.Fprintf(tw, "Failures:\t%d\n", result.Stats.Failures)
	fmt.Fprintf(tw, "Elapsed:\t%s\n", result.Stats.Elapsed.Round(time.Millisecond))
	if err := tw.Flush(); err != nil {
		return err
	}

	if len(result.Outcomes) == 0 {
		return nil
	}

	if _, err := fmt.Fprintln(w); err != nil {
		return err
	}
	tw = tabwriter.NewWriter(w, 0, 0, tabPadding, ' ', 0)
	fmt.Fprintln(tw, "BATCH\tOPS\tRESULT")
	fmt.Fprintln(tw, "-----\t---\t------")
	for _, o := range result.Outcomes {
		p.Fprintf(tw, "%d\t%d\t%s\n", o.Seq, o.Size, outcomeResult(o))
	}
	return tw.Flush()
}

// outcomeResult summarizes one batch outcome for the text table.
func outcomeResult(o dispatch.Outcome) string {
	if o.Failed() {
		return o.Err.Error()
	}
	if o.Response == nil {
		return "delivered"
	}
	failed := 0
	for _, r := range o.Response.Payload.Results {
		if r.Failed() {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Sprintf("%d of %d operations failed", failed, o.Size)
	}
	return "ok"
}

// resultView is the JSON rendering of a dispatch result. Response carries
// the raw service payload: a single document for a single-batch dispatch, an
// array in completion order otherwise.
type resultView struct {
	Status     string        `json:"status"`
	Message    string        `json:"message"`
	Operations int           `json:"operations"`
	Batches    int           `json:"batches"`
	Failures   int           `json:"failures"`
	ElapsedMS  int64         `json:"elapsed_ms"`
	Outcomes   []outcomeView `json:"outcomes,omitempty"`
	Response   any           `json:"response,omitempty"`
}

type outcomeView struct {
	Batch int    `json:"batch"`
	Ops   int    `json:"ops"`
	Error string `json:"error,omitempty"`
}

func renderResultJSON(w io.Writer, result *dispatch.Result) error {
	view := resultView{
		Status:     string(result.Status),
		Message:    result.Message,
		Operations: result.Stats.Operations,
		Batches:    result.Stats.Batches,
		Failures:   result.Stats.Failures,
		ElapsedMS:  result.Stats.Elapsed.Milliseconds(),
		Response:   result.Raw,
	}
	for _, o := range result.Outcomes {
		ov := outcomeView{Batch: o.Seq, Ops: o.Size}
		if o.Err != nil {
			ov.Error = o.Err.Error()
		}
		view.Outcomes = append(view.Outcomes, ov)
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(view)
}
