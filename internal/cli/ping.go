package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/bulklist/bulklist/internal/transport"
)

// pingParams holds the flag values for the ping command.
type pingParams struct {
	service string
	output  string
}

// NewPingCmd creates the ping command, which fetches the service identity
// document and checks protocol compatibility.
func NewPingCmd() *cobra.Command {
	var params pingParams

	cmd := &cobra.Command{
		Use:   "ping",
		Short: "Check service identity and protocol compatibility",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return executePing(cmd, params)
		},
	}

	cmd.Flags().StringVar(&params.service, "service", "", "service base URL (overrides config)")
	cmd.Flags().StringVarP(&params.output, "output", "o", outputFormatText, "output format: text or json")

	return cmd
}

func executePing(cmd *cobra.Command, params pingParams) error {
	ctx := cmd.Context()
	cfg := configFromContext(ctx)

	serviceCfg := *cfg
	if cmd.Flags().Changed("service") {
		serviceCfg.Service.BaseURL = params.service
	}
	tsp, err := transport.New(transportConfig(&serviceCfg))
	if err != nil {
		return err
	}

	info, err := tsp.Info(ctx)
	if err != nil {
		return err
	}

	view := pingView{
		Name:       info.Name,
		Version:    info.Version,
		Protocol:   info.Protocol,
		Compatible: true,
	}
	if checkErr := transport.CheckProtocol(info); checkErr != nil {
		view.Compatible = false
		view.Reason = checkErr.Error()
	}

	switch params.output {
	case outputFormatJSON:
		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(view); err != nil {
			return err
		}
	case outputFormatText:
		if err := renderPingText(cmd.OutOrStdout(), view); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown output format %q (expected text or json)", params.output)
	}

	if !view.Compatible {
		return &ExitError{ExitCode: 1, Reason: view.Reason}
	}
	return nil
}

// pingView is the JSON rendering of a service identity check.
type pingView struct {
	Name       string `json:"name"`
	Version    string `json:"version"`
	Protocol   string `json:"protocol"`
	Compatible bool   `json:"compatible"`
	Reason     string `json:"reason,omitempty"`
}

func renderPingText(w io.Writer, view pingView) error {
	verdict := "compatible"
	color := statusOKColor()
	if !view.Compatible {
		verdict = "incompatible: " + view.Reason
		color = statusErrorColor()
	}
	if isWriterTerminal(w) {
		verdict = lipgloss.NewStyle().Foreground(color).Render(verdict)
	}

	tw := tabwriter.NewWriter(w, 0, 0, tabPadding, ' ', 0)
	fmt.Fprintf(tw, "Service:\t%s\n", view.Name)
	fmt.Fprintf(tw, "Version:\t%s\n", view.Version)
	fmt.Fprintf(tw, "Protocol:\t%s (%s)\n", view.Protocol, verdict)
	return tw.Flush()
}
