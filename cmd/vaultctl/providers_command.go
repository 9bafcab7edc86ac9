package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"titlevault/internal/domain"
)

func newProvidersCommand(ctx *commandContext) *cobra.Command {
	var health bool

	cmd := &cobra.Command{
		Use:   "providers",
		Short: "List search providers and their health",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if health {
				var payload struct {
					Items []domain.ProviderDiagnostics `json:"items"`
				}
				if err := ctx.do(cmd.Context(), "GET", "/search/providers/health", nil, nil, &payload); err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, payload)
				}
				rows := make([][]string, 0, len(payload.Items))
				for _, item := range payload.Items {
					state := string(item.State)
					if item.State == domain.SourceCooling && item.CoolingUntil != nil {
						state += " until " + item.CoolingUntil.Local().Format(time.TimeOnly)
					}
					rows = append(rows, []string{
						item.Name,
						state,
						strconv.FormatInt(item.Searches, 10),
						strconv.FormatInt(item.Failures, 10),
						strconv.FormatInt(item.CandidatesServed, 10),
						strconv.FormatInt(item.LastLatencyMS, 10),
						item.LastError,
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"Provider", "State", "Searches", "Failures", "Candidates", "Latency ms", "Last error"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight, alignLeft},
				))
				return nil
			}

			var payload struct {
				Items []domain.ProviderInfo `json:"items"`
			}
			if err := ctx.do(cmd.Context(), "GET", "/search/providers", nil, nil, &payload); err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, payload)
			}
			rows := make([][]string, 0, len(payload.Items))
			for _, item := range payload.Items {
				kinds := make([]string, 0, len(item.Kinds))
				for _, kind := range item.Kinds {
					kinds = append(kinds, string(kind))
				}
				rows = append(rows, []string{item.Name, item.Label, strings.Join(kinds, ","), yesNo(item.Enabled)})
			}
			fmt.Fprintln(out, renderTable([]string{"Provider", "Label", "Kinds", "Enabled"}, rows, nil))
			return nil
		},
	}

	cmd.Flags().BoolVar(&health, "health", false, "Show runtime diagnostics")
	return cmd
}
