package main

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"titlevault/internal/domain"
)

func newSearchCommand(ctx *commandContext) *cobra.Command {
	var (
		mediaType string
		year      string
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search every provider and print the merged results",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params := url.Values{}
			params.Set("q", strings.Join(args, " "))
			if t := strings.TrimSpace(mediaType); t != "" {
				params.Set("type", t)
			}
			if y := strings.TrimSpace(year); y != "" {
				params.Set("year", y)
			}

			var response domain.SearchResponse
			if err := ctx.do(cmd.Context(), "GET", "/search", params, nil, &response); err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, response)
			}
			printSearchResponse(cmd, response)
			return nil
		},
	}

	cmd.Flags().StringVar(&mediaType, "type", "", "Restrict to movie or series")
	cmd.Flags().StringVar(&year, "year", "", "Release year hint")
	return cmd
}

func printSearchResponse(cmd *cobra.Command, response domain.SearchResponse) {
	out := cmd.OutOrStdout()
	if len(response.Items) == 0 {
		fmt.Fprintln(out, "No results")
	} else {
		rows := make([][]string, 0, len(response.Items))
		for _, item := range response.Items {
			rows = append(rows, []string{
				item.Title,
				item.Year,
				string(item.Type),
				item.UniversalID,
				strings.Join(item.SourcesUsed, ","),
				strconv.Itoa(item.Confidence),
			})
		}
		fmt.Fprintln(out, renderTable(
			[]string{"Title", "Year", "Type", "IMDb", "Sources", "Confidence"},
			rows,
			[]columnAlignment{alignLeft, alignRight, alignLeft, alignLeft, alignLeft, alignRight},
		))
	}

	failed := make([]string, 0)
	for _, status := range response.Providers {
		if !status.OK {
			failed = append(failed, status.Name)
		}
	}
	summary := fmt.Sprintf("%d results in %dms", len(response.Items), response.ElapsedMS)
	if response.Cached {
		summary += " (cached)"
	}
	if len(failed) > 0 {
		summary += "; failed providers: " + strings.Join(failed, ", ")
	}
	fmt.Fprintln(out, summary)
}
