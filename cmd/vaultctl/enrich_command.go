package main

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"titlevault/internal/domain"
)

func newEnrichCommand(ctx *commandContext) *cobra.Command {
	var (
		title     string
		mediaType string
		force     bool
	)

	cmd := &cobra.Command{
		Use:   "enrich <imdb-id>",
		Short: "Run the enrichment pipeline for a title",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			record := domain.CanonicalRecord{
				UniversalID: strings.TrimSpace(args[0]),
				Title:       strings.TrimSpace(title),
				Type:        domain.ParseMediaType(mediaType),
			}
			params := url.Values{}
			if force {
				params.Set("force", "true")
			}

			var enriched domain.CanonicalRecord
			if err := ctx.do(cmd.Context(), "POST", "/enrich", params, record, &enriched); err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, enriched)
			}
			printRecord(cmd, enriched)
			return nil
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "Title used by the registry resolvers")
	cmd.Flags().StringVar(&mediaType, "type", "movie", "movie or series")
	cmd.Flags().BoolVar(&force, "force", false, "Bypass the record cache")
	return cmd
}

func printRecord(cmd *cobra.Command, record domain.CanonicalRecord) {
	out := cmd.OutOrStdout()
	rows := [][]string{
		{"Title", record.Title},
		{"Year", record.Year},
		{"IMDb", record.UniversalID},
		{"Type", string(record.Type)},
		{"Genre", record.Genre},
		{"Country", record.Country},
		{"Language", record.Language},
		{"Runtime", record.Runtime},
	}
	if len(record.Meta.Director) > 0 {
		rows = append(rows, []string{"Director", strings.Join(record.Meta.Director, ", ")})
	}
	if len(record.Meta.Cast) > 0 {
		rows = append(rows, []string{"Cast", strconv.Itoa(len(record.Meta.Cast)) + " members"})
	}
	if len(record.Meta.Seasons) > 0 {
		rows = append(rows, []string{"Seasons", strconv.Itoa(len(record.Meta.Seasons))})
	}
	if region := record.Meta.Region; region != nil {
		rows = append(rows, []string{"Regional", fmt.Sprintf("%s (score %d)", yesNo(region.Decision), region.Score)})
	}
	if anime := record.Meta.Anime; anime != nil {
		rows = append(rows, []string{"Anime", fmt.Sprintf("mal %d via %s", anime.MALID, anime.RegistrySource)})
	}
	if schedule := record.Meta.Schedule; schedule != nil {
		rows = append(rows, []string{"Episodes", strconv.Itoa(len(schedule.Episodes))})
	}
	rows = append(rows, []string{"Sources", strings.Join(record.EnrichmentSources, ", ")})
	fmt.Fprintln(out, renderTable([]string{"Field", "Value"}, rows, nil))
}
