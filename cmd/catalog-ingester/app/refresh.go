package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/stacklok/catalog-ingester/internal/refresh"
)

func newRefreshCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Run a single refresh cycle",
		Long: `Run one refresh cycle over every configured location and print a summary.

Locations that fail are reported in the summary; the command only fails when the
location list itself could not be read.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, err := cmd.Flags().GetString("format")
			if err != nil {
				return fmt.Errorf("failed to get format flag: %w", err)
			}
			return runRefresh(cmd.Context(), v, cmd.OutOrStdout(), format)
		},
	}
	cmd.Flags().String("format", "", "Output format (json)")
	return cmd
}

func runRefresh(ctx context.Context, v *viper.Viper, out io.Writer, format string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := loadConfig(v)
	if err != nil {
		return err
	}

	ing, err := newIngester(ctx, cfg, slog.Default())
	if err != nil {
		return err
	}
	defer ing.shutdown(context.WithoutCancel(ctx))

	summary := ing.engine.RefreshOnce(ctx)
	if err := printSummary(out, summary, format); err != nil {
		return err
	}
	if summary.Err != nil {
		return fmt.Errorf("refresh cycle failed: %w", summary.Err)
	}
	return nil
}

type summaryLocation struct {
	ID             string `json:"id"`
	Type           string `json:"type"`
	Components     int    `json:"components"`
	DocumentErrors int    `json:"documentErrors"`
	Error          string `json:"error,omitempty"`
}

type summaryOutput struct {
	CycleID    string            `json:"cycleId"`
	Duration   string            `json:"duration"`
	Succeeded  int               `json:"succeeded"`
	Failed     int               `json:"failed"`
	Components int               `json:"components"`
	Error      string            `json:"error,omitempty"`
	Locations  []summaryLocation `json:"locations"`
}

func printSummary(out io.Writer, summary refresh.Summary, format string) error {
	result := summaryOutput{
		CycleID:    summary.CycleID,
		Duration:   summary.Duration.String(),
		Succeeded:  summary.Succeeded(),
		Failed:     summary.Failed(),
		Components: summary.Components(),
		Locations:  make([]summaryLocation, 0, len(summary.Results)),
	}
	if summary.Err != nil {
		result.Error = summary.Err.Error()
	}
	for _, r := range summary.Results {
		loc := summaryLocation{
			ID:             r.LocationID,
			Type:           r.LocationType,
			Components:     r.Components,
			DocumentErrors: r.DocumentErrors,
		}
		if r.Err != nil {
			loc.Error = r.Err.Error()
		}
		result.Locations = append(result.Locations, loc)
	}

	if format == "json" {
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(result)
	}

	table := tablewriter.NewWriter(out)
	table.Header("Location", "Type", "Components", "Doc Errors", "Status")
	for _, loc := range result.Locations {
		state := "ok"
		if loc.Error != "" {
			state = loc.Error
		}
		row := []string{loc.ID, loc.Type, strconv.Itoa(loc.Components), strconv.Itoa(loc.DocumentErrors), state}
		if err := table.Append(row); err != nil {
			return fmt.Errorf("failed to render summary: %w", err)
		}
	}
	if err := table.Render(); err != nil {
		return fmt.Errorf("failed to render summary: %w", err)
	}
	_, err := fmt.Fprintf(out, "%d succeeded, %d failed, %d components in %s\n",
		result.Succeeded, result.Failed, result.Components, result.Duration)
	return err
}
