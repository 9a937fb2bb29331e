package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/stroymat/materials-bot/internal/catalog"
	"github.com/stroymat/materials-bot/internal/config"
	"github.com/stroymat/materials-bot/internal/db"
	"github.com/stroymat/materials-bot/internal/models"
)

func dispatchesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dispatches",
		Short: "List relayed orders from the dispatch journal",
		Long: `Display the newest entries of the dispatch journal.

Use --status failed to find confirmed orders that never reached the manager.`,
		RunE: runDispatches,
	}

	cmd.Flags().String("status", "", "only show dispatches with this status (delivered, failed, skipped)")
	cmd.Flags().Int("limit", 20, "maximum number of rows")

	return cmd
}

func runDispatches(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	status, _ := cmd.Flags().GetString("status")
	limit, _ := cmd.Flags().GetInt("limit")

	switch models.DispatchStatus(status) {
	case "", models.DispatchDelivered, models.DispatchFailed, models.DispatchSkipped:
	default:
		return fmt.Errorf("unknown status %q", status)
	}

	cfg, err := config.Load(viper.GetViper(), slog.Default())
	if err != nil {
		return err
	}
	if cfg.JournalPath == "" {
		return config.ErrNoJournal
	}

	journal, err := db.New(cfg.JournalPath, cfg.JournalKey)
	if err != nil {
		return fmt.Errorf("failed to open journal: %w", err)
	}
	defer func() {
		if closeErr := journal.Close(); closeErr != nil {
			slog.Error("failed to close journal", "error", closeErr)
		}
	}()

	records, err := journal.ListDispatches(ctx, models.DispatchStatus(status), limit)
	if err != nil {
		return fmt.Errorf("failed to list dispatches: %w", err)
	}

	return printDispatches(cmd.OutOrStdout(), records)
}

func printDispatches(out io.Writer, records []models.DispatchRecord) error {
	if len(records) == 0 {
		_, err := fmt.Fprintln(out, "No dispatches found.")
		return err
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	if _, err := fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
		headerStyle.Render("Order"),
		headerStyle.Render("Recorded"),
		headerStyle.Render("Status"),
		headerStyle.Render("Customer"),
		headerStyle.Render("Material"),
		headerStyle.Render("Total"),
		headerStyle.Render("Error")); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for _, rec := range records {
		o := rec.Order
		if _, err := fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s %s %s\t%s₽\t%s\n",
			o.Number,
			rec.RecordedAt.Local().Format("2006-01-02 15:04"),
			rec.Status,
			strings.TrimSpace(o.DisplayName+" "+o.Phone),
			o.Material, o.Quantity.String(), o.Unit,
			catalog.FormatPrice(o.EstimatedPrice),
			rec.Error); err != nil {
			return fmt.Errorf("failed to write dispatch row: %w", err)
		}
	}

	return w.Flush()
}
