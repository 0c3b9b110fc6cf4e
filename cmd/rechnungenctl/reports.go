package main

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"rechnungen/internal/core"
)

func remindCmd(e *env) *cobra.Command {
	var date string

	cmd := &cobra.Command{
		Use:   "remind",
		Short: "Show invoices due today and reminders set for today",
		Long: `Show invoices due on a day and reminders set for it. Without --date the
check runs for today and publishes the notifications when AMQP is configured.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var (
				notes core.Notifications
				err   error
			)
			if date == "" {
				notes, err = e.app.Notifier.CheckToday(cmd.Context())
			} else {
				day, perr := core.ParseDate(date)
				if perr != nil || day.IsEmpty() {
					return fmt.Errorf("invalid date %q", date)
				}
				notes, err = e.app.Notifier.Check(cmd.Context(), day)
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if notes.Empty() {
				fmt.Fprintln(out, subtleStyle.Render("Keine Benachrichtigungen."))
				return nil
			}
			fmt.Fprint(out, notes.Message())
			return nil
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "day to check (YYYY-MM-DD)")
	return cmd
}

func reportCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "report",
		Short: "Show the total amount per category",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			chart, err := e.app.Reports.CategoryChart(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if chart.Empty {
				fmt.Fprintln(out, subtleStyle.Render(chart.Message))
				return nil
			}

			fmt.Fprintln(out, titleStyle.Render("Gesamtbetrag pro Kategorie"))
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			for _, b := range chart.Bars {
				bar := barStyle.Render(strings.Repeat("█", (b.Width+1)/2))
				fmt.Fprintf(w, "%s\t%s\t%s\n", b.Name, b.Amount.String(), bar)
			}
			fmt.Fprintf(w, "%s\t%s\t\n", headerStyle.Render("Gesamt"), chart.Total.String())
			return w.Flush()
		},
	}
}

func exportCmd(e *env) *cobra.Command {
	var year int

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the invoices of a tax declaration year to Google Sheets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if year == 0 {
				year = time.Now().Year()
			}
			ref, count, err := e.app.TaxExport.Export(cmd.Context(), year)
			if err != nil {
				return fmt.Errorf("failed to export tax year %d: %w", year, err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), formatSuccess(fmt.Sprintf("%d Rechnungen für %d exportiert (%s)", count, year, ref)))
			return nil
		},
	}

	cmd.Flags().IntVar(&year, "year", 0, "tax declaration year (default: current year)")
	return cmd
}
