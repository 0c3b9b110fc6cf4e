package main

import (
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"rechnungen/internal/core"
	"rechnungen/internal/services"
	"rechnungen/internal/storage"
)

func invoicesCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "invoices",
		Aliases: []string{"rechnungen"},
		Short:   "Manage invoices",
	}
	cmd.AddCommand(listInvoicesCmd(e))
	cmd.AddCommand(addInvoiceCmd(e))
	cmd.AddCommand(statusInvoiceCmd(e))
	cmd.AddCommand(taxInvoiceCmd(e))
	cmd.AddCommand(deleteInvoiceCmd(e))
	cmd.AddCommand(openInvoiceCmd(e))
	return cmd
}

// selectInvoice parses arg and makes that invoice the current selection, the
// same step a click on a list row performs in the web UI.
func selectInvoice(cmd *cobra.Command, e *env, arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid invoice id %q", arg)
	}
	if _, err := e.app.Invoices.Select(cmd.Context(), id); err != nil {
		return 0, fmt.Errorf("failed to select invoice %d: %w", id, err)
	}
	return id, nil
}

func listInvoicesCmd(e *env) *cobra.Command {
	var f storage.InvoiceFilter

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List invoices, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			invoices, err := e.app.Invoices.List(cmd.Context(), f)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(invoices) == 0 {
				fmt.Fprintln(out, subtleStyle.Render("Keine Rechnungen gefunden."))
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
				headerStyle.Render("ID"),
				headerStyle.Render("Name"),
				headerStyle.Render("Betrag"),
				headerStyle.Render("Kategorie"),
				headerStyle.Render("Status"),
				headerStyle.Render("Fällig"),
				headerStyle.Render("Steuer"))
			for _, inv := range invoices {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
					inv.ID,
					inv.Name,
					orDash(inv.AmountDisplay()),
					orDash(inv.CategoryName),
					inv.Status,
					orDash(inv.DueDate.String()),
					orDash(taxYear(inv)))
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&f.Status, "status", "", "filter by status (Offen, Bezahlt, Erinnert)")
	cmd.Flags().StringVar(&f.Category, "category", "", "filter by category name")
	cmd.Flags().BoolVar(&f.TaxOnly, "tax", false, "only invoices marked for a tax declaration")
	return cmd
}

func addInvoiceCmd(e *env) *cobra.Command {
	var in services.InvoiceInput

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add an invoice",
		Long: `Add an invoice. An image given with --image is converted to a PDF next to it.
Dates use the YYYY-MM-DD format.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in.Name = args[0]
			res, err := e.app.Invoices.Add(cmd.Context(), in)
			if err != nil {
				return fmt.Errorf("failed to add invoice: %w", err)
			}
			out := cmd.OutOrStdout()
			for _, warn := range res.Warnings {
				fmt.Fprintln(out, formatWarning(warn))
			}
			fmt.Fprintln(out, formatSuccess(fmt.Sprintf("Rechnung %d gespeichert", res.ID)))
			if res.PDFPath != "" {
				fmt.Fprintln(out, subtleStyle.Render("PDF: "+res.PDFPath))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&in.Amount, "amount", "", "amount in euros, e.g. 42,50")
	cmd.Flags().StringVar(&in.DueDate, "due", "", "due date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&in.ReminderDate, "reminder", "", "reminder date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&in.Category, "category", "", "category name")
	cmd.Flags().StringVar(&in.ImagePath, "image", "", "path of a scanned invoice image")
	return cmd
}

func statusInvoiceCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "status <id> <status>",
		Short: "Change the status of an invoice",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := selectInvoice(cmd, e, args[0])
			if err != nil {
				return err
			}
			if err := e.app.Invoices.UpdateStatus(cmd.Context(), id, args[1]); err != nil {
				return fmt.Errorf("failed to update invoice %d: %w", id, err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), formatSuccess(fmt.Sprintf("Status von Rechnung %d aktualisiert", id)))
			return nil
		},
	}
}

func taxInvoiceCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "tax <id> [year]",
		Short: "Mark an invoice for a tax declaration year; without year the mark is removed",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := selectInvoice(cmd, e, args[0])
			if err != nil {
				return err
			}
			year := ""
			if len(args) == 2 {
				year = args[1]
			}
			if err := e.app.Invoices.SetTaxYear(cmd.Context(), id, year); err != nil {
				return fmt.Errorf("failed to update invoice %d: %w", id, err)
			}
			msg := fmt.Sprintf("Rechnung %d für Steuererklärung %s markiert", id, year)
			if year == "" {
				msg = fmt.Sprintf("Steuermarkierung von Rechnung %d entfernt", id)
			}
			fmt.Fprintln(cmd.OutOrStdout(), formatSuccess(msg))
			return nil
		},
	}
}

func deleteInvoiceCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an invoice and its image and PDF files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := selectInvoice(cmd, e, args[0])
			if err != nil {
				return err
			}
			res, err := e.app.Invoices.Delete(cmd.Context(), id)
			if err != nil {
				return fmt.Errorf("failed to delete invoice %d: %w", id, err)
			}
			out := cmd.OutOrStdout()
			for _, warn := range res.Warnings {
				fmt.Fprintln(out, formatWarning(warn))
			}
			fmt.Fprintln(out, formatSuccess(fmt.Sprintf("Rechnung %d gelöscht", id)))
			return nil
		},
	}
}

func openInvoiceCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "open <id>",
		Short: "Open the invoice PDF with the default viewer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := selectInvoice(cmd, e, args[0])
			if err != nil {
				return err
			}
			return e.app.Invoices.OpenPDF(cmd.Context(), id)
		},
	}
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

func taxYear(inv core.Invoice) string {
	if inv.TaxDeclarationYear == nil {
		return ""
	}
	return strconv.Itoa(*inv.TaxDeclarationYear)
}
