package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func categoriesCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "categories",
		Short: "Manage invoice categories",
	}
	cmd.AddCommand(listCategoriesCmd(e))
	cmd.AddCommand(addCategoryCmd(e))
	cmd.AddCommand(deleteCategoryCmd(e))
	return cmd
}

func listCategoriesCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all categories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cats, err := e.app.Categories.List(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to list categories: %w", err)
			}
			out := cmd.OutOrStdout()
			if len(cats) == 0 {
				fmt.Fprintln(out, subtleStyle.Render("Keine Kategorien vorhanden."))
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "%s\t%s\n", headerStyle.Render("ID"), headerStyle.Render("Name"))
			fmt.Fprintf(w, "%s\t%s\n", strings.Repeat("-", 4), strings.Repeat("-", 20))
			for _, c := range cats {
				fmt.Fprintf(w, "%d\t%s\n", c.ID, c.Name)
			}
			return w.Flush()
		},
	}
}

func addCategoryCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "add <name>",
		Short: "Add a new category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := e.app.Categories.Add(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("failed to add category %q: %w", args[0], err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), formatSuccess(fmt.Sprintf("Kategorie %q hinzugefügt", strings.TrimSpace(args[0]))))
			return nil
		},
	}
}

func deleteCategoryCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a category; its invoices become uncategorized",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := e.app.Categories.DeleteByName(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("failed to delete category %q: %w", args[0], err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), formatSuccess(fmt.Sprintf("Kategorie %q gelöscht", args[0])))
			return nil
		},
	}
}
