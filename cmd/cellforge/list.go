package main

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/chazu/cellforge/pkg/store"
)

func (a *app) openDB() (*store.DB, error) {
	path := a.v.GetString("db")
	if path == "" {
		return nil, errors.New("no build database: pass --db or set db in cellforge.yaml")
	}
	return store.Open(path)
}

func (a *app) listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored builds",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.openDB()
			if err != nil {
				return err
			}
			defer db.Close()
			builds, err := db.List(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tCREATED\tCELLS\tNOTE")
			for _, b := range builds {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", b.ID, b.CreatedAt.Format(time.RFC3339), b.Cells, b.Note)
			}
			return tw.Flush()
		},
	}
}

func (a *app) showCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "show <build-id>",
		Short: "Print a stored build",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("build id: %w", err)
			}
			db, err := a.openDB()
			if err != nil {
				return err
			}
			defer db.Close()
			b, err := db.Load(cmd.Context(), id)
			if err != nil {
				return err
			}
			switch format {
			case "json":
				return writeJSON(cmd.OutOrStdout(), b.ID.String(), b.Cells, b.Surfaces)
			case "text":
				return writeText(cmd.OutOrStdout(), b.ID.String(), b.Cells, b.Surfaces)
			}
			return fmt.Errorf("unknown format %q", format)
		},
	}
	cmd.Flags().StringVar(&format, "format", "text", "output format: text or json")
	return cmd
}
