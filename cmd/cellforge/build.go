package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/chazu/cellforge/pkg/components"
	"github.com/chazu/cellforge/pkg/model"
	"github.com/chazu/cellforge/pkg/store"
)

// Component key names of the bolted vessel assembly. Variable files use
// them as prefixes (VesselLength, FlangeNBolts, BlankThickness, ...).
const (
	keyVessel = "Vessel"
	keyFlange = "Flange"
	keyBlank  = "Blank"
)

func (a *app) buildCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build the bolted vessel and print its cells",
		Long: `Build a vessel with a bolted flange on its +Y port, optionally closed
by a blank flange, from one or more variable files.

Variable files are read in order: .yaml/.yml and .hcl are loaded as data,
.zy/.lisp are evaluated as zygomys scripts that can read everything loaded
before them with (getvar :Name).

Examples:
  cellforge build --vars plant.yaml
  cellforge build --vars plant.yaml --vars bolts.zy --seal --db builds.sqlite
  cellforge build --vars plant.hcl --blank --format json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runBuild(cmd.Context(), cmd.OutOrStdout())
		},
	}
	f := cmd.Flags()
	f.StringSlice("vars", nil, "variable file (repeatable)")
	f.Bool("seal", false, "cut a seal groove into the flange")
	f.Bool("blank", false, "close the flange with a blank flange")
	f.String("format", "text", "output format: text or json")
	f.String("note", "", "note stored with the build")
	for _, name := range []string{"vars", "seal", "blank", "format", "note"} {
		_ = a.v.BindPFlag(name, f.Lookup(name))
	}
	return cmd
}

func (a *app) runBuild(ctx context.Context, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	format := a.v.GetString("format")
	if format != "text" && format != "json" {
		return fmt.Errorf("unknown format %q", format)
	}

	vs, err := a.loadVars(a.v.GetStringSlice("vars"))
	if err != nil {
		return err
	}
	if a.v.GetBool("seal") {
		vs.MustSet(keyFlange+"Seal", true)
	}

	s := model.NewSession(model.WithVars(vs), model.WithLogger(a.log))
	steps := []model.Step{
		model.Root(components.NewVessel(keyVessel)),
		model.Place(components.NewFlange(keyFlange), keyVessel, 2),
	}
	if a.v.GetBool("blank") {
		steps = append(steps, model.Place(components.NewFlange(keyBlank), keyFlange, 2))
	}
	if err := model.Build(s, steps...); err != nil {
		return err
	}

	if path := a.v.GetString("db"); path != "" {
		db, err := store.Open(path)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := db.Save(ctx, s, a.v.GetString("note")); err != nil {
			return err
		}
		a.log.Info("build saved", zap.String("db", path), zap.String("id", s.ID.String()))
	}

	if format == "json" {
		return writeJSON(out, s.ID.String(), s.CellRecords(), s.SurfaceRecords())
	}
	return writeText(out, s.ID.String(), s.CellRecords(), s.SurfaceRecords())
}

func writeJSON(w io.Writer, id string, cells []model.CellRecord, surfaces []model.SurfaceRecord) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(struct {
		ID       string                `json:"id"`
		Cells    []model.CellRecord    `json:"cells"`
		Surfaces []model.SurfaceRecord `json:"surfaces"`
	}{id, cells, surfaces})
}

// writeText prints a cell block, a blank line and a surface block.
func writeText(w io.Writer, id string, cells []model.CellRecord, surfaces []model.SurfaceRecord) error {
	if _, err := fmt.Fprintf(w, "c build %s\n", id); err != nil {
		return err
	}
	for _, c := range cells {
		if _, err := fmt.Fprintf(w, "%d %s %g %s\n", c.Number, c.Material, c.Temperature, c.Rule); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintln(w); err != nil {
		return err
	}
	for _, sr := range surfaces {
		if _, err := fmt.Fprintf(w, "%d %s\n", sr.ID, sr.Card); err != nil {
			return err
		}
	}
	return nil
}
