package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/renaissanceplanning/pmt-cli/internal/contiguity"
	"github.com/renaissanceplanning/pmt-cli/internal/store"
)

var contiguityListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored contiguity runs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		runs, err := st.ListRuns(ctx)
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Fprintln(os.Stderr, "No runs found.")
			return nil
		}

		formatRunsList(os.Stdout, runs)
		return nil
	},
}

var contiguityExportCmd = &cobra.Command{
	Use:   "export <run-id>",
	Short: "Export a stored run to CSV or XLSX",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		runID := args[0]

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		run, err := st.GetRun(ctx, runID)
		if err != nil {
			return err
		}
		if run == nil {
			return eris.Errorf("run not found: %s", runID)
		}
		stats, err := contiguity.ParseStats(run.Stats)
		if err != nil {
			return err
		}

		out, _ := cmd.Flags().GetString("out")
		polyOut, _ := cmd.Flags().GetString("polygons-out")
		if out == "" && polyOut == "" {
			return eris.New("nothing to export: pass --out and/or --polygons-out")
		}

		if out != "" {
			rows, err := st.GetSummaries(ctx, runID)
			if err != nil {
				return err
			}
			if err := writeSummaries(out, rows, stats, run.AreaScaling); err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "Wrote %d parcel summaries to %s\n", len(rows), out)
		}
		if polyOut != "" {
			rows, err := st.GetPolygons(ctx, runID)
			if err != nil {
				return err
			}
			if err := writePolygons(polyOut, rows); err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "Wrote %d polygon rows to %s\n", len(rows), polyOut)
		}

		return nil
	},
}

func formatRunsList(w *os.File, runs []store.Run) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN ID\tCREATED\tCELL\tCHUNKS\tWEIGHTS\tSTATS\tPARCELS\tPOLYGONS")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%g\t%d\t%s\t%s\t%d\t%d\n",
			r.ID,
			r.CreatedAt.Format("2006-01-02 15:04"),
			r.CellSize,
			r.Chunks,
			r.Weights,
			strings.Join(r.Stats, ","),
			r.ParcelCount,
			r.PolygonCount,
		)
	}
	tw.Flush()
}

func init() {
	contiguityExportCmd.Flags().String("out", "", "summary export path (.csv or .xlsx)")
	contiguityExportCmd.Flags().String("polygons-out", "", "polygon table export path (.csv or .xlsx)")

	contiguityCmd.AddCommand(contiguityListCmd)
	contiguityCmd.AddCommand(contiguityExportCmd)
}
