package main

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/renaissanceplanning/pmt-cli/internal/config"
	"github.com/renaissanceplanning/pmt-cli/internal/contiguity"
	"github.com/renaissanceplanning/pmt-cli/internal/export"
	"github.com/renaissanceplanning/pmt-cli/internal/geometry"
	"github.com/renaissanceplanning/pmt-cli/internal/shapefile"
	"github.com/renaissanceplanning/pmt-cli/internal/store"
)

var contiguityCmd = &cobra.Command{
	Use:   "contiguity",
	Short: "Contiguity index runs",
	Long:  "Commands for computing, storing, and exporting parcel contiguity indices.",
}

var contiguityRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Compute contiguity indices for a parcel shapefile",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		log := zap.L().With(zap.String("component", "cmd.contiguity"))

		cc := cfg.Contiguity
		applyRunFlags(cmd, &cc)

		if cc.ParcelsPath == "" {
			return eris.New("parcels shapefile is required (--parcels or contiguity.parcels_path)")
		}

		kernel, err := resolveKernel(cc)
		if err != nil {
			return err
		}

		parcels, err := shapefile.ReadParcels(cc.ParcelsPath, cc.ParcelIDField)
		if err != nil {
			return err
		}
		var buildings []geometry.Polygon
		if cc.BuildingsPath != "" {
			buildings, err = shapefile.ReadBuildings(cc.BuildingsPath)
			if err != nil {
				return err
			}
		}
		log.Info("inputs loaded",
			zap.Int("parcels", len(parcels)),
			zap.Int("buildings", len(buildings)),
		)

		stats, err := contiguity.ParseStats(cc.Stats)
		if err != nil {
			return err
		}
		pipe, err := contiguity.NewPipeline(geometry.NewPlanarEngine(), kernel, contiguity.Options{
			CellSize:        cc.CellSize,
			Chunks:          cc.Chunks,
			Stats:           stats,
			AreaScaling:     cc.AreaScaling,
			AreaUnitDivisor: cc.AreaUnitDivisor,
			Workers:         cc.Workers,
		})
		if err != nil {
			return err
		}

		res, err := pipe.Run(ctx, parcels, buildings)
		if err != nil {
			return err
		}
		log.Info("run complete",
			zap.String("run_id", res.RunID),
			zap.Int("polygons", len(res.Polygons)),
			zap.Int("parcels", len(res.Summaries)),
			zap.Duration("elapsed", res.Elapsed),
		)

		noSave, _ := cmd.Flags().GetBool("no-save")
		if !noSave {
			if err := saveRun(ctx, cc, kernel, res); err != nil {
				return err
			}
		}

		if out, _ := cmd.Flags().GetString("out"); out != "" {
			if err := writeSummaries(out, res.Summaries, res.Stats, cc.AreaScaling); err != nil {
				return err
			}
			log.Info("summary exported", zap.String("path", out))
		}
		if out, _ := cmd.Flags().GetString("polygons-out"); out != "" {
			if err := writePolygons(out, res.Polygons); err != nil {
				return err
			}
			log.Info("polygon table exported", zap.String("path", out))
		}

		return nil
	},
}

func applyRunFlags(cmd *cobra.Command, cc *config.ContiguityConfig) {
	f := cmd.Flags()
	if f.Changed("parcels") {
		cc.ParcelsPath, _ = f.GetString("parcels")
	}
	if f.Changed("buildings") {
		cc.BuildingsPath, _ = f.GetString("buildings")
	}
	if f.Changed("id-field") {
		cc.ParcelIDField, _ = f.GetString("id-field")
	}
	if f.Changed("cell-size") {
		cc.CellSize, _ = f.GetFloat64("cell-size")
	}
	if f.Changed("chunks") {
		cc.Chunks, _ = f.GetInt("chunks")
	}
	if f.Changed("weights") {
		cc.Weights, _ = f.GetString("weights")
	}
	if f.Changed("weights-file") {
		cc.WeightsFile, _ = f.GetString("weights-file")
	}
	if f.Changed("stats") {
		cc.Stats, _ = f.GetStringSlice("stats")
	}
	if f.Changed("area-scaling") {
		cc.AreaScaling, _ = f.GetBool("area-scaling")
	}
	if f.Changed("workers") {
		cc.Workers, _ = f.GetInt("workers")
	}
}

func resolveKernel(cc config.ContiguityConfig) (contiguity.Kernel, error) {
	if cc.WeightsFile != "" {
		return contiguity.LoadKernelFile(cc.WeightsFile)
	}
	return contiguity.ResolveKernel(cc.Weights)
}

func saveRun(ctx context.Context, cc config.ContiguityConfig, kernel contiguity.Kernel, res *contiguity.Result) error {
	st, err := initStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close() //nolint:errcheck
	if err := st.Migrate(ctx); err != nil {
		return err
	}

	run := store.Run{
		ID:           res.RunID,
		CreatedAt:    time.Now().UTC(),
		CellSize:     cc.CellSize,
		Chunks:       res.ChunkRows * res.ChunkCols,
		Weights:      kernel.Name(),
		Stats:        statStrings(res.Stats),
		AreaScaling:  cc.AreaScaling,
		ParcelCount:  len(res.Summaries),
		PolygonCount: len(res.Polygons),
	}
	if err := st.SaveRun(ctx, run); err != nil {
		return err
	}

	// Audit geometries are optional; srid 0 skips encoding.
	var geoms map[int32][]byte
	if cc.SRID != 0 {
		geoms = make(map[int32][]byte, len(res.Developable))
		for _, dp := range res.Developable {
			wkb, err := shapefile.EncodeEWKB(dp.Poly, cc.SRID)
			if err != nil {
				return eris.Wrapf(err, "encode polygon %d", dp.PolyID)
			}
			geoms[dp.PolyID] = wkb
		}
	}
	if err := st.SavePolygons(ctx, res.RunID, res.Polygons, geoms); err != nil {
		return err
	}
	if err := st.SaveSummaries(ctx, res.RunID, res.Summaries); err != nil {
		return err
	}

	zap.L().Info("run saved",
		zap.String("run_id", res.RunID),
		zap.String("driver", cfg.Store.Driver),
	)
	return nil
}

func writeSummaries(path string, rows []contiguity.ParcelSummary, stats []contiguity.Stat, areaScaling bool) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return export.WriteSummaryCSV(path, rows, stats, areaScaling)
	case ".xlsx":
		return export.WriteSummaryXLSX(path, rows, stats, areaScaling)
	default:
		return eris.Errorf("unsupported export format: %s", filepath.Ext(path))
	}
}

func writePolygons(path string, rows []contiguity.PolygonResult) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return export.WritePolygonCSV(path, rows)
	case ".xlsx":
		return export.WritePolygonXLSX(path, rows)
	default:
		return eris.Errorf("unsupported export format: %s", filepath.Ext(path))
	}
}

func statStrings(stats []contiguity.Stat) []string {
	out := make([]string, len(stats))
	for i, s := range stats {
		out[i] = string(s)
	}
	return out
}

func init() {
	f := contiguityRunCmd.Flags()
	f.String("parcels", "", "parcel shapefile path")
	f.String("buildings", "", "building footprint shapefile path")
	f.String("id-field", shapefile.DefaultParcelIDField, "parcel id attribute field")
	f.Float64("cell-size", 40, "raster cell size in CRS linear units")
	f.Int("chunks", 20, "target processing chunk count")
	f.String("weights", "nn", "weight preset: rook, queen, nn")
	f.String("weights-file", "", "YAML weight kernel file (overrides --weights)")
	f.StringSlice("stats", nil, "summary statistics (min,max,mean,median)")
	f.Bool("area-scaling", true, "emit contiguity-scaled area columns")
	f.Int("workers", 0, "concurrent chunk workers (default from config)")
	f.Bool("no-save", false, "skip persisting results to the store")
	f.String("out", "", "summary export path (.csv or .xlsx)")
	f.String("polygons-out", "", "polygon table export path (.csv or .xlsx)")

	contiguityCmd.AddCommand(contiguityRunCmd)
	rootCmd.AddCommand(contiguityCmd)
}
