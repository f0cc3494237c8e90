package contiguity

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/renaissanceplanning/pmt-cli/internal/geometry"
)

// Options configures a pipeline run.
type Options struct {
	// CellSize is the raster cell edge length in the input coordinate
	// system's linear unit.
	CellSize float64
	// Chunks is the target chunk count for the fishnet.
	Chunks int
	// Stats are the requested parcel summary statistics; empty means all.
	Stats []Stat
	// AreaScaling adds {stat}_scaled_area columns.
	AreaScaling bool
	// AreaUnitDivisor converts cell_size² units to reporting units.
	// Defaults to FeetPerAcre.
	AreaUnitDivisor float64
	// Workers bounds concurrent chunk rasterization. Defaults to 4; 1 gives
	// strictly sequential chunk processing.
	Workers int
}

// Result is the output of one pipeline run.
type Result struct {
	RunID string
	// Polygons is the unaggregated polygon-level table (the audit output),
	// missing polygons zero-filled, ordered by polygon id.
	Polygons []PolygonResult
	// Summaries holds one row per input parcel, in input order.
	Summaries []ParcelSummary
	// Developable carries the extracted polygon geometries, keyed by the
	// same polygon ids as Polygons, for callers that persist them.
	Developable []DevelopablePolygon
	// Stats echoes the statistics the summaries carry.
	Stats []Stat
	// ChunkRows and ChunkCols describe the fishnet actually used.
	ChunkRows int
	ChunkCols int
	Elapsed   time.Duration
}

// Pipeline runs the contiguity engine end to end: validate weights,
// partition, extract developable area, rasterize chunk by chunk, aggregate,
// summarize.
type Pipeline struct {
	engine geometry.Engine
	kernel Kernel
	opts   Options
}

// NewPipeline validates options and builds a pipeline. Configuration errors
// surface here, before any processing begins.
func NewPipeline(engine geometry.Engine, kernel Kernel, opts Options) (*Pipeline, error) {
	if engine == nil {
		return nil, eris.Wrap(ErrConfig, "geometry engine is required")
	}
	if opts.CellSize <= 0 {
		return nil, eris.Wrapf(ErrConfig, "cell size must be positive, got %v", opts.CellSize)
	}
	if opts.Chunks < 1 {
		return nil, eris.Wrapf(ErrConfig, "chunk count must be positive, got %d", opts.Chunks)
	}
	if kernel.Max() == 0 {
		return nil, eris.Wrap(ErrConfig, "weight kernel is not resolved")
	}
	stats, err := ParseStats(statNames(opts.Stats))
	if err != nil {
		return nil, err
	}
	opts.Stats = stats
	if opts.AreaUnitDivisor == 0 {
		opts.AreaUnitDivisor = FeetPerAcre
	}
	if opts.AreaUnitDivisor < 0 {
		return nil, eris.Wrapf(ErrConfig, "area unit divisor must be positive, got %v", opts.AreaUnitDivisor)
	}
	if opts.Workers == 0 {
		opts.Workers = 4
	}
	if opts.Workers < 1 {
		return nil, eris.Wrapf(ErrConfig, "workers must be positive, got %d", opts.Workers)
	}
	return &Pipeline{engine: engine, kernel: kernel, opts: opts}, nil
}

// Run executes the pipeline over the given parcels and buildings. Inputs are
// treated as read-only. The returned summaries contain every input parcel id
// exactly once.
func (p *Pipeline) Run(ctx context.Context, parcels []Parcel, buildings []geometry.Polygon) (*Result, error) {
	runID := uuid.NewString()
	log := zap.L().With(
		zap.String("component", "contiguity.pipeline"),
		zap.String("run_id", runID),
	)
	start := time.Now()

	if len(parcels) == 0 {
		return nil, eris.New("contiguity: no input parcels")
	}

	// Partition.
	ext := parcels[0].Poly.Extent()
	for _, pc := range parcels[1:] {
		ext = ext.Union(pc.Poly.Extent())
	}
	net, err := BuildFishnet(ext, p.opts.Chunks)
	if err != nil {
		return nil, err
	}
	log.Info("stage: partition",
		zap.Int("chunk_rows", net.Rows),
		zap.Int("chunk_cols", net.Cols),
	)

	// Extract developable area.
	polys, ref, err := NewExtractor(p.engine).Extract(parcels, buildings, net)
	if err != nil {
		return nil, err
	}
	log.Info("stage: extract", zap.Int("polygons", len(polys)))

	// Rasterize chunk by chunk. The lattice is anchored at the study extent
	// origin so cell boundaries are identical no matter how work is chunked.
	lattice := geometry.Lattice{
		OriginX:  ext.MinX,
		OriginY:  ext.MinY,
		CellSize: p.opts.CellSize,
	}
	rasterizer := NewRasterizer(p.engine, p.kernel, lattice, p.opts.AreaUnitDivisor)

	byChunk := make(map[int][]DevelopablePolygon)
	chunkOf := make(map[int32]int, len(polys))
	for _, dp := range polys {
		byChunk[dp.ChunkID] = append(byChunk[dp.ChunkID], dp)
		chunkOf[dp.PolyID] = dp.ChunkID
	}

	chunkIDs := make([]int, 0, len(byChunk))
	for id := range byChunk {
		chunkIDs = append(chunkIDs, id)
	}
	sort.Ints(chunkIDs)

	chunkRows := make([][]PolygonResult, len(chunkIDs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.Workers)
	for i, chunkID := range chunkIDs {
		i, chunkID := i, chunkID
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rows, err := rasterizer.RasterizeChunk(chunkID, byChunk[chunkID])
			if err != nil {
				return err
			}
			chunkRows[i] = rows
			return nil
		})
	}
	// Aggregation must not begin until every chunk has been collected.
	if err := g.Wait(); err != nil {
		return nil, err
	}
	log.Info("stage: rasterize", zap.Int("chunks", len(chunkIDs)))

	// Aggregate and summarize.
	var results []PolygonResult
	for _, rows := range chunkRows {
		results = append(results, rows...)
	}
	filled := FillMissing(results, ref, chunkOf)

	parcelIDs := make([]string, 0, len(parcels))
	seen := make(map[string]bool, len(parcels))
	for _, pc := range parcels {
		if !seen[pc.ID] {
			seen[pc.ID] = true
			parcelIDs = append(parcelIDs, pc.ID)
		}
	}
	summaries := Summarize(filled, parcelIDs, p.opts.Stats, p.opts.AreaScaling)

	elapsed := time.Since(start)
	log.Info("stage: summarize",
		zap.Int("parcels", len(summaries)),
		zap.Duration("elapsed", elapsed),
	)

	return &Result{
		RunID:       runID,
		Polygons:    filled,
		Summaries:   summaries,
		Developable: polys,
		Stats:       p.opts.Stats,
		ChunkRows:   net.Rows,
		ChunkCols:   net.Cols,
		Elapsed:     elapsed,
	}, nil
}

func statNames(stats []Stat) []string {
	names := make([]string, len(stats))
	for i, s := range stats {
		names[i] = string(s)
	}
	return names
}
