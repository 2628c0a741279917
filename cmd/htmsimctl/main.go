package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"htmsim/internal/htm"
	"htmsim/internal/model"
	"htmsim/internal/platform"
	"htmsim/internal/stats"
	"htmsim/internal/storage"
	"htmsim/pkg/htmsim"
)

const (
	benchmarksDir = "benchmarks"
	exportsDir    = "exports"
	defaultDBPath = "htmsim.db"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usageError("missing command")
	}

	switch args[0] {
	case "init":
		return runInit(ctx, args[1:])
	case "run":
		return runRun(ctx, args[1:])
	case "runs":
		return runRuns(ctx, args[1:])
	case "history":
		return runHistory(ctx, args[1:])
	case "compare":
		return runCompare(ctx, args[1:])
	case "record":
		return runRecord(ctx, args[1:])
	case "import":
		return runImport(ctx, args[1:])
	case "recordings":
		return runRecordings(ctx, args[1:])
	case "scapes":
		return runScapes(ctx, args[1:])
	case "export":
		return runExport(ctx, args[1:])
	default:
		return usageError(fmt.Sprintf("unknown command: %s", args[0]))
	}
}

func runInit(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", defaultDBPath, "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}

	store, err := storage.NewStore(*storeKind, *dbPath)
	if err != nil {
		return err
	}
	defer func() {
		_ = storage.CloseIfSupported(store)
	}()

	polis := platform.NewPolis(platform.Config{Store: store})
	if err := polis.Init(ctx); err != nil {
		return err
	}

	fmt.Printf("initialized store=%s\n", *storeKind)
	return nil
}

func runRun(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	configPath := fs.String("config", "", "optional run config JSON path")
	scapeName := fs.String("scape", "alternating", "built-in scape: alternating|moving-bar|noise|sequence")
	recording := fs.String("recording", "", "replay a stored recording instead of a scape")
	sequenceFile := fs.String("sequence-file", "", "replay patterns from a text file, one per line")
	ticks := fs.Int("ticks", 100, "ticks to run")
	seed := fs.Int64("seed", 1, "rng seed")
	intervalMS := fs.Int("interval-ms", 0, "pause between ticks in milliseconds (0 runs flat out)")
	keepInputs := fs.Bool("keep-inputs", false, "keep presented patterns so the run can be recorded")
	density := fs.Float64("density", 0, "noise scape density (0 uses default)")
	blocks := fs.Int("blocks", 0, "sequence scape block count (0 uses default)")
	horizontal := fs.Bool("horizontal", false, "moving-bar scape sweeps a horizontal bar")
	regionWidth := fs.Int("region-width", 0, "region width in columns (0 keeps default)")
	regionHeight := fs.Int("region-height", 0, "region height in columns (0 keeps default)")
	inputWidth := fs.Int("input-width", 0, "input width in bits (0 keeps default)")
	inputHeight := fs.Int("input-height", 0, "input height in bits (0 keeps default)")
	inputRadius := fs.Float64("input-radius", 0, "input radius (0 connects the whole input)")
	cellsPerColumn := fs.Int("cells-per-column", 0, "cells per column (0 keeps default)")
	skipSpatial := fs.Bool("skip-spatial", false, "copy the input straight to column activity")
	progress := fs.Int("progress", 0, "print a tick line every N ticks (0 disables)")
	view := fs.String("view", "auto", "print the final column view: auto|always|never")
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", defaultDBPath, "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	setFlags := make(map[string]bool)
	if *configPath == "" {
		fs.VisitAll(func(f *flag.Flag) {
			setFlags[f.Name] = true
		})
	} else {
		fs.Visit(func(f *flag.Flag) {
			setFlags[f.Name] = true
		})
	}

	req, err := loadOrDefaultRunRequest(*configPath)
	if err != nil {
		return err
	}
	err = overrideFromFlags(&req, setFlags, map[string]any{
		"scape":            *scapeName,
		"recording":        *recording,
		"sequence-file":    *sequenceFile,
		"ticks":            *ticks,
		"seed":             *seed,
		"interval-ms":      *intervalMS,
		"keep-inputs":      *keepInputs,
		"density":          *density,
		"blocks":           *blocks,
		"horizontal":       *horizontal,
		"region-width":     *regionWidth,
		"region-height":    *regionHeight,
		"input-width":      *inputWidth,
		"input-height":     *inputHeight,
		"input-radius":     *inputRadius,
		"cells-per-column": *cellsPerColumn,
		"skip-spatial":     *skipSpatial,
	})
	if err != nil {
		return err
	}
	if *progress < 0 {
		return errors.New("progress must be >= 0")
	}
	showView, err := resolveView(*view)
	if err != nil {
		return err
	}
	if *progress > 0 {
		every := *progress
		req.OnTick = func(_ htm.Report, tick model.TickStats) {
			if tick.Tick%every != 0 {
				return
			}
			fmt.Printf("tick=%d active_columns=%d predicted=%d bursting=%d segments=%s synapses=%s prediction_rate=%.3f\n",
				tick.Tick,
				tick.ActiveColumns,
				tick.PredictedColumns,
				tick.BurstingColumns,
				humanize.Comma(int64(tick.Segments)),
				humanize.Comma(int64(tick.Synapses)),
				tick.PredictionRate,
			)
		}
	}

	client, err := htmsim.New(htmsim.Options{
		StoreKind:     *storeKind,
		DBPath:        *dbPath,
		BenchmarksDir: benchmarksDir,
		ExportsDir:    exportsDir,
	})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	started := time.Now()
	summary, err := client.Run(ctx, req)
	if err != nil {
		return err
	}

	fmt.Printf("run completed run_id=%s scape=%s ticks=%d segments=%s synapses=%s mean_prediction_rate=%.4f final_prediction_rate=%.4f elapsed=%s artifacts=%s\n",
		summary.RunID,
		summary.Scape,
		summary.Ticks,
		humanize.Comma(int64(summary.Segments)),
		humanize.Comma(int64(summary.Synapses)),
		summary.MeanPredictionRate,
		summary.FinalPredictionRate,
		time.Since(started).Round(time.Millisecond),
		summary.ArtifactsDir,
	)
	if showView {
		cellsPer := htm.DefaultConfig().CellsPerColumn
		if req.Region != nil {
			cellsPer = req.Region.CellsPerColumn
		}
		fmt.Print(renderColumns(summary.Last, summary.Geometry, cellsPer))
	}
	return nil
}

func runRuns(_ context.Context, args []string) error {
	fs := flag.NewFlagSet("runs", flag.ContinueOnError)
	limit := fs.Int("limit", 20, "max runs to list")
	jsonOut := fs.Bool("json", false, "emit runs list as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *limit <= 0 {
		return errors.New("limit must be > 0")
	}

	entries, err := stats.ListRunIndex(benchmarksDir)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("no runs found")
		return nil
	}
	if len(entries) > *limit {
		entries = entries[:*limit]
	}
	if *jsonOut {
		return writeJSON(entries)
	}

	for _, e := range entries {
		created := e.CreatedAtUTC
		if ts, err := time.Parse(time.RFC3339Nano, e.CreatedAtUTC); err == nil {
			created = humanize.Time(ts)
		}
		fmt.Printf("run_id=%s created=%q scape=%s seed=%d ticks=%d columns=%d cells_per_column=%d mean_prediction_rate=%.4f final_prediction_rate=%.4f\n",
			e.RunID,
			created,
			e.Scape,
			e.Seed,
			e.Ticks,
			e.Columns,
			e.CellsPerColumn,
			e.MeanPredictionRate,
			e.FinalPredictionRate,
		)
	}
	return nil
}

func runHistory(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("history", flag.ContinueOnError)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "use the most recent run from run index")
	limit := fs.Int("limit", 0, "max ticks to show (0 shows all)")
	jsonOut := fs.Bool("json", false, "emit tick history as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *runID != "" && *latest {
		return errors.New("use either --run-id or --latest, not both")
	}
	if *runID == "" && !*latest {
		return errors.New("history requires --run-id or --latest")
	}

	client, err := newLocalClient()
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	history, err := client.TickHistory(ctx, htmsim.TickHistoryRequest{RunID: *runID, Latest: *latest, Limit: *limit})
	if err != nil {
		return err
	}
	if *jsonOut {
		return writeJSON(history)
	}
	for _, tick := range history {
		fmt.Printf("tick=%d active_columns=%d predicted=%d bursting=%d active_cells=%d learning_cells=%d predictive_cells=%d changed_cells=%d segments=%d synapses=%d inhibition_radius=%.3f prediction_rate=%.4f\n",
			tick.Tick,
			tick.ActiveColumns,
			tick.PredictedColumns,
			tick.BurstingColumns,
			tick.ActiveCells,
			tick.LearningCells,
			tick.PredictiveCells,
			tick.ChangedCells,
			tick.Segments,
			tick.Synapses,
			tick.InhibitionRadius,
			tick.PredictionRate,
		)
	}
	return nil
}

func runCompare(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("compare", flag.ContinueOnError)
	runIDs := fs.String("run-ids", "", "comma-separated run ids")
	window := fs.Int("window", 10, "ticks averaged per point")
	if err := fs.Parse(args); err != nil {
		return err
	}
	ids := splitList(*runIDs)
	if len(ids) == 0 {
		return errors.New("compare requires --run-ids")
	}

	client, err := newLocalClient()
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	summary, err := client.Compare(ctx, htmsim.CompareRequest{RunIDs: ids, Window: *window})
	if err != nil {
		return err
	}
	for _, p := range summary.Average {
		fmt.Printf("tick=%d mean_prediction_rate=%.4f\n", p.Tick, p.Value)
	}
	for _, p := range summary.Peaks {
		fmt.Printf("run_id=%s peak_prediction_rate=%.4f\n", ids[p.Tick], p.Value)
	}
	return nil
}

func runRecord(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("record", flag.ContinueOnError)
	name := fs.String("name", "", "recording name")
	file := fs.String("file", "", "pattern file, one pattern per line")
	width := fs.Int("width", 0, "input width in bits")
	height := fs.Int("height", 0, "input height in bits")
	fromRun := fs.String("from-run", "", "record the inputs kept by a run")
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", defaultDBPath, "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *file != "" && *fromRun != "" {
		return errors.New("use either --file or --from-run, not both")
	}
	if *file == "" && *fromRun == "" {
		return errors.New("record requires --file or --from-run")
	}

	client, err := htmsim.New(htmsim.Options{
		StoreKind:     *storeKind,
		DBPath:        *dbPath,
		BenchmarksDir: benchmarksDir,
		ExportsDir:    exportsDir,
	})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	var rec model.Recording
	if *fromRun != "" {
		rec, err = client.RecordRun(ctx, *fromRun, *name)
	} else {
		if *name == "" {
			return errors.New("record requires --name with --file")
		}
		rec, err = client.SaveRecording(ctx, htmsim.RecordingRequest{
			Name:   *name,
			Width:  *width,
			Height: *height,
			File:   *file,
		})
	}
	if err != nil {
		return err
	}

	fmt.Printf("recorded name=%s patterns=%d input=%dx%d store=%s\n",
		rec.Name, len(rec.Patterns), rec.Geometry.InputWidth, rec.Geometry.InputHeight, *storeKind)
	return nil
}

func runImport(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("import", flag.ContinueOnError)
	name := fs.String("name", "", "recording name")
	file := fs.String("file", "", "csv file holding the series")
	column := fs.String("column", "", "value column name; defaults to the last column")
	noHeader := fs.Bool("no-header", false, "the csv has no header row")
	normalize := fs.String("normalize", "none", "normalization: none|minmax|zscore")
	width := fs.Int("width", 0, "input width in bits")
	height := fs.Int("height", 0, "input height in bits")
	activeBits := fs.Int("active-bits", 0, "on bits per pattern; defaults to a tenth of the input")
	minValue := fs.Float64("min", 0, "lower bound of the encoded range")
	maxValue := fs.Float64("max", 0, "upper bound of the encoded range; the series range is used when min >= max")
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", defaultDBPath, "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *name == "" || *file == "" {
		return errors.New("import requires --name and --file")
	}

	client, err := htmsim.New(htmsim.Options{StoreKind: *storeKind, DBPath: *dbPath, BenchmarksDir: benchmarksDir})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	rec, err := client.ImportSeries(ctx, htmsim.ImportSeriesRequest{
		Name:       *name,
		File:       *file,
		Column:     *column,
		HasHeader:  !*noHeader,
		Normalize:  *normalize,
		Width:      *width,
		Height:     *height,
		ActiveBits: *activeBits,
		Min:        *minValue,
		Max:        *maxValue,
	})
	if err != nil {
		return err
	}
	fmt.Printf("imported name=%s patterns=%d input=%dx%d store=%s\n",
		rec.Name, len(rec.Patterns), rec.Geometry.InputWidth, rec.Geometry.InputHeight, *storeKind)
	return nil
}

func runRecordings(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("recordings", flag.ContinueOnError)
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", defaultDBPath, "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := htmsim.New(htmsim.Options{StoreKind: *storeKind, DBPath: *dbPath, BenchmarksDir: benchmarksDir})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	names, err := client.Recordings(ctx)
	if err != nil {
		return err
	}
	if len(names) == 0 {
		fmt.Println("no recordings found")
		return nil
	}
	for _, name := range names {
		rec, err := client.Recording(ctx, name)
		if err != nil {
			return err
		}
		fmt.Printf("name=%s patterns=%d input=%dx%d\n", rec.Name, len(rec.Patterns), rec.Geometry.InputWidth, rec.Geometry.InputHeight)
	}
	return nil
}

func runScapes(_ context.Context, args []string) error {
	fs := flag.NewFlagSet("scapes", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	client, err := newLocalClient()
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()
	for _, name := range client.Scapes() {
		fmt.Printf("scape=%s\n", name)
	}
	return nil
}

func runExport(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "export the most recent run from run index")
	outDir := fs.String("out", exportsDir, "export output directory")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *runID != "" && *latest {
		return errors.New("use either --run-id or --latest, not both")
	}
	if *runID == "" && !*latest {
		return errors.New("export requires --run-id or --latest")
	}

	client, err := newLocalClient()
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	exported, err := client.Export(ctx, htmsim.ExportRequest{RunID: *runID, Latest: *latest, OutDir: *outDir})
	if err != nil {
		return err
	}

	fmt.Printf("exported run_id=%s to=%s\n", exported.RunID, exported.Directory)
	return nil
}

// newLocalClient serves commands that only read run artifacts.
func newLocalClient() (*htmsim.Client, error) {
	return htmsim.New(htmsim.Options{
		StoreKind:     "memory",
		BenchmarksDir: benchmarksDir,
		ExportsDir:    exportsDir,
	})
}

func writeJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func usageError(msg string) error {
	return fmt.Errorf("%s\nusage: htmsimctl <init|run|runs|history|compare|record|import|recordings|scapes|export> [flags]", msg)
}
