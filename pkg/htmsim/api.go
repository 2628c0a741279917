package htmsim

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"golang.org/x/exp/slices"

	"htmsim/internal/dataextract"
	"htmsim/internal/htm"
	"htmsim/internal/model"
	"htmsim/internal/platform"
	"htmsim/internal/scape"
	"htmsim/internal/stats"
	"htmsim/internal/storage"
)

const (
	defaultExportsDir = "exports"
	defaultDBPath     = "htmsim.db"
	defaultTicks      = 100
	defaultRunsLimit  = 20
)

type Options struct {
	StoreKind     string
	DBPath        string
	BenchmarksDir string
	ExportsDir    string
}

type Client struct {
	store storage.Store
	polis *platform.Polis

	benchmarksDir string
	exportsDir    string
}

type RunRequest struct {
	Scape string
	// Recording replays a stored recording instead of a built-in scape.
	Recording string
	// SequenceFile replays patterns read from a text file, one per line.
	SequenceFile string

	Ticks    int
	Seed     int64
	Interval time.Duration

	// Region overrides the default region configuration. When replaying a
	// recording, the recording's geometry still wins.
	Region *htm.Config

	Density    float64
	Blocks     int
	Horizontal bool

	KeepInputs bool
	OnTick     func(rep htm.Report, tick model.TickStats)
}

type RunSummary struct {
	RunID               string
	Scape               string
	ArtifactsDir        string
	Ticks               int
	Segments            int
	Synapses            int
	MeanPredictionRate  float64
	FinalPredictionRate float64
	PredictionRates     []float64
	Last                htm.Report
	Geometry            htm.Geometry
}

type RunsRequest struct {
	Limit int
}

type RunItem struct {
	RunID               string
	CreatedAtUTC        string
	Scape               string
	Seed                int64
	Ticks               int
	Columns             int
	CellsPerColumn      int
	MeanPredictionRate  float64
	FinalPredictionRate float64
}

type ExportRequest struct {
	RunID  string
	Latest bool
	OutDir string
}

type ExportSummary struct {
	RunID     string
	Directory string
}

type TickHistoryRequest struct {
	RunID  string
	Latest bool
	Limit  int
}

type RecordingRequest struct {
	Name     string
	Width    int
	Height   int
	Patterns []string
	// File is read instead of Patterns when set.
	File string
}

// ImportSeriesRequest encodes one numeric CSV column as a recording. Each
// value becomes a Width x Height pattern with ActiveBits on bits.
type ImportSeriesRequest struct {
	Name       string
	File       string
	Column     string
	HasHeader  bool
	Normalize  string
	Width      int
	Height     int
	ActiveBits int
	Min        float64
	Max        float64
}

type CompareRequest struct {
	RunIDs []string
	Window int
}

type CompareSummary struct {
	RunIDs  []string
	Average []stats.CurvePoint
	Peaks   []stats.CurvePoint
}

func New(opts Options) (*Client, error) {
	storeKind := opts.StoreKind
	if storeKind == "" {
		storeKind = storage.DefaultStoreKind()
	}
	dbPath := opts.DBPath
	if dbPath == "" {
		dbPath = defaultDBPath
	}
	benchmarksDir := opts.BenchmarksDir
	if benchmarksDir == "" {
		benchmarksDir = stats.DefaultBaseDir()
	}
	exportsDir := opts.ExportsDir
	if exportsDir == "" {
		exportsDir = defaultExportsDir
	}

	store, err := storage.NewStore(storeKind, dbPath)
	if err != nil {
		return nil, err
	}

	return &Client{
		store:         store,
		benchmarksDir: benchmarksDir,
		exportsDir:    exportsDir,
	}, nil
}

func (c *Client) Close() error {
	if c.polis != nil {
		c.polis.Shutdown()
	}
	return storage.CloseIfSupported(c.store)
}

func (c *Client) Init(ctx context.Context) error {
	_, err := c.ensurePolis(ctx)
	return err
}

// Scapes lists the built-in scapes.
func (c *Client) Scapes() []string {
	return scape.Names()
}

func (c *Client) Run(ctx context.Context, req RunRequest) (RunSummary, error) {
	if req.Ticks < 0 {
		return RunSummary{}, errors.New("ticks must be >= 0")
	}
	if req.Ticks == 0 {
		req.Ticks = defaultTicks
	}
	if req.Interval < 0 {
		return RunSummary{}, errors.New("interval must be >= 0")
	}
	if req.Recording != "" && req.SequenceFile != "" {
		return RunSummary{}, errors.New("use either recording or sequence file")
	}

	p, err := c.ensurePolis(ctx)
	if err != nil {
		return RunSummary{}, err
	}

	cfg := htm.DefaultConfig()
	if req.Region != nil {
		cfg = *req.Region
	}
	if req.Seed != 0 {
		cfg.Seed = req.Seed
	}

	sc, err := c.resolveScape(ctx, req, &cfg)
	if err != nil {
		return RunSummary{}, err
	}
	if err := p.RegisterScape(sc); err != nil {
		return RunSummary{}, err
	}

	now := time.Now().UTC()
	runID := fmt.Sprintf("%s-%d-%s", sc.Name(), cfg.Seed, uuid.NewString()[:8])

	result, err := p.RunToCompletion(ctx, platform.RunSpec{
		RunID:      runID,
		Scape:      sc,
		Region:     cfg,
		Ticks:      req.Ticks,
		Interval:   req.Interval,
		KeepInputs: req.KeepInputs,
		Hooks:      platform.RunnerHooks{OnTick: req.OnTick},
	})
	if err != nil {
		return RunSummary{}, err
	}

	summary := stats.Summarize(result.History)
	runDir, err := stats.WriteRunArtifacts(c.benchmarksDir, stats.RunArtifacts{
		Config: stats.RunConfig{
			RunID:      runID,
			Scape:      sc.Name(),
			Recording:  req.Recording,
			Ticks:      req.Ticks,
			IntervalMS: req.Interval.Milliseconds(),
			Region:     cfg,
		},
		Summary: summary,
		Ticks:   result.History,
		Inputs:  result.Inputs,
	})
	if err != nil {
		return RunSummary{}, err
	}

	if err := stats.AppendRunIndex(c.benchmarksDir, stats.RunIndexEntry{
		RunID:               runID,
		Scape:               sc.Name(),
		Ticks:               req.Ticks,
		Seed:                cfg.Seed,
		Columns:             cfg.RegionWidth * cfg.RegionHeight,
		CellsPerColumn:      cfg.CellsPerColumn,
		MeanPredictionRate:  summary.MeanPredictionRate,
		FinalPredictionRate: summary.FinalPredictionRate,
		CreatedAtUTC:        now.Format(time.RFC3339Nano),
	}); err != nil {
		return RunSummary{}, err
	}

	return RunSummary{
		RunID:               runID,
		Scape:               sc.Name(),
		ArtifactsDir:        filepath.Clean(runDir),
		Ticks:               len(result.History),
		Segments:            result.Record.Segments,
		Synapses:            result.Record.Synapses,
		MeanPredictionRate:  summary.MeanPredictionRate,
		FinalPredictionRate: summary.FinalPredictionRate,
		PredictionRates:     stats.PredictionRates(result.History),
		Last:                result.Last,
		Geometry: htm.Geometry{
			RegionWidth:  cfg.RegionWidth,
			RegionHeight: cfg.RegionHeight,
			InputWidth:   cfg.InputWidth,
			InputHeight:  cfg.InputHeight,
			InputRadius:  cfg.InputRadius,
		},
	}, nil
}

func (c *Client) resolveScape(ctx context.Context, req RunRequest, cfg *htm.Config) (scape.Scape, error) {
	switch {
	case req.Recording != "":
		recording, err := c.Recording(ctx, req.Recording)
		if err != nil {
			return nil, err
		}
		geom := recording.Geometry
		if geom.RegionWidth > 0 && geom.RegionHeight > 0 {
			cfg.RegionWidth, cfg.RegionHeight = geom.RegionWidth, geom.RegionHeight
		}
		cfg.InputWidth, cfg.InputHeight = geom.InputWidth, geom.InputHeight
		if geom.InputRadius > 0 {
			cfg.InputRadius = geom.InputRadius
		}
		return scape.FromRecording(recording)
	case req.SequenceFile != "":
		return scape.LoadSequenceFile(req.SequenceFile, cfg.InputWidth, cfg.InputHeight)
	default:
		name := req.Scape
		if name == "" {
			name = "alternating"
		}
		return scape.New(name, cfg.InputWidth, cfg.InputHeight, scape.Options{
			Seed:       cfg.Seed,
			Density:    req.Density,
			Blocks:     req.Blocks,
			Horizontal: req.Horizontal,
		})
	}
}

func (c *Client) Runs(_ context.Context, req RunsRequest) ([]RunItem, error) {
	if req.Limit <= 0 {
		req.Limit = defaultRunsLimit
	}

	entries, err := stats.ListRunIndex(c.benchmarksDir)
	if err != nil {
		return nil, err
	}
	if len(entries) > req.Limit {
		entries = entries[:req.Limit]
	}

	out := make([]RunItem, 0, len(entries))
	for _, e := range entries {
		out = append(out, RunItem{
			RunID:               e.RunID,
			CreatedAtUTC:        e.CreatedAtUTC,
			Scape:               e.Scape,
			Seed:                e.Seed,
			Ticks:               e.Ticks,
			Columns:             e.Columns,
			CellsPerColumn:      e.CellsPerColumn,
			MeanPredictionRate:  e.MeanPredictionRate,
			FinalPredictionRate: e.FinalPredictionRate,
		})
	}
	return out, nil
}

func (c *Client) Export(_ context.Context, req ExportRequest) (ExportSummary, error) {
	if req.RunID != "" && req.Latest {
		return ExportSummary{}, errors.New("use either run id or latest")
	}
	if req.RunID == "" && !req.Latest {
		return ExportSummary{}, errors.New("export requires run id or latest")
	}
	if req.OutDir == "" {
		req.OutDir = c.exportsDir
	}

	runID, err := c.resolveRunID(req.RunID, req.Latest)
	if err != nil {
		return ExportSummary{}, err
	}

	exportedDir, err := stats.ExportRunArtifacts(c.benchmarksDir, runID, req.OutDir)
	if err != nil {
		return ExportSummary{}, err
	}
	return ExportSummary{RunID: runID, Directory: filepath.Clean(exportedDir)}, nil
}

func (c *Client) TickHistory(ctx context.Context, req TickHistoryRequest) ([]model.TickStats, error) {
	if req.RunID != "" && req.Latest {
		return nil, errors.New("use either run id or latest")
	}
	if req.Limit < 0 {
		return nil, errors.New("limit must be >= 0")
	}
	if req.RunID == "" && !req.Latest {
		return nil, errors.New("tick history requires run id or latest")
	}
	runID, err := c.resolveRunID(req.RunID, req.Latest)
	if err != nil {
		return nil, err
	}

	history, err := c.history(ctx, runID)
	if err != nil {
		return nil, err
	}
	if req.Limit > 0 && len(history) > req.Limit {
		history = history[:req.Limit]
	}
	return history, nil
}

// history prefers the store and falls back to the run's tick log, so runs
// made with another store kind stay readable.
func (c *Client) history(ctx context.Context, runID string) ([]model.TickStats, error) {
	if _, err := c.ensurePolis(ctx); err != nil {
		return nil, err
	}
	history, ok, err := c.store.GetTickHistory(ctx, runID)
	if err != nil {
		return nil, err
	}
	if ok {
		return history, nil
	}
	history, ok, err = stats.ReadTickLog(c.benchmarksDir, runID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("tick history not found for run id: %s", runID)
	}
	return history, nil
}

// Compare averages the prediction-rate curves of several runs.
func (c *Client) Compare(ctx context.Context, req CompareRequest) (CompareSummary, error) {
	if len(req.RunIDs) == 0 {
		return CompareSummary{}, errors.New("compare requires at least one run id")
	}
	if req.Window <= 0 {
		req.Window = 10
	}
	series := make([][]float64, 0, len(req.RunIDs))
	for _, runID := range req.RunIDs {
		history, err := c.history(ctx, runID)
		if err != nil {
			return CompareSummary{}, err
		}
		series = append(series, stats.PredictionRates(history))
	}
	return CompareSummary{
		RunIDs:  append([]string(nil), req.RunIDs...),
		Average: stats.AverageCurve(series, req.Window),
		Peaks:   stats.PeakCurve(series),
	}, nil
}

func (c *Client) SaveRecording(ctx context.Context, req RecordingRequest) (model.Recording, error) {
	if req.Name == "" {
		return model.Recording{}, errors.New("recording name is required")
	}
	var (
		sc  *scape.SequenceScape
		err error
	)
	if req.File != "" {
		sc, err = scape.LoadSequenceFile(req.File, req.Width, req.Height)
	} else {
		sc, err = scape.NewSequenceScapeFromStrings(req.Name, req.Width, req.Height, req.Patterns)
	}
	if err != nil {
		return model.Recording{}, err
	}

	if _, err := c.ensurePolis(ctx); err != nil {
		return model.Recording{}, err
	}
	recording := model.Recording{
		VersionedRecord: storage.CurrentVersion(),
		Name:            req.Name,
		Geometry:        model.RegionGeometry{InputWidth: req.Width, InputHeight: req.Height},
		Patterns:        sc.Strings(),
	}
	if err := c.keepRecording(ctx, recording); err != nil {
		return model.Recording{}, err
	}
	return recording, nil
}

func (c *Client) ImportSeries(ctx context.Context, req ImportSeriesRequest) (model.Recording, error) {
	if req.Name == "" {
		return model.Recording{}, errors.New("recording name is required")
	}
	if req.File == "" {
		return model.Recording{}, errors.New("series file is required")
	}
	if req.Width <= 0 || req.Height <= 0 {
		return model.Recording{}, fmt.Errorf("pattern size must be > 0, got %dx%d", req.Width, req.Height)
	}
	activeBits := req.ActiveBits
	if activeBits == 0 {
		activeBits = max(1, req.Width*req.Height/10)
	}

	f, err := os.Open(req.File)
	if err != nil {
		return model.Recording{}, err
	}
	defer f.Close()
	values, err := dataextract.ExtractSeries(f, dataextract.SeriesOptions{
		HasHeader:        req.HasHeader,
		ValueColumnName:  req.Column,
		ValueColumnIndex: -1,
		Normalize:        req.Normalize,
	})
	if err != nil {
		return model.Recording{}, fmt.Errorf("read series %s: %w", req.File, err)
	}
	if len(values) == 0 {
		return model.Recording{}, fmt.Errorf("series %s has no values", req.File)
	}
	patterns, err := dataextract.EncodeScalars(values, dataextract.ScalarEncoding{
		Size:       req.Width * req.Height,
		ActiveBits: activeBits,
		Min:        req.Min,
		Max:        req.Max,
	})
	if err != nil {
		return model.Recording{}, err
	}
	return c.SaveRecording(ctx, RecordingRequest{
		Name:     req.Name,
		Width:    req.Width,
		Height:   req.Height,
		Patterns: patterns,
	})
}

// RecordRun stores the inputs a run kept as a named recording.
func (c *Client) RecordRun(ctx context.Context, runID, name string) (model.Recording, error) {
	recording, ok, err := stats.ReadRecording(c.benchmarksDir, runID)
	if err != nil {
		return model.Recording{}, err
	}
	if !ok {
		return model.Recording{}, fmt.Errorf("run %s kept no inputs", runID)
	}
	if name != "" {
		recording.Name = name
	}
	if _, err := c.ensurePolis(ctx); err != nil {
		return model.Recording{}, err
	}
	if err := c.keepRecording(ctx, recording); err != nil {
		return model.Recording{}, err
	}
	return recording, nil
}

// keepRecording saves to the store and to the benchmarks directory, so a
// recording made with the memory store is still there for the next process.
func (c *Client) keepRecording(ctx context.Context, recording model.Recording) error {
	if err := c.store.SaveRecording(ctx, recording); err != nil {
		return err
	}
	return stats.WriteNamedRecording(c.benchmarksDir, recording)
}

// Recordings lists the names held by the store and on disk.
func (c *Client) Recordings(ctx context.Context) ([]string, error) {
	if _, err := c.ensurePolis(ctx); err != nil {
		return nil, err
	}
	stored, err := c.store.ListRecordings(ctx)
	if err != nil {
		return nil, err
	}
	kept, err := stats.ListNamedRecordings(c.benchmarksDir)
	if err != nil {
		return nil, err
	}
	names := append(stored, kept...)
	slices.Sort(names)
	return slices.Compact(names), nil
}

// Recording looks in the store first, then in the benchmarks directory.
func (c *Client) Recording(ctx context.Context, name string) (model.Recording, error) {
	if _, err := c.ensurePolis(ctx); err != nil {
		return model.Recording{}, err
	}
	recording, ok, err := c.store.GetRecording(ctx, name)
	if err != nil {
		return model.Recording{}, err
	}
	if ok {
		return recording, nil
	}
	recording, ok, err = stats.ReadNamedRecording(c.benchmarksDir, name)
	if err != nil {
		return model.Recording{}, err
	}
	if !ok {
		return model.Recording{}, fmt.Errorf("recording not found: %s", name)
	}
	return recording, nil
}

func (c *Client) resolveRunID(runID string, latest bool) (string, error) {
	if !latest {
		return runID, nil
	}
	entries, err := stats.ListRunIndex(c.benchmarksDir)
	if err != nil {
		return "", err
	}
	if len(entries) == 0 {
		return "", errors.New("no runs available")
	}
	return entries[0].RunID, nil
}

func (c *Client) ensurePolis(ctx context.Context) (*platform.Polis, error) {
	if c.polis != nil && c.polis.Started() {
		return c.polis, nil
	}
	p := platform.NewPolis(platform.Config{Store: c.store})
	if err := p.Init(ctx); err != nil {
		return nil, err
	}
	c.polis = p
	return c.polis, nil
}
