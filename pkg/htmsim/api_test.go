package htmsim

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"htmsim/internal/htm"
	"htmsim/internal/model"
)

func newTestClient(t *testing.T) (*Client, string) {
	t.Helper()
	base := t.TempDir()
	client, err := New(Options{
		StoreKind:     "memory",
		BenchmarksDir: filepath.Join(base, "benchmarks"),
		ExportsDir:    filepath.Join(base, "exports"),
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	t.Cleanup(func() {
		_ = client.Close()
	})
	if err := client.Init(context.Background()); err != nil {
		t.Fatalf("init: %v", err)
	}
	return client, base
}

func smallRegion() *htm.Config {
	cfg := htm.DefaultConfig()
	cfg.RegionWidth, cfg.RegionHeight = 4, 4
	cfg.InputWidth, cfg.InputHeight = 4, 4
	return &cfg
}

func TestClientRunRunsAndExport(t *testing.T) {
	client, base := newTestClient(t)
	ctx := context.Background()

	ticks := 0
	summary, err := client.Run(ctx, RunRequest{
		Scape:  "ab",
		Ticks:  12,
		Seed:   42,
		Region: smallRegion(),
		OnTick: func(htm.Report, model.TickStats) { ticks++ },
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if summary.RunID == "" || !strings.HasPrefix(summary.RunID, "alternating-42-") {
		t.Fatalf("unexpected run id: %q", summary.RunID)
	}
	if summary.Scape != "alternating" || summary.Ticks != 12 || ticks != 12 || len(summary.PredictionRates) != 12 {
		t.Fatalf("unexpected summary: %+v (hook ticks=%d)", summary, ticks)
	}
	if summary.Last.Tick != 12 || summary.Geometry.InputWidth != 4 {
		t.Fatalf("unexpected last report or geometry: %+v", summary)
	}

	runs, err := client.Runs(ctx, RunsRequest{Limit: 5})
	if err != nil {
		t.Fatalf("runs: %v", err)
	}
	if len(runs) != 1 || runs[0].RunID != summary.RunID || runs[0].Columns != 16 || runs[0].Seed != 42 {
		t.Fatalf("unexpected runs list: %+v", runs)
	}

	history, err := client.TickHistory(ctx, TickHistoryRequest{Latest: true, Limit: 5})
	if err != nil {
		t.Fatalf("tick history: %v", err)
	}
	if len(history) != 5 || history[0].Tick != 1 {
		t.Fatalf("unexpected history: %+v", history)
	}

	exported, err := client.Export(ctx, ExportRequest{Latest: true})
	if err != nil {
		t.Fatalf("export latest: %v", err)
	}
	if exported.RunID != summary.RunID {
		t.Fatalf("exported run mismatch: got=%s want=%s", exported.RunID, summary.RunID)
	}
	if !strings.HasPrefix(exported.Directory, filepath.Join(base, "exports")) {
		t.Fatalf("export should default to exports dir: %s", exported.Directory)
	}
	for _, file := range []string{"config.json", "summary.json", "tick_log.tsv"} {
		if _, err := os.Stat(filepath.Join(exported.Directory, file)); err != nil {
			t.Fatalf("expected exported file %s: %v", file, err)
		}
	}

	if _, err := client.Export(ctx, ExportRequest{}); err == nil {
		t.Fatal("expected error without run id or latest")
	}
	if _, err := client.Export(ctx, ExportRequest{RunID: "x", Latest: true}); err == nil {
		t.Fatal("expected error with both run id and latest")
	}
}

func TestClientRunValidatesRequest(t *testing.T) {
	client, _ := newTestClient(t)
	ctx := context.Background()

	for name, req := range map[string]RunRequest{
		"negative ticks":    {Ticks: -1},
		"negative interval": {Interval: -1},
		"both sources":      {Recording: "a", SequenceFile: "b"},
		"unknown scape":     {Scape: "nope", Region: smallRegion()},
		"missing recording": {Recording: "nope"},
	} {
		if _, err := client.Run(ctx, req); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestClientRecordingsRoundTrip(t *testing.T) {
	client, _ := newTestClient(t)
	ctx := context.Background()

	if _, err := client.SaveRecording(ctx, RecordingRequest{Name: "bad", Width: 2, Height: 1, Patterns: []string{"111"}}); err == nil {
		t.Fatal("expected size error")
	}
	rec, err := client.SaveRecording(ctx, RecordingRequest{
		Name:     "ab",
		Width:    4,
		Height:   4,
		Patterns: []string{"1100110011001100", "0011001100110011"},
	})
	if err != nil {
		t.Fatalf("save recording: %v", err)
	}
	if rec.SchemaVersion == 0 || len(rec.Patterns) != 2 {
		t.Fatalf("unexpected recording: %+v", rec)
	}
	names, err := client.Recordings(ctx)
	if err != nil || len(names) != 1 || names[0] != "ab" {
		t.Fatalf("unexpected recordings: %v %v", names, err)
	}

	region := smallRegion()
	region.RegionWidth, region.RegionHeight = 3, 3
	summary, err := client.Run(ctx, RunRequest{Recording: "ab", Ticks: 4, Region: region, KeepInputs: true})
	if err != nil {
		t.Fatalf("replay recording: %v", err)
	}
	if summary.Scape != "ab" || summary.Geometry.RegionWidth != 3 {
		t.Fatalf("unexpected replay summary: %+v", summary)
	}

	copied, err := client.RecordRun(ctx, summary.RunID, "ab-replayed")
	if err != nil {
		t.Fatalf("record run: %v", err)
	}
	if len(copied.Patterns) != 4 || copied.Patterns[2] != "1100110011001100" || copied.Geometry.RegionWidth != 3 {
		t.Fatalf("unexpected recorded run: %+v", copied)
	}
	got, err := client.Recording(ctx, "ab-replayed")
	if err != nil || got.Name != "ab-replayed" {
		t.Fatalf("get recording: %+v %v", got, err)
	}
	if _, err := client.Recording(ctx, "missing"); err == nil {
		t.Fatal("expected missing recording error")
	}
}

func TestClientRecordingsSurviveNewClient(t *testing.T) {
	client, base := newTestClient(t)
	ctx := context.Background()
	if _, err := client.SaveRecording(ctx, RecordingRequest{
		Name:     "ab",
		Width:    4,
		Height:   4,
		Patterns: []string{"1100110011001100", "0011001100110011"},
	}); err != nil {
		t.Fatalf("save recording: %v", err)
	}

	next, err := New(Options{StoreKind: "memory", BenchmarksDir: filepath.Join(base, "benchmarks")})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	defer func() {
		_ = next.Close()
	}()
	names, err := next.Recordings(ctx)
	if err != nil || len(names) != 1 || names[0] != "ab" {
		t.Fatalf("recordings from disk: %v %v", names, err)
	}
	rec, err := next.Recording(ctx, "ab")
	if err != nil || len(rec.Patterns) != 2 {
		t.Fatalf("recording from disk: %+v %v", rec, err)
	}
	summary, err := next.Run(ctx, RunRequest{Recording: "ab", Ticks: 3, Region: smallRegion()})
	if err != nil || summary.Scape != "ab" {
		t.Fatalf("replay from disk: %+v %v", summary, err)
	}
	if _, err := next.Recording(ctx, "missing"); err == nil {
		t.Fatal("expected missing recording error")
	}
}

func TestClientRunFromSequenceFile(t *testing.T) {
	client, _ := newTestClient(t)
	path := filepath.Join(t.TempDir(), "bars.txt")
	content := "# two frames\n1000 1000 1000 1000\n0100 0100 0100 0100\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write sequence: %v", err)
	}
	summary, err := client.Run(context.Background(), RunRequest{SequenceFile: path, Ticks: 3, Region: smallRegion()})
	if err != nil {
		t.Fatalf("run sequence file: %v", err)
	}
	if summary.Scape != "bars" || summary.Ticks != 3 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
}

func TestClientImportSeries(t *testing.T) {
	client, _ := newTestClient(t)
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "load.csv")
	content := "t,load\n0,0\n1,50\n2,100\n3,50\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write series: %v", err)
	}

	rec, err := client.ImportSeries(ctx, ImportSeriesRequest{
		Name:       "load",
		File:       path,
		Column:     "load",
		HasHeader:  true,
		Width:      4,
		Height:     4,
		ActiveBits: 4,
	})
	if err != nil {
		t.Fatalf("import series: %v", err)
	}
	if len(rec.Patterns) != 4 || rec.Geometry.InputWidth != 4 {
		t.Fatalf("unexpected recording: %+v", rec)
	}
	if rec.Patterns[0] != "1111000000000000" || rec.Patterns[2] != "0000000000001111" || rec.Patterns[1] != rec.Patterns[3] {
		t.Fatalf("unexpected encoding: %v", rec.Patterns)
	}

	summary, err := client.Run(ctx, RunRequest{Recording: "load", Ticks: 8, Region: smallRegion()})
	if err != nil {
		t.Fatalf("replay imported series: %v", err)
	}
	if summary.Scape != "load" || summary.Ticks != 8 {
		t.Fatalf("unexpected summary: %+v", summary)
	}

	if _, err := client.ImportSeries(ctx, ImportSeriesRequest{Name: "load", File: path, Width: 0, Height: 4}); err == nil {
		t.Fatal("expected size error")
	}
	if _, err := client.ImportSeries(ctx, ImportSeriesRequest{Name: "load", File: path, Column: "missing", HasHeader: true, Width: 4, Height: 4}); err == nil {
		t.Fatal("expected missing column error")
	}
}

func TestClientCompare(t *testing.T) {
	client, _ := newTestClient(t)
	ctx := context.Background()

	var ids []string
	for _, seed := range []int64{1, 2} {
		summary, err := client.Run(ctx, RunRequest{Scape: "alternating", Ticks: 6, Seed: seed, Region: smallRegion()})
		if err != nil {
			t.Fatalf("run seed %d: %v", seed, err)
		}
		ids = append(ids, summary.RunID)
	}
	cmp, err := client.Compare(ctx, CompareRequest{RunIDs: ids, Window: 3})
	if err != nil {
		t.Fatalf("compare: %v", err)
	}
	if len(cmp.Average) != 2 || cmp.Average[1].Tick != 6 || len(cmp.Peaks) != 2 {
		t.Fatalf("unexpected comparison: %+v", cmp)
	}
	if _, err := client.Compare(ctx, CompareRequest{}); err == nil {
		t.Fatal("expected error without run ids")
	}
	if _, err := client.Compare(ctx, CompareRequest{RunIDs: []string{"missing"}}); err == nil {
		t.Fatal("expected error for unknown run")
	}
}
