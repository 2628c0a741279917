package stats

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/exp/slices"

	"htmsim/internal/htm"
	"htmsim/internal/model"
	"htmsim/internal/storage"
)

const (
	runIndexFile   = "run_index.json"
	configFile     = "config.json"
	summaryFile    = "summary.json"
	tickLogFile    = "tick_log.tsv"
	recordingFile  = "recording.json"
	recordingsDir  = "recordings"
	defaultBaseDir = "benchmarks"
)

// DefaultBaseDir is where run artifacts go when no directory is configured.
func DefaultBaseDir() string {
	return defaultBaseDir
}

type RunConfig struct {
	RunID      string     `json:"run_id"`
	Scape      string     `json:"scape"`
	Recording  string     `json:"recording,omitempty"`
	Ticks      int        `json:"ticks"`
	IntervalMS int64      `json:"interval_ms,omitempty"`
	Region     htm.Config `json:"region"`
}

type RunArtifacts struct {
	Config  RunConfig         `json:"config"`
	Summary Summary           `json:"summary"`
	Ticks   []model.TickStats `json:"ticks"`
	// Inputs optionally keeps the presented patterns so the run can be
	// replayed as a recording.
	Inputs []string `json:"inputs,omitempty"`
}

type RunIndexEntry struct {
	RunID               string  `json:"run_id"`
	Scape               string  `json:"scape"`
	Ticks               int     `json:"ticks"`
	Seed                int64   `json:"seed"`
	Columns             int     `json:"columns"`
	CellsPerColumn      int     `json:"cells_per_column"`
	MeanPredictionRate  float64 `json:"mean_prediction_rate"`
	FinalPredictionRate float64 `json:"final_prediction_rate"`
	CreatedAtUTC        string  `json:"created_at_utc"`
}

func WriteRunArtifacts(baseDir string, artifacts RunArtifacts) (string, error) {
	if artifacts.Config.RunID == "" {
		return "", fmt.Errorf("run id is required")
	}

	runDir := filepath.Join(baseDir, artifacts.Config.RunID)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return "", err
	}

	if err := writeJSON(filepath.Join(runDir, configFile), artifacts.Config); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(runDir, summaryFile), artifacts.Summary); err != nil {
		return "", err
	}

	tickLog := NewTickLog()
	for _, t := range artifacts.Ticks {
		tickLog.Append(t)
	}
	f, err := os.Create(filepath.Join(runDir, tickLogFile))
	if err != nil {
		return "", err
	}
	if err := tickLog.WriteTSV(f); err != nil {
		_ = f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", err
	}

	if len(artifacts.Inputs) > 0 {
		cfg := artifacts.Config.Region
		recording := model.Recording{
			VersionedRecord: storage.CurrentVersion(),
			Name:            artifacts.Config.RunID,
			Geometry: model.RegionGeometry{
				RegionWidth:  cfg.RegionWidth,
				RegionHeight: cfg.RegionHeight,
				InputWidth:   cfg.InputWidth,
				InputHeight:  cfg.InputHeight,
				InputRadius:  cfg.InputRadius,
			},
			Patterns: artifacts.Inputs,
		}
		if err := writeJSON(filepath.Join(runDir, recordingFile), recording); err != nil {
			return "", err
		}
	}

	return runDir, nil
}

func AppendRunIndex(baseDir string, entry RunIndexEntry) error {
	if entry.RunID == "" {
		return fmt.Errorf("run id is required")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return err
	}

	index, err := ListRunIndex(baseDir)
	if err != nil {
		return err
	}

	for i := range index {
		if index[i].RunID == entry.RunID {
			index[i] = entry
			return writeJSON(filepath.Join(baseDir, runIndexFile), index)
		}
	}

	index = append(index, entry)
	return writeJSON(filepath.Join(baseDir, runIndexFile), index)
}

// ListRunIndex returns entries newest first. Entries with equal timestamps
// keep the later appended one first.
func ListRunIndex(baseDir string) ([]RunIndexEntry, error) {
	path := filepath.Join(baseDir, runIndexFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunIndexEntry{}, nil
		}
		return nil, err
	}

	var entries []RunIndexEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}

	order := make(map[string]int, len(entries))
	for i, e := range entries {
		order[e.RunID] = i
	}
	slices.SortStableFunc(entries, func(a, b RunIndexEntry) int {
		if c := strings.Compare(b.CreatedAtUTC, a.CreatedAtUTC); c != 0 {
			return c
		}
		return order[b.RunID] - order[a.RunID]
	})
	return entries, nil
}

func ExportRunArtifacts(baseDir, runID, outDir string) (string, error) {
	if runID == "" {
		return "", fmt.Errorf("run id is required")
	}

	src := filepath.Join(baseDir, runID)
	if _, err := os.Stat(src); err != nil {
		return "", err
	}

	dst := filepath.Join(outDir, runID)
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return "", err
	}

	for _, file := range []string{configFile, summaryFile, tickLogFile} {
		if err := copyFile(filepath.Join(src, file), filepath.Join(dst, file)); err != nil {
			return "", err
		}
	}
	recordingPath := filepath.Join(src, recordingFile)
	if _, err := os.Stat(recordingPath); err == nil {
		if err := copyFile(recordingPath, filepath.Join(dst, recordingFile)); err != nil {
			return "", err
		}
	} else if !os.IsNotExist(err) {
		return "", err
	}

	return dst, nil
}

func ReadRunConfig(baseDir, runID string) (RunConfig, bool, error) {
	var cfg RunConfig
	ok, err := readJSON(filepath.Join(baseDir, runID, configFile), &cfg)
	return cfg, ok, err
}

func ReadSummary(baseDir, runID string) (Summary, bool, error) {
	var summary Summary
	ok, err := readJSON(filepath.Join(baseDir, runID, summaryFile), &summary)
	return summary, ok, err
}

// ReadRecording loads the inputs a run kept, if any.
func ReadRecording(baseDir, runID string) (model.Recording, bool, error) {
	var recording model.Recording
	ok, err := readJSON(filepath.Join(baseDir, runID, recordingFile), &recording)
	return recording, ok, err
}

// WriteNamedRecording keeps a recording under baseDir/recordings so it
// survives stores that live only as long as the process.
func WriteNamedRecording(baseDir string, recording model.Recording) error {
	path, err := namedRecordingPath(baseDir, recording.Name)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return writeJSON(path, recording)
}

func ReadNamedRecording(baseDir, name string) (model.Recording, bool, error) {
	var recording model.Recording
	path, err := namedRecordingPath(baseDir, name)
	if err != nil {
		return recording, false, err
	}
	ok, err := readJSON(path, &recording)
	return recording, ok, err
}

// ListNamedRecordings returns the recording names kept under baseDir, sorted.
func ListNamedRecordings(baseDir string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(baseDir, recordingsDir))
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), ".json"))
	}
	slices.Sort(names)
	return names, nil
}

func namedRecordingPath(baseDir, name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("recording name is required")
	}
	if name != filepath.Base(name) || name == "." || name == ".." {
		return "", fmt.Errorf("invalid recording name: %q", name)
	}
	return filepath.Join(baseDir, recordingsDir, name+".json"), nil
}

func ReadTickLog(baseDir, runID string) ([]model.TickStats, bool, error) {
	file, err := os.Open(filepath.Join(baseDir, runID, tickLogFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	defer file.Close()

	history, err := ReadTickTSV(file)
	if err != nil {
		return nil, false, err
	}
	return history, true, nil
}

func readJSON(path string, value any) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(data, value); err != nil {
		return false, err
	}
	return true, nil
}

func writeJSON(path string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o644)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}
