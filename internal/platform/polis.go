package platform

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/exp/slices"

	"htmsim/internal/htm"
	"htmsim/internal/model"
	"htmsim/internal/scape"
	"htmsim/internal/stats"
	"htmsim/internal/storage"
)

type Config struct {
	Store storage.Store
}

type StopReason string

const (
	StopReasonNormal   StopReason = "normal"
	StopReasonShutdown StopReason = "shutdown"
)

// RunSpec describes one simulation run.
type RunSpec struct {
	RunID      string
	Scape      scape.Scape
	Region     htm.Config
	Ticks      int
	Interval   time.Duration
	KeepInputs bool
	Hooks      RunnerHooks
}

type RunResult struct {
	Record  model.RunRecord
	History []model.TickStats
	Inputs  []string
	Last    htm.Report
}

// Polis owns the store, the registered scapes and the runs in flight.
type Polis struct {
	store storage.Store

	mu sync.RWMutex

	scapes         map[string]scape.Scape
	runs           map[string]*Runner
	started        bool
	lastStopReason StopReason
}

func NewPolis(cfg Config) *Polis {
	return &Polis{
		store:          cfg.Store,
		scapes:         make(map[string]scape.Scape),
		runs:           make(map[string]*Runner),
		lastStopReason: StopReasonNormal,
	}
}

func (p *Polis) Init(ctx context.Context) error {
	if p.store == nil {
		return fmt.Errorf("store is required")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return nil
	}
	if err := p.store.Init(ctx); err != nil {
		return err
	}
	p.started = true
	return nil
}

func (p *Polis) Store() storage.Store {
	return p.store
}

func (p *Polis) RegisterScape(s scape.Scape) error {
	if s == nil {
		return fmt.Errorf("scape is nil")
	}

	name := s.Name()
	if name == "" {
		return fmt.Errorf("scape name is required")
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.started {
		return fmt.Errorf("polis is not initialized")
	}
	p.scapes[name] = s
	return nil
}

func (p *Polis) GetScape(name string) (scape.Scape, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	s, ok := p.scapes[name]
	return s, ok
}

func (p *Polis) RegisteredScapes() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	names := make([]string, 0, len(p.scapes))
	for name := range p.scapes {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// NewRun builds the region for spec and registers its runner. The caller
// must release it with FinishRun.
func (p *Polis) NewRun(spec RunSpec) (*Runner, error) {
	if spec.RunID == "" {
		return nil, fmt.Errorf("run id is required")
	}
	region, err := htm.NewRegion(spec.Region)
	if err != nil {
		return nil, err
	}
	runner, err := NewRunner(spec.RunID, region, spec.Scape, spec.KeepInputs, spec.Hooks)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.started {
		return nil, fmt.Errorf("polis is not initialized")
	}
	if _, exists := p.runs[spec.RunID]; exists {
		return nil, fmt.Errorf("run already active: %s", spec.RunID)
	}
	p.runs[spec.RunID] = runner
	return runner, nil
}

// FinishRun unregisters a run and persists its record and tick history. A
// run the polis already dropped, for example on shutdown, is not persisted
// and yields ErrRunStopped.
func (p *Polis) FinishRun(ctx context.Context, runner *Runner) (RunResult, error) {
	p.mu.Lock()
	current, ok := p.runs[runner.ID()]
	registered := ok && current == runner
	if registered {
		delete(p.runs, runner.ID())
	}
	p.mu.Unlock()
	if !registered {
		return RunResult{}, fmt.Errorf("%w: %s", ErrRunStopped, runner.ID())
	}

	history := runner.History()
	summary := stats.Summarize(history)
	cfg := runner.Region().Config()
	segments, synapses := runner.Region().Counts()
	record := model.RunRecord{
		VersionedRecord: storage.CurrentVersion(),
		ID:              runner.ID(),
		Scape:           runner.Scape().Name(),
		Seed:            cfg.Seed,
		Ticks:           len(history),
		Geometry: model.RegionGeometry{
			RegionWidth:  cfg.RegionWidth,
			RegionHeight: cfg.RegionHeight,
			InputWidth:   cfg.InputWidth,
			InputHeight:  cfg.InputHeight,
			InputRadius:  cfg.InputRadius,
		},
		CellsPerColumn:      cfg.CellsPerColumn,
		Segments:            segments,
		Synapses:            synapses,
		MeanPredictionRate:  summary.MeanPredictionRate,
		FinalPredictionRate: summary.FinalPredictionRate,
		CreatedAt:           time.Now().UTC().Format(time.RFC3339),
	}
	if err := p.store.SaveRun(ctx, record); err != nil {
		return RunResult{}, fmt.Errorf("save run %s: %w", record.ID, err)
	}
	if err := p.store.SaveTickHistory(ctx, record.ID, history); err != nil {
		return RunResult{}, fmt.Errorf("save tick history %s: %w", record.ID, err)
	}
	return RunResult{
		Record:  record,
		History: history,
		Inputs:  runner.Inputs(),
		Last:    runner.LastReport(),
	}, nil
}

// RunToCompletion steps spec.Ticks ticks. A positive interval paces the run
// through the background loop; otherwise the ticks run on the caller's
// goroutine. Only runs that step every tick are persisted; a run stopped
// early returns ErrRunStopped.
func (p *Polis) RunToCompletion(ctx context.Context, spec RunSpec) (RunResult, error) {
	if spec.Ticks <= 0 {
		return RunResult{}, fmt.Errorf("ticks must be > 0")
	}
	runner, err := p.NewRun(spec)
	if err != nil {
		return RunResult{}, err
	}
	if spec.Interval > 0 {
		if err := runner.Start(ctx, spec.Ticks, spec.Interval); err != nil {
			p.dropRun(runner)
			return RunResult{}, err
		}
		err = runner.Wait()
	} else {
		err = runner.Run(ctx, spec.Ticks)
	}
	if err != nil {
		p.dropRun(runner)
		return RunResult{}, err
	}
	return p.FinishRun(ctx, runner)
}

func (p *Polis) dropRun(runner *Runner) {
	p.mu.Lock()
	if current, ok := p.runs[runner.ID()]; ok && current == runner {
		delete(p.runs, runner.ID())
	}
	p.mu.Unlock()
}

func (p *Polis) PauseRun(runID string) error {
	return p.sendRunCommand(runID, CommandPause)
}

func (p *Polis) ContinueRun(runID string) error {
	return p.sendRunCommand(runID, CommandContinue)
}

func (p *Polis) StopRun(runID string) error {
	runner, err := p.activeRun(runID)
	if err != nil {
		return err
	}
	runner.Stop()
	return nil
}

func (p *Polis) activeRun(runID string) (*Runner, error) {
	if runID == "" {
		return nil, fmt.Errorf("run id is required")
	}
	p.mu.RLock()
	runner, ok := p.runs[runID]
	p.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRunNotActive, runID)
	}
	return runner, nil
}

func (p *Polis) sendRunCommand(runID string, cmd RunCommand) error {
	runner, err := p.activeRun(runID)
	if err != nil {
		return err
	}
	return runner.send(cmd)
}

func (p *Polis) ActiveRuns() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	ids := make([]string, 0, len(p.runs))
	for id := range p.runs {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func (p *Polis) Stop() {
	_ = p.StopWithReason(StopReasonNormal)
}

func (p *Polis) Shutdown() {
	_ = p.StopWithReason(StopReasonShutdown)
}

// StopWithReason stops every run in flight and forgets registered scapes.
// Runs stopped this way are not persisted.
func (p *Polis) StopWithReason(reason StopReason) error {
	if !isValidStopReason(reason) {
		return fmt.Errorf("invalid stop reason: %s", reason)
	}
	p.mu.Lock()
	runners := make([]*Runner, 0, len(p.runs))
	for _, runner := range p.runs {
		runners = append(runners, runner)
	}
	p.runs = make(map[string]*Runner)
	p.scapes = make(map[string]scape.Scape)
	p.started = false
	p.lastStopReason = reason
	p.mu.Unlock()

	for _, runner := range runners {
		runner.Stop()
	}
	return nil
}

func (p *Polis) Started() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.started
}

func (p *Polis) LastStopReason() StopReason {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.lastStopReason
}

func isValidStopReason(reason StopReason) bool {
	switch reason {
	case StopReasonNormal, StopReasonShutdown:
		return true
	default:
		return false
	}
}
