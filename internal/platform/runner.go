package platform

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"htmsim/internal/htm"
	"htmsim/internal/model"
	"htmsim/internal/scape"
	"htmsim/internal/stats"
)

type RunState string

const (
	RunStateIdle    RunState = "idle"
	RunStateRunning RunState = "running"
	RunStatePaused  RunState = "paused"
	RunStateStopped RunState = "stopped"
)

type RunCommand string

const (
	CommandPause    RunCommand = "pause"
	CommandContinue RunCommand = "continue"
	CommandStop     RunCommand = "stop"
)

var (
	ErrRunNotActive = errors.New("run is not active")
	// ErrRunStopped reports a bounded run that was stopped before it stepped
	// all of its ticks.
	ErrRunStopped = errors.New("run stopped before completion")
)

type RunnerHooks struct {
	// OnTick is called after every tick, outside the runner's lock.
	OnTick func(rep htm.Report, tick model.TickStats)
}

// Runner drives a region with the patterns of a scape. Steps are serialized,
// so a runner may be stepped by hand while no background loop is active.
type Runner struct {
	id         string
	region     *htm.Region
	scape      scape.Scape
	keepInputs bool
	hooks      RunnerHooks

	mu      sync.Mutex
	history []model.TickStats
	inputs  []string
	last    htm.Report

	ctlMu    sync.Mutex
	state    RunState
	control  chan RunCommand
	cancel   context.CancelFunc
	done     chan struct{}
	stopping bool
	err      error
}

func NewRunner(id string, region *htm.Region, sc scape.Scape, keepInputs bool, hooks RunnerHooks) (*Runner, error) {
	if region == nil {
		return nil, errors.New("region is required")
	}
	if sc == nil {
		return nil, errors.New("scape is required")
	}
	geom := region.Geometry()
	if sc.Width() != geom.InputWidth || sc.Height() != geom.InputHeight {
		return nil, fmt.Errorf("%w: scape %s is %dx%d, region input is %dx%d",
			htm.ErrPatternSize, sc.Name(), sc.Width(), sc.Height(), geom.InputWidth, geom.InputHeight)
	}
	return &Runner{
		id:         id,
		region:     region,
		scape:      sc,
		keepInputs: keepInputs,
		hooks:      hooks,
		state:      RunStateIdle,
	}, nil
}

func (r *Runner) ID() string {
	return r.id
}

func (r *Runner) Region() *htm.Region {
	return r.region
}

func (r *Runner) Scape() scape.Scape {
	return r.scape
}

// Step presents the next pattern of the scape and runs one tick.
func (r *Runner) Step(ctx context.Context) (htm.Report, error) {
	if err := ctx.Err(); err != nil {
		return htm.Report{}, err
	}

	r.mu.Lock()
	pattern := r.scape.Pattern(r.region.Tick())
	rep, err := r.region.Step(pattern)
	if err != nil {
		r.mu.Unlock()
		return htm.Report{}, fmt.Errorf("tick %d: %w", r.region.Tick()+1, err)
	}
	segments, synapses := r.region.Counts()
	tick := stats.TickStatsFromReport(rep, segments, synapses)
	r.history = append(r.history, tick)
	if r.keepInputs {
		r.inputs = append(r.inputs, htm.FormatPattern(pattern))
	}
	r.last = rep
	r.mu.Unlock()

	if r.hooks.OnTick != nil {
		r.hooks.OnTick(rep, tick)
	}
	return rep, nil
}

// Run steps n ticks on the caller's goroutine. Stop may end it early, in
// which case Run returns ErrRunStopped. Pause and Resume do not apply.
func (r *Runner) Run(ctx context.Context, n int) error {
	r.ctlMu.Lock()
	if r.state == RunStateRunning || r.state == RunStatePaused {
		r.ctlMu.Unlock()
		return fmt.Errorf("run already active: %s", r.id)
	}
	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	r.cancel = cancel
	r.control = nil
	r.done = done
	r.stopping = false
	r.err = nil
	r.state = RunStateRunning
	r.ctlMu.Unlock()

	var err error
	for i := 0; i < n && err == nil; i++ {
		_, err = r.Step(runCtx)
	}

	r.ctlMu.Lock()
	if r.stopping && errors.Is(err, context.Canceled) {
		err = fmt.Errorf("%w: %s", ErrRunStopped, r.id)
	}
	r.err = err
	r.state = RunStateIdle
	cancel()
	r.ctlMu.Unlock()
	close(done)
	return err
}

// Start runs the region in the background, one tick per interval, until
// ticks have been stepped, ctx is cancelled or Stop is called. A
// non-positive ticks runs until stopped; a zero interval steps as fast as
// possible.
func (r *Runner) Start(ctx context.Context, ticks int, interval time.Duration) error {
	r.ctlMu.Lock()
	defer r.ctlMu.Unlock()
	if r.state == RunStateRunning || r.state == RunStatePaused {
		return fmt.Errorf("run already active: %s", r.id)
	}
	runCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.control = make(chan RunCommand, 16)
	r.done = make(chan struct{})
	r.stopping = false
	r.err = nil
	r.state = RunStateRunning

	go r.loop(runCtx, r.control, r.done, ticks, interval)
	return nil
}

func (r *Runner) loop(ctx context.Context, control <-chan RunCommand, done chan struct{}, ticks int, interval time.Duration) {
	var err error
	stepped := 0
	defer func() {
		r.ctlMu.Lock()
		if err == nil || (r.stopping && errors.Is(err, context.Canceled)) {
			err = nil
			if ticks > 0 && stepped < ticks {
				err = fmt.Errorf("%w: %s", ErrRunStopped, r.id)
			}
		}
		r.err = err
		r.state = RunStateStopped
		r.cancel()
		r.ctlMu.Unlock()
		close(done)
	}()

	var tickC <-chan time.Time
	if interval > 0 {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		tickC = ticker.C
	}

	paused := false
	for ticks <= 0 || stepped < ticks {
		if paused {
			select {
			case <-ctx.Done():
				err = ctx.Err()
				return
			case cmd := <-control:
				if cmd == CommandStop {
					return
				}
				paused = r.applyCommand(cmd)
			}
			continue
		}

		if tickC != nil {
			select {
			case <-ctx.Done():
				err = ctx.Err()
				return
			case cmd := <-control:
				if cmd == CommandStop {
					return
				}
				paused = r.applyCommand(cmd)
				continue
			case <-tickC:
			}
		} else {
			select {
			case <-ctx.Done():
				err = ctx.Err()
				return
			case cmd := <-control:
				if cmd == CommandStop {
					return
				}
				paused = r.applyCommand(cmd)
				continue
			default:
			}
		}

		if _, err = r.Step(ctx); err != nil {
			return
		}
		stepped++
	}
}

func (r *Runner) applyCommand(cmd RunCommand) bool {
	r.ctlMu.Lock()
	defer r.ctlMu.Unlock()
	switch cmd {
	case CommandPause:
		r.state = RunStatePaused
		return true
	default:
		r.state = RunStateRunning
		return false
	}
}

func (r *Runner) Pause() error {
	return r.send(CommandPause)
}

func (r *Runner) Resume() error {
	return r.send(CommandContinue)
}

func (r *Runner) send(cmd RunCommand) error {
	r.ctlMu.Lock()
	defer r.ctlMu.Unlock()
	if r.state != RunStateRunning && r.state != RunStatePaused {
		return fmt.Errorf("%w: %s", ErrRunNotActive, r.id)
	}
	if r.control == nil {
		return fmt.Errorf("run %s steps synchronously and takes no commands", r.id)
	}
	select {
	case r.control <- cmd:
		return nil
	default:
		return fmt.Errorf("run control channel is full: %s", r.id)
	}
}

// Stop ends an active run and waits for it to return. An unbounded
// background run ends cleanly; a bounded one reports ErrRunStopped.
func (r *Runner) Stop() {
	r.ctlMu.Lock()
	done := r.done
	if r.cancel != nil && (r.state == RunStateRunning || r.state == RunStatePaused) {
		r.stopping = true
		r.cancel()
	}
	r.ctlMu.Unlock()
	if done != nil {
		<-done
	}
}

// Wait blocks until the active run returns and reports its error.
func (r *Runner) Wait() error {
	r.ctlMu.Lock()
	done := r.done
	r.ctlMu.Unlock()
	if done == nil {
		return nil
	}
	<-done
	r.ctlMu.Lock()
	defer r.ctlMu.Unlock()
	return r.err
}

func (r *Runner) State() RunState {
	r.ctlMu.Lock()
	defer r.ctlMu.Unlock()
	return r.state
}

func (r *Runner) Ticks() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.history)
}

func (r *Runner) History() []model.TickStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.TickStats(nil), r.history...)
}

// Inputs returns the presented patterns when the runner keeps them.
func (r *Runner) Inputs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.inputs...)
}

func (r *Runner) LastReport() htm.Report {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}
