package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/WenFra005/pipeline-API/pipeline"
)

// ErrSchedulerStopped is returned by TriggerRun after cancellation
var ErrSchedulerStopped = errors.New("scheduler is stopped")

// Scheduler states reported by Status
const (
	StateWaitingOutsideWindow = "waiting_outside_window"
	StateCooldown             = "cooldown"
	StateRunning              = "running"
	StateStopped              = "stopped"
)

// Clock abstracts current time and interruptible waiting so the loop
// can be driven deterministically in tests.
type Clock interface {
	Now() time.Time
	// Wait blocks for d or until ctx is canceled, whichever comes
	// first, and reports whether the full duration elapsed.
	Wait(ctx context.Context, d time.Duration) bool
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now()
}

func (systemClock) Wait(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// Runner executes one pipeline run
type Runner interface {
	RunOnce(ctx context.Context) pipeline.Outcome
}

// Options configures the scheduler loop intervals
type Options struct {
	PollInterval    time.Duration
	Cooldown        time.Duration
	FailureCooldown time.Duration
}

// Scheduler drives the pipeline: inside the operating window it runs
// the pipeline and cools down between runs; outside it polls until the
// window opens. Runs are strictly sequential and every wait is
// interruptible by cancellation.
type Scheduler struct {
	window  OperatingWindow
	runner  Runner
	clock   Clock
	options Options

	// serializes pipeline runs between the loop and manual triggers
	runMu sync.Mutex

	mu          sync.RWMutex
	state       string
	lastOutcome string
	lastRunAt   *time.Time

	stopOnce sync.Once
	stopped  chan struct{}
	done     chan struct{}
}

// NewScheduler creates a scheduler using the system clock
func NewScheduler(window OperatingWindow, runner Runner, options Options) *Scheduler {
	return newScheduler(window, runner, systemClock{}, options)
}

// NewSchedulerWithClock creates a scheduler with an injected clock
func NewSchedulerWithClock(window OperatingWindow, runner Runner, clock Clock, options Options) *Scheduler {
	return newScheduler(window, runner, clock, options)
}

func newScheduler(window OperatingWindow, runner Runner, clock Clock, options Options) *Scheduler {
	if options.PollInterval <= 0 {
		options.PollInterval = 10 * time.Minute
	}
	if options.Cooldown <= 0 {
		options.Cooldown = 30 * time.Second
	}
	if options.FailureCooldown <= 0 {
		options.FailureCooldown = options.Cooldown
	}
	return &Scheduler{
		window:  window,
		runner:  runner,
		clock:   clock,
		options: options,
		state:   StateStopped,
		stopped: make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Start runs the loop in its own goroutine
func (s *Scheduler) Start(ctx context.Context) {
	go s.Run(ctx)
}

// Stop requests cancellation. It is idempotent and wakes the loop from
// any wait; once stopped the scheduler never runs again. Stop does not
// wait for an in-flight run: callers that must not tear down shared
// resources under the loop wait on Done after calling Stop.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopped)
	})
}

// Done is closed when the loop has fully exited, including any run that
// was in flight when cancellation was requested.
func (s *Scheduler) Done() <-chan struct{} {
	return s.done
}

// stopRequested reports whether Stop has been called
func (s *Scheduler) stopRequested() bool {
	select {
	case <-s.stopped:
		return true
	default:
		return false
	}
}

// Run executes the scheduling loop until ctx is canceled or Stop is
// called. Cancellation is observed at every suspension point; a run
// already in flight finishes before the loop exits. Run may be called
// at most once.
func (s *Scheduler) Run(ctx context.Context) {
	defer close(s.done)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-s.stopped:
			cancel()
		case <-ctx.Done():
		}
	}()

	log.Println("Scheduler started")

	for ctx.Err() == nil && !s.stopRequested() {
		now := s.clock.Now().In(s.window.Location)

		if !s.window.Contains(now) {
			s.setState(StateWaitingOutsideWindow)
			remaining := s.window.UntilNextStart(now)
			log.Printf("Outside operating window (%02d:%02d-%02d:%02d). Time until next start: %s. Checking again in %s...",
				s.window.StartHour, s.window.StartMinute,
				s.window.EndHour, s.window.EndMinute,
				formatCountdown(remaining), s.options.PollInterval)
			if !s.clock.Wait(ctx, s.options.PollInterval) {
				break
			}
			continue
		}

		s.setState(StateRunning)
		outcome, failed := s.safeRun(ctx)

		wait := s.options.Cooldown
		if failed {
			wait = s.options.FailureCooldown
			log.Printf("Unexpected pipeline failure, waiting %s before retrying...", wait)
		} else {
			s.recordRun(outcome)
			log.Printf("Pipeline run finished (%s), waiting %s before next run...", outcome, wait)
		}

		s.setState(StateCooldown)
		if !s.clock.Wait(ctx, wait) {
			break
		}
	}

	s.setState(StateStopped)
	log.Println("Scheduler stopped")
}

// safeRun invokes the runner under the run mutex with a defensive
// catch-all: an unanticipated panic is logged and reported as a failed
// run instead of crashing the process.
func (s *Scheduler) safeRun(ctx context.Context) (outcome pipeline.Outcome, failed bool) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Unexpected error during pipeline run: %v", r)
			failed = true
		}
	}()

	s.runMu.Lock()
	defer s.runMu.Unlock()
	return s.runner.RunOnce(ctx), false
}

// TriggerRun executes one pipeline run immediately, serialized against
// the loop so a manual run never overlaps a scheduled one. Once Stop
// has been called no further runs are allowed.
func (s *Scheduler) TriggerRun(ctx context.Context) (pipeline.Outcome, error) {
	if s.stopRequested() {
		return 0, ErrSchedulerStopped
	}

	s.runMu.Lock()
	defer s.runMu.Unlock()

	if s.stopRequested() {
		return 0, ErrSchedulerStopped
	}

	outcome := s.runner.RunOnce(ctx)
	s.recordRun(outcome)
	return outcome, nil
}

// Status is a point-in-time snapshot of the scheduler
type Status struct {
	State       string     `json:"state"`
	LastOutcome string     `json:"last_outcome,omitempty"`
	LastRunAt   *time.Time `json:"last_run_at,omitempty"`
	WindowStart string     `json:"window_start"`
	WindowEnd   string     `json:"window_end"`
	Timezone    string     `json:"timezone"`
}

// Status returns the current scheduler state and last-run metadata
func (s *Scheduler) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Status{
		State:       s.state,
		LastOutcome: s.lastOutcome,
		LastRunAt:   s.lastRunAt,
		WindowStart: fmt.Sprintf("%02d:%02d", s.window.StartHour, s.window.StartMinute),
		WindowEnd:   fmt.Sprintf("%02d:%02d", s.window.EndHour, s.window.EndMinute),
		Timezone:    s.window.Location.String(),
	}
}

func (s *Scheduler) setState(state string) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

func (s *Scheduler) recordRun(outcome pipeline.Outcome) {
	now := s.clock.Now()
	s.mu.Lock()
	s.lastOutcome = outcome.String()
	s.lastRunAt = &now
	s.mu.Unlock()
}

// formatCountdown renders a duration as HH:MM:SS
func formatCountdown(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d.Round(time.Second).Seconds())
	hours := total / 3600
	minutes := (total % 3600) / 60
	seconds := total % 60
	return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
}
