package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/WenFra005/pipeline-API/pipeline"
)

// fakeClock drives the loop deterministically: Wait records the
// requested duration, advances virtual time and asks the test whether
// the wait "completed" or was interrupted.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	waits  []time.Duration
	onWait func(call int, d time.Duration) bool
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Wait(ctx context.Context, d time.Duration) bool {
	c.mu.Lock()
	call := len(c.waits)
	c.waits = append(c.waits, d)
	c.now = c.now.Add(d)
	c.mu.Unlock()

	if ctx.Err() != nil {
		return false
	}
	return c.onWait(call, d)
}

func (c *fakeClock) recorded() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]time.Duration, len(c.waits))
	copy(out, c.waits)
	return out
}

type stubRunner struct {
	mu       sync.Mutex
	calls    int
	outcome  pipeline.Outcome
	panicsOn map[int]bool
}

func (r *stubRunner) RunOnce(ctx context.Context) pipeline.Outcome {
	r.mu.Lock()
	r.calls++
	call := r.calls
	r.mu.Unlock()

	if r.panicsOn[call] {
		panic("boom")
	}
	return r.outcome
}

func (r *stubRunner) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

var testOptions = Options{
	PollInterval:    10 * time.Minute,
	Cooldown:        30 * time.Second,
	FailureCooldown: 45 * time.Second,
}

func TestRunInsideWindowStopsDuringCooldown(t *testing.T) {
	runner := &stubRunner{outcome: pipeline.OutcomeSuccess}
	clock := &fakeClock{now: date(15, 10, 0, 0)} // Wednesday 10:00
	sched := NewSchedulerWithClock(testWindow(), runner, clock, testOptions)

	clock.onWait = func(call int, d time.Duration) bool {
		sched.Stop()
		return false
	}

	sched.Run(context.Background())

	if got := runner.callCount(); got != 1 {
		t.Errorf("expected exactly 1 run before stopping, got %d", got)
	}
	waits := clock.recorded()
	if len(waits) != 1 || waits[0] != testOptions.Cooldown {
		t.Errorf("expected a single cooldown wait of %s, got %v", testOptions.Cooldown, waits)
	}
	if status := sched.Status(); status.State != StateStopped {
		t.Errorf("expected state %q, got %q", StateStopped, status.State)
	}
}

func TestRunOutsideWindowNeverStartsARun(t *testing.T) {
	runner := &stubRunner{outcome: pipeline.OutcomeSuccess}
	clock := &fakeClock{now: date(18, 10, 0, 0)} // Saturday 10:00
	sched := NewSchedulerWithClock(testWindow(), runner, clock, testOptions)

	clock.onWait = func(call int, d time.Duration) bool {
		sched.Stop()
		return false
	}

	sched.Run(context.Background())

	if got := runner.callCount(); got != 0 {
		t.Errorf("expected no runs outside the window, got %d", got)
	}
	waits := clock.recorded()
	if len(waits) != 1 || waits[0] != testOptions.PollInterval {
		t.Errorf("expected a single poll wait of %s, got %v", testOptions.PollInterval, waits)
	}
}

func TestRunRepeatsAfterCooldown(t *testing.T) {
	runner := &stubRunner{outcome: pipeline.OutcomeSuccess}
	clock := &fakeClock{now: date(15, 10, 0, 0)}
	sched := NewSchedulerWithClock(testWindow(), runner, clock, testOptions)

	clock.onWait = func(call int, d time.Duration) bool {
		if call == 2 {
			sched.Stop()
			return false
		}
		return true
	}

	sched.Run(context.Background())

	if got := runner.callCount(); got != 3 {
		t.Errorf("expected 3 sequential runs, got %d", got)
	}
}

func TestRunRecoversFromPanicWithFailureCooldown(t *testing.T) {
	runner := &stubRunner{
		outcome:  pipeline.OutcomeSuccess,
		panicsOn: map[int]bool{1: true},
	}
	clock := &fakeClock{now: date(15, 10, 0, 0)}
	sched := NewSchedulerWithClock(testWindow(), runner, clock, testOptions)

	clock.onWait = func(call int, d time.Duration) bool {
		if call == 1 {
			sched.Stop()
			return false
		}
		return true
	}

	sched.Run(context.Background())

	if got := runner.callCount(); got != 2 {
		t.Errorf("expected loop to survive the panic and run again, got %d runs", got)
	}
	waits := clock.recorded()
	if len(waits) < 1 || waits[0] != testOptions.FailureCooldown {
		t.Errorf("expected first wait to be failure cooldown %s, got %v", testOptions.FailureCooldown, waits)
	}
}

func TestStopIsIdempotent(t *testing.T) {
	runner := &stubRunner{outcome: pipeline.OutcomeSuccess}
	clock := &fakeClock{now: date(15, 10, 0, 0)}
	sched := NewSchedulerWithClock(testWindow(), runner, clock, testOptions)

	sched.Stop()
	sched.Stop() // second call must be a no-op

	clock.onWait = func(call int, d time.Duration) bool { return true }

	go sched.Run(context.Background())

	select {
	case <-sched.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop after Stop was requested")
	}

	// The loop checks the stop flag directly, so a stop requested
	// before Run must prevent any run from starting.
	if got := runner.callCount(); got != 0 {
		t.Errorf("expected no runs after Stop was requested, got %d", got)
	}
	if status := sched.Status(); status.State != StateStopped {
		t.Errorf("expected state %q, got %q", StateStopped, status.State)
	}
}

// blockingRunner blocks inside RunOnce until released, so tests can
// hold a run in flight while stopping the scheduler.
type blockingRunner struct {
	startedOnce sync.Once
	started     chan struct{}
	release     chan struct{}
}

func newBlockingRunner() *blockingRunner {
	return &blockingRunner{
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
}

func (r *blockingRunner) RunOnce(ctx context.Context) pipeline.Outcome {
	r.startedOnce.Do(func() { close(r.started) })
	<-r.release
	return pipeline.OutcomeSuccess
}

func TestStopWaitsForInFlightRun(t *testing.T) {
	runner := newBlockingRunner()
	clock := &fakeClock{now: date(15, 10, 0, 0)}
	clock.onWait = func(call int, d time.Duration) bool { return false }
	sched := NewSchedulerWithClock(testWindow(), runner, clock, testOptions)

	go sched.Run(context.Background())

	<-runner.started
	sched.Stop()

	// Done must not fire while the run is still in flight
	select {
	case <-sched.Done():
		t.Fatal("scheduler reported done while a run was still in flight")
	case <-time.After(50 * time.Millisecond):
	}

	close(runner.release)

	select {
	case <-sched.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not finish after the in-flight run completed")
	}

	if status := sched.Status(); status.State != StateStopped {
		t.Errorf("expected state %q, got %q", StateStopped, status.State)
	}
}

func TestRunWithCanceledContextExitsImmediately(t *testing.T) {
	runner := &stubRunner{outcome: pipeline.OutcomeSuccess}
	clock := &fakeClock{now: date(15, 10, 0, 0)}
	clock.onWait = func(call int, d time.Duration) bool { return true }
	sched := NewSchedulerWithClock(testWindow(), runner, clock, testOptions)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	sched.Run(ctx)

	if got := runner.callCount(); got != 0 {
		t.Errorf("expected no runs with a canceled context, got %d", got)
	}
}

func TestTriggerRunRecordsOutcome(t *testing.T) {
	runner := &stubRunner{outcome: pipeline.OutcomeNoData}
	clock := &fakeClock{now: date(15, 10, 0, 0)}
	sched := NewSchedulerWithClock(testWindow(), runner, clock, testOptions)

	outcome, err := sched.TriggerRun(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome != pipeline.OutcomeNoData {
		t.Errorf("expected outcome %s, got %s", pipeline.OutcomeNoData, outcome)
	}

	status := sched.Status()
	if status.LastOutcome != "no_data" {
		t.Errorf("expected last outcome no_data, got %q", status.LastOutcome)
	}
	if status.LastRunAt == nil {
		t.Error("expected last run time to be recorded")
	}
}

func TestTriggerRunAfterStopIsRejected(t *testing.T) {
	runner := &stubRunner{outcome: pipeline.OutcomeSuccess}
	clock := &fakeClock{now: date(15, 10, 0, 0)}
	sched := NewSchedulerWithClock(testWindow(), runner, clock, testOptions)

	sched.Stop()

	if _, err := sched.TriggerRun(context.Background()); err != ErrSchedulerStopped {
		t.Errorf("expected ErrSchedulerStopped, got %v", err)
	}
	if got := runner.callCount(); got != 0 {
		t.Errorf("expected no runs after Stop, got %d", got)
	}
}

func TestFormatCountdown(t *testing.T) {
	cases := []struct {
		d    time.Duration
		want string
	}{
		{46 * time.Hour, "46:00:00"},
		{90 * time.Minute, "01:30:00"},
		{59 * time.Second, "00:00:59"},
		{-time.Second, "00:00:00"},
	}
	for _, tc := range cases {
		if got := formatCountdown(tc.d); got != tc.want {
			t.Errorf("formatCountdown(%s) = %q, want %q", tc.d, got, tc.want)
		}
	}
}
