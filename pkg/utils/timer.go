package utils

import (
	"sync"
	"time"
)

// Phase records the timing of a single pipeline phase.
type Phase struct {
	Name     string
	Start    time.Time
	Duration time.Duration
	done     bool
}

// Timer tracks the duration of named phases in insertion order.
// A disabled timer is a no-op, so callers never need nil checks.
type Timer struct {
	mu      sync.Mutex
	name    string
	start   time.Time
	phases  []*Phase
	byName  map[string]*Phase
	logger  Logger
	enabled bool
}

// TimerOption configures a Timer instance.
type TimerOption func(*Timer)

// WithLogger sets the logger used by PrintSummary.
func WithLogger(logger Logger) TimerOption {
	return func(t *Timer) {
		t.logger = logger
	}
}

// WithEnabled sets whether the timer is enabled.
func WithEnabled(enabled bool) TimerOption {
	return func(t *Timer) {
		t.enabled = enabled
	}
}

// NewTimer creates a new Timer with the given name and options.
func NewTimer(name string, opts ...TimerOption) *Timer {
	t := &Timer{
		name:    name,
		byName:  make(map[string]*Phase),
		enabled: true,
	}
	for _, opt := range opts {
		opt(t)
	}
	t.start = time.Now()
	return t
}

// Start begins timing a phase. The returned stop function records the
// duration; it is safe to call more than once.
func (t *Timer) Start(phaseName string) func() time.Duration {
	if !t.enabled {
		return func() time.Duration { return 0 }
	}

	t.mu.Lock()
	phase := &Phase{Name: phaseName, Start: time.Now()}
	t.phases = append(t.phases, phase)
	t.byName[phaseName] = phase
	t.mu.Unlock()

	return func() time.Duration {
		t.mu.Lock()
		defer t.mu.Unlock()
		if !phase.done {
			phase.Duration = time.Since(phase.Start)
			phase.done = true
		}
		return phase.Duration
	}
}

// TimeFunc times the execution of fn and records it as a phase.
func (t *Timer) TimeFunc(phaseName string, fn func() error) error {
	stop := t.Start(phaseName)
	err := fn()
	stop()
	return err
}

// GetDuration returns the recorded duration of a phase.
func (t *Timer) GetDuration(phaseName string) time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	if phase, ok := t.byName[phaseName]; ok {
		return phase.Duration
	}
	return 0
}

// TotalDuration returns the total duration since the timer was created.
func (t *Timer) TotalDuration() time.Duration {
	return time.Since(t.start)
}

// Phases returns copies of all phases in insertion order.
func (t *Timer) Phases() []Phase {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Phase, len(t.phases))
	for i, p := range t.phases {
		out[i] = *p
	}
	return out
}

// PrintSummary logs one line per phase plus the total.
func (t *Timer) PrintSummary() {
	if !t.enabled || t.logger == nil {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.logger.Debug("=== %s timing ===", t.name)
	for i, phase := range t.phases {
		t.logger.Debug("  %d. %s: %v", i+1, phase.Name, phase.Duration)
	}
	t.logger.Debug("Total: %v", time.Since(t.start))
}
