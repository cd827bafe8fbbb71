// Package rescan keeps a detection result fresh as the document changes.
//
// It is a small coalescing state machine: qualifying change events arm a
// debounce timer, further events restart it, and the timer firing runs one
// cleanup-and-scan pass. Any host — a live browser forwarding
// MutationObserver callbacks, or a test harness injecting synthetic
// events — drives the same machine.
//
// The machine runs on a single goroutine. "Running" is a logical state,
// not a concurrency guard: a scan either hasn't started or has already
// finished by the time the next event is handled.
package rescan

import (
	"context"
	"log/slog"
	"regexp"
	"sync/atomic"
	"time"
)

// State of the scheduler.
type State int32

const (
	Idle State = iota
	Scheduled
	Running
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Scheduled:
		return "scheduled"
	case Running:
		return "running"
	}
	return "unknown"
}

// Op is the kind of document change an event reports.
type Op string

const (
	OpNodeAdd    Op = "node_add"
	OpNodeRemove Op = "node_remove"
	OpAttr       Op = "attr"
)

// Event is one abstract document change. Navigation events report a
// location change; mutation events carry the affected node's class/id
// tokens (own plus ancestors) so relevance can be judged host-side-free.
type Event struct {
	Navigation bool
	Op         Op
	AttrName   string
	Tokens     []string
}

// NavigationEvent reports a detected location change.
func NavigationEvent() Event { return Event{Navigation: true} }

// MutationEvent reports a DOM mutation on a node with the given tokens.
func MutationEvent(op Op, attrName string, tokens []string) Event {
	return Event{Op: op, AttrName: attrName, Tokens: tokens}
}

// contextTokens marks nodes whose appearance/disappearance or state flips
// are worth a rescan: overlays and episodic readers mount and unmount
// their navigation controls with these containers.
var contextTokens = regexp.MustCompile(
	`(lightbox|overlay|modal|gallery|carousel|slideshow|swiper|fancybox|episode|chapter|manga|comic|webtoon|reader|player|playlist|season|pagination|pager)`)

// rescanAttrs are the attributes whose change can re-layout such a node.
var rescanAttrs = map[string]bool{
	"class":       true,
	"style":       true,
	"aria-hidden": true,
	"data-state":  true,
}

// Relevant reports whether an event qualifies for (re)arming the debounce.
func Relevant(ev Event) bool {
	if ev.Navigation {
		return true
	}
	switch ev.Op {
	case OpNodeAdd, OpNodeRemove:
		return matchesContext(ev.Tokens)
	case OpAttr:
		return rescanAttrs[ev.AttrName] && matchesContext(ev.Tokens)
	}
	return false
}

func matchesContext(tokens []string) bool {
	for _, tok := range tokens {
		if contextTokens.MatchString(tok) {
			return true
		}
	}
	return false
}

// Config tunes the scheduler.
type Config struct {
	// MutationDebounce is the quiet period after a qualifying mutation.
	// Default: 500ms.
	MutationDebounce time.Duration
	// NavigationSettle is the longer quiet period after a location
	// change. Default: 1s.
	NavigationSettle time.Duration
	// InitRetries bounds initialization attempts. Default: 3.
	InitRetries int
	// InitRetryDelay is the fixed delay between attempts. Default: 2s.
	InitRetryDelay time.Duration
}

func (c *Config) defaults() {
	if c.MutationDebounce <= 0 {
		c.MutationDebounce = 500 * time.Millisecond
	}
	if c.NavigationSettle <= 0 {
		c.NavigationSettle = time.Second
	}
	if c.InitRetries <= 0 {
		c.InitRetries = 3
	}
	if c.InitRetryDelay <= 0 {
		c.InitRetryDelay = 2 * time.Second
	}
}

// Hooks are the scheduler's outputs. Scan runs one full detect-and-bind
// pass; Cleanup tears down prior bindings before it. Scan errors are
// handled (logged), never fatal.
type Hooks struct {
	Scan    func(ctx context.Context) error
	Cleanup func()
}

// Scheduler is the rescan state machine. Create with New, drive with
// Notify, run with Run.
type Scheduler struct {
	cfg    Config
	hooks  Hooks
	events chan Event
	state  atomic.Int32
	scans  atomic.Int64
	logger *slog.Logger
}

// New creates a scheduler. Hooks.Scan is required.
func New(cfg Config, hooks Hooks, logger *slog.Logger) *Scheduler {
	cfg.defaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		cfg:    cfg,
		hooks:  hooks,
		events: make(chan Event, 256),
		logger: logger,
	}
}

// Notify feeds one change event into the machine. Non-blocking: when the
// buffer is full the event is dropped — a storm that overflows 256 slots
// has long since armed the timer anyway.
func (s *Scheduler) Notify(ev Event) {
	select {
	case s.events <- ev:
	default:
	}
}

// State returns the current machine state.
func (s *Scheduler) State() State { return State(s.state.Load()) }

// Scans returns the number of completed scan passes.
func (s *Scheduler) Scans() int64 { return s.scans.Load() }

// Run performs the initialization pass (with retries), then serves events
// until ctx is cancelled. Blocks; run it on its own goroutine.
func (s *Scheduler) Run(ctx context.Context) {
	if s.initialScan(ctx) {
		s.logger.Info("rescan: initialised")
	} else {
		// Inert until a later mutation/navigation event re-arms us.
		s.logger.Warn("rescan: initialization failed, waiting for document changes",
			"retries", s.cfg.InitRetries)
	}
	s.loop(ctx)
}

// initialScan retries the first pass up to InitRetries times with a fixed
// delay. Returns false when retries are exhausted.
func (s *Scheduler) initialScan(ctx context.Context) bool {
	for attempt := 1; attempt <= s.cfg.InitRetries; attempt++ {
		if err := s.runPass(ctx); err == nil {
			return true
		} else {
			s.logger.Warn("rescan: initial pass failed",
				"attempt", attempt, "error", err)
		}

		if attempt == s.cfg.InitRetries {
			break
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(s.cfg.InitRetryDelay):
		}
	}
	return false
}

func (s *Scheduler) loop(ctx context.Context) {
	var timer *time.Timer
	var timerCh <-chan time.Time

	arm := func(d time.Duration) {
		if timer != nil {
			timer.Stop()
		}
		timer = time.NewTimer(d)
		timerCh = timer.C
		s.state.Store(int32(Scheduled))
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			s.state.Store(int32(Idle))
			return

		case ev := <-s.events:
			if !Relevant(ev) {
				continue
			}
			// Coalescing: any further qualifying event restarts the
			// timer, so a burst yields exactly one scan per quiet
			// period.
			if ev.Navigation {
				arm(s.cfg.NavigationSettle)
			} else {
				arm(s.cfg.MutationDebounce)
			}

		case <-timerCh:
			timer = nil
			timerCh = nil
			s.state.Store(int32(Running))
			if err := s.runPass(ctx); err != nil {
				s.logger.Warn("rescan: pass failed", "error", err)
			}
			s.state.Store(int32(Idle))
		}
	}
}

// runPass runs cleanup then one scan. Panics in either hook are contained:
// a failed pass degrades to "no detection this pass".
func (s *Scheduler) runPass(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &passPanicError{value: r}
		}
	}()

	if s.hooks.Cleanup != nil {
		s.hooks.Cleanup()
	}
	if s.hooks.Scan != nil {
		if err := s.hooks.Scan(ctx); err != nil {
			return err
		}
	}
	s.scans.Add(1)
	return nil
}

type passPanicError struct{ value any }

func (e *passPanicError) Error() string { return "rescan: pass panicked" }
