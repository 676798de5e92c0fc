package playback

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/couchcryptid/meteorite-playback/internal/domain"
	"github.com/couchcryptid/meteorite-playback/internal/observability"
	"github.com/couchcryptid/meteorite-playback/internal/region"
	"github.com/jonboulle/clockwork"
)

// DefaultStepDelay is the pause between automatic year steps.
const DefaultStepDelay = time.Second

// Option configures a Controller.
type Option func(*Controller)

// WithClock sets the clock used to schedule steps. Tests pass a fake clock.
func WithClock(clock clockwork.Clock) Option {
	return func(c *Controller) { c.clock = clock }
}

// WithStepDelay sets the delay between automatic year steps.
func WithStepDelay(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.stepDelay = d
		}
	}
}

// Status is a point-in-time view of the controller.
type Status struct {
	State   State       `json:"state"`
	Year    int         `json:"year"`
	Span    domain.Span `json:"span"`
	Pending bool        `json:"pending"`
	Focus   string      `json:"focus,omitempty"`
	Visible int         `json:"visible"`
	Current int         `json:"current"`
}

// Controller drives time-based playback over a fixed, year-sorted record set.
// All operations serialize on one mutex and run to completion, so the timer
// callback, user gestures and renderer pushes never interleave. At most one
// step timer is pending at any time.
type Controller struct {
	records   []domain.LandingRecord
	span      domain.Span
	renderer  Renderer
	clock     clockwork.Clock
	stepDelay time.Duration
	logger    *slog.Logger
	metrics   *observability.Metrics

	mu       sync.Mutex
	state    State
	year     int
	rendered bool
	snapshot domain.Snapshot
	regions  *domain.RegionSummary
	focus    string
	last     Frame
	timer    clockwork.Timer
	// gen invalidates callbacks of timers that were cancelled after they
	// had already fired but before they acquired the lock.
	gen uint64
}

// New creates a stopped Controller over records, which must already be
// restricted to span.
func New(records []domain.LandingRecord, span domain.Span, r Renderer, logger *slog.Logger, metrics *observability.Metrics, opts ...Option) (*Controller, error) {
	if err := span.Validate(); err != nil {
		return nil, err
	}
	if r == nil {
		return nil, errors.New("playback: renderer is required")
	}
	c := &Controller{
		records:   records,
		span:      span,
		renderer:  r,
		clock:     clockwork.NewRealClock(),
		stepDelay: DefaultStepDelay,
		logger:    logger,
		metrics:   metrics,
		state:     Stopped,
		year:      span.Min,
	}
	for _, opt := range opts {
		opt(c)
	}
	metrics.DatasetRecords.Set(float64(len(records)))
	metrics.PlaybackState.Set(float64(Stopped))
	return c, nil
}

// Start (re)starts playback at year, clamped into the span. Any pending step
// is cancelled first, so Start is valid from every state.
func (c *Controller) Start(year int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cancelStep()
	c.setState(Playing)
	c.advance(c.clamp(year), FrameStart)
}

// Pause stops automatic stepping. It is a no-op unless playback is running.
func (c *Controller) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pause()
}

// Resume continues a paused playback from the current year. The current year
// is pushed again before stepping continues. It is a no-op unless paused.
func (c *Controller) Resume() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resume()
}

// Toggle pauses running playback and resumes paused playback.
func (c *Controller) Toggle() {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case Playing:
		c.pause()
	case Paused:
		c.resume()
	}
}

// Seek jumps to year while a seek gesture is in progress. Playback always ends
// up paused, no step is scheduled, and the region aggregate is deferred until
// Release.
func (c *Controller) Seek(year int) { c.seekAt(&year) }

// seekAt seeks to year, or to the current year when year is nil.
func (c *Controller) seekAt(year *int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.seek(c.clamp(c.yearOrCurrent(year)))
}

// Release ends a seek gesture at year. If the year differs from the current
// one the controller seeks there first, then pushes the region aggregate for
// the current snapshot.
func (c *Controller) Release(year int) { c.releaseAt(&year) }

// releaseAt releases at year, or at the current year when year is nil.
func (c *Controller) releaseAt(year *int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	target := c.clamp(c.yearOrCurrent(year))
	if !c.rendered || target != c.year {
		c.seek(target)
	}
	regions := domain.SummarizeRegions(c.snapshot.Visible)
	c.regions = &regions
	c.push(FrameRelease)
}

// Focus highlights the region named by name, which is canonicalized the way
// records are tagged ("New Mexico" focuses "new-mexico"). The focus count
// rides on this and every later frame until ClearFocus.
func (c *Controller) Focus(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.focus = region.Canonical(name)
	if c.rendered {
		c.push(FrameFocus)
	}
}

// ClearFocus removes any region highlight.
func (c *Controller) ClearFocus() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.focus == "" {
		return
	}
	c.focus = ""
	if c.rendered {
		c.push(FrameFocus)
	}
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Pending reports whether a step timer is scheduled.
func (c *Controller) Pending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.timer != nil
}

// WithLastFrame calls fn with the most recently pushed frame while holding
// the controller lock, so no frame is pushed until fn returns. Renderers use
// it to register a late joiner without missing or duplicating a frame. fn
// must not call back into the controller.
func (c *Controller) WithLastFrame(fn func(frame Frame, ok bool)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn(c.last, c.rendered)
}

// Records returns the record set being played back.
func (c *Controller) Records() []domain.LandingRecord { return c.records }

// Span returns the playback span.
func (c *Controller) Span() domain.Span { return c.span }

// Status returns a point-in-time view of the controller.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Status{
		State:   c.state,
		Year:    c.year,
		Span:    c.span,
		Pending: c.timer != nil,
		Focus:   c.focus,
		Visible: len(c.snapshot.Visible),
		Current: len(c.snapshot.Current),
	}
}

// CheckReadiness returns nil once the controller has pushed its first frame.
func (c *Controller) CheckReadiness(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.rendered {
		return errors.New("playback has not rendered a frame yet")
	}
	return nil
}

// Stop cancels any pending step. The controller stays usable.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancelStep()
	if c.state == Playing {
		c.setState(Paused)
	}
}

// advance classifies year, pushes it with the region aggregate, and either
// schedules the next step or finishes. Callers hold mu and have set Playing.
func (c *Controller) advance(year int, kind FrameKind) {
	c.classify(year)
	regions := domain.SummarizeRegions(c.snapshot.Visible)
	c.regions = &regions

	if year >= c.span.Max {
		c.setState(Finished)
		c.logger.Info("playback finished", "year", year)
	} else {
		c.scheduleStep()
	}
	c.push(kind)
}

func (c *Controller) pause() {
	if c.state != Playing {
		return
	}
	c.cancelStep()
	c.setState(Paused)
	c.logger.Debug("playback paused", "year", c.year)
}

func (c *Controller) resume() {
	if c.state != Paused {
		return
	}
	c.setState(Playing)
	c.advance(c.year, FrameResume)
}

// seek cancels stepping and pushes year without a region aggregate.
func (c *Controller) seek(year int) {
	c.cancelStep()
	c.setState(Paused)
	c.classify(year)
	c.regions = nil
	c.push(FrameSeek)
}

func (c *Controller) scheduleStep() {
	c.gen++
	gen := c.gen
	c.timer = c.clock.AfterFunc(c.stepDelay, func() { c.step(gen) })
}

// step is the timer callback. It acts only if it belongs to the latest
// scheduled timer and playback is still running.
func (c *Controller) step(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.gen || c.state != Playing {
		return
	}
	c.timer = nil
	c.advance(c.year+1, FrameStep)
}

func (c *Controller) cancelStep() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.gen++
}

func (c *Controller) classify(year int) {
	start := c.clock.Now()
	c.snapshot = domain.Classify(c.records, year)
	c.metrics.ClassifyDuration.Observe(c.clock.Since(start).Seconds())
	c.year = year
	c.rendered = true
	c.metrics.CurrentYear.Set(float64(year))
}

func (c *Controller) push(kind FrameKind) {
	frame := Frame{
		Kind:     kind,
		Year:     c.year,
		State:    c.state,
		Snapshot: c.snapshot,
		Regions:  c.regions,
	}
	if c.focus != "" {
		focus := domain.FocusOn(c.snapshot.Visible, c.focus)
		frame.Focus = &focus
	}

	c.last = frame
	c.metrics.FramesRendered.WithLabelValues(string(kind)).Inc()
	if err := c.renderer.Render(frame); err != nil {
		c.logger.Warn("render frame failed", "kind", kind, "year", c.year, "error", err)
	}
}

// yearOrCurrent resolves an optional year. Callers hold mu.
func (c *Controller) yearOrCurrent(year *int) int {
	if year != nil {
		return *year
	}
	return c.year
}

func (c *Controller) clamp(year int) int {
	clamped := c.span.Clamp(year)
	if clamped != year {
		c.metrics.YearsClamped.Inc()
		c.logger.Debug("year clamped into playback span", "requested", year, "year", clamped,
			"min", c.span.Min, "max", c.span.Max)
	}
	return clamped
}

func (c *Controller) setState(s State) {
	c.state = s
	c.metrics.PlaybackState.Set(float64(s))
}
