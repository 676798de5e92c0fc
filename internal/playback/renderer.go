package playback

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/couchcryptid/meteorite-playback/internal/observability"
)

// Renderer receives every frame the controller pushes. Render is called with
// the controller's lock held, so it must not call back into the controller
// and should hand slow work off rather than block. Pushing the same frame
// twice must be harmless.
type Renderer interface {
	Render(frame Frame) error
}

// RendererFunc adapts a plain function to the Renderer interface.
type RendererFunc func(frame Frame) error

func (f RendererFunc) Render(frame Frame) error { return f(frame) }

type namedRenderer struct {
	name string
	r    Renderer
}

// Fanout delivers each frame to every registered renderer. A failing renderer
// is logged and counted but never stops delivery to the others.
type Fanout struct {
	mu      sync.RWMutex
	sinks   []namedRenderer
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewFanout creates an empty Fanout.
func NewFanout(logger *slog.Logger, metrics *observability.Metrics) *Fanout {
	return &Fanout{logger: logger, metrics: metrics}
}

// Add registers r under name. The name labels render error metrics.
func (f *Fanout) Add(name string, r Renderer) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sinks = append(f.sinks, namedRenderer{name: name, r: r})
}

// Render implements Renderer. The returned error joins every sink failure.
func (f *Fanout) Render(frame Frame) error {
	f.mu.RLock()
	defer f.mu.RUnlock()

	var errs []error
	for _, s := range f.sinks {
		if err := s.r.Render(frame); err != nil {
			f.logger.Warn("renderer failed", "renderer", s.name, "kind", frame.Kind, "year", frame.Year, "error", err)
			f.metrics.RenderErrors.WithLabelValues(s.name).Inc()
			errs = append(errs, fmt.Errorf("%s: %w", s.name, err))
		}
	}
	return errors.Join(errs...)
}
