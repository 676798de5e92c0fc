package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "meteorite_playback"

// Metrics holds the Prometheus counters, histograms, and gauges for the playback service.
type Metrics struct {
	FramesRendered *prometheus.CounterVec // labels: kind={start,step,resume,seek,release,focus}
	RenderErrors   *prometheus.CounterVec // labels: renderer
	YearsClamped   prometheus.Counter

	// Playback state.
	CurrentYear      prometheus.Gauge
	PlaybackState    prometheus.Gauge // 0=stopped 1=playing 2=paused 3=finished
	ClassifyDuration prometheus.Histogram

	// Dataset and region metrics.
	DatasetRecords         prometheus.Gauge
	DatasetLoadErrors      prometheus.Counter
	DatasetPrepareDuration prometheus.Histogram
	RegionLookups          *prometheus.CounterVec // labels: result={hit,miss}

	WebSocketClients prometheus.Gauge
}

func newMetrics() *Metrics {
	return &Metrics{
		FramesRendered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_rendered_total",
			Help:      "Frames pushed to renderers by kind.",
		}, []string{"kind"}),
		RenderErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "render_errors_total",
			Help:      "Renderer failures by renderer name.",
		}, []string{"renderer"}),
		YearsClamped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "years_clamped_total",
			Help:      "Requested years pulled back into the playback span.",
		}),
		CurrentYear: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "current_year",
			Help:      "Year of the most recently pushed snapshot.",
		}),
		PlaybackState: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "playback_state",
			Help:      "Controller state: 0 stopped, 1 playing, 2 paused, 3 finished.",
		}),
		ClassifyDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "classify_duration_seconds",
			Help:      "Duration of one visibility classification pass.",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
		}),
		DatasetRecords: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "dataset_records",
			Help:      "Number of landing records in the playback span.",
		}),
		DatasetLoadErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dataset_load_errors_total",
			Help:      "Failed dataset load attempts.",
		}),
		DatasetPrepareDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "dataset_prepare_duration_seconds",
			Help:      "Time to load, annotate and index the dataset.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
		RegionLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "region_lookups_total",
			Help:      "Region containment lookups by cache result.",
		}, []string{"result"}),
		WebSocketClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "websocket_clients",
			Help:      "Connected WebSocket clients.",
		}),
	}
}

// NewMetrics creates and registers all playback metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()

	prometheus.MustRegister(
		m.FramesRendered,
		m.RenderErrors,
		m.YearsClamped,
		m.CurrentYear,
		m.PlaybackState,
		m.ClassifyDuration,
		m.DatasetRecords,
		m.DatasetLoadErrors,
		m.DatasetPrepareDuration,
		m.RegionLookups,
		m.WebSocketClients,
	)

	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}
