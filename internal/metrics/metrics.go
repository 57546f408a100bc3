package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// Collector owns the service's prometheus registry. A nil *Collector is
// valid everywhere; callers guard with != nil so tests can skip metrics.
type Collector struct {
	reg *prometheus.Registry

	SamplesIngested prometheus.Counter
	SamplesRejected prometheus.Counter
	StopArrivals    prometheus.Counter
	IngestDuration  prometheus.Histogram

	EventsPublished *prometheus.CounterVec
	EventErrors     *prometheus.CounterVec
	NATSConnected   prometheus.Gauge

	CheckIns  prometheus.Counter
	CheckOuts prometheus.Counter

	OpenIncidents prometheus.Gauge
	ActiveShifts  prometheus.Gauge
}

func NewCollector() *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		reg: reg,
		SamplesIngested: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fleet_location_samples_total",
			Help: "Total accepted vehicle location samples.",
		}),
		SamplesRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fleet_location_samples_rejected_total",
			Help: "Total location samples rejected by validation.",
		}),
		StopArrivals: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fleet_stop_arrivals_total",
			Help: "Total geofence stop arrivals detected.",
		}),
		IngestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "fleet_ingest_duration_seconds",
			Help:    "Duration of per-sample ingest processing.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 15),
		}),
		EventsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fleet_events_published_total",
			Help: "Outbound events published, by event name.",
		}, []string{"event"}),
		EventErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fleet_event_errors_total",
			Help: "Outbound event publishes that exhausted retries, by event name.",
		}, []string{"event"}),
		NATSConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "fleet_nats_connected",
			Help: "1 if the NATS connection is established, 0 otherwise.",
		}),
		CheckIns: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fleet_checkins_total",
			Help: "Total student check-ins recorded.",
		}),
		CheckOuts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fleet_checkouts_total",
			Help: "Total student check-outs recorded.",
		}),
		OpenIncidents: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "fleet_open_incidents",
			Help: "Incidents not yet resolved.",
		}),
		ActiveShifts: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "fleet_active_shifts",
			Help: "Shift logs currently in progress.",
		}),
	}

	reg.MustRegister(
		c.SamplesIngested, c.SamplesRejected, c.StopArrivals, c.IngestDuration,
		c.EventsPublished, c.EventErrors, c.NATSConnected,
		c.CheckIns, c.CheckOuts,
		c.OpenIncidents, c.ActiveShifts,
	)

	return c
}

func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{})
}

// Serve starts an HTTP server exposing /metrics on the given address.
func (c *Collector) Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Error("metrics server error")
		}
	}()
	logrus.WithField("addr", addr).Info("metrics listening")
	return srv
}

// ObserveIngest records one ingest round-trip. Nil-safe.
func (c *Collector) ObserveIngest(d time.Duration) {
	if c != nil {
		c.IngestDuration.Observe(d.Seconds())
	}
}
