// Package metrics counts run activity with Prometheus collectors and
// exports them as a node_exporter textfile when a run ends.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "ladder"

// Job outcome label values.
const (
	OutcomeSuccess             = "success"
	OutcomeSuccessWithWarnings = "success_with_warnings"
	OutcomeFailure             = "failure"
)

// Skip reason label values.
const (
	SkipNoneFound = "no_mp4"
	SkipAmbiguous = "multiple_mp4"
)

// Recorder owns a private registry so independent runs and tests never
// share counters.
type Recorder struct {
	registry *prometheus.Registry

	// JobsTotal counts finished jobs.
	// Labels:
	//   - outcome: success, success_with_warnings, failure
	JobsTotal *prometheus.CounterVec

	// FoldersSkippedTotal counts folders that were never attempted.
	// Labels:
	//   - reason: no_mp4, multiple_mp4
	FoldersSkippedTotal *prometheus.CounterVec

	// RenditionsTotal counts encodes.
	// Labels:
	//   - name: rendition folder or "audio"
	//   - result: verified, failed
	RenditionsTotal *prometheus.CounterVec

	SourceBytesTotal prometheus.Counter
	OutputBytesTotal prometheus.Counter
	JobDuration      prometheus.Histogram
	LastRunTimestamp prometheus.Gauge
}

// NewRecorder creates a Recorder with all collectors registered.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		JobsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "jobs_total",
				Help:      "Total number of finished conversion jobs",
			},
			[]string{"outcome"},
		),
		FoldersSkippedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "folders_skipped_total",
				Help:      "Total number of source folders skipped",
			},
			[]string{"reason"},
		),
		RenditionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "renditions_total",
				Help:      "Total number of rendition and audio encodes",
			},
			[]string{"name", "result"},
		),
		SourceBytesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_bytes_total",
			Help:      "Bytes of source folders converted",
		}),
		OutputBytesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "output_bytes_total",
			Help:      "Bytes of packages written",
		}),
		JobDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "job_duration_seconds",
			Help:      "Wall time of each conversion job",
			Buckets:   []float64{30, 60, 300, 600, 1800, 3600, 7200, 14400},
		}),
		LastRunTimestamp: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last batch finished",
		}),
	}

	r.registry.MustRegister(
		r.JobsTotal,
		r.FoldersSkippedTotal,
		r.RenditionsTotal,
		r.SourceBytesTotal,
		r.OutputBytesTotal,
		r.JobDuration,
		r.LastRunTimestamp,
	)
	return r
}

// Registry exposes the registry for gathering.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// JobFinished records one job.
func (r *Recorder) JobFinished(outcome string, elapsed time.Duration, sourceBytes, outputBytes uint64) {
	r.JobsTotal.WithLabelValues(outcome).Inc()
	r.JobDuration.Observe(elapsed.Seconds())
	r.SourceBytesTotal.Add(float64(sourceBytes))
	r.OutputBytesTotal.Add(float64(outputBytes))
}

// FolderSkipped records a skipped folder.
func (r *Recorder) FolderSkipped(reason string) {
	r.FoldersSkippedTotal.WithLabelValues(reason).Inc()
}

// Rendition records one encode.
func (r *Recorder) Rendition(name string, verified bool) {
	result := "failed"
	if verified {
		result = "verified"
	}
	r.RenditionsTotal.WithLabelValues(name, result).Inc()
}

// WriteTextfile stamps the finish time and writes every collector to path
// in the text exposition format.
func (r *Recorder) WriteTextfile(path string, finished time.Time) error {
	r.LastRunTimestamp.Set(float64(finished.Unix()))
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
