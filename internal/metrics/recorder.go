// Package metrics records build pass metrics.
//
// The builder reports through the Recorder interface. NoopRecorder is the
// default; PrometheusRecorder keeps the values in a private registry that
// can be written out in the node_exporter textfile format after every pass.
package metrics

import "time"

// Build stages reported to ObserveStage.
const (
	StageLoad    = "load"
	StageClear   = "clear"
	StageCompose = "compose"
	StageEmit    = "emit"
)

// Recorder receives metrics from the build pipeline.
type Recorder interface {
	ObserveBuild(d time.Duration, success bool)
	ObserveStage(stage string, d time.Duration)
	AddPages(n int)
	IncRecordsRead(collection string, n int)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveBuild(time.Duration, bool)    {}
func (NoopRecorder) ObserveStage(string, time.Duration) {}
func (NoopRecorder) AddPages(int)                        {}
func (NoopRecorder) IncRecordsRead(string, int)          {}
