// Package metrics defines the instrumentation surface for wallet session
// operations and ships Prometheus and no-op recorders.
package metrics

import "time"

// Recorder receives operation outcomes and latencies from the controller.
type Recorder interface {
	IncOperation(operation, provider, status string)
	ObserveLatency(operation, provider string, d time.Duration)
}

// Noop discards everything.
type Noop struct{}

func (Noop) IncOperation(string, string, string)          {}
func (Noop) ObserveLatency(string, string, time.Duration) {}
