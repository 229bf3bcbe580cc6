// Package metrics exposes slot lifecycle counters as Prometheus metrics by
// implementing the imageslots.EventSink interface.
package metrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/tendant/image-slots/pkg/imageslots"
)

var (
	uploadsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "imageslots_uploads_total",
		Help: "Total number of committed slot uploads",
	})

	evictionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "imageslots_evictions_total",
		Help: "Total number of slots evicted to make room for an upload",
	})

	clearedSlotsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "imageslots_cleared_slots_total",
		Help: "Total number of slots removed by clear-all requests",
	})
)

// Sink increments Prometheus counters on slot lifecycle events.
type Sink struct{}

// NewSink creates a metrics event sink.
func NewSink() *Sink {
	return &Sink{}
}

func (s *Sink) SlotStored(ctx context.Context, slot imageslots.Slot) error {
	uploadsTotal.Inc()
	return nil
}

func (s *Sink) SlotEvicted(ctx context.Context, slot imageslots.Slot) error {
	evictionsTotal.Inc()
	return nil
}

func (s *Sink) UserCleared(ctx context.Context, userID string, removed int) error {
	clearedSlotsTotal.Add(float64(removed))
	return nil
}
