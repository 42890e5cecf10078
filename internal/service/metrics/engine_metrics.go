package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	CollectorFanout = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "quorum",
			Subsystem: "collector",
			Name:      "fanout_size",
			Help:      "Providers invoked per round",
			Buckets:   []float64{1, 2, 3, 5, 8, 13, 21},
		},
		[]string{"symbol"},
	)

	RoundDeadlineExceeded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "quorum",
			Subsystem: "collector",
			Name:      "deadline_abandoned_total",
			Help:      "Provider tasks abandoned at the round deadline",
		},
		[]string{"symbol"},
	)
)

func Register() {
	once.Do(func() {
		prometheus.MustRegister(CollectorFanout, RoundDeadlineExceeded)
	})
}
