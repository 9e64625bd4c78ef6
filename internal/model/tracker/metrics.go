package tracker

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var histogramOpDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "expense_tracker",
		Subsystem: "tracker",
		Name:      "histogram_operation_duration_seconds",
		Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2},
	},
	[]string{"op", "error"},
)

func observeOp(op string, start time.Time, err bool) {
	histogramOpDuration.
		WithLabelValues(op, strconv.FormatBool(err)).
		Observe(time.Since(start).Seconds())
}
