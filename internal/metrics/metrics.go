// Package metrics exposes the composition-core Prometheus counters.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	MessagesSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quill_messages_sent_total",
			Help: "Total number of records successfully appended to storage",
		},
		[]string{"kind"}, // "text" or "image"
	)

	SendFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "quill_send_failures_total",
			Help: "Total number of failed record appends",
		},
	)

	Uploads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quill_uploads_total",
			Help: "Total number of finished attachment uploads by result",
		},
		[]string{"result"}, // "done", "error", "cancelled"
	)
)
