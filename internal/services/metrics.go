package services

import "github.com/prometheus/client_golang/prometheus"

var (
	// batchRuns counts batch runs by how they ended.
	batchRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outreach_batch_runs_total",
			Help: "Batch runs by outcome.",
		},
		[]string{"outcome"},
	)

	// sendsTotal counts send attempts by message type and result.
	sendsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outreach_sends_total",
			Help: "Send attempts by message type and result.",
		},
		[]string{"message_type", "result"},
	)

	// repliesTotal counts reply signals by outcome.
	repliesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outreach_replies_total",
			Help: "Reply signals handled by the reply bridge, by outcome.",
		},
		[]string{"outcome"},
	)

	// batchInflight is 1 while a batch run holds the guard.
	batchInflight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "outreach_batch_inflight",
			Help: "1 while a batch run is in progress.",
		},
	)
)

func init() {
	prometheus.MustRegister(batchRuns, sendsTotal, repliesTotal, batchInflight)
}
