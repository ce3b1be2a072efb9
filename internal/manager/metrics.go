package manager

import "github.com/prometheus/client_golang/prometheus"

var (
	actorsGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "mnistd",
			Subsystem: "actors",
			Name:      "live",
			Help:      "Number of live actors",
		},
	)

	loadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mnistd",
			Subsystem: "actors",
			Name:      "loads_total",
			Help:      "Weight loads attempted by actors",
		},
		[]string{"result"},
	)

	requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mnistd",
			Subsystem: "actors",
			Name:      "requests_total",
			Help:      "Requests handled by actors",
		},
		[]string{"kind", "result"},
	)

	mailboxWait = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "mnistd",
			Subsystem: "actors",
			Name:      "mailbox_wait_seconds",
			Help:      "Time a request spent queued before its actor picked it up",
			Buckets:   prometheus.DefBuckets,
		},
	)
)

func init() {
	prometheus.MustRegister(actorsGauge, loadsTotal, requestsTotal, mailboxWait)
}
