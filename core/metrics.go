package core

import (
	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	prometheus.MustRegister(
		transitionsTotal,
		reachabilityQueriesTotal,
		notificationFailuresTotal,
	)
}

var (
	transitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "releasecab_stage_transitions_total",
			Help: "Total number of stage transition requests per outcome",
		},
		[]string{"outcome"},
	)

	reachabilityQueriesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "releasecab_reachability_queries_total",
			Help: "Total number of next stage queries",
		},
	)

	notificationFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "releasecab_notification_failures_total",
			Help: "Total number of messages which could not be stored",
		},
	)
)
