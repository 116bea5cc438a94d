package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Scans counts scan outcomes by result code ("ok", "already_recorded", ...).
	Scans = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "presensi",
		Name:      "scans_total",
		Help:      "Attendance scans processed, by outcome.",
	}, []string{"outcome"})

	// RosterCache counts roster reads by roster ("students", "teachers") and
	// how they were served ("hit", "miss", "stale", "empty").
	RosterCache = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "presensi",
		Name:      "roster_cache_total",
		Help:      "Roster reads, by roster and cache result.",
	}, []string{"roster", "result"})

	// QueueMessages counts queued scans consumed by the worker.
	QueueMessages = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "presensi",
		Name:      "queue_messages_total",
		Help:      "Queue messages consumed, by type and outcome.",
	}, []string{"type", "outcome"})
)
