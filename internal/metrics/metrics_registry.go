package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	JoinsObserved = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "raidguard_joins_observed_total",
			Help: "Member join events fed to the raid detector",
		},
	)

	RemovalsReconciled = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "raidguard_removals_reconciled_total",
			Help: "Pending join records dropped because the member left or was removed elsewhere",
		},
	)

	RaidsTriggered = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "raidguard_raids_triggered_total",
			Help: "Join events that pushed a guild window to the raid threshold",
		},
	)

	ActionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "raidguard_actions_total",
			Help: "Kicks and bans issued by the raid detector",
		},
		[]string{"action", "result"}, // result: "ok", "error"
	)

	ActionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "raidguard_action_duration_seconds",
			Help:    "Round trip of a kick or ban call",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"action"},
	)

	WindowSize = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "raidguard_window_joins",
			Help: "Joins currently inside the detection window, per guild",
		},
		[]string{"guild_id"},
	)

	GuildsTracked = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "raidguard_guilds_tracked",
			Help: "Guilds with a join window",
		},
	)
)

func RecordAction(action string, err error, seconds float64) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	ActionsTotal.WithLabelValues(action, result).Inc()
	ActionDuration.WithLabelValues(action).Observe(seconds)
}
