package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Метрики движка. Регистрируются в default registry,
// отдаются через promhttp в main каждого сервиса.
var (
	// SessionsTotal — завершённые сессии по терминальному статусу.
	SessionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dirigent_sessions_total",
		Help: "Completed execution sessions by terminal status.",
	}, []string{"status"})

	// ActiveSessions — сессии, выполняющиеся прямо сейчас.
	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "dirigent_active_sessions",
		Help: "Sessions currently running.",
	})

	// NodeExecutionsTotal — выполнения узлов по типу и исходу.
	NodeExecutionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dirigent_node_executions_total",
		Help: "Node executions by node type and outcome.",
	}, []string{"type", "status"})

	// NodeDuration — длительность выполнения узла по типу.
	NodeDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "dirigent_node_duration_seconds",
		Help:    "Node execution duration by node type.",
		Buckets: prometheus.ExponentialBuckets(0.005, 4, 10),
	}, []string{"type"})

	// ScriptTimeoutsTotal — скрипты, убитые по таймауту.
	ScriptTimeoutsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dirigent_script_timeouts_total",
		Help: "Script executions killed by wall-clock timeout.",
	})
)
