// Package metrics exposes lifecycle and automation counters on /metrics.
package metrics

import (
	"net/http"

	"arkwarden/internal/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	Transitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "arkwarden_status_transitions_total",
		Help: "Profile status transitions by target status",
	}, []string{"to"})

	Failures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "arkwarden_operation_failures_total",
		Help: "Lifecycle operations that ended in Error, by operation",
	}, []string{"operation"})

	Commands = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "arkwarden_console_commands_total",
		Help: "Console commands sent, by result",
	}, []string{"result"})

	UpdateChecks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "arkwarden_update_checks_total",
		Help: "Build update checks, by result",
	}, []string{"result"})

	ScheduledRestarts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arkwarden_scheduled_restarts_total",
		Help: "Scheduled restarts triggered by automation",
	})

	ProfilesByStatus = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "arkwarden_profiles",
		Help: "Profiles currently in each status",
	}, []string{"status"})

	MemoryBytes = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "arkwarden_server_memory_bytes",
		Help: "Resident memory of running servers",
	}, []string{"profile"})

	Players = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "arkwarden_server_players",
		Help: "Connected players of running servers",
	}, []string{"profile"})
)

func Handler() http.Handler {
	return promhttp.Handler()
}

// SetProfileStatuses recomputes the per-status gauge from the full list.
func SetProfileStatuses(profiles []domain.Profile) {
	counts := make(map[domain.Status]int, len(domain.AllStatuses))
	for _, p := range profiles {
		counts[p.Status]++
	}
	for _, status := range domain.AllStatuses {
		ProfilesByStatus.WithLabelValues(string(status)).Set(float64(counts[status]))
	}
}
