package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ConfigVersionInfo carries the active snapshot's version_id as a
	// label rather than a value; the gauge itself is always 1.
	ConfigVersionInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "agw_config_version_info",
			Help: "Active config snapshot version, as a label",
		},
		[]string{"version"},
	)

	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agw_requests_total",
			Help: "Requests handled, by outcome",
		},
		[]string{"outcome"},
	)

	PluginVerdictsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agw_plugin_verdicts_total",
			Help: "Plugin invocations, by plugin name and verdict",
		},
		[]string{"plugin", "verdict"},
	)

	PluginModulesCached = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "agw_plugin_modules_cached",
			Help: "Distinct plugin module paths compiled so far",
		},
	)

	FastpathAttached = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "agw_fastpath_attached",
			Help: "Whether the kernel socket redirect fast path is attached (1) or not (0)",
		},
	)
)

func init() {
	prometheus.MustRegister(
		ConfigVersionInfo,
		RequestsTotal,
		PluginVerdictsTotal,
		PluginModulesCached,
		FastpathAttached,
	)
}

// Handler returns the /metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Outcome labels used with RequestsTotal.
const (
	OutcomeForwarded = "forwarded"
	OutcomeNotFound  = "not_found"
	OutcomeDenied    = "denied"
	OutcomeError     = "error"
	OutcomeBadGateway = "bad_gateway"
	OutcomeUnavailable = "unavailable"
)

// Verdict labels used with PluginVerdictsTotal.
const (
	VerdictAllow = "allow"
	VerdictDeny  = "deny"
	VerdictError = "error"
)

// ObserveRequest records the outcome of one inbound request.
func ObserveRequest(outcome string) {
	RequestsTotal.WithLabelValues(outcome).Inc()
}

// ObservePluginVerdict records one plugin invocation's result.
func ObservePluginVerdict(plugin, verdict string) {
	PluginVerdictsTotal.WithLabelValues(plugin, verdict).Inc()
}

// SetConfigVersion replaces the previously reported version label with the
// snapshot currently in force, zeroing the old one so only one series is
// ever at value 1.
func SetConfigVersion(version string) {
	ConfigVersionInfo.Reset()
	ConfigVersionInfo.WithLabelValues(version).Set(1)
}

// SetModulesCached reports the plugin VM's current module cache size.
func SetModulesCached(n int) {
	PluginModulesCached.Set(float64(n))
}

// SetFastpathAttached reports whether the kernel fast path is active.
func SetFastpathAttached(attached bool) {
	if attached {
		FastpathAttached.Set(1)
		return
	}
	FastpathAttached.Set(0)
}
