// Package metrics exposes the engine's Prometheus surface, adapted from
// the teacher's custom-registry/promauto convention and renamed from
// trader/position subsystems to the analysis pipeline's own stages
// (collector, engine, scenario, llm, http).
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Registry is the custom prometheus registry for this engine's metrics.
	Registry = prometheus.NewRegistry()

	mu sync.RWMutex

	// ============================================
	// Data Collector Metrics
	// ============================================

	CollectorRequestsTotal = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "futures_scenario_engine",
			Subsystem: "collector",
			Name:      "requests_total",
			Help:      "Total provider requests by source and result",
		},
		[]string{"provider", "source", "result"}, // result: "ok", "error"
	)

	CollectorRequestDuration = promauto.With(Registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "futures_scenario_engine",
			Subsystem: "collector",
			Name:      "request_duration_seconds",
			Help:      "Provider request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"provider", "source"},
	)

	CollectorFailoverTotal = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "futures_scenario_engine",
			Subsystem: "collector",
			Name:      "failover_total",
			Help:      "Times the secondary provider was used after the primary failed",
		},
		[]string{"symbol", "source"},
	)

	CollectorCacheHitsTotal = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "futures_scenario_engine",
			Subsystem: "collector",
			Name:      "cache_hits_total",
			Help:      "TTL cache hits by key kind",
		},
		[]string{"kind"},
	)

	CollectorCacheMissesTotal = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "futures_scenario_engine",
			Subsystem: "collector",
			Name:      "cache_misses_total",
			Help:      "TTL cache misses by key kind",
		},
		[]string{"kind"},
	)

	// ============================================
	// Engine Pipeline Metrics
	// ============================================

	EngineAnalyzeTotal = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "futures_scenario_engine",
			Subsystem: "engine",
			Name:      "analyze_total",
			Help:      "Total AnalyzeSymbol calls by result",
		},
		[]string{"result"}, // "ok", "insufficient_data", "error"
	)

	EngineAnalyzeDuration = promauto.With(Registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "futures_scenario_engine",
			Subsystem: "engine",
			Name:      "analyze_duration_seconds",
			Help:      "AnalyzeSymbol wall-clock duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"symbol", "timeframe"},
	)

	EngineDataQualityCompleteness = promauto.With(Registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "futures_scenario_engine",
			Subsystem: "engine",
			Name:      "data_quality_completeness",
			Help:      "Last data_quality.completeness score (0-100) per symbol/timeframe",
		},
		[]string{"symbol", "timeframe"},
	)

	EngineLLMSemaphoreInUse = promauto.With(Registry).NewGauge(
		prometheus.GaugeOpts{
			Namespace: "futures_scenario_engine",
			Subsystem: "engine",
			Name:      "llm_semaphore_in_use",
			Help:      "Number of in-flight requests currently holding the LLM semaphore",
		},
	)

	// ============================================
	// Scenario Generator / Adapter Metrics
	// ============================================

	ScenarioGenerationAttemptsTotal = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "futures_scenario_engine",
			Subsystem: "scenario",
			Name:      "generation_attempts_total",
			Help:      "Scenario generation attempts by result",
		},
		[]string{"result"}, // "parsed", "parse_failed"
	)

	ScenarioGenerationDuration = promauto.With(Registry).NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "futures_scenario_engine",
			Subsystem: "scenario",
			Name:      "generation_duration_seconds",
			Help:      "Scenario Generator call duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
	)

	ScenarioDroppedTotal = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "futures_scenario_engine",
			Subsystem: "scenario",
			Name:      "dropped_total",
			Help:      "Scenarios dropped by the adapter after a failed invariant repair",
		},
		[]string{"bias"},
	)

	// ============================================
	// LLM Call Metrics
	// ============================================

	LLMCallsTotal = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "futures_scenario_engine",
			Subsystem: "llm",
			Name:      "calls_total",
			Help:      "Total LLM calls by provider and result",
		},
		[]string{"provider", "result"}, // result: "ok", "error"
	)

	LLMCallDuration = promauto.With(Registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "futures_scenario_engine",
			Subsystem: "llm",
			Name:      "call_duration_seconds",
			Help:      "LLM call duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"provider"},
	)

	// ============================================
	// HTTP API Metrics
	// ============================================

	HTTPRequestsTotal = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "futures_scenario_engine",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests by method, path and status",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.With(Registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "futures_scenario_engine",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

// RecordCollectorRequest records a single provider call's outcome and
// duration in one locked section, mirroring the teacher's
// UpdateTraderMetrics compound-update idiom.
func RecordCollectorRequest(provider, source string, durationSeconds float64, err error) {
	mu.Lock()
	defer mu.Unlock()

	result := "ok"
	if err != nil {
		result = "error"
	}
	CollectorRequestsTotal.WithLabelValues(provider, source, result).Inc()
	CollectorRequestDuration.WithLabelValues(provider, source).Observe(durationSeconds)
}

// RecordFailover records a fallback to the secondary provider.
func RecordFailover(symbol, source string) {
	CollectorFailoverTotal.WithLabelValues(symbol, source).Inc()
}

// RecordCacheLookup records a TTL cache hit or miss.
func RecordCacheLookup(kind string, hit bool) {
	if hit {
		CollectorCacheHitsTotal.WithLabelValues(kind).Inc()
		return
	}
	CollectorCacheMissesTotal.WithLabelValues(kind).Inc()
}

// RecordAnalyze records one AnalyzeSymbol call's outcome, duration and
// resulting data quality completeness.
func RecordAnalyze(symbol, timeframe, result string, durationSeconds, completeness float64) {
	mu.Lock()
	defer mu.Unlock()

	EngineAnalyzeTotal.WithLabelValues(result).Inc()
	EngineAnalyzeDuration.WithLabelValues(symbol, timeframe).Observe(durationSeconds)
	EngineDataQualityCompleteness.WithLabelValues(symbol, timeframe).Set(completeness)
}

// SetLLMSemaphoreInUse reports the current occupancy of the engine's
// bounded LLM semaphore.
func SetLLMSemaphoreInUse(n int) {
	EngineLLMSemaphoreInUse.Set(float64(n))
}

// RecordScenarioGeneration records one Generate attempt's parse outcome
// and duration.
func RecordScenarioGeneration(parsed bool, durationSeconds float64) {
	result := "parsed"
	if !parsed {
		result = "parse_failed"
	}
	ScenarioGenerationAttemptsTotal.WithLabelValues(result).Inc()
	ScenarioGenerationDuration.Observe(durationSeconds)
}

// RecordScenarioDropped records an adapter-side invariant-repair failure.
func RecordScenarioDropped(bias string) {
	ScenarioDroppedTotal.WithLabelValues(bias).Inc()
}

// RecordLLMCall records one underlying LLM provider call.
func RecordLLMCall(provider string, durationSeconds float64, err error) {
	mu.Lock()
	defer mu.Unlock()

	result := "ok"
	if err != nil {
		result = "error"
	}
	LLMCallsTotal.WithLabelValues(provider, result).Inc()
	LLMCallDuration.WithLabelValues(provider).Observe(durationSeconds)
}

// RecordHTTPRequest records one completed HTTP request.
func RecordHTTPRequest(method, path, status string, durationSeconds float64) {
	mu.Lock()
	defer mu.Unlock()

	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, path).Observe(durationSeconds)
}

// Init registers the standard Go runtime/process collectors, same as
// the teacher's Init.
func Init() {
	Registry.MustRegister(prometheus.NewGoCollector())
	Registry.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
}
