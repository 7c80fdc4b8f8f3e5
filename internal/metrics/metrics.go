// Package metrics records agent activity as Prometheus metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Cyclone1070/agentcore/internal/ratelimit"
	"github.com/Cyclone1070/agentcore/internal/workflow"
)

// Recorder owns a private registry so several recorders can coexist in one
// process (and in tests).
type Recorder struct {
	registry *prometheus.Registry

	providerCalls prometheus.Counter
	tokensTotal   *prometheus.CounterVec
	toolCalls     *prometheus.CounterVec
	toolDuration  *prometheus.HistogramVec
	notices       *prometheus.CounterVec
	runs          *prometheus.CounterVec
	limiterWaits  *prometheus.CounterVec
	limiterDelay  *prometheus.HistogramVec
}

// NewRecorder creates a Recorder whose series carry the given model label.
func NewRecorder(model string) *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	constLabels := prometheus.Labels{"model": model}

	return &Recorder{
		registry: reg,
		providerCalls: factory.NewCounter(prometheus.CounterOpts{
			Name:        "agent_provider_calls_total",
			Help:        "Provider calls started by the agent loop",
			ConstLabels: constLabels,
		}),
		tokensTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "agent_tokens_total",
				Help:        "Tokens reported by the provider",
				ConstLabels: constLabels,
			},
			[]string{"type"},
		),
		toolCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "agent_tool_calls_total",
				Help:        "Tool calls by tool and outcome",
				ConstLabels: constLabels,
			},
			[]string{"tool", "outcome"},
		),
		toolDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:        "agent_tool_duration_seconds",
				Help:        "Time from permission check to tool result",
				Buckets:     prometheus.DefBuckets,
				ConstLabels: constLabels,
			},
			[]string{"tool"},
		),
		notices: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "agent_notices_total",
				Help:        "Retries, backoffs, trims and iteration cap warnings",
				ConstLabels: constLabels,
			},
			[]string{"kind"},
		),
		runs: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "agent_runs_total",
				Help:        "Finished loop runs by status",
				ConstLabels: constLabels,
			},
			[]string{"status"},
		),
		limiterWaits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "agent_rate_limit_waits_total",
				Help:        "Waits imposed by the rate limiter",
				ConstLabels: constLabels,
			},
			[]string{"reason"},
		),
		limiterDelay: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:        "agent_rate_limit_wait_seconds",
				Help:        "Time spent waiting for the rate limiter",
				Buckets:     []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 30, 60},
				ConstLabels: constLabels,
			},
			[]string{"reason"},
		),
	}
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Observe is a loop observer.
func (r *Recorder) Observe(ev workflow.Event) {
	switch e := ev.(type) {
	case workflow.ThinkingEvent:
		r.providerCalls.Inc()
	case workflow.TokensEvent:
		r.tokensTotal.WithLabelValues("prompt").Add(float64(e.Call.InputTokens))
		r.tokensTotal.WithLabelValues("completion").Add(float64(e.Call.OutputTokens))
	case workflow.ToolEndEvent:
		r.toolCalls.WithLabelValues(e.Record.ToolName, string(e.Record.Outcome)).Inc()
		r.toolDuration.WithLabelValues(e.Record.ToolName).Observe(e.Record.Duration.Seconds())
	case workflow.NoticeEvent:
		r.notices.WithLabelValues(string(e.Kind)).Inc()
	case workflow.DoneEvent:
		r.runs.WithLabelValues(runStatus(e)).Inc()
	}
}

// ObserveWait is a rate limiter wait observer.
func (r *Recorder) ObserveWait(reason ratelimit.Reason, d time.Duration) {
	r.limiterWaits.WithLabelValues(string(reason)).Inc()
	r.limiterDelay.WithLabelValues(string(reason)).Observe(d.Seconds())
}

func runStatus(e workflow.DoneEvent) string {
	switch {
	case e.Aborted:
		return "aborted"
	case e.Err != nil:
		return "error"
	case e.CapReached:
		return "iteration_cap"
	default:
		return "completed"
	}
}

// Chain fans one event out to several observers in order.
func Chain(observers ...func(workflow.Event)) func(workflow.Event) {
	return func(ev workflow.Event) {
		for _, o := range observers {
			if o != nil {
				o(ev)
			}
		}
	}
}
