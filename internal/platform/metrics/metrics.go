package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides process-wide observability for the credential engine.
type Metrics struct {
	RequestDuration     *prometheus.HistogramVec
	ApplicationsDecided *prometheus.CounterVec
	MembersRenewed      prometheus.Counter
	TokensMinted        prometheus.Counter
	TokensActivated     prometheus.Counter
	CardCacheHits       prometheus.Counter
	CardCacheMisses     prometheus.Counter
	LoginAttempts       *prometheus.CounterVec
}

// New registers and returns all engine metrics. Call once per process;
// promauto panics on duplicate registration by design.
func New() *Metrics {
	return &Metrics{
		RequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "vetcred_http_request_duration_seconds",
			Help:    "HTTP request latency by route and status class",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"route", "status"}),
		ApplicationsDecided: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "vetcred_applications_decided_total",
			Help: "Applications moved out of pending, by outcome",
		}, []string{"outcome"}),
		MembersRenewed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "vetcred_members_renewed_total",
			Help: "Member credential renewals (direct and via renewal request)",
		}),
		TokensMinted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "vetcred_qr_tokens_minted_total",
			Help: "QR tokens created through batch minting",
		}),
		TokensActivated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "vetcred_qr_tokens_activated_total",
			Help: "QR tokens lazily created on first scan",
		}),
		CardCacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "vetcred_card_cache_hits_total",
			Help: "Credential card cache hits",
		}),
		CardCacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "vetcred_card_cache_misses_total",
			Help: "Credential card cache misses",
		}),
		LoginAttempts: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "vetcred_login_attempts_total",
			Help: "Admin login attempts by result",
		}, []string{"result"}),
	}
}

// ObserveRequest records one HTTP request observation.
func (m *Metrics) ObserveRequest(route, status string, start time.Time) {
	m.RequestDuration.WithLabelValues(route, status).Observe(time.Since(start).Seconds())
}
