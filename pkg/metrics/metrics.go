package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts token issuance outcomes.
type Metrics interface {
	IncTokensIssued(grantType string)
	IncTokenRejected(reason string)
}

// Noop implements Metrics without emitting anything.
type Noop struct{}

func (Noop) IncTokensIssued(string)  {}
func (Noop) IncTokenRejected(string) {}

// Prom implements Metrics backed by Prometheus counters.
type Prom struct {
	tokensIssued   *prometheus.CounterVec
	tokenRejection *prometheus.CounterVec
}

// NewProm registers the counters with reg, or the default registerer when
// reg is nil. Registering twice with the same registerer panics.
func NewProm(namespace string, reg prometheus.Registerer) *Prom {
	p := &Prom{
		tokensIssued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tokens_issued_total",
			Help:      "Tokens issued by grant type",
		}, []string{"grant_type"}),
		tokenRejection: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "token_rejections_total",
			Help:      "Grants and bearer tokens rejected, by error code",
		}, []string{"reason"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(p.tokensIssued, p.tokenRejection)
	return p
}

func (p *Prom) IncTokensIssued(grantType string) {
	p.tokensIssued.WithLabelValues(grantType).Inc()
}

func (p *Prom) IncTokenRejected(reason string) {
	p.tokenRejection.WithLabelValues(reason).Inc()
}
