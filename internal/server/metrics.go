package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type metricsRegistry struct {
	registry        *prometheus.Registry
	airdropsTotal   *prometheus.CounterVec
	transfersTotal  *prometheus.CounterVec
	signaturesTotal *prometheus.CounterVec
	balanceLamports prometheus.Gauge
}

func newMetricsRegistry() *metricsRegistry {
	airdrops := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "solrails_airdrops_total",
		Help: "Total number of airdrop requests",
	}, []string{"status"})

	transfers := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "solrails_transfers_total",
		Help: "Total number of transfer submissions",
	}, []string{"status"})

	signatures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "solrails_sign_messages_total",
		Help: "Total number of message signing requests",
	}, []string{"status"})

	lamports := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "solrails_balance_lamports",
		Help: "Last observed balance of the tracked address in lamports",
	})

	r := prometheus.NewRegistry()
	r.MustRegister(airdrops, transfers, signatures, lamports)

	return &metricsRegistry{
		registry:        r,
		airdropsTotal:   airdrops,
		transfersTotal:  transfers,
		signaturesTotal: signatures,
		balanceLamports: lamports,
	}
}

func (m *metricsRegistry) handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *metricsRegistry) incAirdrop(status string) {
	m.airdropsTotal.WithLabelValues(status).Inc()
}

func (m *metricsRegistry) incTransfer(status string) {
	m.transfersTotal.WithLabelValues(status).Inc()
}

func (m *metricsRegistry) incSign(status string) {
	m.signaturesTotal.WithLabelValues(status).Inc()
}

func (m *metricsRegistry) setBalance(lamports uint64) {
	m.balanceLamports.Set(float64(lamports))
}
