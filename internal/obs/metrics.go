// Package obs holds the prometheus metrics for the data-protection core.
package obs

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	EncryptOps = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dataguard_encrypt_ops_total",
		Help: "Field values encrypted.",
	})

	DecryptOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dataguard_decrypt_ops_total",
			Help: "Field decryption attempts by result.",
		},
		[]string{"result"},
	)

	AuditWrites = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dataguard_audit_writes_total",
			Help: "Audit entries written by action.",
		},
		[]string{"action"},
	)

	AuthzDenials = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dataguard_authz_denials_total",
			Help: "Access-policy denials by check.",
		},
		[]string{"check"},
	)
)

// Init registers the metrics with the default registry. Call once at
// startup; the counters work unregistered in tests.
func Init() {
	prometheus.MustRegister(EncryptOps, DecryptOps, AuditWrites, AuthzDenials)
}

// Handler exposes the default registry for scraping.
func Handler() http.Handler {
	return promhttp.Handler()
}
