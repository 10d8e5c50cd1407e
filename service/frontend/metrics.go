package frontend

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	searchesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "buscalibros",
		Name:      "searches_total",
		Help:      "The total number of search queries executed against the catalog.",
	})

	captchaGeneratedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "buscalibros",
		Name:      "captcha_generated_total",
		Help:      "The total number of CAPTCHA challenges generated.",
	})

	captchaVerificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "buscalibros",
		Name:      "captcha_verifications_total",
		Help:      "The total number of CAPTCHA verification attempts partitioned by outcome.",
	}, []string{"status"})

	throttledRequestsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "buscalibros",
		Name:      "throttled_requests_total",
		Help:      "The total number of requests rejected by the per-client rate limiter.",
	})
)
