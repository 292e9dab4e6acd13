package metrics

import (
	"net/http"
	"strconv"

	"github.com/NikitaKuzlyaev/GridArena-sub000/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector records arena outcomes on its own registry.
type Collector struct {
	registry  *prometheus.Registry
	purchases *prometheus.CounterVec
	verdicts  *prometheus.CounterVec
	awarded   prometheus.Counter
	requests  *prometheus.CounterVec
}

func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		purchases: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gridarena_purchases_total",
				Help: "Problem card purchases by result",
			},
			[]string{"result"},
		),
		verdicts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gridarena_submissions_total",
				Help: "Graded submissions by verdict",
			},
			[]string{"verdict"},
		),
		awarded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gridarena_points_awarded_total",
			Help: "Points credited for accepted answers",
		}),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gridarena_http_requests_total",
				Help: "HTTP requests by route and status",
			},
			[]string{"method", "route", "status"},
		),
	}
	c.registry.MustRegister(
		c.purchases, c.verdicts, c.awarded, c.requests,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

func (c *Collector) ObservePurchase(result string) {
	c.purchases.WithLabelValues(result).Inc()
}

func (c *Collector) ObserveVerdict(v domain.Verdict, reward int) {
	c.verdicts.WithLabelValues(string(v)).Inc()
	if reward > 0 {
		c.awarded.Add(float64(reward))
	}
}

func (c *Collector) ObserveRequest(method, route string, status int) {
	c.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
}

func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// Handler exposes the registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
