// Package metrics exposes the service's Prometheus collectors.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	SubmissionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "formstudio_submissions_total",
		Help: "Public form submissions accepted, by form.",
	}, []string{"form_id"})

	WebhookDeliveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "formstudio_webhook_deliveries_total",
		Help: "Outbound webhook deliveries, by outcome.",
	}, []string{"outcome"})

	ReportPolls = promauto.NewCounter(prometheus.CounterOpts{
		Name: "formstudio_report_polls_total",
		Help: "Report lookups performed by the await loop.",
	})

	ReportsServed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "formstudio_reports_served_total",
		Help: "Reports rendered or returned, by payload kind.",
	}, []string{"kind"})
)

func Handler() http.Handler {
	return promhttp.Handler()
}
