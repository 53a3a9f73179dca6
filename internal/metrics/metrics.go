// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package metrics defines the Prometheus collectors exported at /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "probit",
		Name:      "http_requests_total",
		Help:      "HTTP requests by route pattern, method and status code.",
	}, []string{"route", "method", "code"})

	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "probit",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route pattern.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route", "method"})

	CommentsSubmitted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "probit",
		Name:      "comments_submitted_total",
		Help:      "Visitor comments accepted into the moderation queue.",
	})

	CommentTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "probit",
		Name:      "comment_status_changes_total",
		Help:      "Operator comment status changes by target status.",
	}, []string{"to"})

	ContactSubmissions = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "probit",
		Name:      "contact_submissions_total",
		Help:      "Contact form submissions persisted.",
	})

	EmailsFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "probit",
		Name:      "emails_failed_total",
		Help:      "Transactional emails that could not be sent, by kind.",
	}, []string{"kind"})

	CheckoutsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "probit",
		Name:      "checkouts_started_total",
		Help:      "Checkout sessions created with the payment provider.",
	})

	PageCache = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "probit",
		Name:      "page_cache_lookups_total",
		Help:      "Rendered page cache lookups by result (hit, miss, error).",
	}, []string{"result"})
)

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
