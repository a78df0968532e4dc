package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	MessagesSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "calmsync_messages_sent_total",
		Help: "Messages accepted by the store.",
	})
	MessagesFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "calmsync_messages_failed_total",
		Help: "Message inserts rejected by the store.",
	})
	FeedEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "calmsync_feed_events_total",
		Help: "Change-feed events delivered to subscribers.",
	}, []string{"op"})
	DedupHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "calmsync_dedup_hits_total",
		Help: "Feed events dropped because the row was already merged.",
	})
	FeedResubscribes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "calmsync_feed_resubscribes_total",
		Help: "Supervisor re-subscriptions after a dropped feed.",
	})
)

// Handler returns an http.Handler for Prometheus scraping.
func Handler() http.Handler {
	return promhttp.Handler()
}
