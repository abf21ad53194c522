package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	geocodeLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "platform_geocode_lookups_total",
		Help: "Geocoding lookups by outcome.",
	}, []string{"result"})

	geocodeCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "platform_geocode_cache_hits_total",
		Help: "Geocoding lookups answered from cache.",
	})

	notifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "platform_notifications_total",
		Help: "Notification dispatch attempts by effect and outcome.",
	}, []string{"effect", "result"})

	transitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "platform_need_transitions_total",
		Help: "Applied need status transitions.",
	}, []string{"from", "to"})

	promotions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "platform_promotions_total",
		Help: "Deferred promotion firings by outcome.",
	}, []string{"result"})
)

func IncGeocodeLookup(result string) {
	geocodeLookups.WithLabelValues(result).Inc()
}

func IncGeocodeCacheHit() {
	geocodeCacheHits.Inc()
}

func IncNotification(effect, result string) {
	notifications.WithLabelValues(effect, result).Inc()
}

func IncNeedTransition(from, to string) {
	transitions.WithLabelValues(from, to).Inc()
}

func IncPromotion(result string) {
	promotions.WithLabelValues(result).Inc()
}
