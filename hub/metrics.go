// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package hub

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Room kinds keep label cardinality independent of the number of polls
const (
	kindAll  = "all"
	kindPoll = "poll"
)

func roomKind(room string) string {
	if room == AllRoom {
		return kindAll
	}
	return kindPoll
}

type hubMetrics struct {
	subscribers    *prometheus.GaugeVec
	messages       *prometheus.CounterVec
	deliveryErrors *prometheus.CounterVec
}

func newHubMetrics(registry prometheus.Registerer) *hubMetrics {
	if registry == nil {
		return nil
	}
	factory := promauto.With(registry)
	return &hubMetrics{
		subscribers: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "livepoll_hub_subscribers",
			Help: "Live subscribers by room kind",
		}, []string{"kind"}),
		messages: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "livepoll_hub_messages_published_total",
			Help: "Messages published by room kind",
		}, []string{"kind"}),
		deliveryErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "livepoll_hub_delivery_errors_total",
			Help: "Failed deliveries by room kind",
		}, []string{"kind"}),
	}
}

func (m *hubMetrics) subscribed(room string) {
	if m != nil {
		m.subscribers.WithLabelValues(roomKind(room)).Inc()
	}
}

func (m *hubMetrics) unsubscribed(room string) {
	if m != nil {
		m.subscribers.WithLabelValues(roomKind(room)).Dec()
	}
}

func (m *hubMetrics) published(room string) {
	if m != nil {
		m.messages.WithLabelValues(roomKind(room)).Inc()
	}
}

func (m *hubMetrics) deliveryError(room string) {
	if m != nil {
		m.deliveryErrors.WithLabelValues(roomKind(room)).Inc()
	}
}

func (m *hubMetrics) reset() {
	if m != nil {
		m.subscribers.Reset()
	}
}
