package session

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	uploadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chatsplit_receipt_uploads_total",
		Help: "Receipt uploads processed, by outcome.",
	}, []string{"outcome"})

	commandsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chatsplit_chat_commands_total",
		Help: "Chat commands processed, by outcome.",
	}, []string{"outcome"})

	oracleDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "chatsplit_oracle_call_duration_seconds",
		Help:    "Duration of calls to the generative-AI backend.",
		Buckets: prometheus.ExponentialBuckets(0.25, 2, 10),
	}, []string{"call"})
)

func observeOutcome(vec *prometheus.CounterVec, err error) {
	if err != nil {
		vec.WithLabelValues("error").Inc()
		return
	}
	vec.WithLabelValues("ok").Inc()
}
