package twilio

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var webhookRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "spendbot_webhook_requests_total",
	Help: "Inbound Twilio webhook requests by outcome.",
}, []string{"outcome"})
