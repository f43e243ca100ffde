package notify

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var notificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "famportal_notifications_total",
	Help: "Notifications handled by the dispatcher, by result",
}, []string{"result"})

var sendDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Name:    "famportal_notification_send_seconds",
	Help:    "Time spent delivering one notification",
	Buckets: prometheus.ExponentialBuckets(0.01, 2, 10),
})
