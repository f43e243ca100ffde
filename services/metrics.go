package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var reportsSubmitted = promauto.NewCounter(prometheus.CounterOpts{
	Name: "famportal_reports_submitted_total",
	Help: "Number of reports submitted",
})

var reportsDecided = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "famportal_reports_decided_total",
	Help: "Number of reports decided, by outcome",
}, []string{"outcome"})

var contractsTaken = promauto.NewCounter(prometheus.CounterOpts{
	Name: "famportal_contracts_taken_total",
	Help: "Number of contract assignments created",
})

var payoutsRequested = promauto.NewCounter(prometheus.CounterOpts{
	Name: "famportal_payouts_requested_total",
	Help: "Number of payout requests created",
})

var payoutsDecided = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "famportal_payouts_decided_total",
	Help: "Number of payout requests decided, by outcome",
}, []string{"outcome"})

var auditWriteFailures = promauto.NewCounter(prometheus.CounterOpts{
	Name: "famportal_audit_write_failures_total",
	Help: "Audit rows that could not be written",
})
