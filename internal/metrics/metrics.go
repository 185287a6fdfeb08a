// Package metrics holds the Prometheus counters exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "creditledger"

const (
	ResultSuccess = "success"
	ResultFailure = "failure"
	ResultSkipped = "skipped"
)

var (
	MirrorCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "mirror_calls_total",
		Help:      "External ledger mirror attempts by kind and result.",
	}, []string{"kind", "result"})

	DebtsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "debts_created_total",
		Help:      "Debts persisted.",
	})

	PaymentsApplied = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "payments_applied_total",
		Help:      "Payments accepted against a debt.",
	})

	DebtsSettled = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "debts_settled_total",
		Help:      "Debts whose balance reached zero.",
	})

	Reminders = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "reminders_total",
		Help:      "Overdue reminder outcomes per user.",
	}, []string{"result"})

	OutboxMessages = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "outbox_messages_total",
		Help:      "Ledger events published to Kafka by result.",
	}, []string{"result"})
)

// Result maps an error to a result label.
func Result(err error) string {
	if err != nil {
		return ResultFailure
	}
	return ResultSuccess
}
