package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Engine metrics, auto-registered in the default Prometheus registry and
// exposed via the /metrics endpoint.
var (
	messagesHandled = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "spendbot_messages_handled_total",
			Help: "Total number of handled inbound messages by conversation state",
		},
		[]string{"state"},
	)

	expensesCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "spendbot_expenses_created_total",
			Help: "Total number of expense rows appended to the ledger",
		},
	)

	rowsSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "spendbot_ledger_rows_skipped_total",
			Help: "Total number of ledger rows excluded from totals due to data errors",
		},
	)

	totalsComputed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "spendbot_totals_computed_total",
			Help: "Total number of totals queries by window",
		},
		[]string{"window"},
	)
)
