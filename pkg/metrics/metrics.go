// Package metrics instruments transaction processing.
package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "counter"

type Metrics struct {
	TxProcessed       prometheus.Counter
	TxFailed          prometheus.Counter
	TxRejected        prometheus.Counter
	InstrErrors       *prometheus.CounterVec
	ComputeUnitsUsed  prometheus.Histogram
	AccountsCommitted prometheus.Counter
	LockWait          prometheus.Histogram
}

// New creates the bank metrics and registers them with r.
func New(r prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		TxProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tx_processed",
			Help:      "number of transactions executed successfully",
		}),
		TxFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tx_failed",
			Help:      "number of transactions that failed during execution",
		}),
		TxRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tx_rejected",
			Help:      "number of transactions rejected before execution",
		}),
		InstrErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "instruction_errors",
			Help:      "number of failed instructions by error",
		}, []string{"error"}),
		ComputeUnitsUsed: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "compute_units",
			Help:      "compute units consumed per transaction",
			Buckets:   prometheus.ExponentialBuckets(100, 2, 12),
		}),
		AccountsCommitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "accounts_committed",
			Help:      "number of account writes persisted",
		}),
		LockWait: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "account_lock_wait_seconds",
			Help:      "time spent waiting for account locks",
			Buckets:   prometheus.DefBuckets,
		}),
	}

	err := errors.Join(
		r.Register(m.TxProcessed),
		r.Register(m.TxFailed),
		r.Register(m.TxRejected),
		r.Register(m.InstrErrors),
		r.Register(m.ComputeUnitsUsed),
		r.Register(m.AccountsCommitted),
		r.Register(m.LockWait),
	)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// NewUnregistered returns metrics backed by a private registry.
func NewUnregistered() *Metrics {
	m, err := New(prometheus.NewRegistry())
	if err != nil {
		panic(err)
	}
	return m
}
