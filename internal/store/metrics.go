// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Authledger Contributors

package store

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
)

// RegisterPoolMetrics exports connection counts of pool as gauges.
func RegisterPoolMetrics(reg prometheus.Registerer, pool *pgxpool.Pool) {
	gauge := func(name, help string, value func(*pgxpool.Stat) int32) prometheus.GaugeFunc {
		return prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{Name: name, Help: help},
			func() float64 { return float64(value(pool.Stat())) },
		)
	}

	reg.MustRegister(
		gauge("authledger_db_pool_total_conns", "Connections currently open in the pool",
			(*pgxpool.Stat).TotalConns),
		gauge("authledger_db_pool_acquired_conns", "Connections currently checked out",
			(*pgxpool.Stat).AcquiredConns),
		gauge("authledger_db_pool_idle_conns", "Idle connections held by the pool",
			(*pgxpool.Stat).IdleConns),
		gauge("authledger_db_pool_max_conns", "Configured pool size",
			(*pgxpool.Stat).MaxConns),
	)
}
