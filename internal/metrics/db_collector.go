package metrics

import (
	"database/sql"

	"github.com/prometheus/client_golang/prometheus"
)

// DBStatFunc returns the current connection pool statistics.
type DBStatFunc func() sql.DBStats

type dbStatsCollector struct {
	statFunc DBStatFunc

	openDesc  *prometheus.Desc
	inUseDesc *prometheus.Desc
	idleDesc  *prometheus.Desc
	waitDesc  *prometheus.Desc
}

func NewDBStatsCollector(statFunc DBStatFunc) prometheus.Collector {
	return &dbStatsCollector{
		statFunc: statFunc,
		openDesc: prometheus.NewDesc(
			"tidytap_db_open_connections",
			"Number of established connections to the database.",
			nil, nil,
		),
		inUseDesc: prometheus.NewDesc(
			"tidytap_db_in_use_connections",
			"Number of connections currently in use.",
			nil, nil,
		),
		idleDesc: prometheus.NewDesc(
			"tidytap_db_idle_connections",
			"Number of idle connections.",
			nil, nil,
		),
		waitDesc: prometheus.NewDesc(
			"tidytap_db_wait_count_total",
			"Total number of connections waited for.",
			nil, nil,
		),
	}
}

func (c *dbStatsCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.openDesc
	ch <- c.inUseDesc
	ch <- c.idleDesc
	ch <- c.waitDesc
}

func (c *dbStatsCollector) Collect(ch chan<- prometheus.Metric) {
	s := c.statFunc()
	ch <- prometheus.MustNewConstMetric(c.openDesc, prometheus.GaugeValue, float64(s.OpenConnections))
	ch <- prometheus.MustNewConstMetric(c.inUseDesc, prometheus.GaugeValue, float64(s.InUse))
	ch <- prometheus.MustNewConstMetric(c.idleDesc, prometheus.GaugeValue, float64(s.Idle))
	ch <- prometheus.MustNewConstMetric(c.waitDesc, prometheus.CounterValue, float64(s.WaitCount))
}
