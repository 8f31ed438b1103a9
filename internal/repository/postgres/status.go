package postgres

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// statusTable is a table reported by StatusCollector. Tables with an active
// column report clean (active) and dirty (all) rows; others report clean only.
type statusTable struct {
	name       string
	softDelete bool
}

var statusTables = []statusTable{
	{name: "users", softDelete: true},
	{name: "roles"},
	{name: "permissions"},
	{name: "events", softDelete: true},
	{name: "assistants", softDelete: true},
	{name: "sessions", softDelete: true},
}

// StatusCollector reports the database clock and per-table row counts on every scrape.
type StatusCollector struct {
	db      *sql.DB
	timeout time.Duration
	logger  *slog.Logger

	serverTime *prometheus.Desc
	tableCount *prometheus.Desc
}

func NewStatusCollector(db *sql.DB, timeout time.Duration, logger *slog.Logger) *StatusCollector {
	return &StatusCollector{
		db:      db,
		timeout: timeout,
		logger:  logger,
		serverTime: prometheus.NewDesc("eventhub_db_server_time",
			"Database server clock as unix seconds", nil, nil),
		tableCount: prometheus.NewDesc("eventhub_db_table_count",
			"Rows per table; clean counts active rows, dirty counts all rows",
			[]string{"count", "table"}, nil),
	}
}

func (c *StatusCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.serverTime
	ch <- c.tableCount
}

// Collect skips a series whose query fails and logs the error.
func (c *StatusCollector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	var now time.Time
	if err := c.db.QueryRowContext(ctx, `SELECT now()`).Scan(&now); err != nil {
		c.logger.Error("db status: read server time", "err", err)
	} else {
		ch <- prometheus.MustNewConstMetric(c.serverTime, prometheus.GaugeValue, float64(now.UnixNano())/1e9)
	}

	for _, t := range statusTables {
		if t.softDelete {
			var total, active int64
			err := c.db.QueryRowContext(ctx,
				`SELECT count(*), count(*) FILTER (WHERE `+activePredicate+`) FROM `+t.name).Scan(&total, &active)
			if err != nil {
				c.logger.Error("db status: count rows", "table", t.name, "err", err)
				continue
			}
			ch <- prometheus.MustNewConstMetric(c.tableCount, prometheus.GaugeValue, float64(active), "clean", t.name)
			ch <- prometheus.MustNewConstMetric(c.tableCount, prometheus.GaugeValue, float64(total), "dirty", t.name)
			continue
		}
		var total int64
		if err := c.db.QueryRowContext(ctx, `SELECT count(*) FROM `+t.name).Scan(&total); err != nil {
			c.logger.Error("db status: count rows", "table", t.name, "err", err)
			continue
		}
		ch <- prometheus.MustNewConstMetric(c.tableCount, prometheus.GaugeValue, float64(total), "clean", t.name)
	}
}
