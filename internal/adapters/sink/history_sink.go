package sink

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"

	"github.com/ghalamif/TrackGate/internal/domain"
	"github.com/ghalamif/TrackGate/internal/ports"
)

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

const historyColumns = "(run_id, seq, observed_at, latitude, longitude, accuracy, altitude, speed, bearing, " +
	"interval_seconds, anomalous, forwarded, uploads_succeeded, uploads_failed, processed_at)"

const historyColumnCount = 15

// PostgresHistory writes readouts to a Postgres (or TimescaleDB) table.
type PostgresHistory struct {
	db        *sql.DB
	tableName string
}

func NewPostgresHistory(db *sql.DB, table string) (*PostgresHistory, error) {
	if !tableNamePattern.MatchString(table) {
		return nil, fmt.Errorf("invalid history table name %q", table)
	}
	return &PostgresHistory{db: db, tableName: table}, nil
}

func (p *PostgresHistory) Name() string { return "postgres" }

// EnsureSchema creates the history table when it does not exist.
func (p *PostgresHistory) EnsureSchema(ctx context.Context) error {
	ddl := "CREATE TABLE IF NOT EXISTS " + p.tableName + ` (
	run_id TEXT NOT NULL,
	seq BIGINT NOT NULL,
	observed_at TIMESTAMPTZ NOT NULL,
	latitude DOUBLE PRECISION NOT NULL,
	longitude DOUBLE PRECISION NOT NULL,
	accuracy DOUBLE PRECISION,
	altitude DOUBLE PRECISION,
	speed DOUBLE PRECISION,
	bearing DOUBLE PRECISION,
	interval_seconds DOUBLE PRECISION,
	anomalous BOOLEAN NOT NULL,
	forwarded BOOLEAN NOT NULL,
	uploads_succeeded BIGINT NOT NULL,
	uploads_failed BIGINT NOT NULL,
	processed_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (run_id, seq)
)`
	if _, err := p.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create %s: %w", p.tableName, err)
	}
	return nil
}

// WriteBatch inserts readouts in one statement. Rows already present are skipped.
func (p *PostgresHistory) WriteBatch(ctx context.Context, readouts []domain.Readout) error {
	if len(readouts) == 0 {
		return nil
	}

	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(p.tableName)
	b.WriteString(" ")
	b.WriteString(historyColumns)
	b.WriteString(" VALUES ")

	args := make([]any, 0, len(readouts)*historyColumnCount)
	for i, r := range readouts {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString("(")
		for j := 1; j <= historyColumnCount; j++ {
			if j > 1 {
				b.WriteString(",")
			}
			fmt.Fprintf(&b, "$%d", len(args)+j)
		}
		b.WriteString(")")

		var interval any
		if r.Cadence.HasInterval {
			interval = r.Cadence.ActualIntervalSeconds
		}

		args = append(args,
			r.RunID,
			int64(r.Seq),
			r.Sample.ObservedAt,
			r.Sample.Latitude,
			r.Sample.Longitude,
			r.Sample.Accuracy,
			r.Sample.Altitude,
			r.Sample.Speed,
			r.Sample.Bearing,
			interval,
			r.Cadence.Anomalous,
			r.Forwarded,
			int64(r.Stats.SuccessCount),
			int64(r.Stats.FailureCount),
			r.ProcessedAt,
		)
	}

	b.WriteString(" ON CONFLICT (run_id, seq) DO NOTHING")

	_, err := p.db.ExecContext(ctx, b.String(), args...)
	return err
}

var _ ports.HistoryWriter = (*PostgresHistory)(nil)
