package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/marcboeker/go-duckdb"

	"github.com/peter-kozarec/barsim/pkg/common"
	"github.com/peter-kozarec/barsim/pkg/utility/fixed"
)

// DefaultTimeColumn is the timestamp column of exported bar CSV files.
const DefaultTimeColumn = "Datetime"

// Reader loads bars through an embedded DuckDB. An empty data source name opens
// an in-memory database, which is enough for CSV files.
type Reader struct {
	dataSourceName string
	db             *sql.DB
}

func NewReader(dataSourceName string) *Reader {
	return &Reader{
		dataSourceName: dataSourceName,
	}
}

func (r *Reader) Connect() error {
	db, err := sql.Open("duckdb", r.dataSourceName)
	if err != nil {
		return fmt.Errorf("unable to open duckdb %q: %w", r.dataSourceName, err)
	}
	r.db = db
	return nil
}

func (r *Reader) Close() error {
	if r.db == nil {
		return nil
	}
	return r.db.Close()
}

// DB exposes the connection for fixtures and ad hoc statements.
func (r *Reader) DB() *sql.DB {
	return r.db
}

// LoadBars runs query and maps the first six columns to ts, open, high, low,
// close and volume. A NULL volume marks the volume as missing.
func (r *Reader) LoadBars(ctx context.Context, symbol, query string, args ...any) (bars []common.Bar, err error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error preparing query: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("error closing rows: %w", closeErr)
		}
	}()

	for rows.Next() {
		var (
			ts                          time.Time
			open, high, low, closePrice float64
			volume                      sql.NullFloat64
		)
		if err := rows.Scan(&ts, &open, &high, &low, &closePrice, &volume); err != nil {
			return nil, fmt.Errorf("error scanning row: %w", err)
		}

		bar := common.Bar{
			Symbol:        symbol,
			TimeStamp:     ts.UTC(),
			Open:          fixed.FromFloat64(open),
			High:          fixed.FromFloat64(high),
			Low:           fixed.FromFloat64(low),
			Close:         fixed.FromFloat64(closePrice),
			MissingVolume: !volume.Valid,
		}
		if volume.Valid {
			bar.Volume = fixed.FromFloat64(volume.Float64)
		}
		bars = append(bars, bar)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error scanning rows: %w", err)
	}

	return bars, nil
}

// TableQuery selects the bars of a table with columns ts, open, high, low,
// close and volume. Zero bounds are open.
func TableQuery(table string, from, to time.Time) (string, []any) {
	var (
		where []string
		args  []any
	)
	if !from.IsZero() {
		where = append(where, "ts >= ?")
		args = append(args, from)
	}
	if !to.IsZero() {
		where = append(where, "ts <= ?")
		args = append(args, to)
	}

	query := fmt.Sprintf("SELECT ts, open, high, low, close, volume FROM %s", quoteIdent(table))
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	return query + " ORDER BY ts", args
}

// CSVQuery reads a bar CSV with Open, High, Low, Close and Volume columns.
func CSVQuery(path, timeColumn string) string {
	if timeColumn == "" {
		timeColumn = DefaultTimeColumn
	}
	return fmt.Sprintf(
		"SELECT CAST(%s AS TIMESTAMP) AS ts, Open, High, Low, Close, Volume FROM read_csv_auto(%s) ORDER BY ts",
		quoteIdent(timeColumn), quoteLiteral(path))
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
