package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/spektr-org/insightbot/schema"
)

// ============================================================================
// POSTGRES BACKEND — One schema per snapshot, search_path pinned per pool
// ============================================================================
// Each snapshot copies its rows into a fresh schema (snap_<id>) and opens a
// pool whose connections resolve unqualified table names there. Closing the
// snapshot drops the schema.
// ============================================================================

type postgresBackend struct {
	pool   *pgxpool.Pool
	schema string
}

// OpenPostgres returns an Opener that materializes datasets into dsn.
func OpenPostgres(dsn string) Opener {
	return func(ctx context.Context, ds Dataset) (Backend, error) {
		snapSchema := "snap_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:16]

		cfg, err := pgxpool.ParseConfig(dsn)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: parse dsn")
		}
		cfg.ConnConfig.RuntimeParams["search_path"] = snapSchema
		cfg.MaxConns = 8

		pool, err := pgxpool.NewWithConfig(ctx, cfg)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: connect")
		}

		if err := loadPostgres(ctx, pool, snapSchema, ds); err != nil {
			_, _ = pool.Exec(context.Background(), fmt.Sprintf("DROP SCHEMA IF EXISTS %s CASCADE", snapSchema))
			pool.Close()
			return nil, err
		}
		return &postgresBackend{pool: pool, schema: snapSchema}, nil
	}
}

func loadPostgres(ctx context.Context, pool *pgxpool.Pool, snapSchema string, ds Dataset) error {
	cols := ds.Table.Columns
	defs := make([]string, len(cols))
	names := make([]string, len(cols))
	for i, c := range cols {
		defs[i] = fmt.Sprintf("%s %s", c.Key, postgresType(c.Kind))
		names[i] = c.Key
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin load")
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, fmt.Sprintf("CREATE SCHEMA %s", snapSchema)); err != nil {
		return eris.Wrap(err, "postgres: create schema")
	}
	if _, err := tx.Exec(ctx, fmt.Sprintf("CREATE TABLE %s.%s (%s)", snapSchema, ds.Table.Name, strings.Join(defs, ", "))); err != nil {
		return eris.Wrapf(err, "postgres: create %s", ds.Table.Name)
	}

	rows := ds.Rows()
	copied, err := tx.CopyFrom(ctx, pgx.Identifier{snapSchema, ds.Table.Name}, names, pgx.CopyFromRows(rows))
	if err != nil {
		return eris.Wrap(err, "postgres: copy rows")
	}
	if int(copied) != len(rows) {
		return eris.Errorf("postgres: copied %d of %d rows", copied, len(rows))
	}
	return eris.Wrap(tx.Commit(ctx), "postgres: commit load")
}

func postgresType(k schema.Kind) string {
	switch k {
	case schema.KindInt:
		return "BIGINT"
	case schema.KindFloat:
		// NUMERIC so ROUND(x, n) resolves
		return "NUMERIC"
	case schema.KindDate:
		return "DATE"
	case schema.KindTimestamp:
		return "TIMESTAMP"
	default:
		return "TEXT"
	}
}

func (b *postgresBackend) Dialect() Dialect { return Postgres }

func (b *postgresBackend) Query(ctx context.Context, query string) (*Result, error) {
	tx, err := b.pool.BeginTx(ctx, pgx.TxOptions{AccessMode: pgx.ReadOnly})
	if err != nil {
		return nil, eris.Wrap(err, "postgres: begin read")
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx, query)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: query")
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	result := &Result{Columns: make([]string, len(fields)), Rows: [][]any{}}
	for i, f := range fields {
		result.Columns[i] = f.Name
	}
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, eris.Wrap(err, "postgres: values")
		}
		cells := make([]any, len(values))
		for i, v := range values {
			cells[i] = normalizePostgresCell(v, fields[i].DataTypeOID)
		}
		result.Rows = append(result.Rows, cells)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: rows")
	}
	return result, nil
}

func normalizePostgresCell(v any, oid uint32) any {
	switch x := v.(type) {
	case pgtype.Numeric:
		if !x.Valid {
			return nil
		}
		f, err := x.Float64Value()
		if err != nil || !f.Valid {
			return nil
		}
		return f.Float64
	case time.Time:
		if oid == pgtype.DateOID {
			return x.Format(dateLayout)
		}
		return x.Format(timestampLayout)
	}
	return normalizeCell(v)
}

func (b *postgresBackend) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_, err := b.pool.Exec(ctx, fmt.Sprintf("DROP SCHEMA IF EXISTS %s CASCADE", b.schema))
	b.pool.Close()
	return eris.Wrap(err, "postgres: drop snapshot schema")
}
