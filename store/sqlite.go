package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"modernc.org/sqlite"

	"github.com/spektr-org/insightbot/schema"
)

// ============================================================================
// SQLITE BACKEND — Shared-cache in-memory database per snapshot
// ============================================================================
// Each snapshot gets its own named memory database. A single writer
// connection loads the rows and stays open to keep the database alive;
// queries go through a separate pool opened with query_only.
// ============================================================================

var openDB = sql.Open

const (
	dateLayout      = "2006-01-02"
	timestampLayout = "2006-01-02 15:04:05"
)

func init() {
	sqlite.MustRegisterDeterministicScalarFunction("regexp_matches", -1, regexpMatches)
	sqlite.MustRegisterDeterministicScalarFunction("regexp", 2, regexpOperator)
}

type sqliteBackend struct {
	writer *sql.DB
	reader *sql.DB
}

// OpenSQLite materializes ds into a fresh in-memory SQLite database.
func OpenSQLite(ctx context.Context, ds Dataset) (Backend, error) {
	name := "insightbot-" + uuid.NewString()
	base := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)

	writer, err := openDB("sqlite", base)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open writer")
	}
	writer.SetMaxOpenConns(1)
	writer.SetMaxIdleConns(1)
	writer.SetConnMaxLifetime(0)
	writer.SetConnMaxIdleTime(0)

	if err := loadSQLite(ctx, writer, ds); err != nil {
		writer.Close()
		return nil, err
	}

	reader, err := openDB("sqlite", base+"&_pragma=query_only(1)")
	if err != nil {
		writer.Close()
		return nil, eris.Wrap(err, "sqlite: open reader")
	}
	reader.SetMaxOpenConns(8)
	reader.SetMaxIdleConns(2)
	if err := reader.PingContext(ctx); err != nil {
		reader.Close()
		writer.Close()
		return nil, eris.Wrap(err, "sqlite: ping reader")
	}
	return &sqliteBackend{writer: writer, reader: reader}, nil
}

func loadSQLite(ctx context.Context, db *sql.DB, ds Dataset) error {
	cols := ds.Table.Columns
	defs := make([]string, len(cols))
	marks := make([]string, len(cols))
	for i, c := range cols {
		defs[i] = fmt.Sprintf("%s %s", c.Key, sqliteType(c.Kind))
		marks[i] = "?"
	}

	if _, err := db.ExecContext(ctx, fmt.Sprintf("CREATE TABLE %s (%s)", ds.Table.Name, strings.Join(defs, ", "))); err != nil {
		return eris.Wrapf(err, "sqlite: create %s", ds.Table.Name)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin load")
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf("INSERT INTO %s VALUES (%s)", ds.Table.Name, strings.Join(marks, ", ")))
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare insert")
	}
	defer stmt.Close()

	for n, row := range ds.Rows() {
		args := make([]any, len(row))
		for i, v := range row {
			args[i] = sqliteValue(v, cols[i].Kind)
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return eris.Wrapf(err, "sqlite: insert row %d", n+1)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit load")
}

func sqliteType(k schema.Kind) string {
	switch k {
	case schema.KindInt:
		return "INTEGER"
	case schema.KindFloat:
		return "REAL"
	default:
		// dates are stored as ISO text so comparisons and date() work
		return "TEXT"
	}
}

func sqliteValue(v any, k schema.Kind) any {
	t, ok := v.(time.Time)
	if !ok {
		return v
	}
	if k == schema.KindDate {
		return t.Format(dateLayout)
	}
	return t.Format(timestampLayout)
}

func (b *sqliteBackend) Dialect() Dialect { return SQLite }

func (b *sqliteBackend) Query(ctx context.Context, query string) (*Result, error) {
	rows, err := b.reader.QueryContext(ctx, query)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: query")
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: columns")
	}
	result := &Result{Columns: cols, Rows: [][]any{}}
	for rows.Next() {
		cells := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range cells {
			ptrs[i] = &cells[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan")
		}
		for i, c := range cells {
			cells[i] = normalizeCell(c)
		}
		result.Rows = append(result.Rows, cells)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: rows")
	}
	return result, nil
}

func (b *sqliteBackend) Close() error {
	rerr := b.reader.Close()
	werr := b.writer.Close()
	if rerr != nil {
		return rerr
	}
	return werr
}

// normalizeCell maps driver values onto nil, int64, float64 and string.
func normalizeCell(v any) any {
	switch x := v.(type) {
	case nil, int64, float64, string:
		return x
	case []byte:
		return string(x)
	case int:
		return int64(x)
	case int32:
		return int64(x)
	case float32:
		return float64(x)
	case bool:
		if x {
			return int64(1)
		}
		return int64(0)
	case time.Time:
		if x.Hour() == 0 && x.Minute() == 0 && x.Second() == 0 {
			return x.Format(dateLayout)
		}
		return x.Format(timestampLayout)
	default:
		return fmt.Sprint(x)
	}
}

// ============================================================================
// REGEX FUNCTIONS
// ============================================================================

var patternCache sync.Map // map[string]*regexp.Regexp

func compilePattern(pattern, flags string) (*regexp.Regexp, error) {
	key := flags + "\x00" + pattern
	if re, ok := patternCache.Load(key); ok {
		return re.(*regexp.Regexp), nil
	}
	expr := pattern
	if strings.Contains(flags, "i") {
		expr = "(?i)" + expr
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, err
	}
	patternCache.Store(key, re)
	return re, nil
}

func textArg(v driver.Value) (string, bool) {
	switch x := v.(type) {
	case string:
		return x, true
	case []byte:
		return string(x), true
	case nil:
		return "", false
	default:
		return fmt.Sprint(x), true
	}
}

// regexpMatches implements regexp_matches(text, pattern[, flags]).
func regexpMatches(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	if len(args) < 2 || len(args) > 3 {
		return nil, eris.New("regexp_matches: expected 2 or 3 arguments")
	}
	text, ok := textArg(args[0])
	if !ok {
		return nil, nil
	}
	pattern, ok := textArg(args[1])
	if !ok {
		return nil, nil
	}
	var flags string
	if len(args) == 3 {
		flags, _ = textArg(args[2])
	}
	re, err := compilePattern(pattern, flags)
	if err != nil {
		return nil, eris.Wrap(err, "regexp_matches")
	}
	if re.MatchString(text) {
		return int64(1), nil
	}
	return int64(0), nil
}

// regexpOperator backs "text REGEXP pattern", which SQLite calls as regexp(pattern, text).
func regexpOperator(ctx *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	return regexpMatches(ctx, []driver.Value{args[1], args[0]})
}
