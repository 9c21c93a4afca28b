package store

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/spektr-org/insightbot/schema"
)

// ============================================================================
// TABULAR STORE — One read-only fact table per process, hot-swappable
// ============================================================================
// A Store owns exactly one fact table. Every load builds a complete new
// Snapshot (backend + typed records) before it becomes visible; readers
// hold a reference for the length of a request and always see a whole table.
// The previous snapshot is closed once its last reader releases it.
// ============================================================================

// ErrNotLoaded is returned by Acquire before the first successful Replace.
var ErrNotLoaded = eris.New("store: no table loaded")

// Result is a tabular query result. Cells are nil, int64, float64 or string.
// Dates come back as "2006-01-02" text and timestamps as "2006-01-02 15:04:05".
type Result struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

// Len returns the number of rows.
func (r *Result) Len() int {
	if r == nil {
		return 0
	}
	return len(r.Rows)
}

// ColumnIndex returns the index of a column (case-insensitive) or -1.
func (r *Result) ColumnIndex(name string) int {
	if r == nil {
		return -1
	}
	for i, c := range r.Columns {
		if strings.EqualFold(c, name) {
			return i
		}
	}
	return -1
}

// Backend executes read-only SQL against one materialized table.
type Backend interface {
	Query(ctx context.Context, query string) (*Result, error)
	Dialect() Dialect
	Close() error
}

// Opener materializes a dataset into a new backend.
type Opener func(ctx context.Context, ds Dataset) (Backend, error)

// SourceInfo describes where the current table came from.
type SourceInfo struct {
	Path         string                 `json:"report_path"`
	ActivePath   string                 `json:"active_report_path,omitempty"`
	SheetName    string                 `json:"sheet_name,omitempty"`
	Rows         int                    `json:"rows"`
	Columns      []string               `json:"columns"`
	Encrypted    bool                   `json:"encrypted"`
	FallbackUsed bool                   `json:"fallback_used"`
	OrderKey     *schema.OrderKeyReport `json:"order_key,omitempty"`
}

// Dataset is a fully normalized fact table ready to be materialized.
// Exactly one of Reviews or Sales is populated, matching Table.Name.
type Dataset struct {
	Table   schema.Table
	Reviews []schema.Review
	Sales   []schema.Sale
	Source  SourceInfo
}

// Rows returns the dataset as positional rows in table column order.
func (d Dataset) Rows() [][]any {
	switch d.Table.Name {
	case schema.ReviewsTableName:
		rows := make([][]any, len(d.Reviews))
		for i, r := range d.Reviews {
			rows[i] = r.Values()
		}
		return rows
	case schema.SalesTableName:
		rows := make([][]any, len(d.Sales))
		for i, s := range d.Sales {
			rows[i] = s.Values()
		}
		return rows
	}
	return nil
}

// Len returns the number of records in the dataset.
func (d Dataset) Len() int {
	if d.Table.Name == schema.SalesTableName {
		return len(d.Sales)
	}
	return len(d.Reviews)
}

// ============================================================================
// SNAPSHOT
// ============================================================================

// Snapshot is one immutable loaded table. Callers must Release it.
type Snapshot struct {
	Dataset
	LoadedAt time.Time

	backend   Backend
	refs      atomic.Int64
	closeOnce sync.Once
	logger    *zap.Logger
}

// Query runs SQL against this snapshot's backend.
func (s *Snapshot) Query(ctx context.Context, query string) (*Result, error) {
	return s.backend.Query(ctx, query)
}

// Dialect returns the SQL dialect of the backend.
func (s *Snapshot) Dialect() Dialect { return s.backend.Dialect() }

// Release drops one reference. The backend closes when none remain.
func (s *Snapshot) Release() {
	if s.refs.Add(-1) == 0 {
		s.closeOnce.Do(func() {
			if err := s.backend.Close(); err != nil {
				s.logger.Warn("⚠️ store: closing retired snapshot", zap.String("table", s.Table.Name), zap.Error(err))
			}
		})
	}
}

// ============================================================================
// STORE
// ============================================================================

// Store holds the current snapshot of a single fact table.
type Store struct {
	mu      sync.RWMutex
	current *Snapshot
	open    Opener
	logger  *zap.Logger
}

// New creates an empty store that materializes tables with open.
func New(open Opener, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{open: open, logger: logger}
}

// Replace materializes ds and atomically swaps it in as the current table.
// On error the previous table stays current.
func (s *Store) Replace(ctx context.Context, ds Dataset) error {
	started := time.Now()
	backend, err := s.open(ctx, ds)
	if err != nil {
		return eris.Wrapf(err, "store: materialize %s", ds.Table.Name)
	}

	snap := &Snapshot{Dataset: ds, LoadedAt: time.Now(), backend: backend, logger: s.logger}
	snap.refs.Store(1)

	s.mu.Lock()
	old := s.current
	s.current = snap
	s.mu.Unlock()

	if old != nil {
		old.Release()
	}
	s.logger.Info("📦 store: table swapped",
		zap.String("table", ds.Table.Name),
		zap.Int("rows", ds.Len()),
		zap.Duration("elapsed", time.Since(started)))
	return nil
}

// Acquire returns the current snapshot with an extra reference held.
func (s *Store) Acquire() (*Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return nil, ErrNotLoaded
	}
	s.current.refs.Add(1)
	return s.current, nil
}

// Loaded reports whether a table is available.
func (s *Store) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current != nil
}

// Info returns the source info of the current table.
func (s *Store) Info() (SourceInfo, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return SourceInfo{}, false
	}
	return s.current.Source, true
}

// Close retires the current snapshot.
func (s *Store) Close() error {
	s.mu.Lock()
	old := s.current
	s.current = nil
	s.mu.Unlock()
	if old != nil {
		old.Release()
	}
	return nil
}
