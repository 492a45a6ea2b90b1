// Package resource mirrors backend tables in memory for one consumer. A
// Collection holds a list of rows, a Record holds a single row; both track a
// loading flag and the last error message, and only change local state after
// the backend confirmed a mutation.
package resource

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/rs/zerolog"
	"github.com/wolfeidau/organizehub/internal/store"
	"github.com/wolfeidau/organizehub/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Keyed is implemented by rows identified by a single key column.
type Keyed interface {
	Key() string
}

// Config parameterizes a resource for one table.
type Config struct {
	Table string
	// ScopeColumn restricts a collection to rows whose column equals the fetch scope.
	ScopeColumn string
	OrderBy     string
	// Columns defaults to every column.
	Columns string
	// KeyColumn defaults to "id".
	KeyColumn string
}

func (c Config) keyColumn() string {
	if c.KeyColumn == "" {
		return "id"
	}
	return c.KeyColumn
}

// View is an immutable snapshot of a collection.
type View[T any] struct {
	Items   []T
	Loading bool
	Err     string
}

// Collection is a list resource.
type Collection[T Keyed] struct {
	cfg  Config
	data store.DataClient

	mu      sync.Mutex
	items   []T
	loading bool
	err     string
	scope   string
	seq     uint64 // last started fetch
}

// NewCollection creates a collection in its initial state: empty and loading.
func NewCollection[T Keyed](data store.DataClient, cfg Config) *Collection[T] {
	return &Collection[T]{
		cfg:     cfg,
		data:    data,
		loading: true,
	}
}

// Fetch replaces the list with the rows in scope, ordered by the configured
// column. When the collection is scoped an empty scope does nothing. A
// response arriving after a newer fetch started is discarded.
func (c *Collection[T]) Fetch(ctx context.Context, scope string) error {
	if c.cfg.ScopeColumn != "" && scope == "" {
		return nil
	}

	c.mu.Lock()
	c.seq++
	seq := c.seq
	c.err = ""
	c.loading = true
	c.mu.Unlock()

	q := store.Query{Columns: c.cfg.Columns, OrderBy: c.cfg.OrderBy}
	if c.cfg.ScopeColumn != "" {
		q.Filters = []store.Filter{store.Eq(c.cfg.ScopeColumn, scope)}
	}

	var rows []T
	err := c.data.From(c.cfg.Table).Select(ctx, q, &rows)

	c.mu.Lock()
	defer c.mu.Unlock()

	if seq != c.seq {
		zerolog.Ctx(ctx).Debug().Str("table", c.cfg.Table).Str("scope", scope).Msg("discarding superseded fetch")
		telemetry.GetMetrics().FetchesSuperseded.Add(ctx, 1, metric.WithAttributes(attribute.String("table", c.cfg.Table)))
		return err
	}

	c.loading = false
	if err != nil {
		c.err = err.Error()
		// rows of another scope must not stand in for this one
		if scope != c.scope {
			c.items = nil
			c.scope = scope
		}
		return fmt.Errorf("failed to fetch %s: %w", c.cfg.Table, err)
	}
	c.items = rows
	c.scope = scope

	return nil
}

// Create inserts input and appends the stored row.
func (c *Collection[T]) Create(ctx context.Context, input any) (T, error) {
	var created T
	if err := c.data.From(c.cfg.Table).Insert(ctx, input, &created); err != nil {
		return created, err
	}

	c.mu.Lock()
	c.items = append(slices.Clone(c.items), created)
	c.mu.Unlock()

	return created, nil
}

// Update applies patch to the row with key id and replaces the local entry
// with the returned row.
func (c *Collection[T]) Update(ctx context.Context, id string, patch any) (T, error) {
	var updated T
	filters := []store.Filter{store.Eq(c.cfg.keyColumn(), id)}
	if err := c.data.From(c.cfg.Table).Update(ctx, filters, patch, &updated); err != nil {
		return updated, err
	}

	c.mu.Lock()
	items := slices.Clone(c.items)
	for i, item := range items {
		if item.Key() == id {
			items[i] = updated
		}
	}
	c.items = items
	c.mu.Unlock()

	return updated, nil
}

// Delete removes the row with key id.
func (c *Collection[T]) Delete(ctx context.Context, id string) error {
	filters := []store.Filter{store.Eq(c.cfg.keyColumn(), id)}
	if err := c.data.From(c.cfg.Table).Delete(ctx, filters); err != nil {
		return err
	}

	c.mu.Lock()
	c.items = slices.DeleteFunc(slices.Clone(c.items), func(item T) bool {
		return item.Key() == id
	})
	c.mu.Unlock()

	return nil
}

// Find returns the local entry with key id.
func (c *Collection[T]) Find(id string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, item := range c.items {
		if item.Key() == id {
			return item, true
		}
	}
	var zero T
	return zero, false
}

// Scope returns the scope the current items were fetched for, empty until
// the first fetch completes.
func (c *Collection[T]) Scope() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.scope
}

// View returns a snapshot of the current state.
func (c *Collection[T]) View() View[T] {
	c.mu.Lock()
	defer c.mu.Unlock()

	return View[T]{
		Items:   slices.Clone(c.items),
		Loading: c.loading,
		Err:     c.err,
	}
}

// RecordView is an immutable snapshot of a record.
type RecordView[T any] struct {
	Record  *T
	Loading bool
	Err     string
}

// Record is a single-row resource looked up by key.
type Record[T any] struct {
	cfg  Config
	data store.DataClient

	mu      sync.Mutex
	record  *T
	key     string
	loading bool
	err     string
	seq     uint64
}

// NewRecord creates a record in its initial state: absent and loading.
func NewRecord[T any](data store.DataClient, cfg Config) *Record[T] {
	return &Record[T]{
		cfg:     cfg,
		data:    data,
		loading: true,
	}
}

// Fetch loads the row with the given key. An empty key clears the record and
// a missing row is absence, not an error.
func (r *Record[T]) Fetch(ctx context.Context, key string) error {
	r.mu.Lock()
	r.seq++
	seq := r.seq
	r.key = key
	if key == "" {
		r.record = nil
		r.loading = false
		r.err = ""
		r.mu.Unlock()
		return nil
	}
	r.err = ""
	r.loading = true
	r.mu.Unlock()

	q := store.Query{
		Columns: r.cfg.Columns,
		Filters: []store.Filter{store.Eq(r.cfg.keyColumn(), key)},
	}

	record := new(T)
	err := r.data.From(r.cfg.Table).SelectSingle(ctx, q, record)

	r.mu.Lock()
	defer r.mu.Unlock()

	if seq != r.seq {
		telemetry.GetMetrics().FetchesSuperseded.Add(ctx, 1, metric.WithAttributes(attribute.String("table", r.cfg.Table)))
		return err
	}

	r.loading = false
	switch {
	case errors.Is(err, store.ErrNoRows):
		r.record = nil
	case err != nil:
		r.err = err.Error()
		return fmt.Errorf("failed to fetch %s: %w", r.cfg.Table, err)
	default:
		r.record = record
	}

	return nil
}

// Update applies patch to the current row and replaces the record with the
// returned row.
func (r *Record[T]) Update(ctx context.Context, patch any) (*T, error) {
	key := r.Key()
	if key == "" {
		return nil, store.ErrNotAuthenticated
	}

	updated := new(T)
	filters := []store.Filter{store.Eq(r.cfg.keyColumn(), key)}
	if err := r.data.From(r.cfg.Table).Update(ctx, filters, patch, updated); err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.record = updated
	r.mu.Unlock()

	clone := *updated
	return &clone, nil
}

// Key returns the key of the last fetch.
func (r *Record[T]) Key() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.key
}

// View returns a snapshot of the current state.
func (r *Record[T]) View() RecordView[T] {
	r.mu.Lock()
	defer r.mu.Unlock()

	v := RecordView[T]{Loading: r.loading, Err: r.err}
	if r.record != nil {
		clone := *r.record
		v.Record = &clone
	}
	return v
}
