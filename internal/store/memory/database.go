package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/wolfeidau/organizehub/internal/store"
)

type row map[string]any

// Reference declares that Column holds the id of a row in Table. Deleting a
// referenced row is restricted.
type Reference struct {
	Column string
	Table  string
}

// TableSpec declares a table and its constraints. Tables not declared are
// created on first use without constraints.
type TableSpec struct {
	Name       string
	Unique     []string
	References []Reference
}

// Database is an in-process table store with PostgREST-like semantics: rows
// are JSON objects keyed by "id", filters are equality matches and results
// are sorted ascending. It implements store.DataClient without any access
// policy.
// This implementation is for development and testing only - data is lost on restart.
type Database struct {
	mu sync.RWMutex

	tables map[string]*table
	now    func() time.Time
}

type table struct {
	spec TableSpec
	rows []row // insertion order
}

var _ store.DataClient = (*Database)(nil)

// NewDatabase creates a database with the given table declarations.
func NewDatabase(specs ...TableSpec) *Database {
	db := &Database{
		tables: make(map[string]*table),
		now:    time.Now,
	}
	for _, spec := range specs {
		db.tables[spec.Name] = &table{spec: spec}
	}
	return db
}

// From returns a handle on the named table.
func (db *Database) From(name string) store.Table {
	return &Table{db: db, name: name}
}

// Count returns the number of rows in the named table.
func (db *Database) Count(name string) int {
	db.mu.RLock()
	defer db.mu.RUnlock()

	if t, ok := db.tables[name]; ok {
		return len(t.rows)
	}
	return 0
}

// table returns the named table, creating it if needed. Callers hold the write lock.
func (db *Database) table(name string) *table {
	t, ok := db.tables[name]
	if !ok {
		t = &table{spec: TableSpec{Name: name}}
		db.tables[name] = t
	}
	return t
}

// Table implements store.Table over a Database.
type Table struct {
	db   *Database
	name string
}

var _ store.Table = (*Table)(nil)

func (t *Table) Select(ctx context.Context, q store.Query, dst any) error {
	rows := t.db.selectRows(t.name, q.Filters, q.OrderBy)
	return encodeInto(project(rows, q.Columns), dst)
}

func (t *Table) SelectSingle(ctx context.Context, q store.Query, dst any) error {
	rows := t.db.selectRows(t.name, q.Filters, q.OrderBy)
	if len(rows) != 1 {
		return noRows()
	}
	return encodeInto(project(rows, q.Columns)[0], dst)
}

func (t *Table) Insert(ctx context.Context, rows any, dst any) error {
	batch := isList(rows)

	var input []row
	if batch {
		if err := decodeFrom(rows, &input); err != nil {
			return err
		}
	} else {
		var single row
		if err := decodeFrom(rows, &single); err != nil {
			return err
		}
		input = []row{single}
	}

	inserted, err := t.db.insert(t.name, input)
	if err != nil {
		return err
	}

	if batch {
		return encodeInto(inserted, dst)
	}
	return encodeInto(inserted[0], dst)
}

func (t *Table) Update(ctx context.Context, filters []store.Filter, patch any, dst any) error {
	var changes row
	if err := decodeFrom(patch, &changes); err != nil {
		return err
	}

	updated, err := t.db.update(t.name, filters, changes)
	if err != nil {
		return err
	}
	if len(updated) != 1 {
		return noRows()
	}

	return encodeInto(updated[0], dst)
}

func (t *Table) Delete(ctx context.Context, filters []store.Filter) error {
	return t.db.delete(t.name, filters)
}

func (db *Database) selectRows(name string, filters []store.Filter, orderBy string) []row {
	db.mu.RLock()
	defer db.mu.RUnlock()

	t, ok := db.tables[name]
	if !ok {
		return nil
	}

	var out []row
	for _, r := range t.rows {
		if matches(r, filters) {
			out = append(out, cloneRow(r))
		}
	}

	if orderBy != "" {
		sort.SliceStable(out, func(i, j int) bool {
			return less(out[i][orderBy], out[j][orderBy])
		})
	}

	return out
}

func (db *Database) insert(name string, input []row) ([]row, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	t := db.table(name)
	now := db.now().UTC().Format(time.RFC3339Nano)

	pending := make([]row, 0, len(input))
	for _, r := range input {
		r = cloneRow(r)
		if id, _ := r["id"].(string); id == "" {
			newID, err := uuid.NewV7()
			if err != nil {
				return nil, fmt.Errorf("failed to generate id: %w", err)
			}
			r["id"] = newID.String()
		}
		if _, ok := r["created_at"]; !ok {
			r["created_at"] = now
		}
		r["updated_at"] = now

		if err := db.check(t, r, append(t.rows, pending...)); err != nil {
			return nil, err
		}
		pending = append(pending, r)
	}

	t.rows = append(t.rows, pending...)

	out := make([]row, len(pending))
	for i, r := range pending {
		out[i] = cloneRow(r)
	}
	return out, nil
}

func (db *Database) update(name string, filters []store.Filter, changes row) ([]row, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	t := db.table(name)
	now := db.now().UTC().Format(time.RFC3339Nano)
	delete(changes, "id")

	var matched []int
	for i, r := range t.rows {
		if matches(r, filters) {
			matched = append(matched, i)
		}
	}

	next := make([]row, len(t.rows))
	copy(next, t.rows)
	for _, i := range matched {
		r := cloneRow(t.rows[i])
		for k, v := range changes {
			r[k] = v
		}
		r["updated_at"] = now
		next[i] = r
	}

	for _, i := range matched {
		others := make([]row, 0, len(next)-1)
		others = append(others, next[:i]...)
		others = append(others, next[i+1:]...)
		if err := db.check(t, next[i], others); err != nil {
			return nil, err
		}
	}

	t.rows = next

	out := make([]row, len(matched))
	for n, i := range matched {
		out[n] = cloneRow(next[i])
	}
	return out, nil
}

func (db *Database) delete(name string, filters []store.Filter) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	t := db.table(name)

	var kept []row
	var removed []row
	for _, r := range t.rows {
		if matches(r, filters) {
			removed = append(removed, r)
		} else {
			kept = append(kept, r)
		}
	}

	for _, r := range removed {
		if err := db.checkReferrers(name, r["id"]); err != nil {
			return err
		}
	}

	t.rows = kept
	return nil
}

// check enforces unique and foreign key constraints for r against others.
func (db *Database) check(t *table, r row, others []row) error {
	for _, column := range t.spec.Unique {
		for _, other := range others {
			if r[column] != nil && equal(other[column], r[column]) {
				return uniqueViolation(t.spec.Name, column)
			}
		}
	}

	for _, ref := range t.spec.References {
		value, ok := r[ref.Column]
		if !ok || value == nil || value == "" {
			continue
		}
		parent, ok := db.tables[ref.Table]
		if !ok || !containsID(parent.rows, value) {
			return foreignKeyViolation(t.spec.Name, ref)
		}
	}

	return nil
}

func (db *Database) checkReferrers(name string, id any) error {
	for _, other := range db.tables {
		for _, ref := range other.spec.References {
			if ref.Table != name {
				continue
			}
			for _, r := range other.rows {
				if equal(r[ref.Column], id) {
					return restrictViolation(name, other.spec.Name, ref)
				}
			}
		}
	}
	return nil
}

func matches(r row, filters []store.Filter) bool {
	for _, f := range filters {
		if text(r[f.Column]) != f.Value {
			return false
		}
	}
	return true
}

func containsID(rows []row, id any) bool {
	for _, r := range rows {
		if equal(r["id"], id) {
			return true
		}
	}
	return false
}

func equal(a, b any) bool {
	return text(a) == text(b)
}

// text renders a JSON value the way it appears in a PostgREST filter.
func text(v any) string {
	switch v := v.(type) {
	case nil:
		return "null"
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

// less orders numbers numerically and everything else by text, nulls last.
func less(a, b any) bool {
	switch {
	case a == nil:
		return false
	case b == nil:
		return true
	}

	fa, okA := a.(float64)
	fb, okB := b.(float64)
	if okA && okB {
		return fa < fb
	}

	return text(a) < text(b)
}

func project(rows []row, columns string) []row {
	if columns == "" || columns == "*" {
		return rows
	}

	names := strings.Split(columns, ",")
	out := make([]row, len(rows))
	for i, r := range rows {
		p := make(row, len(names))
		for _, name := range names {
			name = strings.TrimSpace(name)
			if v, ok := r[name]; ok {
				p[name] = v
			}
		}
		out[i] = p
	}
	return out
}

func cloneRow(r row) row {
	clone := make(row, len(r))
	for k, v := range r {
		clone[k] = v
	}
	return clone
}

// decodeFrom converts a typed value into rows through its JSON form so the
// stored columns match what the HTTP backend would receive.
func decodeFrom(v any, dst any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode row: %w", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("failed to decode row: %w", err)
	}
	return nil
}

func encodeInto(v any, dst any) error {
	if dst == nil {
		return nil
	}
	if v == nil {
		v = []row{}
	}
	return decodeFrom(v, dst)
}

func isList(v any) bool {
	kind := reflect.Indirect(reflect.ValueOf(v)).Kind()
	return kind == reflect.Slice || kind == reflect.Array
}
