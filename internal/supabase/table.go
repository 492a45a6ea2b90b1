package supabase

import (
	"context"
	"net/http"
	"net/url"
	"reflect"

	"github.com/wolfeidau/organizehub/internal/store"
)

// Table implements store.Table over PostgREST.
type Table struct {
	client *Client
	name   string
}

var _ store.Table = (*Table)(nil)

func (t *Table) Select(ctx context.Context, q store.Query, dst any) error {
	return t.client.rest(ctx, restRequest{
		method: http.MethodGet,
		table:  t.name,
		params: queryParams(q),
	}, dst)
}

func (t *Table) SelectSingle(ctx context.Context, q store.Query, dst any) error {
	return t.client.rest(ctx, restRequest{
		method: http.MethodGet,
		table:  t.name,
		params: queryParams(q),
		single: true,
	}, dst)
}

func (t *Table) Insert(ctx context.Context, rows any, dst any) error {
	params := url.Values{}
	params.Set("select", "*")

	return t.client.rest(ctx, restRequest{
		method: http.MethodPost,
		table:  t.name,
		params: params,
		body:   rows,
		single: !isList(rows),
		prefer: "return=representation",
	}, dst)
}

func (t *Table) Update(ctx context.Context, filters []store.Filter, patch any, dst any) error {
	params := filterParams(filters)
	params.Set("select", "*")

	return t.client.rest(ctx, restRequest{
		method: http.MethodPatch,
		table:  t.name,
		params: params,
		body:   patch,
		single: true,
		prefer: "return=representation",
	}, dst)
}

func (t *Table) Delete(ctx context.Context, filters []store.Filter) error {
	return t.client.rest(ctx, restRequest{
		method: http.MethodDelete,
		table:  t.name,
		params: filterParams(filters),
		prefer: "return=minimal",
	}, nil)
}

func queryParams(q store.Query) url.Values {
	params := filterParams(q.Filters)

	columns := q.Columns
	if columns == "" {
		columns = "*"
	}
	params.Set("select", columns)

	if q.OrderBy != "" {
		params.Set("order", q.OrderBy+".asc")
	}

	return params
}

func filterParams(filters []store.Filter) url.Values {
	params := url.Values{}
	for _, f := range filters {
		params.Add(f.Column, "eq."+f.Value)
	}
	return params
}

func isList(v any) bool {
	kind := reflect.Indirect(reflect.ValueOf(v)).Kind()
	return kind == reflect.Slice || kind == reflect.Array
}
