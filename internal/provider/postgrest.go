package provider

import (
	"context"
	"net/http"
	"net/url"
	"sort"
	"strconv"
)

// Table operations go through PostgREST. The caller's access token (see
// WithAccessToken) is forwarded so row-level security applies.

func (c *SupabaseClient) Insert(ctx context.Context, table string, row Row) (Row, error) {
	var rows []Row
	err := c.do(ctx, http.MethodPost, restPath(table, nil), AccessToken(ctx), row, &rows, returnRepresentation())
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return row, nil
	}
	return rows[0], nil
}

func (c *SupabaseClient) Select(ctx context.Context, table string, filter Filter) ([]Row, error) {
	q := filterQuery(filter)
	q.Set("select", "*")
	rows := []Row{}
	if err := c.do(ctx, http.MethodGet, restPath(table, q), AccessToken(ctx), nil, &rows, nil); err != nil {
		return nil, err
	}
	return rows, nil
}

func (c *SupabaseClient) Update(ctx context.Context, table string, filter Filter, patch Row) ([]Row, error) {
	rows := []Row{}
	err := c.do(ctx, http.MethodPatch, restPath(table, filterQuery(filter)), AccessToken(ctx), patch, &rows, returnRepresentation())
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (c *SupabaseClient) Delete(ctx context.Context, table string, filter Filter) ([]Row, error) {
	rows := []Row{}
	err := c.do(ctx, http.MethodDelete, restPath(table, filterQuery(filter)), AccessToken(ctx), nil, &rows, returnRepresentation())
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func restPath(table string, q url.Values) string {
	path := "/rest/v1/" + url.PathEscape(table)
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	return path
}

func filterQuery(filter Filter) url.Values {
	q := url.Values{}
	cols := make([]string, 0, len(filter.Eq))
	for col := range filter.Eq {
		cols = append(cols, col)
	}
	sort.Strings(cols)
	for _, col := range cols {
		q.Set(col, "eq."+filter.Eq[col])
	}
	if filter.Limit > 0 {
		q.Set("limit", strconv.Itoa(filter.Limit))
	}
	if filter.Offset > 0 {
		q.Set("offset", strconv.Itoa(filter.Offset))
	}
	if filter.Order != "" {
		q.Set("order", filter.Order)
	}
	return q
}

func returnRepresentation() http.Header {
	return http.Header{"Prefer": []string{"return=representation"}}
}
