package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// Filter restricts a row operation to matching rows.
type Filter struct {
	Column string
	Op     string
	Value  string
}

// Eq matches rows whose column equals value.
func Eq(column string, value any) Filter {
	return Filter{Column: column, Op: "eq", Value: fmt.Sprintf("%v", value)}
}

// ILike matches rows whose column matches the pattern case-insensitively.
// The pattern uses "*" as wildcard, e.g. "*shoe*".
func ILike(column, pattern string) Filter {
	return Filter{Column: column, Op: "ilike", Value: pattern}
}

// Neq matches rows whose column does not equal value.
func Neq(column string, value any) Filter {
	return Filter{Column: column, Op: "neq", Value: fmt.Sprintf("%v", value)}
}

// Query describes a row read against a named table.
type Query struct {
	Table   string
	Columns string // select clause; empty means "*", supports nested expansion
	Filters []Filter
	Order   string // e.g. "created_at.desc"
	Limit   int
}

func (q Query) values() url.Values {
	values := url.Values{}
	columns := strings.TrimSpace(q.Columns)
	if columns == "" {
		columns = "*"
	}
	values.Set("select", columns)
	for _, f := range q.Filters {
		values.Add(f.Column, f.Op+"."+f.Value)
	}
	if order := strings.TrimSpace(q.Order); order != "" {
		values.Set("order", order)
	}
	if q.Limit > 0 {
		values.Set("limit", strconv.Itoa(q.Limit))
	}
	return values
}

func tablePath(table string) (string, error) {
	if strings.TrimSpace(table) == "" {
		return "", fmt.Errorf("table name is required")
	}
	return "/rest/v1/" + url.PathEscape(table), nil
}

// Select reads all matching rows into dest, which must be a pointer to a
// slice. A query matching nothing decodes into an empty slice, not an error.
func (c *Client) Select(ctx context.Context, q Query, dest any) error {
	path, err := tablePath(q.Table)
	if err != nil {
		return err
	}
	rel := &url.URL{Path: path, RawQuery: q.values().Encode()}
	if err := c.do(ctx, http.MethodGet, rel, nil, dest); err != nil {
		return fmt.Errorf("select %s: %w", q.Table, err)
	}
	return nil
}

// SelectSingle reads exactly one matching row into dest. It returns
// ErrNoRows when nothing matches.
func (c *Client) SelectSingle(ctx context.Context, q Query, dest any) error {
	q.Limit = 1
	path, err := tablePath(q.Table)
	if err != nil {
		return err
	}
	rel := &url.URL{Path: path, RawQuery: q.values().Encode()}
	var rows []json.RawMessage
	if err := c.do(ctx, http.MethodGet, rel, nil, &rows); err != nil {
		return fmt.Errorf("select %s: %w", q.Table, err)
	}
	if len(rows) == 0 {
		return ErrNoRows
	}
	if err := json.Unmarshal(rows[0], dest); err != nil {
		return fmt.Errorf("decode %s row: %w", q.Table, err)
	}
	return nil
}

// Insert writes a new row. The row value is encoded as the JSON body.
func (c *Client) Insert(ctx context.Context, table string, row any) error {
	path, err := tablePath(table)
	if err != nil {
		return err
	}
	rel := &url.URL{Path: path}
	if err := c.do(ctx, http.MethodPost, rel, row, nil); err != nil {
		return fmt.Errorf("insert %s: %w", table, err)
	}
	return nil
}

// Update patches all rows matching the filters with the columns carried
// by row. At least one filter is required so a bad call cannot rewrite a
// whole table.
func (c *Client) Update(ctx context.Context, table string, row any, filters ...Filter) error {
	if len(filters) == 0 {
		return fmt.Errorf("update %s: at least one filter is required", table)
	}
	path, err := tablePath(table)
	if err != nil {
		return err
	}
	values := url.Values{}
	for _, f := range filters {
		values.Add(f.Column, f.Op+"."+f.Value)
	}
	rel := &url.URL{Path: path, RawQuery: values.Encode()}
	if err := c.do(ctx, http.MethodPatch, rel, row, nil); err != nil {
		return fmt.Errorf("update %s: %w", table, err)
	}
	return nil
}

// Delete removes all rows matching the filters. At least one filter is
// required so a bad call cannot empty a table.
func (c *Client) Delete(ctx context.Context, table string, filters ...Filter) error {
	if len(filters) == 0 {
		return fmt.Errorf("delete %s: at least one filter is required", table)
	}
	path, err := tablePath(table)
	if err != nil {
		return err
	}
	values := url.Values{}
	for _, f := range filters {
		values.Add(f.Column, f.Op+"."+f.Value)
	}
	rel := &url.URL{Path: path, RawQuery: values.Encode()}
	if err := c.do(ctx, http.MethodDelete, rel, nil, nil); err != nil {
		return fmt.Errorf("delete %s: %w", table, err)
	}
	return nil
}
