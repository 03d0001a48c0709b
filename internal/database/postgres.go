package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/AnshRaj112/propertyhub-backend/internal/provider"
)

// ConnectPostgres opens the provider's Postgres database directly.
func ConnectPostgres(ctx context.Context, postgresURI string) (*sql.DB, error) {
	db, err := sql.Open("postgres", postgresURI)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// PostgresTables serves table operations straight from Postgres instead of PostgREST.
// The schema is owned by the provider; nothing here creates tables.
type PostgresTables struct {
	db *sql.DB
}

func NewPostgresTables(db *sql.DB) *PostgresTables {
	return &PostgresTables{db: db}
}

var _ provider.Tables = (*PostgresTables)(nil)

var errEmptyRow = errors.New("no columns given")

func (p *PostgresTables) Insert(ctx context.Context, table string, row provider.Row) (provider.Row, error) {
	query, args, err := buildInsert(table, row)
	if err != nil {
		return nil, err
	}
	rows, err := p.queryRows(ctx, query, args)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return row, nil
	}
	return rows[0], nil
}

func (p *PostgresTables) Select(ctx context.Context, table string, filter provider.Filter) ([]provider.Row, error) {
	query, args := buildSelect(table, filter)
	return p.queryRows(ctx, query, args)
}

func (p *PostgresTables) Update(ctx context.Context, table string, filter provider.Filter, patch provider.Row) ([]provider.Row, error) {
	query, args, err := buildUpdate(table, filter, patch)
	if err != nil {
		return nil, err
	}
	return p.queryRows(ctx, query, args)
}

func (p *PostgresTables) Delete(ctx context.Context, table string, filter provider.Filter) ([]provider.Row, error) {
	query, args := buildDelete(table, filter)
	return p.queryRows(ctx, query, args)
}

func (p *PostgresTables) queryRows(ctx context.Context, query string, args []interface{}) ([]provider.Row, error) {
	rs, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, translatePQ(err)
	}
	defer rs.Close()

	out := []provider.Row{}
	for rs.Next() {
		var raw []byte
		if err := rs.Scan(&raw); err != nil {
			return nil, translatePQ(err)
		}
		row := provider.Row{}
		if err := json.Unmarshal(raw, &row); err != nil {
			return nil, fmt.Errorf("decode row: %w", err)
		}
		out = append(out, row)
	}
	if err := rs.Err(); err != nil {
		return nil, translatePQ(err)
	}
	return out, nil
}

// translatePQ turns client-caused Postgres errors into *provider.Error with the
// status PostgREST would answer, so both data planes classify alike. Server-side
// failures are returned unchanged.
func translatePQ(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}
	status := pqStatus(pqErr.Code)
	if status == 0 {
		return err
	}
	return &provider.Error{Status: status, Code: string(pqErr.Code), Message: pqErr.Message}
}

func pqStatus(code pq.ErrorCode) int {
	switch {
	case code == provider.CodeUniqueViolation:
		return http.StatusConflict
	case code == "42501":
		return http.StatusForbidden
	case code == "42703", code == "42883", code == "42P01":
		return http.StatusBadRequest
	case code.Class() == "22", code.Class() == "23":
		return http.StatusBadRequest
	}
	return 0
}

func buildInsert(table string, row provider.Row) (string, []interface{}, error) {
	if len(row) == 0 {
		return "", nil, errEmptyRow
	}
	cols := sortedKeys(row)
	quoted := make([]string, len(cols))
	placeholders := make([]string, len(cols))
	args := make([]interface{}, len(cols))
	for i, col := range cols {
		quoted[i] = pq.QuoteIdentifier(col)
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		v, err := sqlValue(row[col])
		if err != nil {
			return "", nil, err
		}
		args[i] = v
	}
	query := fmt.Sprintf("INSERT INTO %s AS t (%s) VALUES (%s) RETURNING row_to_json(t)",
		pq.QuoteIdentifier(table), strings.Join(quoted, ", "), strings.Join(placeholders, ", "))
	return query, args, nil
}

func buildSelect(table string, filter provider.Filter) (string, []interface{}) {
	where, args := buildWhere(filter.Eq, 1)
	var b strings.Builder
	fmt.Fprintf(&b, "SELECT row_to_json(t) FROM %s AS t%s", pq.QuoteIdentifier(table), where)
	if filter.Order != "" {
		col, dir, _ := strings.Cut(filter.Order, ".")
		direction := "ASC"
		if strings.HasPrefix(strings.ToLower(dir), "desc") {
			direction = "DESC"
		}
		fmt.Fprintf(&b, " ORDER BY %s %s", pq.QuoteIdentifier(col), direction)
	}
	if filter.Limit > 0 {
		fmt.Fprintf(&b, " LIMIT %d", filter.Limit)
	}
	if filter.Offset > 0 {
		fmt.Fprintf(&b, " OFFSET %d", filter.Offset)
	}
	return b.String(), args
}

func buildUpdate(table string, filter provider.Filter, patch provider.Row) (string, []interface{}, error) {
	if len(patch) == 0 {
		return "", nil, errEmptyRow
	}
	cols := sortedKeys(patch)
	sets := make([]string, len(cols))
	args := make([]interface{}, 0, len(cols)+len(filter.Eq))
	for i, col := range cols {
		v, err := sqlValue(patch[col])
		if err != nil {
			return "", nil, err
		}
		args = append(args, v)
		sets[i] = fmt.Sprintf("%s = $%d", pq.QuoteIdentifier(col), len(args))
	}
	where, whereArgs := buildWhere(filter.Eq, len(args)+1)
	args = append(args, whereArgs...)
	query := fmt.Sprintf("UPDATE %s AS t SET %s%s RETURNING row_to_json(t)",
		pq.QuoteIdentifier(table), strings.Join(sets, ", "), where)
	return query, args, nil
}

func buildDelete(table string, filter provider.Filter) (string, []interface{}) {
	where, args := buildWhere(filter.Eq, 1)
	return fmt.Sprintf("DELETE FROM %s AS t%s RETURNING row_to_json(t)", pq.QuoteIdentifier(table), where), args
}

// buildWhere numbers placeholders from start.
func buildWhere(eq map[string]string, start int) (string, []interface{}) {
	if len(eq) == 0 {
		return "", nil
	}
	cols := make([]string, 0, len(eq))
	for col := range eq {
		cols = append(cols, col)
	}
	sort.Strings(cols)

	conds := make([]string, len(cols))
	args := make([]interface{}, len(cols))
	for i, col := range cols {
		conds[i] = fmt.Sprintf("%s = $%d", pq.QuoteIdentifier(col), start+i)
		args[i] = eq[col]
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// sqlValue turns decoded JSON into something lib/pq can bind. Objects and arrays go to json/jsonb columns.
func sqlValue(v interface{}) (interface{}, error) {
	switch v.(type) {
	case map[string]interface{}, []interface{}:
		data, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		return string(data), nil
	default:
		return v, nil
	}
}

func sortedKeys(row provider.Row) []string {
	keys := make([]string, 0, len(row))
	for k := range row {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
