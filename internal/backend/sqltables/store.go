// Package sqltables serves the table API from the gateway's SQL database.
package sqltables

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/mind-engage/fungiquest/internal/backend"
	"github.com/mind-engage/fungiquest/internal/schema"
)

type Store struct {
	db     *sql.DB
	driver string // "sqlite" or "postgres"
}

func New(db *sql.DB, driver string) *Store {
	return &Store{db: db, driver: driver}
}

func (s *Store) Select(ctx context.Context, q backend.Query) ([]schema.Record, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	var (
		sb    strings.Builder
		args  []any
		conds []string
	)
	sb.WriteString("SELECT * FROM ")
	sb.WriteString(q.Table)

	for _, c := range sortedKeys(q.Eq) {
		args = append(args, bindValue(q.Eq[c]))
		conds = append(conds, fmt.Sprintf("%s = $%d", c, len(args)))
	}
	inCols := make([]string, 0, len(q.In))
	for c := range q.In {
		inCols = append(inCols, c)
	}
	sort.Strings(inCols)
	for _, c := range inCols {
		vals := q.In[c]
		if len(vals) == 0 {
			// empty IN matches nothing
			conds = append(conds, "1 = 0")
			continue
		}
		ph := make([]string, 0, len(vals))
		for _, v := range vals {
			args = append(args, bindValue(v))
			ph = append(ph, fmt.Sprintf("$%d", len(args)))
		}
		conds = append(conds, fmt.Sprintf("%s IN (%s)", c, strings.Join(ph, ",")))
	}
	if len(conds) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(conds, " AND "))
	}
	if q.OrderBy != "" {
		dir := "ASC"
		if q.Desc {
			dir = "DESC"
		}
		fmt.Fprintf(&sb, " ORDER BY %s %s", q.OrderBy, dir)
	}
	if q.Limit > 0 {
		fmt.Fprintf(&sb, " LIMIT %d", q.Limit)
	}

	rows, err := s.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRecords(rows)
}

// Upsert inserts rows or updates them on the table's natural key, in one transaction.
func (s *Store) Upsert(ctx context.Context, table string, rows []schema.Record) error {
	keys, ok := backend.ConflictKeys[table]
	if !ok {
		return fmt.Errorf("%w: %q", backend.ErrUnknownTable, table)
	}
	if len(rows) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, row := range rows {
		stmt, args, err := upsertStatement(table, keys, row)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, stmt, args...); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func upsertStatement(table string, keys []string, row schema.Record) (string, []any, error) {
	cols := sortedKeys(row)
	isKey := map[string]bool{}
	for _, k := range keys {
		if _, ok := row[k]; !ok {
			return "", nil, fmt.Errorf("%s: missing key column %q", table, k)
		}
		isKey[k] = true
	}
	ph := make([]string, 0, len(cols))
	args := make([]any, 0, len(cols))
	var sets []string
	for i, c := range cols {
		if !backend.ValidIdent(c) {
			return "", nil, fmt.Errorf("bad column %q", c)
		}
		ph = append(ph, fmt.Sprintf("$%d", i+1))
		args = append(args, bindValue(row[c]))
		if !isKey[c] {
			sets = append(sets, fmt.Sprintf("%s=EXCLUDED.%s", c, c))
		}
	}
	conflict := "DO NOTHING"
	if len(sets) > 0 {
		conflict = "DO UPDATE SET " + strings.Join(sets, ", ")
	}
	stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s) %s",
		table, strings.Join(cols, ","), strings.Join(ph, ","), strings.Join(keys, ","), conflict)
	return stmt, args, nil
}

// bindValue turns JSON-decoded values into something both drivers accept.
func bindValue(v any) any {
	switch t := v.(type) {
	case float64:
		if t == math.Trunc(t) && math.Abs(t) < 1<<53 {
			return int64(t)
		}
		return t
	case int:
		return int64(t)
	case map[string]any, []any, []string, schema.Record:
		b, _ := json.Marshal(t)
		return string(b)
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return n
		}
		return t.String()
	}
	return v
}

func scanRecords(rows *sql.Rows) ([]schema.Record, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	out := []schema.Record{}
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		rec := make(schema.Record, len(cols))
		for i, c := range cols {
			if b, ok := vals[i].([]byte); ok {
				rec[c] = string(b)
				continue
			}
			rec[c] = vals[i]
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func sortedKeys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
