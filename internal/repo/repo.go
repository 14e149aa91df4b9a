package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// Scanner is satisfied by both *sql.Row and *sql.Rows.
type Scanner interface {
	Scan(dest ...any) error
}

// Field is a single column assignment, used for inserts and merge-patch
// updates.
type Field struct {
	Column string
	Value  any
}

// Repo implements CRUD and pagination for a single table. Entity-specific
// repositories embed it and add their own queries. Absent rows are
// reported as a nil entity, not an error.
type Repo[T any] struct {
	db       *sql.DB
	table    string
	columns  string
	sortable map[string]bool
	scan     func(Scanner) (*T, error)
}

// New creates a repository over one table. columns is the select list and
// doubles as the whitelist of sortable fields.
func New[T any](db *sql.DB, table string, columns []string, scan func(Scanner) (*T, error)) *Repo[T] {
	sortable := make(map[string]bool, len(columns))
	for _, c := range columns {
		sortable[c] = true
	}
	return &Repo[T]{
		db:       db,
		table:    table,
		columns:  strings.Join(columns, ", "),
		sortable: sortable,
		scan:     scan,
	}
}

// Get returns the entity with the given id, or nil if absent.
func (r *Repo[T]) Get(ctx context.Context, id int64) (*T, error) {
	row := r.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT %s FROM %s WHERE id = ?`, r.columns, r.table), id)
	entity, err := r.scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting %s row: %w", r.table, err)
	}
	return entity, nil
}

// GetMany returns a page of entities. An orderBy naming an unknown field
// is silently ignored; any direction other than "desc" sorts ascending.
func (r *Repo[T]) GetMany(ctx context.Context, skip, limit int, orderBy, orderDirection string) ([]T, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s`, r.columns, r.table)
	if orderBy != "" && r.sortable[orderBy] {
		dir := "ASC"
		if strings.EqualFold(orderDirection, "desc") {
			dir = "DESC"
		}
		query += fmt.Sprintf(" ORDER BY %s %s", orderBy, dir)
	}
	query += " LIMIT ? OFFSET ?"

	rows, err := r.db.QueryContext(ctx, query, limit, skip)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", r.table, err)
	}
	defer rows.Close()

	return r.collect(rows)
}

// Count returns the whole-table row count. It ignores any filter the
// caller may have applied to the accompanying list query.
func (r *Repo[T]) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT COUNT(*) FROM %s`, r.table)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting %s: %w", r.table, err)
	}
	return count, nil
}

// Remove deletes the entity with the given id and returns it, or nil if
// it was already absent.
func (r *Repo[T]) Remove(ctx context.Context, id int64) (*T, error) {
	entity, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if entity == nil {
		return nil, nil
	}

	_, err = r.db.ExecContext(ctx,
		fmt.Sprintf(`DELETE FROM %s WHERE id = ?`, r.table), id)
	if err != nil {
		return nil, fmt.Errorf("deleting from %s: %w", r.table, err)
	}
	return entity, nil
}

// insert persists a new row from explicit column assignments and re-reads
// it so identity and timestamps are populated.
func (r *Repo[T]) insert(ctx context.Context, fields []Field) (*T, error) {
	cols := make([]string, len(fields))
	placeholders := make([]string, len(fields))
	args := make([]any, len(fields))
	for i, f := range fields {
		cols[i] = f.Column
		placeholders[i] = "?"
		args[i] = f.Value
	}

	result, err := r.db.ExecContext(ctx,
		fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s)`,
			r.table, strings.Join(cols, ", "), strings.Join(placeholders, ", ")),
		args...)
	if err != nil {
		return nil, fmt.Errorf("inserting into %s: %w", r.table, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting %s id: %w", r.table, err)
	}

	return r.Get(ctx, id)
}

// update applies only the given assignments (merge-patch), bumps
// updated_at, and returns the updated entity.
func (r *Repo[T]) update(ctx context.Context, id int64, fields []Field) (*T, error) {
	if len(fields) == 0 {
		return r.Get(ctx, id)
	}

	set := make([]string, 0, len(fields)+1)
	args := make([]any, 0, len(fields)+1)
	for _, f := range fields {
		set = append(set, f.Column+" = ?")
		args = append(args, f.Value)
	}
	set = append(set, "updated_at = CURRENT_TIMESTAMP")
	args = append(args, id)

	_, err := r.db.ExecContext(ctx,
		fmt.Sprintf(`UPDATE %s SET %s WHERE id = ?`, r.table, strings.Join(set, ", ")),
		args...)
	if err != nil {
		return nil, fmt.Errorf("updating %s: %w", r.table, err)
	}

	return r.Get(ctx, id)
}

// collect scans all rows into a slice.
func (r *Repo[T]) collect(rows *sql.Rows) ([]T, error) {
	var entities []T
	for rows.Next() {
		entity, err := r.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning %s row: %w", r.table, err)
		}
		entities = append(entities, *entity)
	}
	return entities, rows.Err()
}

// nullable converts the empty string to NULL for optional text columns.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
