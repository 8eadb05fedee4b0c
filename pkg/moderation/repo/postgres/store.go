package postgres

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/huandu/go-sqlbuilder"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tendant/simple-moderation/pkg/moderation"
)

// DBTX is an interface that allows us to use either a database connection or a transaction
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Store implements moderation.Store using PostgreSQL. Each collection is a
// table of the same name.
type Store struct {
	db DBTX
}

// New creates a new PostgreSQL store
func New(db DBTX) *Store {
	return &Store{db: db}
}

// NewWithPool creates a new PostgreSQL store with connection pool
func NewWithPool(pool *pgxpool.Pool) *Store {
	return &Store{db: pool}
}

var tables = map[moderation.Collection]bool{
	moderation.CollectionEvents:            true,
	moderation.CollectionArticles:          true,
	moderation.CollectionPublishedEvents:   true,
	moderation.CollectionPublishedNews:     true,
	moderation.CollectionPublishedArticles: true,
	moderation.CollectionModerationLog:     true,
	moderation.CollectionPublicationLog:    true,
}

func tableName(c moderation.Collection) (string, error) {
	if !tables[c] {
		return "", fmt.Errorf("%w: %s", moderation.ErrInvalidCollection, c)
	}
	return ident(string(c)), nil
}

func ident(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

// Error handling helper
func (s *Store) handlePostgresError(operation string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return fmt.Errorf("%s: duplicate entry (%s)", operation, pgErr.ConstraintName)
		case "23502": // not_null_violation
			return fmt.Errorf("%s: required field %s is missing", operation, pgErr.ColumnName)
		case "42703": // undefined_column
			return fmt.Errorf("%s: unknown column: %s", operation, pgErr.Message)
		case "42P01": // undefined_table
			return fmt.Errorf("%s: table does not exist - database migration required", operation)
		default:
			return fmt.Errorf("database error in %s: %s (code: %s)", operation, pgErr.Message, pgErr.Code)
		}
	}
	return fmt.Errorf("database error in %s: %w", operation, err)
}

func (s *Store) GetOne(ctx context.Context, c moderation.Collection, id string) (moderation.Record, error) {
	table, err := tableName(c)
	if err != nil {
		return nil, err
	}
	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("*").From(table).Where(sb.Equal(ident("id"), id)).Limit(1)
	query, args := sb.Build()

	recs, err := s.collect(ctx, query, args)
	if err != nil {
		return nil, s.handlePostgresError("get "+string(c), err)
	}
	if len(recs) == 0 {
		return nil, nil
	}
	return recs[0], nil
}

func (s *Store) Insert(ctx context.Context, c moderation.Collection, rec moderation.Record) (moderation.Record, error) {
	table, err := tableName(c)
	if err != nil {
		return nil, err
	}
	cols := sortedKeys(rec)
	quoted := make([]string, len(cols))
	values := make([]interface{}, len(cols))
	for i, col := range cols {
		quoted[i] = ident(col)
		values[i] = rec[col]
	}

	ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
	ib.InsertInto(table).Cols(quoted...).Values(values...)
	query, args := ib.Build()

	recs, err := s.collect(ctx, query+" RETURNING *", args)
	if err != nil {
		return nil, s.handlePostgresError("insert "+string(c), err)
	}
	if len(recs) == 0 {
		return nil, fmt.Errorf("insert %s: no row returned", c)
	}
	return recs[0], nil
}

func (s *Store) Update(ctx context.Context, c moderation.Collection, id string, patch moderation.Record) (moderation.Record, error) {
	table, err := tableName(c)
	if err != nil {
		return nil, err
	}
	if len(patch) == 0 {
		return s.GetOne(ctx, c, id)
	}

	ub := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	assignments := make([]string, 0, len(patch))
	for _, col := range sortedKeys(patch) {
		if col == "id" {
			continue
		}
		assignments = append(assignments, ub.Assign(ident(col), patch[col]))
	}
	ub.Update(table).Set(assignments...).Where(ub.Equal(ident("id"), id))
	query, args := ub.Build()

	recs, err := s.collect(ctx, query+" RETURNING *", args)
	if err != nil {
		return nil, s.handlePostgresError("update "+string(c), err)
	}
	if len(recs) == 0 {
		return nil, nil
	}
	return recs[0], nil
}

func (s *Store) Query(ctx context.Context, c moderation.Collection, filter moderation.Filter, opts moderation.QueryOptions) ([]moderation.Record, error) {
	table, err := tableName(c)
	if err != nil {
		return nil, err
	}
	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("*").From(table)
	if empty := applyFilter(sb, filter); empty {
		return []moderation.Record{}, nil
	}
	if opts.OrderBy != "" {
		// Missing values sort first ascending and last descending, like the
		// other stores.
		if opts.Desc {
			sb.OrderBy(ident(opts.OrderBy) + " DESC NULLS LAST")
		} else {
			sb.OrderBy(ident(opts.OrderBy) + " ASC NULLS FIRST")
		}
	}
	if opts.Limit > 0 {
		sb.Limit(opts.Limit)
	}
	query, args := sb.Build()

	recs, err := s.collect(ctx, query, args)
	if err != nil {
		return nil, s.handlePostgresError("query "+string(c), err)
	}
	return recs, nil
}

func (s *Store) Count(ctx context.Context, c moderation.Collection, filter moderation.Filter) (int, error) {
	table, err := tableName(c)
	if err != nil {
		return 0, err
	}
	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("COUNT(*)").From(table)
	if empty := applyFilter(sb, filter); empty {
		return 0, nil
	}
	query, args := sb.Build()

	var n int
	if err := s.db.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, s.handlePostgresError("count "+string(c), err)
	}
	return n, nil
}

// applyFilter adds WHERE clauses. It reports true when an empty IN list makes
// the result trivially empty.
func applyFilter(sb *sqlbuilder.SelectBuilder, filter moderation.Filter) bool {
	exprs := make([]string, 0, len(filter))
	for _, f := range filter {
		col := ident(f.Field)
		switch f.Op {
		case moderation.OpEq:
			exprs = append(exprs, sb.Equal(col, f.Value))
		case moderation.OpIn:
			values, _ := f.Value.([]any)
			if len(values) == 0 {
				return true
			}
			exprs = append(exprs, sb.In(col, values...))
		}
	}
	if len(exprs) > 0 {
		sb.Where(exprs...)
	}
	return false
}

func (s *Store) collect(ctx context.Context, query string, args []interface{}) ([]moderation.Record, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	maps, err := pgx.CollectRows(rows, pgx.RowToMap)
	if err != nil {
		return nil, err
	}
	out := make([]moderation.Record, len(maps))
	for i, m := range maps {
		out[i] = moderation.Record(m)
	}
	return out, nil
}

func sortedKeys(rec moderation.Record) []string {
	keys := make([]string, 0, len(rec))
	for k := range rec {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

var _ moderation.Store = (*Store)(nil)
