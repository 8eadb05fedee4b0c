package sqlite

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tendant/simple-moderation/pkg/moderation"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// Store implements moderation.Store on SQLite through gorm. It suits local
// development and single-node deployments.
type Store struct {
	db *gorm.DB
}

// Open opens (or creates) the database at dsn and migrates the schema.
// Use "file::memory:?cache=shared" for a throwaway database.
func Open(dsn string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, err
	}
	return s, nil
}

// New wraps an existing gorm handle. The caller is responsible for the schema.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) migrate() error {
	if err := s.db.AutoMigrate(&eventRow{}, &articleRow{}, &moderationLogRow{}, &publicationLogRow{}); err != nil {
		return fmt.Errorf("migrate sqlite schema: %w", err)
	}
	for _, c := range moderation.PublishedCollections {
		if err := s.db.Table(string(c)).AutoMigrate(&publishedRow{}); err != nil {
			return fmt.Errorf("migrate %s: %w", c, err)
		}
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) GetOne(ctx context.Context, c moderation.Collection, id string) (moderation.Record, error) {
	row := map[string]interface{}{}
	err := s.db.WithContext(ctx).Table(string(c)).Where("id = ?", id).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", c, id, err)
	}
	return moderation.Record(row), nil
}

func (s *Store) Insert(ctx context.Context, c moderation.Collection, rec moderation.Record) (moderation.Record, error) {
	id, _ := rec["id"].(string)
	if id == "" {
		return nil, fmt.Errorf("insert into %s: record has no id", c)
	}
	values, err := encodeValues(rec)
	if err != nil {
		return nil, fmt.Errorf("insert into %s: %w", c, err)
	}
	if err := s.db.WithContext(ctx).Table(string(c)).Create(values).Error; err != nil {
		return nil, fmt.Errorf("insert into %s: %w", c, err)
	}
	return s.GetOne(ctx, c, id)
}

func (s *Store) Update(ctx context.Context, c moderation.Collection, id string, patch moderation.Record) (moderation.Record, error) {
	values, err := encodeValues(patch)
	if err != nil {
		return nil, fmt.Errorf("update %s/%s: %w", c, id, err)
	}
	delete(values, "id")
	if len(values) > 0 {
		res := s.db.WithContext(ctx).Table(string(c)).Where("id = ?", id).Updates(values)
		if res.Error != nil {
			return nil, fmt.Errorf("update %s/%s: %w", c, id, res.Error)
		}
		if res.RowsAffected == 0 {
			return nil, nil
		}
	}
	return s.GetOne(ctx, c, id)
}

func (s *Store) Query(ctx context.Context, c moderation.Collection, filter moderation.Filter, opts moderation.QueryOptions) ([]moderation.Record, error) {
	tx, empty := s.filtered(ctx, c, filter)
	if empty {
		return []moderation.Record{}, nil
	}
	if opts.OrderBy != "" {
		tx = tx.Order(clause.OrderByColumn{Column: clause.Column{Name: opts.OrderBy}, Desc: opts.Desc})
	}
	if opts.Limit > 0 {
		tx = tx.Limit(opts.Limit)
	}

	var rows []map[string]interface{}
	if err := tx.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("query %s: %w", c, err)
	}
	out := make([]moderation.Record, len(rows))
	for i, row := range rows {
		out[i] = moderation.Record(row)
	}
	return out, nil
}

func (s *Store) Count(ctx context.Context, c moderation.Collection, filter moderation.Filter) (int, error) {
	tx, empty := s.filtered(ctx, c, filter)
	if empty {
		return 0, nil
	}
	var n int64
	if err := tx.Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count %s: %w", c, err)
	}
	return int(n), nil
}

func (s *Store) filtered(ctx context.Context, c moderation.Collection, filter moderation.Filter) (*gorm.DB, bool) {
	tx := s.db.WithContext(ctx).Table(string(c))
	for _, f := range filter {
		col := clause.Column{Name: f.Field}
		switch f.Op {
		case moderation.OpEq:
			tx = tx.Where(clause.Eq{Column: col, Value: f.Value})
		case moderation.OpIn:
			values, _ := f.Value.([]any)
			if len(values) == 0 {
				return tx, true
			}
			tx = tx.Where(clause.IN{Column: col, Values: values})
		}
	}
	return tx, false
}

// encodeValues stores nested maps as JSON text, which SQLite has no type for.
func encodeValues(rec moderation.Record) (map[string]interface{}, error) {
	out := make(map[string]interface{}, len(rec))
	for k, value := range rec {
		switch v := value.(type) {
		case map[string]any:
			b, err := json.Marshal(v)
			if err != nil {
				return nil, fmt.Errorf("encode %s: %w", k, err)
			}
			out[k] = string(b)
		default:
			out[k] = v
		}
	}
	return out, nil
}

var _ moderation.Store = (*Store)(nil)
