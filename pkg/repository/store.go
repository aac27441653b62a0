package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrConflict  = errors.New("record changed concurrently")
	ErrDuplicate = errors.New("duplicate record")
)

// Store is the gorm-backed persistence layer. A Store obtained inside
// Transaction is bound to that transaction.
type Store struct {
	db *gorm.DB
	// sqlite has no row locks; its writers are already serialized.
	lockRows bool
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db, lockRows: db.Dialector.Name() != "sqlite"}
}

// Transaction runs fn in a single all-or-nothing transaction.
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx, lockRows: s.lockRows})
	})
}

func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) query(ctx context.Context, lock bool) *gorm.DB {
	q := s.db.WithContext(ctx)
	if lock && s.lockRows {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return q
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicate
	default:
		return err
	}
}

func byID(db *gorm.DB) *gorm.DB {
	return db.Order("id")
}
