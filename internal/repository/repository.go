// Package repository implements the data access layer for the application.
package repository

import (
	"context"
	"errors"
	"strings"

	"fieldcase/internal/database"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// pgUniqueViolation is the PostgreSQL SQLSTATE for unique_violation.
const pgUniqueViolation = "23505"

// Store groups the repositories and provides transactions across them.
type Store interface {
	Users() UserRepository
	Projects() ProjectRepository
	Collaborators() CollaboratorRepository
	Entries() EntryRepository
	Invitations() InvitationRepository
	// WithTx runs fn in a transaction. Repositories reached through the Store
	// passed to fn share it. Nested calls join the outer transaction.
	WithTx(ctx context.Context, fn func(tx Store) error) error
}

type gormStore struct {
	db     *gorm.DB
	reader *gorm.DB
	inTx   bool
}

// NewStore returns a GORM-backed Store. List queries use the read replica
// when one is configured; everything else uses db.
func NewStore(db *gorm.DB) Store {
	reader := database.GetReadDB()
	if reader == nil {
		reader = db
	}
	return &gormStore{db: db, reader: reader}
}

func (s *gormStore) Users() UserRepository {
	return &userRepository{db: s.db}
}

func (s *gormStore) Projects() ProjectRepository {
	return &projectRepository{db: s.db, reader: s.reader}
}

func (s *gormStore) Collaborators() CollaboratorRepository {
	return &collaboratorRepository{db: s.db, reader: s.reader}
}

func (s *gormStore) Entries() EntryRepository {
	return &entryRepository{db: s.db, reader: s.reader}
}

func (s *gormStore) Invitations() InvitationRepository {
	return &invitationRepository{db: s.db}
}

func (s *gormStore) WithTx(ctx context.Context, fn func(tx Store) error) error {
	if s.inTx {
		return fn(s)
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Reads inside a transaction must see its own writes.
		return fn(&gormStore{db: tx, reader: tx, inTx: true})
	})
}

// isUniqueConstraintError checks if a DB error is a unique constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, pgUniqueViolation)
}
