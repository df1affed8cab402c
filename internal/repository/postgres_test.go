package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"fieldcase/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	return gormDB, mock
}

func TestUserRepository_GetByID(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewStore(db).Users()
	ctx := context.Background()

	tests := []struct {
		name          string
		userID        uint
		mockBehavior  func()
		expectedName  string
		expectedError string
	}{
		{
			name:   "Success",
			userID: 1,
			mockBehavior: func() {
				rows := sqlmock.NewRows([]string{"id", "username", "email"}).
					AddRow(1, "testuser", "test@example.com")
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "users" WHERE "users"."id" = $1 ORDER BY "users"."id" LIMIT $2`)).
					WithArgs(1, 1).
					WillReturnRows(rows)
			},
			expectedName: "testuser",
		},
		{
			name:   "Not Found",
			userID: 99,
			mockBehavior: func() {
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "users" WHERE "users"."id" = $1 ORDER BY "users"."id" LIMIT $2`)).
					WithArgs(99, 1).
					WillReturnRows(sqlmock.NewRows([]string{"id"}))
			},
			expectedError: models.CodeNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.mockBehavior()
			user, err := repo.GetByID(ctx, tt.userID)

			if tt.expectedError != "" {
				assert.True(t, models.IsCode(err, tt.expectedError), "got %v", err)
			} else if assert.NotNil(t, user) {
				assert.Equal(t, tt.expectedName, user.Username)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestUserRepository_UpdateProfile_UniqueViolation(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewStore(db).Users()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "users" SET .*"email"=.* WHERE id = \$\d+`).
		WillReturnError(&pgconn.PgError{Code: pgUniqueViolation, Message: "duplicate key value"})
	mock.ExpectRollback()

	err := repo.UpdateProfile(context.Background(), 4, "Name", "taken@example.com")
	assert.True(t, models.IsCode(err, models.CodeConflict), "got %v", err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInvitationRepository_MarkAcceptedIsStatusGuarded(t *testing.T) {
	tests := []struct {
		name         string
		rowsAffected int64
		want         bool
	}{
		{"Pending row flips", 1, true},
		{"Already accepted", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := setupMockDB(t)
			repo := NewStore(db).Invitations()

			mock.ExpectBegin()
			mock.ExpectExec(`UPDATE "project_invitations" SET .*"status"=.* WHERE id = \$\d+ AND status = \$\d+`).
				WillReturnResult(sqlmock.NewResult(0, tt.rowsAffected))
			mock.ExpectCommit()

			ok, err := repo.MarkAccepted(context.Background(), 7, 3, time.Now())
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestInvitationRepository_CreateConflict(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewStore(db).Invitations()

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "project_invitations"`).
		WillReturnError(&pgconn.PgError{Code: pgUniqueViolation, ConstraintName: "idx_invitations_pending_email"})
	mock.ExpectRollback()

	err := repo.Create(context.Background(), &models.ProjectInvitation{
		ProjectID: 1, Email: "x@example.com", Role: models.RoleEditor, Token: "t", InvitedByID: 1,
		ExpiresAt: time.Now().Add(time.Hour),
	})
	assert.True(t, models.IsCode(err, models.CodeConflict), "got %v", err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProjectRepository_ListForUserJoinsRole(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewStore(db).Projects()

	rows := sqlmock.NewRows([]string{"id", "title", "owner_id", "caller_role"}).
		AddRow(5, "Harbor fire", 1, "viewer")
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT projects.*, project_collaborators.role AS caller_role FROM "projects" JOIN project_collaborators ON project_collaborators.project_id = projects.id AND project_collaborators.user_id = $1 WHERE projects.archived = $2`)).
		WithArgs(2, false).
		WillReturnRows(rows)

	projects, err := repo.ListForUser(context.Background(), 2, false)
	require.NoError(t, err)
	require.Len(t, projects, 1)
	assert.Equal(t, models.RoleViewer, projects[0].CallerRole)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEntryRepository_TagFilterEscapesLike(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewStore(db).Entries()

	mock.ExpectQuery(regexp.QuoteMeta(`tags LIKE $2 ESCAPE '\'`)).
		WithArgs(4, `%"c:\\\\x\_1"%`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "project_id", "tags"}))

	entries, err := repo.ListByProject(context.Background(), 4, `c:\x_1`)
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.NoError(t, mock.ExpectationsWereMet())
}
