package repository_test

import (
	"context"
	"testing"
	"time"

	"taskify/internal/model"
	"taskify/internal/repository"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	dialector := postgres.New(postgres.Config{
		DSN:                  "sqlmock_db_0",
		DriverName:           "postgres",
		Conn:                 db,
		PreferSimpleProtocol: true,
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)

	return gormDB, mock
}

func TestUserRepository_Create(t *testing.T) {
	// Arrange
	gormDB, mock := setupMockDB(t)
	userRepo := repository.NewUserRepository(gormDB)

	user := &model.User{
		ID:             uuid.New(),
		Username:       "alice",
		HashedPassword: "hashed_password",
	}

	mock.ExpectExec(`INSERT INTO "users"`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	// Act
	err := userRepo.Create(context.Background(), user)

	// Assert
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_Create_Duplicate(t *testing.T) {
	// Arrange
	gormDB, mock := setupMockDB(t)
	userRepo := repository.NewUserRepository(gormDB)

	mock.ExpectExec(`INSERT INTO "users"`).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	// Act
	err := userRepo.Create(context.Background(), &model.User{ID: uuid.New(), Username: "alice", HashedPassword: "x"})

	// Assert
	assert.ErrorIs(t, err, repository.ErrDuplicateUser)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_FindByUsername_Found(t *testing.T) {
	// Arrange
	gormDB, mock := setupMockDB(t)
	userRepo := repository.NewUserRepository(gormDB)

	userID := uuid.New()

	mock.ExpectQuery(`SELECT \* FROM "users" WHERE username = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "hashed_password", "refresh_token", "created_at"}).
			AddRow(userID.String(), "alice", "hashed_password", nil, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)))

	// Act
	user, err := userRepo.FindByUsername(context.Background(), "alice")

	// Assert
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, userID, user.ID)
	assert.Equal(t, "alice", user.Username)
	assert.Nil(t, user.RefreshToken)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_FindByUsername_NotFound(t *testing.T) {
	// Arrange
	gormDB, mock := setupMockDB(t)
	userRepo := repository.NewUserRepository(gormDB)

	mock.ExpectQuery(`SELECT \* FROM "users" WHERE username = \$1`).
		WillReturnError(gorm.ErrRecordNotFound)

	// Act
	user, err := userRepo.FindByUsername(context.Background(), "nobody")

	// Assert
	assert.NoError(t, err)
	assert.Nil(t, user)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_FindByUsername_Error(t *testing.T) {
	// Arrange
	gormDB, mock := setupMockDB(t)
	userRepo := repository.NewUserRepository(gormDB)

	mock.ExpectQuery(`SELECT \* FROM "users" WHERE username = \$1`).
		WillReturnError(assert.AnError)

	// Act
	user, err := userRepo.FindByUsername(context.Background(), "alice")

	// Assert
	assert.Error(t, err)
	assert.Nil(t, user)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_Exists(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	userRepo := repository.NewUserRepository(gormDB)

	mock.ExpectQuery(`SELECT count\(\*\) FROM "users" WHERE username = \$1`).
		WithArgs("bob").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	ok, err := userRepo.Exists(context.Background(), "bob")

	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_SetRefreshToken_UnknownUser(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	userRepo := repository.NewUserRepository(gormDB)

	mock.ExpectExec(`UPDATE "users" SET "refresh_token"`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	token := "refresh"
	err := userRepo.SetRefreshToken(context.Background(), uuid.New(), &token)

	assert.ErrorIs(t, err, repository.ErrUserNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_ClearRefreshToken(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	userRepo := repository.NewUserRepository(gormDB)

	mock.ExpectExec(`UPDATE "users" SET "refresh_token"=\$1 WHERE refresh_token = \$2`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := userRepo.ClearRefreshToken(context.Background(), "refresh")

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
