package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"vidhub/internal/model"
	dbPkg "vidhub/pkg/db"

	"github.com/DATA-DOG/go-sqlmock"
	mysqldrv "github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newGormWithMock(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	orm, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), dbPkg.NewGormConfig(logger.Discard))
	require.NoError(t, err)

	return orm, mock
}

var userColumns = []string{
	"id", "username", "email", "full_name", "password", "avatar",
	"cover_image", "refresh_token", "created_at", "updated_at", "deleted_at",
}

func TestGormUserRepository_GetByID(t *testing.T) {
	orm, mock := newGormWithMock(t)
	repo := NewUserRepository(orm)
	now := time.Now()

	mock.ExpectQuery("SELECT \\* FROM `user` WHERE `user`.`id` = \\?").
		WillReturnRows(sqlmock.NewRows(userColumns).
			AddRow(1, "ada", "ada@x.com", "Ada Lovelace", "hash", "http://a", "", nil, now, now, nil))

	u, err := repo.GetByID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "ada", u.Username)
	assert.Nil(t, u.RefreshToken)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormUserRepository_GetByID_NotFound(t *testing.T) {
	orm, mock := newGormWithMock(t)
	repo := NewUserRepository(orm)

	mock.ExpectQuery("SELECT \\* FROM `user`").WillReturnRows(sqlmock.NewRows(userColumns))

	_, err := repo.GetByID(context.Background(), 5)
	assert.ErrorIs(t, err, ErrUserNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormUserRepository_GetByID_DBError(t *testing.T) {
	orm, mock := newGormWithMock(t)
	repo := NewUserRepository(orm)

	mock.ExpectQuery("SELECT \\* FROM `user`").WillReturnError(errors.New("db down"))

	_, err := repo.GetByID(context.Background(), 5)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUserNotFound)
	assert.Contains(t, err.Error(), "db down")
}

func TestGormUserRepository_FindByUsernameOrEmail(t *testing.T) {
	orm, mock := newGormWithMock(t)
	repo := NewUserRepository(orm)
	now := time.Now()

	mock.ExpectQuery("SELECT \\* FROM `user` WHERE \\(username = \\? OR email = \\?\\)").
		WillReturnRows(sqlmock.NewRows(userColumns).
			AddRow(1, "ada", "ada@x.com", "Ada Lovelace", "hash", "http://a", "", "tok", now, now, nil))

	u, err := repo.FindByUsernameOrEmail(context.Background(), "ada", "ada@x.com")
	require.NoError(t, err)
	assert.True(t, u.HasRefreshToken("tok"))

	mock.ExpectQuery("SELECT \\* FROM `user` WHERE email = \\?").
		WillReturnRows(sqlmock.NewRows(userColumns))

	_, err = repo.FindByUsernameOrEmail(context.Background(), "", "nobody@x.com")
	assert.ErrorIs(t, err, ErrUserNotFound)

	_, err = repo.FindByUsernameOrEmail(context.Background(), "", "")
	assert.ErrorIs(t, err, ErrUserNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormUserRepository_Create(t *testing.T) {
	orm, mock := newGormWithMock(t)
	repo := NewUserRepository(orm)

	mock.ExpectExec("INSERT INTO `user`").WillReturnResult(sqlmock.NewResult(11, 1))

	u := &model.User{Username: "ada", Email: "ada@x.com", FullName: "Ada", Password: "hash", Avatar: "http://a"}
	require.NoError(t, repo.Create(context.Background(), u))
	assert.Equal(t, uint(11), u.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormUserRepository_Create_Duplicate(t *testing.T) {
	orm, mock := newGormWithMock(t)
	repo := NewUserRepository(orm)

	mock.ExpectExec("INSERT INTO `user`").
		WillReturnError(&mysqldrv.MySQLError{Number: 1062, Message: "Duplicate entry 'ada' for key 'idx_user_username'"})

	err := repo.Create(context.Background(), &model.User{Username: "ada", Email: "ada@x.com"})
	assert.ErrorIs(t, err, ErrUserExists)
}

func TestGormUserRepository_CompareAndSwapRefreshToken(t *testing.T) {
	tests := []struct {
		name     string
		affected int64
		want     bool
	}{
		{"current token swapped", 1, true},
		{"stale token rejected", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			orm, mock := newGormWithMock(t)
			repo := NewUserRepository(orm)

			mock.ExpectExec("UPDATE `user` SET `refresh_token`=\\?,`updated_at`=\\? WHERE \\(id = \\? AND refresh_token = \\?\\)").
				WithArgs("next", sqlmock.AnyArg(), 1, "old").
				WillReturnResult(sqlmock.NewResult(0, tt.affected))

			ok, err := repo.CompareAndSwapRefreshToken(context.Background(), 1, "old", "next")
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestGormUserRepository_ClearRefreshToken(t *testing.T) {
	orm, mock := newGormWithMock(t)
	repo := NewUserRepository(orm)

	mock.ExpectExec("UPDATE `user` SET `refresh_token`=\\?").
		WithArgs(nil, sqlmock.AnyArg(), 1).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.ClearRefreshToken(context.Background(), 1))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormUserRepository_UpdateMissingUser(t *testing.T) {
	orm, mock := newGormWithMock(t)
	repo := NewUserRepository(orm)

	mock.ExpectExec("UPDATE `user` SET `avatar`=\\?").WillReturnResult(sqlmock.NewResult(0, 0))

	_, err := repo.UpdateAvatar(context.Background(), 42, "http://a")
	assert.ErrorIs(t, err, ErrUserNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormUserRepository_UpdateAccountDetails_EmailTaken(t *testing.T) {
	orm, mock := newGormWithMock(t)
	repo := NewUserRepository(orm)

	mock.ExpectExec("UPDATE `user` SET").
		WillReturnError(&mysqldrv.MySQLError{Number: 1062, Message: "Duplicate entry"})

	_, err := repo.UpdateAccountDetails(context.Background(), 1, "Ada", "bob@x.com")
	assert.ErrorIs(t, err, ErrUserExists)
}

func TestGormSubscriptionRepository_Counts(t *testing.T) {
	orm, mock := newGormWithMock(t)
	repo := NewSubscriptionRepository(orm)
	ctx := context.Background()

	mock.ExpectQuery("SELECT count\\(\\*\\) FROM `subscription` WHERE channel_id = \\?").
		WithArgs(3).
		WillReturnRows(sqlmock.NewRows([]string{"count(*)"}).AddRow(5))
	mock.ExpectQuery("SELECT count\\(\\*\\) FROM `subscription` WHERE subscriber_id = \\?").
		WithArgs(3).
		WillReturnRows(sqlmock.NewRows([]string{"count(*)"}).AddRow(2))
	mock.ExpectQuery("SELECT count\\(\\*\\) FROM `subscription` WHERE \\(subscriber_id = \\? AND channel_id = \\?\\)").
		WithArgs(4, 3).
		WillReturnRows(sqlmock.NewRows([]string{"count(*)"}).AddRow(1))

	n, err := repo.CountSubscribers(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)

	n, err = repo.CountSubscriptions(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	ok, err := repo.IsSubscribed(ctx, 4, 3)
	require.NoError(t, err)
	assert.True(t, ok)

	assert.NoError(t, mock.ExpectationsWereMet())
}
