package migrate

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/pashagolub/pgxmock/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/spinbook/internal/db"
)

const (
	sqlCreateMigrations = `CREATE TABLE IF NOT EXISTS schema_migrations`
	sqlApplied          = `SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version=$1)`
	sqlRecord           = `INSERT INTO schema_migrations(version) VALUES ($1)`
)

func TestFiles(t *testing.T) {
	files, err := Files()
	require.NoError(t, err)
	require.NotEmpty(t, files)
	assert.Equal(t, "0001_booking_attempts.sql", files[0])
}

func TestUpAppliesPending(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec(regexp.QuoteMeta(sqlCreateMigrations)).WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectQuery(regexp.QuoteMeta(sqlApplied)).
		WithArgs("0001_booking_attempts.sql").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS booking_attempts")).WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectExec(regexp.QuoteMeta(sqlRecord)).
		WithArgs("0001_booking_attempts.sql").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	applied, err := Up(context.Background(), db.New(mock))
	require.NoError(t, err)
	assert.Equal(t, []string{"0001_booking_attempts.sql"}, applied)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpSkipsApplied(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec(regexp.QuoteMeta(sqlCreateMigrations)).WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectQuery(regexp.QuoteMeta(sqlApplied)).
		WithArgs("0001_booking_attempts.sql").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	applied, err := Up(context.Background(), db.New(mock))
	require.NoError(t, err)
	assert.Empty(t, applied)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpReportsFailedMigration(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	boom := errors.New("permission denied for schema public")
	mock.ExpectExec(regexp.QuoteMeta(sqlCreateMigrations)).WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectQuery(regexp.QuoteMeta(sqlApplied)).
		WithArgs("0001_booking_attempts.sql").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS booking_attempts")).WillReturnError(boom)

	_, err = Up(context.Background(), db.New(mock))
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "apply 0001_booking_attempts.sql")
	assert.NoError(t, mock.ExpectationsWereMet())
}
