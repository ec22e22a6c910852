package db

import (
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMigrations_PairsUpAndDown(t *testing.T) {
	for _, driver := range []string{DriverSQLite, DriverPostgres} {
		migs, err := loadMigrations(driver)
		require.NoError(t, err)
		require.NotEmpty(t, migs, driver)
		for v, m := range migs {
			assert.NotEmpty(t, m.upFile, "%s %04d up", driver, v)
			assert.NotEmpty(t, m.downFile, "%s %04d down", driver, v)
		}
	}
	sqliteMigs, _ := loadMigrations(DriverSQLite)
	pgMigs, _ := loadMigrations(DriverPostgres)
	assert.Equal(t, sortedVersions(sqliteMigs), sortedVersions(pgMigs))
}

func TestApplyMigrations_SkipsAppliedVersions(t *testing.T) {
	d, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer d.Close()

	versions := sortedVersions(mustLoad(t, DriverPostgres))
	require.Greater(t, len(versions), 1)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS schema_migrations").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT version FROM schema_migrations").
		WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow(versions[0]))
	for _, v := range versions[1:] {
		mock.ExpectBegin()
		mock.ExpectExec(".+").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec("INSERT INTO schema_migrations").WithArgs(v).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()
	}

	require.NoError(t, applyMigrations(d, postgresDialect))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyMigrations_RollsBackFailedVersion(t *testing.T) {
	d, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer d.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS schema_migrations").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT version FROM schema_migrations").
		WillReturnRows(sqlmock.NewRows([]string{"version"}))
	mock.ExpectBegin()
	mock.ExpectExec(".+").WillReturnError(errors.New("syntax error"))
	mock.ExpectRollback()

	err = applyMigrations(d, sqliteDialect)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "migration 0001 failed")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOpen_SQLiteAppliesMigrationsOnce(t *testing.T) {
	dsn := "file:db_open_test?mode=memory&cache=shared"
	gdb, err := Open(DriverSQLite, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(gdb) })

	for _, table := range []string{"agents", "wallets", "clients", "resources", "app_transactions", "subscriptions", "payers"} {
		assert.True(t, gdb.Migrator().HasTable(table), table)
	}

	var applied int64
	require.NoError(t, gdb.Table("schema_migrations").Count(&applied).Error)
	assert.Equal(t, int64(len(mustLoad(t, DriverSQLite))), applied)

	// Reopening against the same shared database must not re-run anything.
	again, err := Open(DriverSQLite, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(again) })
	var after int64
	require.NoError(t, again.Table("schema_migrations").Count(&after).Error)
	assert.Equal(t, applied, after)
}

func TestRollbackLast_DropsNewestMigration(t *testing.T) {
	gdb, err := Open(DriverSQLite, "file:db_rollback_test?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(gdb) })

	require.NoError(t, RollbackLast(gdb))
	assert.False(t, gdb.Migrator().HasTable("payers"))
	assert.False(t, gdb.Migrator().HasTable("subscriptions"))
	assert.True(t, gdb.Migrator().HasTable("agents"))
}

func TestOpen_RejectsUnknownDriver(t *testing.T) {
	_, err := Open("mysql", "whatever")
	require.Error(t, err)
}

func mustLoad(t *testing.T, driver string) map[int]migration {
	t.Helper()
	migs, err := loadMigrations(driver)
	require.NoError(t, err)
	return migs
}
