package option_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"questboard/pkg/db/option"
)

func TestLockingUpdateEmitsForUpdate(t *testing.T) {
	db, err := gorm.Open(postgres.Open("host=localhost user=questboard dbname=questboard"), &gorm.Config{
		DryRun:               true,
		DisableAutomaticPing: true,
	})
	require.NoError(t, err)

	var rows []struct{ ID string }
	tx := option.LockingUpdate(db).Table("users").Where("id = ?", "u1").Find(&rows)
	require.NoError(t, tx.Error)
	require.Contains(t, tx.Statement.SQL.String(), "FOR UPDATE")

	tx = option.WithLockingUpdate()(db).Table("users").Where("id = ?", "u1").Find(&rows)
	require.NoError(t, tx.Error)
	require.Contains(t, tx.Statement.SQL.String(), "FOR UPDATE")
}

func TestLockingUpdateSkipsClauseOnSQLite(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{DryRun: true})
	require.NoError(t, err)

	var rows []struct{ ID string }
	tx := option.LockingUpdate(db).Table("users").Where("id = ?", "u1").Find(&rows)
	require.NoError(t, tx.Error)
	require.NotContains(t, tx.Statement.SQL.String(), "FOR UPDATE")
}
