package db

import (
	"context"
	"testing"

	pkgerrors "github.com/amontesdeoca/equiptrack-backend/pkg/errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type txRow struct {
	ID    string `gorm:"column:id;primaryKey"`
	Label string `gorm:"column:label"`
}

func (txRow) TableName() string { return "tx_rows" }

func newTxTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:txtest_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)
	require.NoError(t, conn.Exec(`CREATE TABLE tx_rows (id TEXT PRIMARY KEY, label TEXT)`).Error)
	return conn
}

func countRows(t *testing.T, conn *gorm.DB) int64 {
	t.Helper()
	var n int64
	require.NoError(t, conn.Model(&txRow{}).Count(&n).Error)
	return n
}

func TestRunInTxCommitsOnNil(t *testing.T) {
	t.Parallel()

	conn := newTxTestDB(t)
	err := RunInTx(context.Background(), conn, func(tx *gorm.DB) error {
		return tx.Create(&txRow{ID: uuid.NewString(), Label: "kept"}).Error
	})
	require.NoError(t, err)
	require.EqualValues(t, 1, countRows(t, conn))
}

func TestRunInTxRollsBackOnError(t *testing.T) {
	t.Parallel()

	conn := newTxTestDB(t)
	boom := pkgerrors.New(pkgerrors.CodeDependency, "simulated store failure")

	err := RunInTx(context.Background(), conn, func(tx *gorm.DB) error {
		if err := tx.Create(&txRow{ID: uuid.NewString(), Label: "doomed"}).Error; err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)
	require.EqualValues(t, 0, countRows(t, conn), "failed unit of work must leave no trace")
}

func TestRunInTxRollsBackOnPanic(t *testing.T) {
	t.Parallel()

	conn := newTxTestDB(t)
	require.Panics(t, func() {
		_ = RunInTx(context.Background(), conn, func(tx *gorm.DB) error {
			if err := tx.Create(&txRow{ID: uuid.NewString(), Label: "doomed"}).Error; err != nil {
				return err
			}
			panic("simulated handler crash")
		})
	})
	require.EqualValues(t, 0, countRows(t, conn))
}

func TestRunInTxJoinsEnclosingTransaction(t *testing.T) {
	t.Parallel()

	conn := newTxTestDB(t)
	boom := pkgerrors.New(pkgerrors.CodeDependency, "outer failure")

	err := RunInTx(context.Background(), conn, func(outer *gorm.DB) error {
		require.True(t, InTransaction(outer))

		// Nested call must reuse the open transaction, not commit on its own.
		if err := RunInTx(context.Background(), outer, func(inner *gorm.DB) error {
			return inner.Create(&txRow{ID: uuid.NewString(), Label: "nested"}).Error
		}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)
	require.EqualValues(t, 0, countRows(t, conn), "nested write must roll back with the outer unit of work")
}

func TestInTransaction(t *testing.T) {
	t.Parallel()

	conn := newTxTestDB(t)
	require.False(t, InTransaction(conn))

	tx := conn.Begin()
	require.NoError(t, tx.Error)
	require.True(t, InTransaction(tx))
	require.NoError(t, tx.Rollback().Error)
}
