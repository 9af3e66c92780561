package db

import (
	"context"

	"gorm.io/gorm"
)

// TxRunner is the unit-of-work surface services depend on.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// InTransaction reports whether the handle is already bound to an open transaction.
func InTransaction(db *gorm.DB) bool {
	if db == nil {
		return false
	}
	committer, ok := db.Statement.ConnPool.(gorm.TxCommitter)
	return ok && committer != nil
}

// RunInTx executes fn inside a transaction bound to db.
//
// A handle that is already transactional joins the enclosing unit of work:
// fn runs on the same transaction and no independent commit happens. Otherwise
// a new transaction is begun, committed when fn returns nil and rolled back on
// error or panic (the panic is re-raised after rollback).
func RunInTx(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	if InTransaction(db) {
		return fn(db.WithContext(ctx))
	}

	tx := db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return tx.Error
	}

	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}

	return tx.Commit().Error
}
