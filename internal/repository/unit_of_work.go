package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.uber.org/zap"
)

// maxSerializationRetries bounds re-execution of a transaction that lost a
// serialization conflict.
const maxSerializationRetries = 3

// Queryer is implemented by both *sqlx.DB and *sqlx.Tx, so stores run
// unchanged inside or outside a transaction.
type Queryer interface {
	sqlx.ExtContext
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	NamedExecContext(ctx context.Context, query string, arg interface{}) (sql.Result, error)
}

// Stores groups the stores of the scholar aggregate bound to one Queryer.
type Stores struct {
	Accounts     AccountStore
	Scholars     ScholarStore
	Addresses    AddressStore
	Phones       PhoneStore
	BankAccounts BankAccountStore
	Logbook      LogbookStore
	Reports      ReportStore
}

// NewStores binds every aggregate store to q.
func NewStores(q Queryer) Stores {
	return Stores{
		Accounts:     NewAccountRepository(q),
		Scholars:     NewScholarRepository(q),
		Addresses:    NewAddressStore(q),
		Phones:       NewPhoneStore(q),
		BankAccounts: NewBankAccountStore(q),
		Logbook:      NewLogbookRepository(q),
		Reports:      NewReportRepository(q),
	}
}

// QueryObserver receives transaction timings.
type QueryObserver interface {
	ObserveDBQuery(label string, duration time.Duration)
}

// UnitOfWork runs functions against Stores bound to a single transaction.
type UnitOfWork struct {
	db       *sqlx.DB
	observer QueryObserver
	logger   *zap.Logger
}

// NewUnitOfWork constructs a UnitOfWork.
func NewUnitOfWork(db *sqlx.DB, observer QueryObserver, logger *zap.Logger) *UnitOfWork {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UnitOfWork{db: db, observer: observer, logger: logger}
}

// RunInTx executes fn inside a serializable transaction. fn's error rolls the
// transaction back; serialization conflicts re-run fn from scratch.
func (u *UnitOfWork) RunInTx(ctx context.Context, fn func(Stores) error) error {
	var err error
	for attempt := 1; attempt <= maxSerializationRetries; attempt++ {
		err = u.run(ctx, "serializable_tx", &sql.TxOptions{Isolation: sql.LevelSerializable}, fn)
		if !isSerializationFailure(err) {
			return err
		}
		u.logger.Warn("serialization conflict, retrying transaction", zap.Int("attempt", attempt), zap.Error(err))
	}
	return err
}

// RunReadOnly executes fn inside a read-only repeatable read transaction so
// every query sees the same snapshot.
func (u *UnitOfWork) RunReadOnly(ctx context.Context, fn func(Stores) error) error {
	return u.run(ctx, "read_only_tx", &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}, fn)
}

func (u *UnitOfWork) run(ctx context.Context, label string, opts *sql.TxOptions, fn func(Stores) error) (err error) {
	start := time.Now()
	defer func() {
		if u.observer != nil {
			u.observer.ObserveDBQuery(label, time.Since(start))
		}
	}()

	tx, err := u.db.BeginTxx(ctx, opts)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				u.logger.Error("rollback failed", zap.String("tx", label), zap.Error(rbErr))
			}
		}
	}()

	if err = fn(NewStores(tx)); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func isSerializationFailure(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "40001"
}
