package storage

import (
	"context"

	"github.com/danilovkiri/dk-go-backstop/internal/backstop"
	"github.com/danilovkiri/dk-go-backstop/internal/models/modeldto"
	"github.com/danilovkiri/dk-go-backstop/internal/models/modelqueue"
)

// TransferFunc executes the external token transfer tied to an operation,
// with the token amount the operation settled on. It is invoked inside the
// operation's transaction; returning an error aborts the whole operation.
type TransferFunc func(ctx context.Context, amount uint64) error

type Register interface {
	AddNewAccount(ctx context.Context, credentials modeldto.Account, accountID string) error
	CheckAccount(ctx context.Context, credentials modeldto.Account) (string, error)
}

type PoolRegistry interface {
	AddNewPool(ctx context.Context, pool modeldto.Pool) error
	GetPool(ctx context.Context, poolID string) (*modeldto.Pool, error)
	GetPoolBalance(ctx context.Context, poolID string) (*backstop.PoolBalance, error)
	GetUserBalance(ctx context.Context, poolID, accountID string) (*backstop.UserBalance, error)
}

type Backstop interface {
	Deposit(ctx context.Context, poolID, accountID string, tokenAmount uint64, transfer TransferFunc) (uint64, error)
	QueueWithdrawal(ctx context.Context, poolID, accountID string, shares uint64, now int64) (backstop.Q4W, error)
	CancelQueuedWithdrawal(ctx context.Context, poolID, accountID string, expiration int64, shares uint64) error
	Withdraw(ctx context.Context, poolID, accountID string, shares uint64, now int64, transfer TransferFunc) (uint64, error)
	Draw(ctx context.Context, poolID string, amount uint64, transfer TransferFunc) error
	Donate(ctx context.Context, poolID, accountID string, amount uint64, transfer TransferFunc) error
}

type Journal interface {
	AddJournalRecord(ctx context.Context, record modelqueue.OperationQueueEntry) error
}

type Storage interface {
	Register
	PoolRegistry
	Backstop
	Journal
}
