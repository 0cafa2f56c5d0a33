package processor

import (
	"context"

	"github.com/danilovkiri/dk-go-backstop/internal/models/modeldto"
)

// Transferer abstracts the external fungible token transfer primitive.
type Transferer interface {
	Transfer(ctx context.Context, from, to string, amount uint64) error
}

// Processor defines a set of methods for types implementing Processor.
type Processor interface {
	GetAccountID(accessToken string) (string, error)
	RegisterAccount(ctx context.Context, credentials modeldto.Account) (string, error)
	LoginAccount(ctx context.Context, credentials modeldto.Account) (string, error)
	RegisterPool(ctx context.Context, callerID string, newPool modeldto.NewPool) (*modeldto.Pool, error)
	GetPoolStatus(ctx context.Context, poolID string) (*modeldto.PoolStatus, error)
	GetUserBalance(ctx context.Context, accountID, poolID string) (*modeldto.UserBalance, error)
	Deposit(ctx context.Context, accountID, poolID string, deposit modeldto.NewDeposit) (*modeldto.DepositResult, error)
	QueueWithdrawal(ctx context.Context, accountID, poolID string, request modeldto.NewQueuedWithdrawal) (*modeldto.QueuedWithdrawal, error)
	CancelQueuedWithdrawal(ctx context.Context, accountID, poolID string, request modeldto.CancelQueuedWithdrawal) error
	Withdraw(ctx context.Context, accountID, poolID string, request modeldto.NewWithdrawal) (*modeldto.WithdrawalResult, error)
	Draw(ctx context.Context, callerID, poolID string, request modeldto.NewDraw) error
	Donate(ctx context.Context, accountID, poolID string, request modeldto.NewDonation) error
}
