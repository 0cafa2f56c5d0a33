// Package processor provides intermediary layer functionality between the DB and API endpoint handlers.

package processor

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/ShiraazMoollatjie/goluhn"
	"github.com/danilovkiri/dk-go-backstop/internal/config"
	"github.com/danilovkiri/dk-go-backstop/internal/models/modeldto"
	"github.com/danilovkiri/dk-go-backstop/internal/service/processor/v1"
	serviceErrors "github.com/danilovkiri/dk-go-backstop/internal/service/processor/v1/errors"
	"github.com/danilovkiri/dk-go-backstop/internal/service/secretary/v1"
	"github.com/danilovkiri/dk-go-backstop/internal/storage/v1"
	"github.com/google/uuid"
)

// Processor defines attributes of a struct available to its methods.
type Processor struct {
	storage    storage.Storage
	secretary  secretary.Secretary
	transferer processor.Transferer
	secretCfg  *config.SecretConfig
	now        func() time.Time
}

// InitService initializes an intermediary service for data processing.
func InitService(st storage.Storage, sec secretary.Secretary, tr processor.Transferer, secretCfg *config.SecretConfig) (*Processor, error) {
	if st == nil {
		return nil, &serviceErrors.ServiceFoundNilArgument{Msg: "nil storage was passed to service initializer"}
	}
	if sec == nil {
		return nil, &serviceErrors.ServiceFoundNilArgument{Msg: "nil secretary was passed to service initializer"}
	}
	if tr == nil {
		return nil, &serviceErrors.ServiceFoundNilArgument{Msg: "nil transferer was passed to service initializer"}
	}
	proc := &Processor{
		storage:    st,
		secretary:  sec,
		transferer: tr,
		secretCfg:  secretCfg,
		now:        time.Now,
	}
	return proc, nil
}

// SetClock overrides the time source, used by maturity checks.
func (proc *Processor) SetClock(now func() time.Time) {
	proc.now = now
}

// GetAccountID retrieves the account identifier from an access token.
func (proc *Processor) GetAccountID(accessToken string) (string, error) {
	return proc.secretary.ValidateToken(accessToken)
}

// RegisterAccount processes account register requests.
func (proc *Processor) RegisterAccount(ctx context.Context, credentials modeldto.Account) (string, error) {
	accessToken, accountID, err := proc.secretary.NewToken()
	if err != nil {
		return "", err
	}
	cipheredCredentials := modeldto.Account{
		Login:    proc.secretary.Encode(credentials.Login),
		Password: proc.secretary.Encode(credentials.Password),
	}
	err = proc.storage.AddNewAccount(ctx, cipheredCredentials, accountID)
	if err != nil {
		return "", err
	}
	return accessToken, nil
}

// LoginAccount processes account login requests.
func (proc *Processor) LoginAccount(ctx context.Context, credentials modeldto.Account) (string, error) {
	cipheredCredentials := modeldto.Account{
		Login:    proc.secretary.Encode(credentials.Login),
		Password: proc.secretary.Encode(credentials.Password),
	}
	accountID, err := proc.storage.CheckAccount(ctx, cipheredCredentials)
	if err != nil {
		return "", err
	}
	return proc.secretary.GetTokenForAccount(accountID)
}

// RegisterPool binds a backing relationship between a lending pool and its backstop balance.
func (proc *Processor) RegisterPool(ctx context.Context, callerID string, newPool modeldto.NewPool) (*modeldto.Pool, error) {
	if err := proc.requireAdmin(callerID); err != nil {
		return nil, err
	}
	pool := modeldto.Pool{
		PoolID:           uuid.New().String(),
		Name:             newPool.Name,
		ServiceAccountID: newPool.ServiceAccountID,
	}
	err := proc.storage.AddNewPool(ctx, pool)
	if err != nil {
		return nil, err
	}
	return &pool, nil
}

// GetPoolStatus processes pool status query requests.
func (proc *Processor) GetPoolStatus(ctx context.Context, poolID string) (*modeldto.PoolStatus, error) {
	pool, err := proc.storage.GetPoolBalance(ctx, poolID)
	if err != nil {
		return nil, err
	}
	status := modeldto.PoolStatus{
		PoolID:       poolID,
		TotalShares:  pool.Shares,
		TotalTokens:  pool.Tokens,
		QueuedShares: pool.QueuedShares,
		SharePrice:   pool.SharePrice().String(),
	}
	return &status, nil
}

// GetUserBalance processes user balance query requests.
func (proc *Processor) GetUserBalance(ctx context.Context, accountID, poolID string) (*modeldto.UserBalance, error) {
	if _, err := proc.storage.GetPoolBalance(ctx, poolID); err != nil {
		return nil, err
	}
	user, err := proc.storage.GetUserBalance(ctx, poolID, accountID)
	if err != nil {
		return nil, err
	}
	balance := modeldto.UserBalance{
		PoolID:         poolID,
		Shares:         user.Shares,
		QueuedShares:   user.QueuedTotal(),
		UnlockedShares: user.UnlockedShares(),
	}
	for _, entry := range user.Queue {
		balance.Queue = append(balance.Queue, modeldto.QueuedWithdrawal{Shares: entry.Amount, Expiration: entry.Expiration})
	}
	return &balance, nil
}

// Deposit processes deposit requests: tokens in, shares minted.
func (proc *Processor) Deposit(ctx context.Context, accountID, poolID string, deposit modeldto.NewDeposit) (*modeldto.DepositResult, error) {
	if err := checkAmountRange(deposit.Amount); err != nil {
		return nil, err
	}
	minted, err := proc.storage.Deposit(ctx, poolID, accountID, deposit.Amount, proc.transferIn(accountID, poolID))
	if err != nil {
		return nil, err
	}
	return &modeldto.DepositResult{SharesMinted: minted}, nil
}

// QueueWithdrawal processes new withdrawal queueing requests.
func (proc *Processor) QueueWithdrawal(ctx context.Context, accountID, poolID string, request modeldto.NewQueuedWithdrawal) (*modeldto.QueuedWithdrawal, error) {
	if err := checkAmountRange(request.Shares); err != nil {
		return nil, err
	}
	entry, err := proc.storage.QueueWithdrawal(ctx, poolID, accountID, request.Shares, proc.now().Unix())
	if err != nil {
		return nil, err
	}
	return &modeldto.QueuedWithdrawal{Shares: entry.Amount, Expiration: entry.Expiration}, nil
}

// CancelQueuedWithdrawal processes withdrawal dequeueing requests.
func (proc *Processor) CancelQueuedWithdrawal(ctx context.Context, accountID, poolID string, request modeldto.CancelQueuedWithdrawal) error {
	if err := checkAmountRange(request.Shares); err != nil {
		return err
	}
	return proc.storage.CancelQueuedWithdrawal(ctx, poolID, accountID, request.Expiration, request.Shares)
}

// Withdraw processes withdrawal requests for matured queued shares.
func (proc *Processor) Withdraw(ctx context.Context, accountID, poolID string, request modeldto.NewWithdrawal) (*modeldto.WithdrawalResult, error) {
	if err := checkAmountRange(request.Shares); err != nil {
		return nil, err
	}
	if err := goluhn.Validate(request.AccountNumber); err != nil {
		return nil, &serviceErrors.ServiceIllegalAccountNumber{Msg: fmt.Sprintf("illegal account number %s", request.AccountNumber)}
	}
	tokens, err := proc.storage.Withdraw(ctx, poolID, accountID, request.Shares, proc.now().Unix(), proc.transferOut(poolID, request.AccountNumber))
	if err != nil {
		return nil, err
	}
	return &modeldto.WithdrawalResult{TokensPaid: tokens}, nil
}

// Draw processes privileged backstop draw-down requests.
func (proc *Processor) Draw(ctx context.Context, callerID, poolID string, request modeldto.NewDraw) error {
	if err := checkAmountRange(request.Amount); err != nil {
		return err
	}
	if err := goluhn.Validate(request.AccountNumber); err != nil {
		return &serviceErrors.ServiceIllegalAccountNumber{Msg: fmt.Sprintf("illegal account number %s", request.AccountNumber)}
	}
	pool, err := proc.storage.GetPool(ctx, poolID)
	if err != nil {
		return err
	}
	if callerID != pool.ServiceAccountID && !proc.isAdmin(callerID) {
		return &serviceErrors.ServiceUnauthorizedAccount{Msg: fmt.Sprintf("account %s may not draw from pool %s", callerID, poolID)}
	}
	return proc.storage.Draw(ctx, poolID, request.Amount, proc.transferOut(poolID, request.AccountNumber))
}

// Donate processes donation requests: tokens in, no shares minted.
func (proc *Processor) Donate(ctx context.Context, accountID, poolID string, request modeldto.NewDonation) error {
	if err := checkAmountRange(request.Amount); err != nil {
		return err
	}
	return proc.storage.Donate(ctx, poolID, accountID, request.Amount, proc.transferIn(accountID, poolID))
}

// transferIn builds the inbound transfer callback moving tokens from the
// account's token balance into the pool's vault account.
func (proc *Processor) transferIn(accountID, poolID string) storage.TransferFunc {
	return func(ctx context.Context, amount uint64) error {
		if err := proc.transferer.Transfer(ctx, accountID, poolID, amount); err != nil {
			return &serviceErrors.ServiceTransferFailed{Err: err}
		}
		return nil
	}
}

// transferOut builds the outbound transfer callback moving tokens from the
// pool's vault account to an external token account.
func (proc *Processor) transferOut(poolID, accountNumber string) storage.TransferFunc {
	return func(ctx context.Context, amount uint64) error {
		if err := proc.transferer.Transfer(ctx, poolID, accountNumber, amount); err != nil {
			return &serviceErrors.ServiceTransferFailed{Err: err}
		}
		return nil
	}
}

// requireAdmin permits only the configured admin service account.
func (proc *Processor) requireAdmin(callerID string) error {
	if !proc.isAdmin(callerID) {
		return &serviceErrors.ServiceUnauthorizedAccount{Msg: fmt.Sprintf("account %s is not the admin account", callerID)}
	}
	return nil
}

func (proc *Processor) isAdmin(callerID string) bool {
	return proc.secretCfg.AdminAccount != "" && callerID == proc.secretCfg.AdminAccount
}

// checkAmountRange rejects amounts that cannot round-trip through BIGINT
// storage columns; zero amounts are rejected by the accounting core.
func checkAmountRange(amount uint64) error {
	if amount > math.MaxInt64 {
		return &serviceErrors.ServiceAmountOutOfRange{Msg: fmt.Sprintf("amount %v exceeds the accepted range", amount)}
	}
	return nil
}
