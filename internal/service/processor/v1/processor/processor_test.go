package processor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/danilovkiri/dk-go-backstop/internal/backstop"
	backstopErrors "github.com/danilovkiri/dk-go-backstop/internal/backstop/errors"
	"github.com/danilovkiri/dk-go-backstop/internal/config"
	"github.com/danilovkiri/dk-go-backstop/internal/models/modeldto"
	"github.com/danilovkiri/dk-go-backstop/internal/models/modelqueue"
	serviceErrors "github.com/danilovkiri/dk-go-backstop/internal/service/processor/v1/errors"
	"github.com/danilovkiri/dk-go-backstop/internal/service/secretary/v1/secretary"
	"github.com/danilovkiri/dk-go-backstop/internal/storage/v1"
	storageErrors "github.com/danilovkiri/dk-go-backstop/internal/storage/v1/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type transferCall struct {
	from, to string
	amount   uint64
}

type fakeTransferer struct {
	calls []transferCall
	fail  bool
}

func (f *fakeTransferer) Transfer(_ context.Context, from, to string, amount uint64) error {
	if f.fail {
		return errors.New("transfer declined by token service")
	}
	f.calls = append(f.calls, transferCall{from: from, to: to, amount: amount})
	return nil
}

// memStorage mimics the transactional storage contract: backstop state is
// mutated on copies and committed only after the transfer callback succeeds.
type memStorage struct {
	accounts     map[string]modeldto.Account
	pools        map[string]modeldto.Pool
	poolBalances map[string]backstop.PoolBalance
	userBalances map[string]backstop.UserBalance
	journal      []modelqueue.OperationQueueEntry
	params       backstop.QueueParams
}

func newMemStorage() *memStorage {
	return &memStorage{
		accounts:     make(map[string]modeldto.Account),
		pools:        make(map[string]modeldto.Pool),
		poolBalances: make(map[string]backstop.PoolBalance),
		userBalances: make(map[string]backstop.UserBalance),
		params:       backstop.QueueParams{LockPeriod: 1000, MaxEntries: 4, MergeWindow: 100},
	}
}

func (m *memStorage) AddNewAccount(_ context.Context, credentials modeldto.Account, accountID string) error {
	for _, existing := range m.accounts {
		if existing.Login == credentials.Login {
			return &storageErrors.AlreadyExistsError{ID: credentials.Login}
		}
	}
	m.accounts[accountID] = credentials
	return nil
}

func (m *memStorage) CheckAccount(_ context.Context, credentials modeldto.Account) (string, error) {
	for accountID, existing := range m.accounts {
		if existing.Login == credentials.Login && existing.Password == credentials.Password {
			return accountID, nil
		}
	}
	return "", &storageErrors.NotFoundError{ID: credentials.Login}
}

func (m *memStorage) AddNewPool(_ context.Context, pool modeldto.Pool) error {
	if _, ok := m.pools[pool.PoolID]; ok {
		return &storageErrors.AlreadyExistsError{ID: pool.PoolID}
	}
	m.pools[pool.PoolID] = pool
	m.poolBalances[pool.PoolID] = backstop.PoolBalance{}
	return nil
}

func (m *memStorage) GetPool(_ context.Context, poolID string) (*modeldto.Pool, error) {
	pool, ok := m.pools[poolID]
	if !ok {
		return nil, &storageErrors.NotFoundError{ID: poolID}
	}
	return &pool, nil
}

func (m *memStorage) GetPoolBalance(_ context.Context, poolID string) (*backstop.PoolBalance, error) {
	balance, ok := m.poolBalances[poolID]
	if !ok {
		return nil, &storageErrors.NotFoundError{ID: poolID}
	}
	return &balance, nil
}

func (m *memStorage) GetUserBalance(_ context.Context, poolID, accountID string) (*backstop.UserBalance, error) {
	balance := m.userBalances[poolID+"|"+accountID]
	balance.Queue = append([]backstop.Q4W(nil), balance.Queue...)
	return &balance, nil
}

func (m *memStorage) load(poolID, accountID string) (*backstop.PoolBalance, *backstop.UserBalance, error) {
	pool, ok := m.poolBalances[poolID]
	if !ok {
		return nil, nil, &storageErrors.NotFoundError{ID: poolID}
	}
	user := m.userBalances[poolID+"|"+accountID]
	user.Queue = append([]backstop.Q4W(nil), user.Queue...)
	return &pool, &user, nil
}

func (m *memStorage) commit(poolID, accountID string, pool *backstop.PoolBalance, user *backstop.UserBalance) {
	m.poolBalances[poolID] = *pool
	if user != nil {
		m.userBalances[poolID+"|"+accountID] = *user
	}
}

func (m *memStorage) Deposit(ctx context.Context, poolID, accountID string, tokenAmount uint64, transfer storage.TransferFunc) (uint64, error) {
	pool, user, err := m.load(poolID, accountID)
	if err != nil {
		return 0, err
	}
	minted, err := backstop.Deposit(pool, user, tokenAmount)
	if err != nil {
		return 0, err
	}
	if err = transfer(ctx, tokenAmount); err != nil {
		return 0, err
	}
	m.commit(poolID, accountID, pool, user)
	return minted, nil
}

func (m *memStorage) QueueWithdrawal(_ context.Context, poolID, accountID string, shares uint64, now int64) (backstop.Q4W, error) {
	pool, user, err := m.load(poolID, accountID)
	if err != nil {
		return backstop.Q4W{}, err
	}
	entry, err := backstop.QueueWithdrawal(pool, user, shares, now, m.params)
	if err != nil {
		return backstop.Q4W{}, err
	}
	m.commit(poolID, accountID, pool, user)
	return entry, nil
}

func (m *memStorage) CancelQueuedWithdrawal(_ context.Context, poolID, accountID string, expiration int64, shares uint64) error {
	pool, user, err := m.load(poolID, accountID)
	if err != nil {
		return err
	}
	if err = backstop.CancelWithdrawal(pool, user, expiration, shares); err != nil {
		return err
	}
	m.commit(poolID, accountID, pool, user)
	return nil
}

func (m *memStorage) Withdraw(ctx context.Context, poolID, accountID string, shares uint64, now int64, transfer storage.TransferFunc) (uint64, error) {
	pool, user, err := m.load(poolID, accountID)
	if err != nil {
		return 0, err
	}
	tokens, err := backstop.Withdraw(pool, user, shares, now)
	if err != nil {
		return 0, err
	}
	if err = transfer(ctx, tokens); err != nil {
		return 0, err
	}
	m.commit(poolID, accountID, pool, user)
	return tokens, nil
}

func (m *memStorage) Draw(ctx context.Context, poolID string, amount uint64, transfer storage.TransferFunc) error {
	pool, ok := m.poolBalances[poolID]
	if !ok {
		return &storageErrors.NotFoundError{ID: poolID}
	}
	if err := pool.Draw(amount); err != nil {
		return err
	}
	if err := transfer(ctx, amount); err != nil {
		return err
	}
	m.poolBalances[poolID] = pool
	return nil
}

func (m *memStorage) Donate(ctx context.Context, poolID, _ string, amount uint64, transfer storage.TransferFunc) error {
	pool, ok := m.poolBalances[poolID]
	if !ok {
		return &storageErrors.NotFoundError{ID: poolID}
	}
	if err := pool.Donate(amount); err != nil {
		return err
	}
	if err := transfer(ctx, amount); err != nil {
		return err
	}
	m.poolBalances[poolID] = pool
	return nil
}

func (m *memStorage) AddJournalRecord(_ context.Context, record modelqueue.OperationQueueEntry) error {
	m.journal = append(m.journal, record)
	return nil
}

const (
	adminID       = "admin-account"
	luhnValid     = "79927398713"
	luhnInvalid   = "79927398710"
	serviceAcctID = "pool-service-account"
)

func newTestProcessor(t *testing.T) (*Processor, *memStorage, *fakeTransferer) {
	t.Helper()
	secretCfg := &config.SecretConfig{SecretKey: "jds__63h3_7ds", AdminAccount: adminID}
	sec, err := secretary.NewSecretaryService(secretCfg)
	require.NoError(t, err)
	st := newMemStorage()
	tr := &fakeTransferer{}
	proc, err := InitService(st, sec, tr, secretCfg)
	require.NoError(t, err)
	proc.SetClock(func() time.Time { return time.Unix(5000, 0) })
	return proc, st, tr
}

func registerTestPool(t *testing.T, proc *Processor) string {
	t.Helper()
	pool, err := proc.RegisterPool(context.Background(), adminID, modeldto.NewPool{Name: "pool-one", ServiceAccountID: serviceAcctID})
	require.NoError(t, err)
	return pool.PoolID
}

func TestInitServiceNilArguments(t *testing.T) {
	secretCfg := &config.SecretConfig{SecretKey: "jds__63h3_7ds"}
	sec, err := secretary.NewSecretaryService(secretCfg)
	require.NoError(t, err)
	_, err = InitService(nil, sec, &fakeTransferer{}, secretCfg)
	assert.Error(t, err)
	_, err = InitService(newMemStorage(), nil, &fakeTransferer{}, secretCfg)
	assert.Error(t, err)
	_, err = InitService(newMemStorage(), sec, nil, secretCfg)
	assert.Error(t, err)
}

func TestRegisterAndLoginAccount(t *testing.T) {
	proc, _, _ := newTestProcessor(t)
	ctx := context.Background()
	credentials := modeldto.Account{Login: "user1", Password: "pass1"}
	token, err := proc.RegisterAccount(ctx, credentials)
	require.NoError(t, err)
	accountID, err := proc.GetAccountID(token)
	require.NoError(t, err)
	assert.NotEmpty(t, accountID)

	loginToken, err := proc.LoginAccount(ctx, credentials)
	require.NoError(t, err)
	loginAccountID, err := proc.GetAccountID(loginToken)
	require.NoError(t, err)
	assert.Equal(t, accountID, loginAccountID)

	_, err = proc.LoginAccount(ctx, modeldto.Account{Login: "user1", Password: "wrong"})
	var notFoundError *storageErrors.NotFoundError
	assert.ErrorAs(t, err, &notFoundError)
}

func TestRegisterPoolRequiresAdmin(t *testing.T) {
	proc, _, _ := newTestProcessor(t)
	_, err := proc.RegisterPool(context.Background(), "ordinary-account", modeldto.NewPool{Name: "pool-one"})
	var unauthorizedError *serviceErrors.ServiceUnauthorizedAccount
	assert.ErrorAs(t, err, &unauthorizedError)
}

func TestDepositMintsSharesAndTransfers(t *testing.T) {
	proc, st, tr := newTestProcessor(t)
	ctx := context.Background()
	poolID := registerTestPool(t, proc)

	result, err := proc.Deposit(ctx, "acct-1", poolID, modeldto.NewDeposit{Amount: 1000})
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), result.SharesMinted)
	require.Len(t, tr.calls, 1)
	assert.Equal(t, transferCall{from: "acct-1", to: poolID, amount: 1000}, tr.calls[0])
	assert.Equal(t, uint64(1000), st.poolBalances[poolID].Tokens)
}

func TestDepositTransferFailureLeavesStateUntouched(t *testing.T) {
	proc, st, tr := newTestProcessor(t)
	ctx := context.Background()
	poolID := registerTestPool(t, proc)
	tr.fail = true

	_, err := proc.Deposit(ctx, "acct-1", poolID, modeldto.NewDeposit{Amount: 1000})
	var transferFailedError *serviceErrors.ServiceTransferFailed
	require.ErrorAs(t, err, &transferFailedError)
	assert.Equal(t, uint64(0), st.poolBalances[poolID].Tokens)
	assert.Equal(t, uint64(0), st.userBalances[poolID+"|acct-1"].Shares)
}

func TestDepositUnregisteredPool(t *testing.T) {
	proc, _, _ := newTestProcessor(t)
	_, err := proc.Deposit(context.Background(), "acct-1", "no-such-pool", modeldto.NewDeposit{Amount: 1000})
	var notFoundError *storageErrors.NotFoundError
	assert.ErrorAs(t, err, &notFoundError)
}

func TestQueueCancelWithdrawFlow(t *testing.T) {
	proc, _, tr := newTestProcessor(t)
	ctx := context.Background()
	poolID := registerTestPool(t, proc)
	_, err := proc.Deposit(ctx, "acct-1", poolID, modeldto.NewDeposit{Amount: 1000})
	require.NoError(t, err)

	entry, err := proc.QueueWithdrawal(ctx, "acct-1", poolID, modeldto.NewQueuedWithdrawal{Shares: 600})
	require.NoError(t, err)
	assert.Equal(t, uint64(600), entry.Shares)
	assert.Equal(t, int64(6000), entry.Expiration)

	err = proc.CancelQueuedWithdrawal(ctx, "acct-1", poolID, modeldto.CancelQueuedWithdrawal{Expiration: entry.Expiration, Shares: 100})
	require.NoError(t, err)

	balance, err := proc.GetUserBalance(ctx, "acct-1", poolID)
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), balance.Shares)
	assert.Equal(t, uint64(500), balance.QueuedShares)
	assert.Equal(t, uint64(500), balance.UnlockedShares)

	// not matured yet at t=5000
	_, err = proc.Withdraw(ctx, "acct-1", poolID, modeldto.NewWithdrawal{Shares: 500, AccountNumber: luhnValid})
	var notMaturedError *backstopErrors.NotMaturedError
	require.ErrorAs(t, err, &notMaturedError)

	proc.SetClock(func() time.Time { return time.Unix(6001, 0) })
	result, err := proc.Withdraw(ctx, "acct-1", poolID, modeldto.NewWithdrawal{Shares: 500, AccountNumber: luhnValid})
	require.NoError(t, err)
	assert.Equal(t, uint64(500), result.TokensPaid)
	last := tr.calls[len(tr.calls)-1]
	assert.Equal(t, transferCall{from: poolID, to: luhnValid, amount: 500}, last)
}

func TestWithdrawRejectsIllegalAccountNumber(t *testing.T) {
	proc, _, _ := newTestProcessor(t)
	poolID := registerTestPool(t, proc)
	_, err := proc.Withdraw(context.Background(), "acct-1", poolID, modeldto.NewWithdrawal{Shares: 10, AccountNumber: luhnInvalid})
	var illegalAccountNumberError *serviceErrors.ServiceIllegalAccountNumber
	assert.ErrorAs(t, err, &illegalAccountNumberError)
}

func TestDrawAuthorization(t *testing.T) {
	proc, st, tr := newTestProcessor(t)
	ctx := context.Background()
	poolID := registerTestPool(t, proc)
	_, err := proc.Deposit(ctx, "acct-1", poolID, modeldto.NewDeposit{Amount: 1000})
	require.NoError(t, err)

	err = proc.Draw(ctx, "acct-1", poolID, modeldto.NewDraw{Amount: 300, AccountNumber: luhnValid})
	var unauthorizedError *serviceErrors.ServiceUnauthorizedAccount
	require.ErrorAs(t, err, &unauthorizedError)

	err = proc.Draw(ctx, serviceAcctID, poolID, modeldto.NewDraw{Amount: 300, AccountNumber: luhnValid})
	require.NoError(t, err)
	assert.Equal(t, uint64(700), st.poolBalances[poolID].Tokens)
	last := tr.calls[len(tr.calls)-1]
	assert.Equal(t, transferCall{from: poolID, to: luhnValid, amount: 300}, last)

	err = proc.Draw(ctx, adminID, poolID, modeldto.NewDraw{Amount: 200, AccountNumber: luhnValid})
	require.NoError(t, err)
	assert.Equal(t, uint64(500), st.poolBalances[poolID].Tokens)
}

func TestDonateAppreciatesShares(t *testing.T) {
	proc, _, _ := newTestProcessor(t)
	ctx := context.Background()
	poolID := registerTestPool(t, proc)
	_, err := proc.Deposit(ctx, "acct-1", poolID, modeldto.NewDeposit{Amount: 1000})
	require.NoError(t, err)

	err = proc.Donate(ctx, "acct-2", poolID, modeldto.NewDonation{Amount: 500})
	require.NoError(t, err)

	status, err := proc.GetPoolStatus(ctx, poolID)
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), status.TotalShares)
	assert.Equal(t, uint64(1500), status.TotalTokens)
	assert.Equal(t, "1.5", status.SharePrice)
}

func TestAmountOutOfRange(t *testing.T) {
	proc, _, _ := newTestProcessor(t)
	poolID := registerTestPool(t, proc)
	_, err := proc.Deposit(context.Background(), "acct-1", poolID, modeldto.NewDeposit{Amount: 1 << 63})
	var amountOutOfRangeError *serviceErrors.ServiceAmountOutOfRange
	assert.ErrorAs(t, err, &amountOutOfRangeError)
}
