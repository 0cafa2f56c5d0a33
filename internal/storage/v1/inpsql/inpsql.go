// Package inpsql provides PSQL-based persistence for the backstop state.
package inpsql

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/danilovkiri/dk-go-backstop/internal/backstop"
	backstopErrors "github.com/danilovkiri/dk-go-backstop/internal/backstop/errors"
	"github.com/danilovkiri/dk-go-backstop/internal/config"
	"github.com/danilovkiri/dk-go-backstop/internal/models/modeldto"
	"github.com/danilovkiri/dk-go-backstop/internal/models/modelqueue"
	"github.com/danilovkiri/dk-go-backstop/internal/models/modelstorage"
	"github.com/danilovkiri/dk-go-backstop/internal/storage/v1"
	storageErrors "github.com/danilovkiri/dk-go-backstop/internal/storage/v1/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgerrcode"
	_ "github.com/jackc/pgx/v4/stdlib"
	"github.com/rs/zerolog"
)

// Storage keeps the backstop state in PSQL. Every mutating backstop
// operation takes the pool's mutex and runs inside a single transaction, so
// per-pool read-modify-write sequences are serialized and either commit as a
// whole or roll back.
type Storage struct {
	mu        sync.Mutex
	poolLocks map[string]*sync.Mutex
	Cfg       *config.StorageConfig
	queueCfg  backstop.QueueParams
	DB        *sql.DB
	log       *zerolog.Logger
	QueueOut  chan modelqueue.OperationQueueEntry
}

// InitStorage initializes a Storage object and its tables.
func InitStorage(ctx context.Context, cfg *config.StorageConfig, backstopCfg *config.BackstopConfig, log *zerolog.Logger) (*Storage, error) {
	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("")
	}
	st := Storage{
		poolLocks: make(map[string]*sync.Mutex),
		Cfg:       cfg,
		queueCfg: backstop.QueueParams{
			LockPeriod:  backstopCfg.LockPeriod,
			MaxEntries:  backstopCfg.MaxQueueEntries,
			MergeWindow: backstopCfg.MergeWindow,
		},
		DB:       db,
		log:      log,
		QueueOut: make(chan modelqueue.OperationQueueEntry, 1000),
	}
	err = st.createTables(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("")
	}
	log.Info().Msg("PSQL DB connection was established")
	return &st, nil
}

// AddNewAccount stores a new account with its ciphered credentials.
func (s *Storage) AddNewAccount(ctx context.Context, credentials modeldto.Account, accountID string) error {
	newAccountStmt, err := s.DB.PrepareContext(ctx, "INSERT INTO accounts (account_id, login, password, registered_at) VALUES ($1, $2, $3, $4)")
	if err != nil {
		return &storageErrors.StatementPSQLError{Err: err}
	}
	defer newAccountStmt.Close()
	chanOk := make(chan bool)
	chanEr := make(chan error)
	go func() {
		_, err := newAccountStmt.ExecContext(ctx, accountID, credentials.Login, credentials.Password, time.Now().Format(time.RFC3339))
		if err != nil {
			if err, ok := err.(*pgconn.PgError); ok && err.Code == pgerrcode.UniqueViolation {
				chanEr <- &storageErrors.AlreadyExistsError{Err: err, ID: credentials.Login}
				return
			}
			chanEr <- &storageErrors.ExecutionPSQLError{Err: err}
			return
		}
		chanOk <- true
	}()

	select {
	case <-ctx.Done():
		s.log.Error().Err(ctx.Err()).Msg(fmt.Sprintf("adding new account failed for %s", credentials.Login))
		return &storageErrors.ContextTimeoutExceededError{Err: ctx.Err()}
	case methodErr := <-chanEr:
		s.log.Error().Err(methodErr).Msg(fmt.Sprintf("adding new account failed for %s", credentials.Login))
		return methodErr
	case <-chanOk:
		s.log.Info().Msg(fmt.Sprintf("adding new account done for %s", credentials.Login))
		return nil
	}
}

// CheckAccount verifies the ciphered credentials and returns the account ID.
func (s *Storage) CheckAccount(ctx context.Context, credentials modeldto.Account) (string, error) {
	selectStmt, err := s.DB.PrepareContext(ctx, "SELECT * FROM accounts WHERE login = $1")
	if err != nil {
		return "", &storageErrors.StatementPSQLError{Err: err}
	}
	defer selectStmt.Close()
	chanOk := make(chan string)
	chanEr := make(chan error)
	go func() {
		var queryOutput modelstorage.AccountStorageEntry
		err := selectStmt.QueryRowContext(ctx, credentials.Login).Scan(&queryOutput.ID, &queryOutput.AccountID, &queryOutput.Login, &queryOutput.Password, &queryOutput.RegisteredAt)
		if err != nil {
			switch {
			case errors.Is(err, sql.ErrNoRows):
				chanEr <- &storageErrors.NotFoundError{Err: err, ID: credentials.Login}
				return
			default:
				chanEr <- err
				return
			}
		}
		passwordHash := sha256.Sum256([]byte(credentials.Password))
		expectedPasswordHash := sha256.Sum256([]byte(queryOutput.Password))
		passwordMatch := subtle.ConstantTimeCompare(passwordHash[:], expectedPasswordHash[:]) == 1
		if !passwordMatch {
			chanEr <- &storageErrors.NotFoundError{Err: nil, ID: credentials.Login}
			return
		}
		chanOk <- queryOutput.AccountID
	}()

	select {
	case <-ctx.Done():
		s.log.Error().Err(ctx.Err()).Msg("account authentication failed")
		return "", &storageErrors.ContextTimeoutExceededError{Err: ctx.Err()}
	case methodErr := <-chanEr:
		s.log.Error().Err(methodErr).Msg("account authentication failed")
		return "", methodErr
	case accountID := <-chanOk:
		s.log.Info().Msg("account authentication done")
		return accountID, nil
	}
}

// AddNewPool registers a pool and its zero-valued balance row.
func (s *Storage) AddNewPool(ctx context.Context, pool modeldto.Pool) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return &storageErrors.ExecutionPSQLError{Err: err}
	}
	defer tx.Rollback()
	_, err = tx.ExecContext(ctx, "INSERT INTO pools (pool_id, name, service_account_id, registered_at) VALUES ($1, $2, $3, $4)",
		pool.PoolID, pool.Name, pool.ServiceAccountID, time.Now().Format(time.RFC3339))
	if err != nil {
		if err, ok := err.(*pgconn.PgError); ok && err.Code == pgerrcode.UniqueViolation {
			s.log.Error().Err(err).Msg(fmt.Sprintf("adding new pool failed for %s", pool.PoolID))
			return &storageErrors.AlreadyExistsError{Err: err, ID: pool.PoolID}
		}
		return &storageErrors.ExecutionPSQLError{Err: err}
	}
	_, err = tx.ExecContext(ctx, "INSERT INTO pool_balances (pool_id, shares, tokens, queued_shares) VALUES ($1, 0, 0, 0)", pool.PoolID)
	if err != nil {
		return &storageErrors.ExecutionPSQLError{Err: err}
	}
	err = tx.Commit()
	if err != nil {
		return &storageErrors.ExecutionPSQLError{Err: err}
	}
	s.log.Info().Msg(fmt.Sprintf("adding new pool done for %s", pool.PoolID))
	return nil
}

// GetPool retrieves pool registration data.
func (s *Storage) GetPool(ctx context.Context, poolID string) (*modeldto.Pool, error) {
	var queryOutput modelstorage.PoolStorageEntry
	err := s.DB.QueryRowContext(ctx, "SELECT * FROM pools WHERE pool_id = $1", poolID).Scan(&queryOutput.ID, &queryOutput.PoolID, &queryOutput.Name, &queryOutput.ServiceAccountID, &queryOutput.RegisteredAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &storageErrors.NotFoundError{Err: err, ID: poolID}
		}
		return nil, &storageErrors.ScanningPSQLError{Err: err}
	}
	pool := modeldto.Pool{
		PoolID:           queryOutput.PoolID,
		Name:             queryOutput.Name,
		ServiceAccountID: queryOutput.ServiceAccountID,
	}
	return &pool, nil
}

// GetPoolBalance retrieves the aggregate balance of a pool.
func (s *Storage) GetPoolBalance(ctx context.Context, poolID string) (*backstop.PoolBalance, error) {
	var queryOutput modelstorage.PoolBalanceStorageEntry
	err := s.DB.QueryRowContext(ctx, "SELECT * FROM pool_balances WHERE pool_id = $1", poolID).Scan(&queryOutput.ID, &queryOutput.PoolID, &queryOutput.Shares, &queryOutput.Tokens, &queryOutput.QueuedShares)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &storageErrors.NotFoundError{Err: err, ID: poolID}
		}
		return nil, &storageErrors.ScanningPSQLError{Err: err}
	}
	pool := backstop.PoolBalance{
		Shares:       uint64(queryOutput.Shares),
		Tokens:       uint64(queryOutput.Tokens),
		QueuedShares: uint64(queryOutput.QueuedShares),
	}
	return &pool, nil
}

// GetUserBalance retrieves a user's balance and withdrawal queue for a pool.
// An account without stored state reads as a zero balance.
func (s *Storage) GetUserBalance(ctx context.Context, poolID, accountID string) (*backstop.UserBalance, error) {
	tx, err := s.DB.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, &storageErrors.ExecutionPSQLError{Err: err}
	}
	defer tx.Rollback()
	user, err := s.getUserBalanceTx(ctx, tx, poolID, accountID, false)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// Deposit mints shares for an inbound token transfer.
func (s *Storage) Deposit(ctx context.Context, poolID, accountID string, tokenAmount uint64, transfer storage.TransferFunc) (uint64, error) {
	var minted uint64
	err := s.withPoolTx(ctx, poolID, func(tx *sql.Tx) error {
		pool, err := s.getPoolBalanceTx(ctx, tx, poolID)
		if err != nil {
			return err
		}
		user, err := s.getUserBalanceTx(ctx, tx, poolID, accountID, true)
		if err != nil {
			return err
		}
		minted, err = backstop.Deposit(pool, user, tokenAmount)
		if err != nil {
			return err
		}
		if err := s.savePoolBalanceTx(ctx, tx, poolID, pool); err != nil {
			return err
		}
		if err := s.saveUserBalanceTx(ctx, tx, poolID, accountID, user); err != nil {
			return err
		}
		return transfer(ctx, tokenAmount)
	})
	if err != nil {
		s.log.Error().Err(err).Msg(fmt.Sprintf("deposit failed for account %s in pool %s", accountID, poolID))
		return 0, err
	}
	s.log.Info().Msg(fmt.Sprintf("deposit of %v tokens done for account %s in pool %s", tokenAmount, accountID, poolID))
	s.emit("deposit", poolID, accountID, minted, tokenAmount)
	return minted, nil
}

// QueueWithdrawal places shares into the user's withdrawal queue.
func (s *Storage) QueueWithdrawal(ctx context.Context, poolID, accountID string, shares uint64, now int64) (backstop.Q4W, error) {
	var entry backstop.Q4W
	err := s.withPoolTx(ctx, poolID, func(tx *sql.Tx) error {
		pool, err := s.getPoolBalanceTx(ctx, tx, poolID)
		if err != nil {
			return err
		}
		user, err := s.getUserBalanceTx(ctx, tx, poolID, accountID, true)
		if err != nil {
			return err
		}
		entry, err = backstop.QueueWithdrawal(pool, user, shares, now, s.queueCfg)
		if err != nil {
			return err
		}
		if err := s.savePoolBalanceTx(ctx, tx, poolID, pool); err != nil {
			return err
		}
		return s.saveUserBalanceTx(ctx, tx, poolID, accountID, user)
	})
	if err != nil {
		s.log.Error().Err(err).Msg(fmt.Sprintf("queueing withdrawal failed for account %s in pool %s", accountID, poolID))
		return backstop.Q4W{}, err
	}
	s.log.Info().Msg(fmt.Sprintf("queueing withdrawal of %v shares done for account %s in pool %s", shares, accountID, poolID))
	s.emit("queue_withdrawal", poolID, accountID, shares, 0)
	return entry, nil
}

// CancelQueuedWithdrawal removes shares from a queued withdrawal entry.
func (s *Storage) CancelQueuedWithdrawal(ctx context.Context, poolID, accountID string, expiration int64, shares uint64) error {
	err := s.withPoolTx(ctx, poolID, func(tx *sql.Tx) error {
		pool, err := s.getPoolBalanceTx(ctx, tx, poolID)
		if err != nil {
			return err
		}
		user, err := s.getUserBalanceTx(ctx, tx, poolID, accountID, true)
		if err != nil {
			return err
		}
		if err := backstop.CancelWithdrawal(pool, user, expiration, shares); err != nil {
			return err
		}
		if err := s.savePoolBalanceTx(ctx, tx, poolID, pool); err != nil {
			return err
		}
		return s.saveUserBalanceTx(ctx, tx, poolID, accountID, user)
	})
	if err != nil {
		s.log.Error().Err(err).Msg(fmt.Sprintf("canceling queued withdrawal failed for account %s in pool %s", accountID, poolID))
		return err
	}
	s.log.Info().Msg(fmt.Sprintf("canceling queued withdrawal of %v shares done for account %s in pool %s", shares, accountID, poolID))
	s.emit("cancel_queued_withdrawal", poolID, accountID, shares, 0)
	return nil
}

// Withdraw burns matured queued shares and pays out tokens.
func (s *Storage) Withdraw(ctx context.Context, poolID, accountID string, shares uint64, now int64, transfer storage.TransferFunc) (uint64, error) {
	var tokens uint64
	err := s.withPoolTx(ctx, poolID, func(tx *sql.Tx) error {
		pool, err := s.getPoolBalanceTx(ctx, tx, poolID)
		if err != nil {
			return err
		}
		user, err := s.getUserBalanceTx(ctx, tx, poolID, accountID, true)
		if err != nil {
			return err
		}
		tokens, err = backstop.Withdraw(pool, user, shares, now)
		if err != nil {
			return err
		}
		if err := s.savePoolBalanceTx(ctx, tx, poolID, pool); err != nil {
			return err
		}
		if err := s.saveUserBalanceTx(ctx, tx, poolID, accountID, user); err != nil {
			return err
		}
		return transfer(ctx, tokens)
	})
	if err != nil {
		s.log.Error().Err(err).Msg(fmt.Sprintf("withdrawal failed for account %s in pool %s", accountID, poolID))
		return 0, err
	}
	s.log.Info().Msg(fmt.Sprintf("withdrawal of %v shares done for account %s in pool %s", shares, accountID, poolID))
	s.emit("withdraw", poolID, accountID, shares, tokens)
	return tokens, nil
}

// Draw extracts backstop tokens for the backing pool without burning shares.
func (s *Storage) Draw(ctx context.Context, poolID string, amount uint64, transfer storage.TransferFunc) error {
	err := s.withPoolTx(ctx, poolID, func(tx *sql.Tx) error {
		pool, err := s.getPoolBalanceTx(ctx, tx, poolID)
		if err != nil {
			return err
		}
		if err := pool.Draw(amount); err != nil {
			return err
		}
		if err := s.savePoolBalanceTx(ctx, tx, poolID, pool); err != nil {
			return err
		}
		return transfer(ctx, amount)
	})
	if err != nil {
		s.log.Error().Err(err).Msg(fmt.Sprintf("draw failed for pool %s", poolID))
		return err
	}
	s.log.Info().Msg(fmt.Sprintf("draw of %v tokens done for pool %s", amount, poolID))
	s.emit("draw", poolID, "", 0, amount)
	return nil
}

// Donate adds tokens to the backstop without minting shares.
func (s *Storage) Donate(ctx context.Context, poolID, accountID string, amount uint64, transfer storage.TransferFunc) error {
	err := s.withPoolTx(ctx, poolID, func(tx *sql.Tx) error {
		pool, err := s.getPoolBalanceTx(ctx, tx, poolID)
		if err != nil {
			return err
		}
		if err := pool.Donate(amount); err != nil {
			return err
		}
		if err := s.savePoolBalanceTx(ctx, tx, poolID, pool); err != nil {
			return err
		}
		return transfer(ctx, amount)
	})
	if err != nil {
		s.log.Error().Err(err).Msg(fmt.Sprintf("donation failed for pool %s", poolID))
		return err
	}
	s.log.Info().Msg(fmt.Sprintf("donation of %v tokens done for pool %s", amount, poolID))
	s.emit("donate", poolID, accountID, 0, amount)
	return nil
}

// AddJournalRecord persists one operation journal record.
func (s *Storage) AddJournalRecord(ctx context.Context, record modelqueue.OperationQueueEntry) error {
	shares, err := toBigint(record.Shares)
	if err != nil {
		return err
	}
	tokens, err := toBigint(record.Tokens)
	if err != nil {
		return err
	}
	_, err = s.DB.ExecContext(ctx, "INSERT INTO journal (operation_id, operation, pool_id, account_id, shares, tokens, recorded_at) VALUES ($1, $2, $3, $4, $5, $6, $7)",
		record.OperationID, record.Operation, record.PoolID, record.AccountID, shares, tokens, record.RecordedAt.Format(time.RFC3339))
	if err != nil {
		return &storageErrors.ExecutionPSQLError{Err: err}
	}
	return nil
}

// poolLock returns the mutex serializing operations on one pool.
func (s *Storage) poolLock(poolID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.poolLocks[poolID]
	if !ok {
		lock = &sync.Mutex{}
		s.poolLocks[poolID] = lock
	}
	return lock
}

// withPoolTx runs fn under the pool's mutex inside a transaction and commits
// only if fn returns nil.
func (s *Storage) withPoolTx(ctx context.Context, poolID string, fn func(tx *sql.Tx) error) error {
	lock := s.poolLock(poolID)
	lock.Lock()
	defer lock.Unlock()
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return &storageErrors.ExecutionPSQLError{Err: err}
	}
	defer tx.Rollback()
	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return &storageErrors.ExecutionPSQLError{Err: err}
	}
	return nil
}

func (s *Storage) getPoolBalanceTx(ctx context.Context, tx *sql.Tx, poolID string) (*backstop.PoolBalance, error) {
	var queryOutput modelstorage.PoolBalanceStorageEntry
	err := tx.QueryRowContext(ctx, "SELECT * FROM pool_balances WHERE pool_id = $1 FOR UPDATE", poolID).Scan(&queryOutput.ID, &queryOutput.PoolID, &queryOutput.Shares, &queryOutput.Tokens, &queryOutput.QueuedShares)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &storageErrors.NotFoundError{Err: err, ID: poolID}
		}
		return nil, &storageErrors.ScanningPSQLError{Err: err}
	}
	pool := backstop.PoolBalance{
		Shares:       uint64(queryOutput.Shares),
		Tokens:       uint64(queryOutput.Tokens),
		QueuedShares: uint64(queryOutput.QueuedShares),
	}
	return &pool, nil
}

func (s *Storage) getUserBalanceTx(ctx context.Context, tx *sql.Tx, poolID, accountID string, forUpdate bool) (*backstop.UserBalance, error) {
	user := backstop.UserBalance{}
	query := "SELECT shares FROM user_balances WHERE pool_id = $1 AND account_id = $2"
	if forUpdate {
		query += " FOR UPDATE"
	}
	var shares int64
	err := tx.QueryRowContext(ctx, query, poolID, accountID).Scan(&shares)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, &storageErrors.ScanningPSQLError{Err: err}
	}
	user.Shares = uint64(shares)
	rows, err := tx.QueryContext(ctx, "SELECT shares, expiration FROM withdrawal_queue WHERE pool_id = $1 AND account_id = $2 ORDER BY expiration ASC", poolID, accountID)
	if err != nil {
		return nil, &storageErrors.ExecutionPSQLError{Err: err}
	}
	defer rows.Close()
	for rows.Next() {
		var queryOutputRow modelstorage.QueueEntryStorageEntry
		err = rows.Scan(&queryOutputRow.Shares, &queryOutputRow.Expiration)
		if err != nil {
			return nil, &storageErrors.ScanningPSQLError{Err: err}
		}
		user.Queue = append(user.Queue, backstop.Q4W{Amount: uint64(queryOutputRow.Shares), Expiration: queryOutputRow.Expiration})
	}
	err = rows.Err()
	if err != nil {
		return nil, &storageErrors.ScanningPSQLError{Err: err}
	}
	return &user, nil
}

func (s *Storage) savePoolBalanceTx(ctx context.Context, tx *sql.Tx, poolID string, pool *backstop.PoolBalance) error {
	shares, err := toBigint(pool.Shares)
	if err != nil {
		return err
	}
	tokens, err := toBigint(pool.Tokens)
	if err != nil {
		return err
	}
	queuedShares, err := toBigint(pool.QueuedShares)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, "UPDATE pool_balances SET shares = $2, tokens = $3, queued_shares = $4 WHERE pool_id = $1", poolID, shares, tokens, queuedShares)
	if err != nil {
		return &storageErrors.ExecutionPSQLError{Err: err}
	}
	return nil
}

func (s *Storage) saveUserBalanceTx(ctx context.Context, tx *sql.Tx, poolID, accountID string, user *backstop.UserBalance) error {
	shares, err := toBigint(user.Shares)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, "INSERT INTO user_balances (pool_id, account_id, shares) VALUES ($1, $2, $3) ON CONFLICT (pool_id, account_id) DO UPDATE SET shares = $3", poolID, accountID, shares)
	if err != nil {
		return &storageErrors.ExecutionPSQLError{Err: err}
	}
	_, err = tx.ExecContext(ctx, "DELETE FROM withdrawal_queue WHERE pool_id = $1 AND account_id = $2", poolID, accountID)
	if err != nil {
		return &storageErrors.ExecutionPSQLError{Err: err}
	}
	for _, entry := range user.Queue {
		amount, err := toBigint(entry.Amount)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, "INSERT INTO withdrawal_queue (pool_id, account_id, shares, expiration) VALUES ($1, $2, $3, $4)", poolID, accountID, amount, entry.Expiration)
		if err != nil {
			return &storageErrors.ExecutionPSQLError{Err: err}
		}
	}
	return nil
}

// emit pushes an operation record to the journal queue without blocking the
// finished operation.
func (s *Storage) emit(operation, poolID, accountID string, shares, tokens uint64) {
	record := modelqueue.OperationQueueEntry{
		OperationID: uuid.New().String(),
		Operation:   operation,
		PoolID:      poolID,
		AccountID:   accountID,
		Shares:      shares,
		Tokens:      tokens,
		RecordedAt:  time.Now(),
	}
	select {
	case s.QueueOut <- record:
	default:
		s.log.Warn().Msg(fmt.Sprintf("journal queue is full, dropping record for operation %s", record.OperationID))
	}
}

// toBigint guards the uint64 core counters against the BIGINT column range.
func toBigint(v uint64) (int64, error) {
	if v > math.MaxInt64 {
		return 0, &backstopErrors.ArithmeticOverflowError{Msg: "value exceeds storage range"}
	}
	return int64(v), nil
}

func (s *Storage) createTables(ctx context.Context) error {
	var queries []string
	query := `CREATE TABLE IF NOT EXISTS accounts (
		id            BIGSERIAL   NOT NULL,
		account_id    TEXT        NOT NULL UNIQUE,
		login         TEXT        NOT NULL UNIQUE,
		password      TEXT        NOT NULL,
		registered_at TIMESTAMPTZ NOT NULL
	);`
	queries = append(queries, query)
	query = `CREATE TABLE IF NOT EXISTS pools (
		id                 BIGSERIAL   NOT NULL,
		pool_id            TEXT        NOT NULL UNIQUE,
		name               TEXT        NOT NULL,
		service_account_id TEXT        NOT NULL,
		registered_at      TIMESTAMPTZ NOT NULL
	);`
	queries = append(queries, query)
	query = `CREATE TABLE IF NOT EXISTS pool_balances (
		id            BIGSERIAL NOT NULL,
		pool_id       TEXT      NOT NULL UNIQUE,
		shares        BIGINT    NOT NULL CHECK (shares >= 0),
		tokens        BIGINT    NOT NULL CHECK (tokens >= 0),
		queued_shares BIGINT    NOT NULL CHECK (queued_shares >= 0)
	);`
	queries = append(queries, query)
	query = `CREATE TABLE IF NOT EXISTS user_balances (
		id         BIGSERIAL NOT NULL,
		pool_id    TEXT      NOT NULL,
		account_id TEXT      NOT NULL,
		shares     BIGINT    NOT NULL CHECK (shares >= 0),
		UNIQUE (pool_id, account_id)
	);`
	queries = append(queries, query)
	query = `CREATE TABLE IF NOT EXISTS withdrawal_queue (
		id         BIGSERIAL NOT NULL,
		pool_id    TEXT      NOT NULL,
		account_id TEXT      NOT NULL,
		shares     BIGINT    NOT NULL CHECK (shares > 0),
		expiration BIGINT    NOT NULL
	);`
	queries = append(queries, query)
	query = `CREATE TABLE IF NOT EXISTS journal (
		id           BIGSERIAL   NOT NULL,
		operation_id TEXT        NOT NULL UNIQUE,
		operation    TEXT        NOT NULL,
		pool_id      TEXT        NOT NULL,
		account_id   TEXT        NOT NULL,
		shares       BIGINT      NOT NULL,
		tokens       BIGINT      NOT NULL,
		recorded_at  TIMESTAMPTZ NOT NULL
	);`
	queries = append(queries, query)
	for _, subquery := range queries {
		_, err := s.DB.ExecContext(ctx, subquery)
		if err != nil {
			return err
		}
	}
	return nil
}
