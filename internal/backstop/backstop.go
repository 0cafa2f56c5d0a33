// Package backstop implements the share accounting core of the backstop
// vault: per-pool aggregate balances, per-user balances and the
// queued-for-withdrawal lifecycle. All mutating entry points either apply
// their full effect or return an error leaving every balance untouched.
package backstop

import (
	"math/big"
	"math/bits"

	backstopErrors "github.com/danilovkiri/dk-go-backstop/internal/backstop/errors"
	"github.com/shopspring/decimal"
)

const (
	// DefaultLockPeriod is the time in seconds queued shares stay locked
	// before they become withdrawable.
	DefaultLockPeriod = 17 * 24 * 60 * 60
	// DefaultMaxQueueEntries caps the number of simultaneous queue entries
	// per user per pool.
	DefaultMaxQueueEntries = 20
	// DefaultMergeWindow is the maximum expiration gap in seconds within
	// which a new queue request coalesces into the newest pending entry.
	DefaultMergeWindow = 60 * 60
	// SharePriceDecimals is the scale of the share price read view.
	SharePriceDecimals = 7
)

// QueueParams bundles the withdrawal queue tunables.
type QueueParams struct {
	LockPeriod  int64
	MaxEntries  int
	MergeWindow int64
}

// DefaultQueueParams returns queue tunables matching the reference
// deployment.
func DefaultQueueParams() QueueParams {
	return QueueParams{
		LockPeriod:  DefaultLockPeriod,
		MaxEntries:  DefaultMaxQueueEntries,
		MergeWindow: DefaultMergeWindow,
	}
}

// Q4W is a single queued-for-withdrawal entry: shares requested for
// withdrawal and the unix timestamp at which they mature.
type Q4W struct {
	Amount     uint64
	Expiration int64
}

// PoolBalance holds the aggregate counters of one backed pool.
type PoolBalance struct {
	Shares       uint64
	Tokens       uint64
	QueuedShares uint64
}

// UserBalance holds one user's shares in one pool together with the queue of
// pending withdrawal requests, sorted by expiration ascending.
type UserBalance struct {
	Shares uint64
	Queue  []Q4W
}

// mulDivFloor computes floor(a * b / c) over a 128-bit intermediate product.
func mulDivFloor(a, b, c uint64) (uint64, error) {
	if c == 0 {
		return 0, &backstopErrors.ArithmeticOverflowError{Msg: "division by zero"}
	}
	hi, lo := bits.Mul64(a, b)
	if hi >= c {
		return 0, &backstopErrors.ArithmeticOverflowError{Msg: "quotient exceeds 64 bits"}
	}
	q, _ := bits.Div64(hi, lo, c)
	return q, nil
}

func addChecked(a, b uint64) (uint64, error) {
	s := a + b
	if s < a {
		return 0, &backstopErrors.ArithmeticOverflowError{Msg: "addition wraps around"}
	}
	return s, nil
}

func subChecked(a, b uint64) (uint64, error) {
	if b > a {
		return 0, &backstopErrors.ArithmeticOverflowError{Msg: "subtraction goes negative"}
	}
	return a - b, nil
}

// ConvertToShares converts a token amount to shares at the current share
// price, rounding down. A pool with no outstanding shares mints 1:1.
func (p *PoolBalance) ConvertToShares(tokens uint64) (uint64, error) {
	if p.Shares == 0 {
		return tokens, nil
	}
	return mulDivFloor(tokens, p.Shares, p.Tokens)
}

// ConvertToTokens converts a share amount to tokens at the current share
// price, rounding down. A pool with no outstanding shares redeems 1:1.
func (p *PoolBalance) ConvertToTokens(shares uint64) (uint64, error) {
	if p.Shares == 0 {
		return shares, nil
	}
	return mulDivFloor(shares, p.Tokens, p.Shares)
}

// SharePrice reports tokens per share at SharePriceDecimals precision. The
// value is a read view only, conversions never route through it.
func (p *PoolBalance) SharePrice() decimal.Decimal {
	if p.Shares == 0 {
		return decimal.New(1, 0)
	}
	tokens := decimal.NewFromBigInt(new(big.Int).SetUint64(p.Tokens), 0)
	shares := decimal.NewFromBigInt(new(big.Int).SetUint64(p.Shares), 0)
	return tokens.DivRound(shares, SharePriceDecimals+1).Truncate(SharePriceDecimals)
}

// Draw removes tokens from the pool without burning shares, diluting every
// remaining holder.
func (p *PoolBalance) Draw(amount uint64) error {
	if amount == 0 {
		return &backstopErrors.InvalidAmountError{Msg: "draw amount must be positive"}
	}
	if amount > p.Tokens {
		return &backstopErrors.InsufficientBackstopBalanceError{Available: p.Tokens, Requested: amount}
	}
	p.Tokens -= amount
	return nil
}

// Donate adds tokens to the pool without minting shares, appreciating every
// remaining holder.
func (p *PoolBalance) Donate(amount uint64) error {
	if amount == 0 {
		return &backstopErrors.InvalidAmountError{Msg: "donate amount must be positive"}
	}
	tokens, err := addChecked(p.Tokens, amount)
	if err != nil {
		return err
	}
	p.Tokens = tokens
	return nil
}

// QueuedTotal reports the sum of all pending queue entry amounts.
func (u *UserBalance) QueuedTotal() uint64 {
	var total uint64
	for _, entry := range u.Queue {
		total += entry.Amount
	}
	return total
}

// UnlockedShares reports the user's shares not committed to any queue entry.
func (u *UserBalance) UnlockedShares() uint64 {
	return u.Shares - u.QueuedTotal()
}

// MaturedShares reports the sum of queue entry amounts with an expiration at
// or before now.
func (u *UserBalance) MaturedShares(now int64) uint64 {
	var total uint64
	for _, entry := range u.Queue {
		if entry.Expiration > now {
			break
		}
		total += entry.Amount
	}
	return total
}

// Deposit mints shares for a token deposit against a single pool and credits
// them to the user. It returns the number of shares minted.
func Deposit(pool *PoolBalance, user *UserBalance, tokens uint64) (uint64, error) {
	if tokens == 0 {
		return 0, &backstopErrors.InvalidAmountError{Msg: "deposit amount must be positive"}
	}
	minted, err := pool.ConvertToShares(tokens)
	if err != nil {
		return 0, err
	}
	if minted == 0 {
		return 0, &backstopErrors.InvalidAmountError{Msg: "deposit mints zero shares"}
	}
	poolShares, err := addChecked(pool.Shares, minted)
	if err != nil {
		return 0, err
	}
	poolTokens, err := addChecked(pool.Tokens, tokens)
	if err != nil {
		return 0, err
	}
	userShares, err := addChecked(user.Shares, minted)
	if err != nil {
		return 0, err
	}
	pool.Shares = poolShares
	pool.Tokens = poolTokens
	user.Shares = userShares
	return minted, nil
}

// QueueWithdrawal places shares into the user's withdrawal queue, merging
// into the newest pending entry when its expiration lies within the merge
// window. It returns the entry the shares ended up in.
func QueueWithdrawal(pool *PoolBalance, user *UserBalance, shares uint64, now int64, params QueueParams) (Q4W, error) {
	if shares == 0 {
		return Q4W{}, &backstopErrors.InvalidAmountError{Msg: "queued shares must be positive"}
	}
	unqueued := user.UnlockedShares()
	if shares > unqueued {
		return Q4W{}, &backstopErrors.InsufficientUnqueuedSharesError{Available: unqueued, Requested: shares}
	}
	queuedShares, err := addChecked(pool.QueuedShares, shares)
	if err != nil {
		return Q4W{}, err
	}
	expiration := now + params.LockPeriod
	if n := len(user.Queue); n > 0 {
		last := &user.Queue[n-1]
		if last.Expiration > now && expiration-last.Expiration <= params.MergeWindow {
			amount, err := addChecked(last.Amount, shares)
			if err != nil {
				return Q4W{}, err
			}
			last.Amount = amount
			last.Expiration = expiration
			pool.QueuedShares = queuedShares
			return *last, nil
		}
	}
	if len(user.Queue) >= params.MaxEntries {
		return Q4W{}, &backstopErrors.QueueFullError{Limit: params.MaxEntries}
	}
	entry := Q4W{Amount: shares, Expiration: expiration}
	user.Queue = append(user.Queue, entry)
	pool.QueuedShares = queuedShares
	return entry, nil
}

// CancelWithdrawal removes shares from the queue entry with the given
// expiration. The entry is deleted once fully canceled; the user's share
// balance is untouched since queued shares were never removed from it.
func CancelWithdrawal(pool *PoolBalance, user *UserBalance, expiration int64, shares uint64) error {
	if shares == 0 {
		return &backstopErrors.InvalidAmountError{Msg: "canceled shares must be positive"}
	}
	idx := -1
	for i, entry := range user.Queue {
		if entry.Expiration == expiration {
			idx = i
			break
		}
	}
	if idx < 0 || shares > user.Queue[idx].Amount {
		return &backstopErrors.EntryNotFoundError{Expiration: expiration}
	}
	queuedShares, err := subChecked(pool.QueuedShares, shares)
	if err != nil {
		return err
	}
	if shares == user.Queue[idx].Amount {
		user.Queue = append(user.Queue[:idx], user.Queue[idx+1:]...)
	} else {
		user.Queue[idx].Amount -= shares
	}
	pool.QueuedShares = queuedShares
	return nil
}

// Withdraw burns matured queued shares and reports the token amount they
// redeem for. Entries are consumed oldest first; the redemption price is the
// pool's price before any balance is decremented, so a withdrawal can never
// improve its own rate.
func Withdraw(pool *PoolBalance, user *UserBalance, shares uint64, now int64) (uint64, error) {
	if shares == 0 {
		return 0, &backstopErrors.InvalidAmountError{Msg: "withdrawn shares must be positive"}
	}
	matured := user.MaturedShares(now)
	if shares > matured {
		return 0, &backstopErrors.NotMaturedError{Matured: matured, Requested: shares}
	}
	tokens, err := pool.ConvertToTokens(shares)
	if err != nil {
		return 0, err
	}
	poolShares, err := subChecked(pool.Shares, shares)
	if err != nil {
		return 0, err
	}
	poolTokens, err := subChecked(pool.Tokens, tokens)
	if err != nil {
		return 0, err
	}
	queuedShares, err := subChecked(pool.QueuedShares, shares)
	if err != nil {
		return 0, err
	}
	userShares, err := subChecked(user.Shares, shares)
	if err != nil {
		return 0, err
	}
	remaining := shares
	for remaining > 0 {
		entry := &user.Queue[0]
		if entry.Amount > remaining {
			entry.Amount -= remaining
			remaining = 0
		} else {
			remaining -= entry.Amount
			user.Queue = user.Queue[1:]
		}
	}
	pool.Shares = poolShares
	pool.Tokens = poolTokens
	pool.QueuedShares = queuedShares
	user.Shares = userShares
	return tokens, nil
}
