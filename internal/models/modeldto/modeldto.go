// Package modeldto provides types for API data exchange.
package modeldto

type (
	Account struct {
		Login    string `json:"login"`
		Password string `json:"password"`
	}
	NewPool struct {
		Name             string `json:"name"`
		ServiceAccountID string `json:"service_account_id"`
	}
	Pool struct {
		PoolID           string `json:"pool_id"`
		Name             string `json:"name"`
		ServiceAccountID string `json:"service_account_id"`
	}
	PoolStatus struct {
		PoolID       string `json:"pool_id"`
		TotalShares  uint64 `json:"total_shares"`
		TotalTokens  uint64 `json:"total_tokens"`
		QueuedShares uint64 `json:"queued_shares"`
		SharePrice   string `json:"share_price"`
	}
	NewDeposit struct {
		Amount uint64 `json:"amount"`
	}
	DepositResult struct {
		SharesMinted uint64 `json:"shares_minted"`
	}
	NewQueuedWithdrawal struct {
		Shares uint64 `json:"shares"`
	}
	QueuedWithdrawal struct {
		Shares     uint64 `json:"shares"`
		Expiration int64  `json:"expiration"`
	}
	CancelQueuedWithdrawal struct {
		Expiration int64  `json:"expiration"`
		Shares     uint64 `json:"shares"`
	}
	NewWithdrawal struct {
		Shares        uint64 `json:"shares"`
		AccountNumber string `json:"account_number"`
	}
	WithdrawalResult struct {
		TokensPaid uint64 `json:"tokens_paid"`
	}
	NewDraw struct {
		Amount        uint64 `json:"amount"`
		AccountNumber string `json:"account_number"`
	}
	NewDonation struct {
		Amount uint64 `json:"amount"`
	}
	UserBalance struct {
		PoolID         string             `json:"pool_id"`
		Shares         uint64             `json:"shares"`
		QueuedShares   uint64             `json:"queued_shares"`
		UnlockedShares uint64             `json:"unlocked_shares"`
		Queue          []QueuedWithdrawal `json:"queue"`
	}
)
