package modelstorage

type AccountStorageEntry struct {
	ID           uint   `db:"id"`
	AccountID    string `db:"account_id"`
	Login        string `db:"login"`
	Password     string `db:"password"`
	RegisteredAt string `db:"registered_at"`
}

type PoolStorageEntry struct {
	ID               uint   `db:"id"`
	PoolID           string `db:"pool_id"`
	Name             string `db:"name"`
	ServiceAccountID string `db:"service_account_id"`
	RegisteredAt     string `db:"registered_at"`
}

type PoolBalanceStorageEntry struct {
	ID           uint   `db:"id"`
	PoolID       string `db:"pool_id"`
	Shares       int64  `db:"shares"`
	Tokens       int64  `db:"tokens"`
	QueuedShares int64  `db:"queued_shares"`
}

type UserBalanceStorageEntry struct {
	ID        uint   `db:"id"`
	PoolID    string `db:"pool_id"`
	AccountID string `db:"account_id"`
	Shares    int64  `db:"shares"`
}

type QueueEntryStorageEntry struct {
	ID         uint   `db:"id"`
	PoolID     string `db:"pool_id"`
	AccountID  string `db:"account_id"`
	Shares     int64  `db:"shares"`
	Expiration int64  `db:"expiration"`
}

type JournalStorageEntry struct {
	ID          uint   `db:"id"`
	OperationID string `db:"operation_id"`
	Operation   string `db:"operation"`
	PoolID      string `db:"pool_id"`
	AccountID   string `db:"account_id"`
	Shares      int64  `db:"shares"`
	Tokens      int64  `db:"tokens"`
	RecordedAt  string `db:"recorded_at"`
}
