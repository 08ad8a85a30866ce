package repositories

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", t.Name(), time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err, "open sqlite")
	return db
}

func mustExec(t *testing.T, db *gorm.DB, q string, args ...interface{}) {
	t.Helper()
	require.NoError(t, db.Exec(q, args...).Error, "exec failed: query=%s", q)
}

func createWalletTables(t *testing.T, db *gorm.DB) {
	mustExec(t, db, `CREATE TABLE wallets (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		kind TEXT NOT NULL,
		settings TEXT NOT NULL DEFAULT '{}',
		enabled BOOLEAN,
		created_at DATETIME,
		updated_at DATETIME,
		deleted_at DATETIME
	);`)
	mustExec(t, db, `CREATE TABLE wallet_states (
		wallet_id TEXT PRIMARY KEY,
		last_scraped_height INTEGER,
		updated_at DATETIME
	);`)
	mustExec(t, db, `CREATE TABLE engine_states (
		id INTEGER PRIMARY KEY,
		withdrawal_cursor INTEGER NOT NULL DEFAULT 0,
		deposit_cutoff DATETIME,
		updated_at DATETIME
	);`)
}

func createCurrencyTable(t *testing.T, db *gorm.DB) {
	mustExec(t, db, `CREATE TABLE currencies (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		symbol TEXT NOT NULL,
		decimals INTEGER NOT NULL,
		pattern TEXT,
		fee_deposit INTEGER NOT NULL DEFAULT 0,
		fee_move INTEGER NOT NULL DEFAULT 0,
		fee_withdraw INTEGER NOT NULL DEFAULT 0,
		min_withdraw INTEGER NOT NULL DEFAULT 0,
		wallet_id TEXT,
		enabled BOOLEAN,
		created_at DATETIME,
		updated_at DATETIME,
		deleted_at DATETIME
	);`)
}

func createAddressTable(t *testing.T, db *gorm.DB) {
	mustExec(t, db, `CREATE TABLE addresses (
		id TEXT PRIMARY KEY,
		address TEXT NOT NULL,
		extra TEXT NOT NULL DEFAULT '',
		type TEXT NOT NULL,
		currency_id TEXT NOT NULL,
		user_id TEXT,
		label TEXT,
		created_at DATETIME,
		updated_at DATETIME,
		deleted_at DATETIME,
		UNIQUE (address, extra, type, currency_id)
	);`)
}

func createTransactionTable(t *testing.T, db *gorm.DB) {
	mustExec(t, db, `CREATE TABLE transactions (
		id TEXT PRIMARY KEY,
		category TEXT NOT NULL,
		status TEXT NOT NULL,
		user_id TEXT,
		currency_id TEXT NOT NULL,
		address_id TEXT,
		amount INTEGER NOT NULL,
		fee INTEGER NOT NULL DEFAULT 0,
		chain_fee INTEGER,
		tx_id TEXT,
		block INTEGER,
		timestamp DATETIME,
		parent_id TEXT,
		comment TEXT,
		error TEXT,
		nonce TEXT NOT NULL DEFAULT '',
		tags TEXT NOT NULL DEFAULT '',
		created_at DATETIME,
		updated_at DATETIME,
		deleted_at DATETIME
	);`)
}

func createAllTables(t *testing.T, db *gorm.DB) {
	createWalletTables(t, db)
	createCurrencyTable(t, db)
	createAddressTable(t, db)
	createTransactionTable(t, db)
}
