package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"chaosball/pkg/entities"
)

// SQLite table schemas
const (
	createWalletTableSQL = `
	CREATE TABLE IF NOT EXISTS wallet (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		balance INTEGER NOT NULL DEFAULT 0,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`

	createBetsTableSQL = `
	CREATE TABLE IF NOT EXISTS bets (
		id TEXT PRIMARY KEY,
		type TEXT NOT NULL,
		amount INTEGER NOT NULL,
		odds REAL NOT NULL,
		status TEXT NOT NULL DEFAULT 'PENDING',
		placed_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`

	createTransactionsTableSQL = `
	CREATE TABLE IF NOT EXISTS transactions (
		id TEXT PRIMARY KEY,
		amount INTEGER NOT NULL,
		type TEXT NOT NULL,
		reference_id TEXT,
		description TEXT,
		timestamp TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		balance_after INTEGER NOT NULL
	)`

	createIndexesSQL = `
	CREATE INDEX IF NOT EXISTS idx_bets_status ON bets(status);
	CREATE INDEX IF NOT EXISTS idx_transactions_timestamp ON transactions(timestamp DESC)
	`
)

const sqliteTimeFormat = "2006-01-02 15:04:05"

// timestampFormats covers the shapes SQLite may hand back
var timestampFormats = []string{
	sqliteTimeFormat,
	"2006-01-02T15:04:05Z",
	"2006-01-02T15:04:05-07:00",
	time.RFC3339,
}

func parseTimestamp(value string) (time.Time, error) {
	var parseErr error
	for _, format := range timestampFormats {
		t, err := time.Parse(format, value)
		if err == nil {
			return t, nil
		}
		parseErr = err
	}
	return time.Time{}, fmt.Errorf("error parsing timestamp '%s': %w", value, parseErr)
}

// SQLiteRepository implements Repository using SQLite. The default
// ":memory:" path keeps the ledger scoped to the process lifetime.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite ledger repository
func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	// Each pooled connection to an in-memory database gets its own empty
	// database, so the pool must stay at a single connection
	db.SetMaxOpenConns(1)

	for _, schema := range []string{createWalletTableSQL, createBetsTableSQL, createTransactionsTableSQL, createIndexesSQL} {
		if _, err := db.Exec(schema); err != nil {
			db.Close()
			return nil, fmt.Errorf("error creating ledger tables: %w", err)
		}
	}

	return &SQLiteRepository{db: db}, nil
}

// GetWallet retrieves the session wallet
func (r *SQLiteRepository) GetWallet(ctx context.Context) (*entities.Wallet, error) {
	query := `SELECT balance, updated_at FROM wallet WHERE id = 1`

	var wallet entities.Wallet
	var updatedAt string

	err := r.db.QueryRowContext(ctx, query).Scan(&wallet.Balance, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrWalletNotFound
		}
		return nil, fmt.Errorf("error getting wallet: %w", err)
	}

	wallet.LastUpdated, err = parseTimestamp(updatedAt)
	if err != nil {
		return nil, err
	}

	return &wallet, nil
}

// SaveWallet creates or updates the session wallet
func (r *SQLiteRepository) SaveWallet(ctx context.Context, wallet *entities.Wallet) error {
	formattedTime := time.Now().Format(sqliteTimeFormat)

	query := `
		INSERT INTO wallet (id, balance, updated_at)
		VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			balance = ?,
			updated_at = ?
	`

	_, err := r.db.ExecContext(ctx, query,
		wallet.Balance, formattedTime,
		wallet.Balance, formattedTime,
	)
	if err != nil {
		return fmt.Errorf("error saving wallet: %w", err)
	}

	return nil
}

// AddBet appends a new slip
func (r *SQLiteRepository) AddBet(ctx context.Context, bet *entities.Bet) error {
	if bet.ID == "" {
		bet.ID = uuid.New().String()
	}
	if bet.PlacedAt.IsZero() {
		bet.PlacedAt = time.Now()
	}

	query := `INSERT INTO bets (id, type, amount, odds, status, placed_at) VALUES (?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		bet.ID, string(bet.Type), bet.Amount, bet.Odds, string(bet.Status),
		bet.PlacedAt.Format(sqliteTimeFormat),
	)
	if err != nil {
		return fmt.Errorf("error adding bet: %w", err)
	}

	return nil
}

// UpdateBetStatus moves a slip to a terminal status
func (r *SQLiteRepository) UpdateBetStatus(ctx context.Context, betID string, status entities.BetStatus) error {
	query := `UPDATE bets SET status = ? WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query, string(status), betID)
	if err != nil {
		return fmt.Errorf("error updating bet status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("error getting rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrBetNotFound
	}

	return nil
}

// GetBets retrieves all slips, most recent first
func (r *SQLiteRepository) GetBets(ctx context.Context) ([]*entities.Bet, error) {
	query := `SELECT id, type, amount, odds, status, placed_at FROM bets ORDER BY placed_at DESC`
	return r.queryBets(ctx, query)
}

// GetPendingBets retrieves only slips still awaiting resolution
func (r *SQLiteRepository) GetPendingBets(ctx context.Context) ([]*entities.Bet, error) {
	query := `SELECT id, type, amount, odds, status, placed_at FROM bets WHERE status = 'PENDING' ORDER BY placed_at DESC`
	return r.queryBets(ctx, query)
}

func (r *SQLiteRepository) queryBets(ctx context.Context, query string, args ...interface{}) ([]*entities.Bet, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying bets: %w", err)
	}
	defer rows.Close()

	var bets []*entities.Bet
	for rows.Next() {
		var bet entities.Bet
		var betType, status, placedAt string

		if err := rows.Scan(&bet.ID, &betType, &bet.Amount, &bet.Odds, &status, &placedAt); err != nil {
			return nil, fmt.Errorf("error scanning bet row: %w", err)
		}

		bet.Type = entities.BetType(betType)
		bet.Status = entities.BetStatus(status)
		bet.PlacedAt, err = parseTimestamp(placedAt)
		if err != nil {
			return nil, err
		}

		bets = append(bets, &bet)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating bet rows: %w", err)
	}

	return bets, nil
}

// AddTransaction records a new wallet transaction
func (r *SQLiteRepository) AddTransaction(ctx context.Context, transaction *entities.Transaction) error {
	if transaction.ID == "" {
		transaction.ID = uuid.New().String()
	}
	if transaction.Timestamp.IsZero() {
		transaction.Timestamp = time.Now()
	}

	query := `
		INSERT INTO transactions (
			id, amount, type, reference_id, description, timestamp, balance_after
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		transaction.ID,
		transaction.Amount,
		string(transaction.Type),
		transaction.ReferenceID,
		transaction.Description,
		transaction.Timestamp.Format(sqliteTimeFormat),
		transaction.BalanceAfter,
	)
	if err != nil {
		return fmt.Errorf("error adding transaction: %w", err)
	}

	return nil
}

// GetTransactions retrieves recent transactions, most recent first
func (r *SQLiteRepository) GetTransactions(ctx context.Context, limit int) ([]*entities.Transaction, error) {
	query := `
		SELECT id, amount, type, reference_id, description, timestamp, balance_after
		FROM transactions
		ORDER BY timestamp DESC
		LIMIT ?
	`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("error querying transactions: %w", err)
	}
	defer rows.Close()

	var transactions []*entities.Transaction
	for rows.Next() {
		var tx entities.Transaction
		var txType, timestamp string

		err := rows.Scan(
			&tx.ID,
			&tx.Amount,
			&txType,
			&tx.ReferenceID,
			&tx.Description,
			&timestamp,
			&tx.BalanceAfter,
		)
		if err != nil {
			return nil, fmt.Errorf("error scanning transaction row: %w", err)
		}

		tx.Type = entities.TransactionType(txType)
		tx.Timestamp, err = parseTimestamp(timestamp)
		if err != nil {
			return nil, err
		}

		transactions = append(transactions, &tx)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transaction rows: %w", err)
	}

	return transactions, nil
}

// Close closes the database connection
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}
