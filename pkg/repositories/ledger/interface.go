package ledger

import (
	"context"
	"errors"

	"chaosball/pkg/entities"
)

var (
	ErrWalletNotFound = errors.New("wallet not found")
	ErrBetNotFound    = errors.New("bet not found")
)

// Repository defines the interface for wager ledger data operations.
// The ledger is session-wide: one wallet, one list of slips.
type Repository interface {
	// GetWallet retrieves the session wallet
	GetWallet(ctx context.Context) (*entities.Wallet, error)

	// SaveWallet creates or updates the session wallet
	SaveWallet(ctx context.Context, wallet *entities.Wallet) error

	// AddBet appends a new slip. Slips are returned most recent first.
	AddBet(ctx context.Context, bet *entities.Bet) error

	// UpdateBetStatus moves a slip to a terminal status
	UpdateBetStatus(ctx context.Context, betID string, status entities.BetStatus) error

	// GetBets retrieves all slips, most recent first
	GetBets(ctx context.Context) ([]*entities.Bet, error)

	// GetPendingBets retrieves only slips still awaiting resolution
	GetPendingBets(ctx context.Context) ([]*entities.Bet, error)

	// AddTransaction records a new wallet transaction
	AddTransaction(ctx context.Context, transaction *entities.Transaction) error

	// GetTransactions retrieves recent transactions, most recent first
	GetTransactions(ctx context.Context, limit int) ([]*entities.Transaction, error)

	// Close releases any underlying resources
	Close() error
}
