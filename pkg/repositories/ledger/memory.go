package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"chaosball/pkg/entities"
)

// MemoryRepository implements Repository using in-memory storage
type MemoryRepository struct {
	wallet       *entities.Wallet
	bets         []*entities.Bet
	transactions []*entities.Transaction
	mu           sync.RWMutex
}

// NewMemoryRepository creates a new in-memory ledger repository
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		bets:         make([]*entities.Bet, 0),
		transactions: make([]*entities.Transaction, 0),
	}
}

// GetWallet retrieves the session wallet
func (r *MemoryRepository) GetWallet(ctx context.Context) (*entities.Wallet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.wallet == nil {
		return nil, ErrWalletNotFound
	}

	// Return a copy to prevent concurrent modification
	walletCopy := *r.wallet
	return &walletCopy, nil
}

// SaveWallet creates or updates the session wallet
func (r *MemoryRepository) SaveWallet(ctx context.Context, wallet *entities.Wallet) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	wallet.LastUpdated = time.Now()
	walletCopy := *wallet
	r.wallet = &walletCopy

	return nil
}

// AddBet appends a new slip, most recent first
func (r *MemoryRepository) AddBet(ctx context.Context, bet *entities.Bet) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if bet.ID == "" {
		bet.ID = uuid.New().String()
	}
	if bet.PlacedAt.IsZero() {
		bet.PlacedAt = time.Now()
	}

	betCopy := *bet
	// Prepend so display order is most recent first
	r.bets = append([]*entities.Bet{&betCopy}, r.bets...)

	return nil
}

// UpdateBetStatus moves a slip to a terminal status
func (r *MemoryRepository) UpdateBetStatus(ctx context.Context, betID string, status entities.BetStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, bet := range r.bets {
		if bet.ID == betID {
			bet.Status = status
			return nil
		}
	}

	return ErrBetNotFound
}

// GetBets retrieves all slips, most recent first
func (r *MemoryRepository) GetBets(ctx context.Context) ([]*entities.Bet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*entities.Bet, 0, len(r.bets))
	for _, bet := range r.bets {
		betCopy := *bet
		result = append(result, &betCopy)
	}

	return result, nil
}

// GetPendingBets retrieves only slips still awaiting resolution
func (r *MemoryRepository) GetPendingBets(ctx context.Context) ([]*entities.Bet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*entities.Bet, 0)
	for _, bet := range r.bets {
		if bet.Status == entities.BetPending {
			betCopy := *bet
			result = append(result, &betCopy)
		}
	}

	return result, nil
}

// AddTransaction records a new wallet transaction
func (r *MemoryRepository) AddTransaction(ctx context.Context, transaction *entities.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if transaction.ID == "" {
		transaction.ID = uuid.New().String()
	}
	if transaction.Timestamp.IsZero() {
		transaction.Timestamp = time.Now()
	}

	txCopy := *transaction
	r.transactions = append(r.transactions, &txCopy)

	return nil
}

// GetTransactions retrieves recent transactions, most recent first
func (r *MemoryRepository) GetTransactions(ctx context.Context, limit int) ([]*entities.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*entities.Transaction, 0, limit)
	for i := len(r.transactions) - 1; i >= 0 && len(result) < limit; i-- {
		txCopy := *r.transactions[i]
		result = append(result, &txCopy)
	}

	return result, nil
}

// Close is a no-op for the in-memory repository
func (r *MemoryRepository) Close() error {
	return nil
}
