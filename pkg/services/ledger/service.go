package ledger

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"chaosball/pkg/entities"
	ledgerRepo "chaosball/pkg/repositories/ledger"
)

var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrInvalidAmount     = errors.New("amount must be positive")
	ErrInvalidBetType    = errors.New("unknown bet type")
	ErrInvalidOdds       = errors.New("odds must be positive")
)

// Service handles wager ledger business logic
type Service struct {
	repo     ledgerRepo.Repository
	resolver Resolver

	// Serializes the wallet read-modify-write so a bet placed over HTTP
	// cannot interleave with a payout and lose either update
	mu sync.Mutex
}

// NewService creates a new ledger service with the given resolution policy
// and seeds the wallet with the starting balance if none exists yet.
func NewService(ctx context.Context, repo ledgerRepo.Repository, resolver Resolver, startingBalance int64) (*Service, error) {
	if resolver == nil {
		resolver = NewRandomResolver()
	}

	s := &Service{
		repo:     repo,
		resolver: resolver,
	}

	if _, err := repo.GetWallet(ctx); err != nil {
		if !errors.Is(err, ledgerRepo.ErrWalletNotFound) {
			return nil, fmt.Errorf("error checking wallet: %w", err)
		}
		wallet := &entities.Wallet{
			Balance:     startingBalance,
			LastUpdated: time.Now(),
		}
		if err := repo.SaveWallet(ctx, wallet); err != nil {
			return nil, fmt.Errorf("error seeding wallet: %w", err)
		}
		log.Printf("[LEDGER] Seeded wallet with starting balance %d", startingBalance)
	}

	return s, nil
}

// GetWallet returns the current session wallet
func (s *Service) GetWallet(ctx context.Context) (*entities.Wallet, error) {
	return s.repo.GetWallet(ctx)
}

// GetBets returns all slips, most recent first
func (s *Service) GetBets(ctx context.Context) ([]*entities.Bet, error) {
	return s.repo.GetBets(ctx)
}

// GetRecentTransactions retrieves recent wallet transactions
func (s *Service) GetRecentTransactions(ctx context.Context, limit int) ([]*entities.Transaction, error) {
	return s.repo.GetTransactions(ctx, limit)
}

// PlaceBet deducts the stake from the wallet and appends a PENDING slip
// capturing the odds in effect right now. Later odds movement never
// affects an existing slip.
func (s *Service) PlaceBet(ctx context.Context, betType entities.BetType, amount int64, odds float64) (*entities.Bet, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if odds <= 0 {
		return nil, ErrInvalidOdds
	}
	if !betType.IsValid() {
		return nil, ErrInvalidBetType
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	wallet, err := s.repo.GetWallet(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting wallet: %w", err)
	}

	// The UI disables the form when the stake exceeds the balance, but
	// the ledger re-validates anyway
	if wallet.Balance < amount {
		return nil, ErrInsufficientFunds
	}

	wallet.Balance -= amount
	wallet.LastUpdated = time.Now()
	if err := s.repo.SaveWallet(ctx, wallet); err != nil {
		return nil, fmt.Errorf("error saving wallet: %w", err)
	}

	bet := &entities.Bet{
		ID:       uuid.New().String(),
		Type:     betType,
		Amount:   amount,
		Odds:     odds,
		Status:   entities.BetPending,
		PlacedAt: time.Now(),
	}
	if err := s.repo.AddBet(ctx, bet); err != nil {
		return nil, fmt.Errorf("error adding bet: %w", err)
	}

	log.Printf("[LEDGER] Placed %s bet: amount=%d odds=%.2f balance=%d", bet.Type, amount, odds, wallet.Balance)

	transaction := &entities.Transaction{
		ID:           uuid.New().String(),
		Amount:       -amount,
		Type:         entities.TransactionTypeBet,
		ReferenceID:  bet.ID,
		Description:  fmt.Sprintf("%s stake", bet.Type),
		Timestamp:    time.Now(),
		BalanceAfter: wallet.Balance,
	}
	if err := s.repo.AddTransaction(ctx, transaction); err != nil {
		log.Printf("[LEDGER] Error recording bet transaction: %v", err)
	}

	return bet, nil
}

// ResolvePending runs the resolution policy over all PENDING slips after
// a committed play. Slips the policy leaves alone stay PENDING
// indefinitely; there is no forced settlement at the end of a match.
// Wins credit the wallet with amount x placement-time odds.
func (s *Service) ResolvePending(ctx context.Context, homeScoreDelta, awayScoreDelta int, currentOdds entities.Odds) error {
	// The policy only fires when somebody scored this play
	if homeScoreDelta <= 0 && awayScoreDelta <= 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	pending, err := s.repo.GetPendingBets(ctx)
	if err != nil {
		return fmt.Errorf("error getting pending bets: %w", err)
	}

	for _, bet := range pending {
		resolved, won := s.resolver.Resolve(bet, homeScoreDelta, awayScoreDelta, currentOdds)
		if !resolved {
			continue
		}

		status := entities.BetLost
		if won {
			status = entities.BetWon
		}

		if err := s.repo.UpdateBetStatus(ctx, bet.ID, status); err != nil {
			log.Printf("[LEDGER] Error updating bet %s: %v", bet.ID, err)
			continue
		}

		if !won {
			log.Printf("[LEDGER] Bet %s resolved LOST", bet.ID)
			continue
		}

		// Payout uses the odds captured at placement, not currentOdds
		payout := int64(float64(bet.Amount) * bet.Odds)

		wallet, err := s.repo.GetWallet(ctx)
		if err != nil {
			return fmt.Errorf("error getting wallet for payout: %w", err)
		}
		wallet.Balance += payout
		wallet.LastUpdated = time.Now()
		if err := s.repo.SaveWallet(ctx, wallet); err != nil {
			return fmt.Errorf("error crediting payout: %w", err)
		}

		log.Printf("[LEDGER] Bet %s resolved WON, payout=%d balance=%d", bet.ID, payout, wallet.Balance)

		transaction := &entities.Transaction{
			ID:           uuid.New().String(),
			Amount:       payout,
			Type:         entities.TransactionTypePayout,
			ReferenceID:  bet.ID,
			Description:  fmt.Sprintf("%s payout at %.2f", bet.Type, bet.Odds),
			Timestamp:    time.Now(),
			BalanceAfter: wallet.Balance,
		}
		if err := s.repo.AddTransaction(ctx, transaction); err != nil {
			log.Printf("[LEDGER] Error recording payout transaction: %v", err)
		}
	}

	return nil
}
