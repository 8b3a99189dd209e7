package ledger

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chaosball/pkg/entities"
	ledgerRepo "chaosball/pkg/repositories/ledger"
)

func alwaysWin(bet *entities.Bet, h, a int, odds entities.Odds) (bool, bool) {
	return true, true
}

func alwaysLose(bet *entities.Bet, h, a int, odds entities.Odds) (bool, bool) {
	return true, false
}

func never(bet *entities.Bet, h, a int, odds entities.Odds) (bool, bool) {
	return false, false
}

func newTestLedger(t *testing.T, resolver Resolver, balance int64) *Service {
	t.Helper()
	svc, err := NewService(context.Background(), ledgerRepo.NewMemoryRepository(), resolver, balance)
	require.NoError(t, err)
	return svc
}

func TestPlaceBet(t *testing.T) {
	svc := newTestLedger(t, ResolverFunc(never), 1000)
	ctx := context.Background()

	bet, err := svc.PlaceBet(ctx, entities.BetHomeWin, 100, 1.9)
	require.NoError(t, err)

	assert.Equal(t, entities.BetPending, bet.Status)
	assert.Equal(t, 1.9, bet.Odds)
	assert.Equal(t, int64(100), bet.Amount)
	assert.NotEmpty(t, bet.ID)

	wallet, err := svc.GetWallet(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(900), wallet.Balance)
}

func TestPlaceBetOddsFixedAtPlacement(t *testing.T) {
	svc := newTestLedger(t, ResolverFunc(never), 1000)
	ctx := context.Background()

	placed, err := svc.PlaceBet(ctx, entities.BetHomeWin, 100, 1.9)
	require.NoError(t, err)

	// Odds move after placement; the slip must not care
	err = svc.ResolvePending(ctx, 3, 0, entities.Odds{HomeWin: 5.0, AwayWin: 1.1, OverUnder: 2.2})
	require.NoError(t, err)

	bets, err := svc.GetBets(ctx)
	require.NoError(t, err)
	require.Len(t, bets, 1)
	assert.Equal(t, placed.ID, bets[0].ID)
	assert.Equal(t, 1.9, bets[0].Odds)
}

func TestPlaceBetValidation(t *testing.T) {
	svc := newTestLedger(t, ResolverFunc(never), 1000)
	ctx := context.Background()

	testCases := []struct {
		name    string
		betType entities.BetType
		amount  int64
		odds    float64
		wantErr error
	}{
		{"zero amount", entities.BetHomeWin, 0, 1.9, ErrInvalidAmount},
		{"negative amount", entities.BetHomeWin, -50, 1.9, ErrInvalidAmount},
		{"exceeds balance", entities.BetHomeWin, 5000, 1.9, ErrInsufficientFunds},
		{"unknown type", entities.BetType("COIN_FLIP"), 100, 1.9, ErrInvalidBetType},
		{"zero odds", entities.BetOver, 100, 0, ErrInvalidOdds},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.PlaceBet(ctx, tc.betType, tc.amount, tc.odds)
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}

	// Nothing above should have touched the wallet
	wallet, err := svc.GetWallet(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), wallet.Balance)
}

func TestStakeIsNonRefundable(t *testing.T) {
	svc := newTestLedger(t, ResolverFunc(never), 1000)
	ctx := context.Background()

	_, err := svc.PlaceBet(ctx, entities.BetUnder, 250, 2.0)
	require.NoError(t, err)

	// Many scoring plays, nothing resolves
	for i := 0; i < 5; i++ {
		require.NoError(t, svc.ResolvePending(ctx, 2, 0, entities.Odds{HomeWin: 1.9, AwayWin: 1.9, OverUnder: 1.9}))
	}

	wallet, err := svc.GetWallet(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(750), wallet.Balance, "unresolved stake stays deducted")

	bets, err := svc.GetBets(ctx)
	require.NoError(t, err)
	assert.Equal(t, entities.BetPending, bets[0].Status, "slip stays pending indefinitely")
}

func TestResolvePendingWinCreditsPlacementOdds(t *testing.T) {
	svc := newTestLedger(t, ResolverFunc(alwaysWin), 1000)
	ctx := context.Background()

	_, err := svc.PlaceBet(ctx, entities.BetHomeWin, 100, 1.9)
	require.NoError(t, err)

	err = svc.ResolvePending(ctx, 3, 0, entities.Odds{HomeWin: 9.9, AwayWin: 9.9, OverUnder: 9.9})
	require.NoError(t, err)

	wallet, err := svc.GetWallet(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1090), wallet.Balance, "900 after stake + 190 payout at placement odds")

	bets, err := svc.GetBets(ctx)
	require.NoError(t, err)
	assert.Equal(t, entities.BetWon, bets[0].Status)
}

func TestResolvePendingLoss(t *testing.T) {
	svc := newTestLedger(t, ResolverFunc(alwaysLose), 1000)
	ctx := context.Background()

	_, err := svc.PlaceBet(ctx, entities.BetAwayWin, 100, 2.5)
	require.NoError(t, err)

	err = svc.ResolvePending(ctx, 0, 2, entities.Odds{HomeWin: 1.9, AwayWin: 1.9, OverUnder: 1.9})
	require.NoError(t, err)

	wallet, err := svc.GetWallet(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(900), wallet.Balance, "losses pay nothing")

	bets, err := svc.GetBets(ctx)
	require.NoError(t, err)
	assert.Equal(t, entities.BetLost, bets[0].Status)
}

func TestResolvePendingRequiresAScore(t *testing.T) {
	svc := newTestLedger(t, ResolverFunc(alwaysWin), 1000)
	ctx := context.Background()

	_, err := svc.PlaceBet(ctx, entities.BetOver, 100, 1.8)
	require.NoError(t, err)

	// Scoreless play: nothing may resolve even with an eager policy
	err = svc.ResolvePending(ctx, 0, 0, entities.Odds{HomeWin: 1.9, AwayWin: 1.9, OverUnder: 1.9})
	require.NoError(t, err)

	bets, err := svc.GetBets(ctx)
	require.NoError(t, err)
	assert.Equal(t, entities.BetPending, bets[0].Status)
}

func TestResolvePendingSkipsSettledSlips(t *testing.T) {
	svc := newTestLedger(t, ResolverFunc(alwaysWin), 1000)
	ctx := context.Background()

	_, err := svc.PlaceBet(ctx, entities.BetHomeWin, 100, 2.0)
	require.NoError(t, err)

	require.NoError(t, svc.ResolvePending(ctx, 2, 0, entities.Odds{}))
	wallet, err := svc.GetWallet(ctx)
	require.NoError(t, err)
	balanceAfterFirst := wallet.Balance

	// A second resolution pass must not pay the same slip twice
	require.NoError(t, svc.ResolvePending(ctx, 2, 0, entities.Odds{}))
	wallet, err = svc.GetWallet(ctx)
	require.NoError(t, err)
	assert.Equal(t, balanceAfterFirst, wallet.Balance)
}

func TestTransactionsRecorded(t *testing.T) {
	svc := newTestLedger(t, ResolverFunc(alwaysWin), 1000)
	ctx := context.Background()

	bet, err := svc.PlaceBet(ctx, entities.BetHomeWin, 100, 1.9)
	require.NoError(t, err)
	require.NoError(t, svc.ResolvePending(ctx, 3, 0, entities.Odds{}))

	transactions, err := svc.GetRecentTransactions(ctx, 10)
	require.NoError(t, err)
	require.Len(t, transactions, 2)

	// Most recent first: payout then stake
	assert.Equal(t, entities.TransactionTypePayout, transactions[0].Type)
	assert.Equal(t, int64(190), transactions[0].Amount)
	assert.Equal(t, bet.ID, transactions[0].ReferenceID)
	assert.Equal(t, entities.TransactionTypeBet, transactions[1].Type)
	assert.Equal(t, int64(-100), transactions[1].Amount)
}

func TestBetsOrderedMostRecentFirst(t *testing.T) {
	svc := newTestLedger(t, ResolverFunc(never), 1000)
	ctx := context.Background()

	first, err := svc.PlaceBet(ctx, entities.BetHomeWin, 10, 1.9)
	require.NoError(t, err)
	second, err := svc.PlaceBet(ctx, entities.BetAwayWin, 10, 2.1)
	require.NoError(t, err)

	bets, err := svc.GetBets(ctx)
	require.NoError(t, err)
	require.Len(t, bets, 2)
	assert.Equal(t, second.ID, bets[0].ID)
	assert.Equal(t, first.ID, bets[1].ID)
}

func TestConcurrentPlaceBetNeverOverdraws(t *testing.T) {
	svc := newTestLedger(t, ResolverFunc(never), 1000)
	ctx := context.Background()

	// 20 racing stakes of 100 against a balance of 1000: exactly ten
	// may succeed, and no interleaving may lose a deduction
	const stakes = 20
	var wg sync.WaitGroup
	var placed atomic.Int64
	wg.Add(stakes)
	for i := 0; i < stakes; i++ {
		go func() {
			defer wg.Done()
			_, err := svc.PlaceBet(ctx, entities.BetHomeWin, 100, 1.9)
			if err == nil {
				placed.Add(1)
			} else {
				assert.ErrorIs(t, err, ErrInsufficientFunds)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(10), placed.Load())

	wallet, err := svc.GetWallet(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), wallet.Balance)
}

func TestConcurrentResolutionAndPlacementKeepBalanceConsistent(t *testing.T) {
	// Only HOME_WIN slips settle, so the racing AWAY_WIN stake below
	// stays pending no matter how the calls interleave
	onlyHomeWins := ResolverFunc(func(bet *entities.Bet, h, a int, odds entities.Odds) (bool, bool) {
		return bet.Type == entities.BetHomeWin, true
	})
	svc := newTestLedger(t, onlyHomeWins, 1000)
	ctx := context.Background()

	seed, err := svc.PlaceBet(ctx, entities.BetHomeWin, 100, 2.0)
	require.NoError(t, err)

	// A payout of the seed slip races a second stake; both mutations
	// must land
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		assert.NoError(t, svc.ResolvePending(ctx, 2, 0, entities.Odds{HomeWin: 1.9, AwayWin: 1.9, OverUnder: 1.9}))
	}()
	go func() {
		defer wg.Done()
		_, err := svc.PlaceBet(ctx, entities.BetAwayWin, 50, 1.9)
		assert.NoError(t, err)
	}()
	wg.Wait()

	// 1000 - 100 (seed) + 200 (payout) - 50 (second stake)
	wallet, err := svc.GetWallet(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1050), wallet.Balance)

	bets, err := svc.GetBets(ctx)
	require.NoError(t, err)
	for _, bet := range bets {
		if bet.ID == seed.ID {
			assert.Equal(t, entities.BetWon, bet.Status)
		}
	}
}
