package entities

import "time"

// BetType represents the four mutually exclusive bet markets
type BetType string

const (
	BetHomeWin BetType = "HOME_WIN"
	BetAwayWin BetType = "AWAY_WIN"
	BetOver    BetType = "OVER"
	BetUnder   BetType = "UNDER"
)

// IsValid reports whether t is one of the known bet markets
func (t BetType) IsValid() bool {
	switch t {
	case BetHomeWin, BetAwayWin, BetOver, BetUnder:
		return true
	}
	return false
}

// BetStatus represents the lifecycle of a slip. WON and LOST are terminal.
type BetStatus string

const (
	BetPending BetStatus = "PENDING"
	BetWon     BetStatus = "WON"
	BetLost    BetStatus = "LOST"
)

// Bet is a single wager slip. Odds are captured at placement time and
// never change afterwards, regardless of later odds movement.
type Bet struct {
	ID       string    `json:"id"`
	Type     BetType   `json:"type"`
	Amount   int64     `json:"amount"`
	Odds     float64   `json:"odds"`
	Status   BetStatus `json:"status"`
	PlacedAt time.Time `json:"placedAt"`
}

// Wallet represents the session's virtual currency balance
type Wallet struct {
	Balance     int64     `json:"balance"`
	LastUpdated time.Time `json:"lastUpdated"`
}

// TransactionType represents the type of wallet transaction
type TransactionType string

const (
	TransactionTypeBet    TransactionType = "BET"
	TransactionTypePayout TransactionType = "PAYOUT"
)

// Transaction represents a single wallet mutation
type Transaction struct {
	ID           string          `json:"id"`
	Amount       int64           `json:"amount"` // positive for credits, negative for debits
	Type         TransactionType `json:"type"`
	ReferenceID  string          `json:"referenceId"` // bet slip id
	Description  string          `json:"description"`
	Timestamp    time.Time       `json:"timestamp"`
	BalanceAfter int64           `json:"balanceAfter"`
}
