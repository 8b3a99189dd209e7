package ledger

import (
	"math/rand"
	"time"

	"chaosball/pkg/entities"
)

// Resolver decides whether a pending slip settles after a scoring play,
// and if so whether it won. It is a demo placeholder surface, not a fair
// settlement engine; currentOdds is passed for future policies but the
// default ignores it.
type Resolver interface {
	Resolve(bet *entities.Bet, homeScoreDelta, awayScoreDelta int, currentOdds entities.Odds) (resolved bool, won bool)
}

// RandomResolver settles roughly one pending slip in ten per scoring play,
// with an even win/lose split unrelated to the actual match outcome.
type RandomResolver struct {
	rng *rand.Rand

	resolveChance float64
	winChance     float64
}

// NewRandomResolver creates the default demo resolution policy
func NewRandomResolver() *RandomResolver {
	return &RandomResolver{
		rng:           rand.New(rand.NewSource(time.Now().UnixNano())),
		resolveChance: 0.1,
		winChance:     0.5,
	}
}

// Resolve applies the random policy to one slip
func (r *RandomResolver) Resolve(bet *entities.Bet, homeScoreDelta, awayScoreDelta int, currentOdds entities.Odds) (bool, bool) {
	if r.rng.Float64() >= r.resolveChance {
		return false, false
	}
	return true, r.rng.Float64() < r.winChance
}

// ResolverFunc adapts a function to the Resolver interface
type ResolverFunc func(bet *entities.Bet, homeScoreDelta, awayScoreDelta int, currentOdds entities.Odds) (bool, bool)

// Resolve calls f
func (f ResolverFunc) Resolve(bet *entities.Bet, homeScoreDelta, awayScoreDelta int, currentOdds entities.Odds) (bool, bool) {
	return f(bet, homeScoreDelta, awayScoreDelta, currentOdds)
}
