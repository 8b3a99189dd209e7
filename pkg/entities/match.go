package entities

// MatchStatus represents the lifecycle phase of a match
type MatchStatus string

const (
	StatusIdle     MatchStatus = "IDLE"
	StatusPlaying  MatchStatus = "PLAYING"
	StatusFinished MatchStatus = "FINISHED"
)

// Possession indicates which side has the ball
type Possession string

const (
	PossessionHome Possession = "home"
	PossessionAway Possession = "away"
)

// Toggle returns the opposite possession
func (p Possession) Toggle() Possession {
	if p == PossessionHome {
		return PossessionAway
	}
	return PossessionHome
}

// Team represents one side of a match
type Team struct {
	Name   string `json:"name"`
	Color  string `json:"color"`
	Mascot string `json:"mascot"`
}

// Odds holds the payout multipliers for the three bet markets
type Odds struct {
	HomeWin   float64 `json:"homeWin"`
	AwayWin   float64 `json:"awayWin"`
	OverUnder float64 `json:"overUnder"`
}

// GameState is the authoritative snapshot of one match
type GameState struct {
	ID                  string      `json:"id"`
	HomeTeam            Team        `json:"homeTeam"`
	AwayTeam            Team        `json:"awayTeam"`
	HomeScore           int         `json:"homeScore"`
	AwayScore           int         `json:"awayScore"`
	Quarter             int         `json:"quarter"`
	TimeRemaining       string      `json:"timeRemaining"` // mm:ss
	Possession          Possession  `json:"possession"`
	LastPlayDescription string      `json:"lastPlayDescription"`
	Commentary          string      `json:"commentary"`
	Odds                Odds        `json:"odds"`
	Status              MatchStatus `json:"status"`
}

// MatchSetup is the generated matchup used to initialize a game
type MatchSetup struct {
	Home  Team   `json:"home"`
	Away  Team   `json:"away"`
	Venue string `json:"venue"`
}

// PlayUpdate is a single model-generated play delta. It is consumed once
// by the orchestrator and discarded.
type PlayUpdate struct {
	HomeScoreDelta     int    `json:"homeScoreDelta"`
	AwayScoreDelta     int    `json:"awayScoreDelta"`
	TimeElapsedSeconds int    `json:"timeElapsedSeconds"`
	PlayDescription    string `json:"playDescription"`
	Commentary         string `json:"commentary"`
	VisualPrompt       string `json:"visualPrompt"`
	// IsBigPlay is produced by the model but currently reserved; nothing
	// gates on it yet.
	IsBigPlay bool `json:"isBigPlay"`
	NewOdds   Odds `json:"newOdds"`
}

// VisualType discriminates the currently displayed media artifact
type VisualType string

const (
	VisualImage VisualType = "image"
	VisualVideo VisualType = "video"
)

// GeneratedVisual is the media artifact currently on the broadcast screen.
// Prompt is retained so a replay request can reuse it.
type GeneratedVisual struct {
	Type   VisualType `json:"type"`
	URL    string     `json:"url"`
	Prompt string     `json:"prompt"`
}

// PlayRecord is an archived committed play, one per completed turn
type PlayRecord struct {
	MatchID         string `json:"matchId"`
	Sequence        int    `json:"sequence"`
	Quarter         int    `json:"quarter"`
	TimeRemaining   string `json:"timeRemaining"`
	HomeScore       int    `json:"homeScore"`
	AwayScore       int    `json:"awayScore"`
	PlayDescription string `json:"playDescription"`
	Commentary      string `json:"commentary"`
	IsBigPlay       bool   `json:"isBigPlay"`
}
