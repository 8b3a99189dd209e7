package match

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"chaosball/pkg/entities"
	"chaosball/pkg/generation"
	playlogRepo "chaosball/pkg/repositories/playlog"
	ledgerService "chaosball/pkg/services/ledger"
)

var (
	ErrMatchBusy        = errors.New("another play or setup call is in flight")
	ErrMatchNotIdle     = errors.New("match already initialized")
	ErrMatchNotStarted  = errors.New("match not started")
	ErrMatchFinished    = errors.New("match is finished")
	ErrNoVisual         = errors.New("no current visual to replay")
	ErrReplayInProgress = errors.New("replay already in progress")
)

const finalQuarter = 4

// AudioPlayer renders a returned audio buffer. Playback failures are
// isolated from the rest of the turn.
type AudioPlayer interface {
	Play(data []byte) error
}

// Snapshot is the immutable view handed to observers after every atomic
// state commit. Observers never see a partially applied play.
type Snapshot struct {
	State      entities.GameState       `json:"state"`
	Visual     *entities.GeneratedVisual `json:"visual,omitempty"`
	Processing bool                     `json:"processing"`
	Replaying  bool                     `json:"replaying"`
	LastError  string                   `json:"lastError,omitempty"`
}

// PlayOutcome reports one completed turn. MediaErr fields are non-fatal:
// the play is committed even when the dependent media calls fail.
type PlayOutcome struct {
	Update    *entities.PlayUpdate
	VisualErr error
	AudioErr  error
}

// Config holds orchestrator settings
type Config struct {
	Theme         string
	QuarterLength string // mm:ss clock at the start of each quarter
}

// Service owns the authoritative GameState and sequences the turn
// lifecycle: setup, play, optional replay. All mutation happens here;
// collaborators only read snapshots and call intents.
type Service struct {
	gen     generation.Client
	ledger  *ledgerService.Service
	playLog playlogRepo.Repository
	audio   AudioPlayer
	cfg     Config

	mu        sync.Mutex
	state     entities.GameState
	visual    *entities.GeneratedVisual
	playCount int
	lastError string

	// Re-entrancy guards. At most one play/setup call and at most one
	// replay may be outstanding at a time.
	processing atomic.Bool
	replaying  atomic.Bool

	subsMu      sync.RWMutex
	subscribers []func(Snapshot)
}

// NewService creates a match orchestrator with placeholder teams and an
// IDLE status
func NewService(gen generation.Client, ledger *ledgerService.Service, playLog playlogRepo.Repository, audio AudioPlayer, cfg Config) *Service {
	if cfg.QuarterLength == "" {
		cfg.QuarterLength = "15:00"
	}

	return &Service{
		gen:     gen,
		ledger:  ledger,
		playLog: playLog,
		audio:   audio,
		cfg:     cfg,
		state: entities.GameState{
			ID:                  "match-" + uuid.New().String(),
			HomeTeam:            entities.Team{Name: "Cyber", Color: "blue", Mascot: "Droids"},
			AwayTeam:            entities.Team{Name: "Terra", Color: "red", Mascot: "Titans"},
			Quarter:             1,
			TimeRemaining:       cfg.QuarterLength,
			Possession:          entities.PossessionHome,
			LastPlayDescription: "Match starting...",
			Commentary:          "Welcome to ChaosBall!",
			Odds:                entities.Odds{HomeWin: 1.9, AwayWin: 1.9, OverUnder: 1.9},
			Status:              entities.StatusIdle,
		},
	}
}

// Subscribe registers a callback invoked with a fresh snapshot after
// every committed state change
func (s *Service) Subscribe(fn func(Snapshot)) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	s.subscribers = append(s.subscribers, fn)
}

// Snapshot returns the current state, visual, and busy flags
func (s *Service) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Service) snapshotLocked() Snapshot {
	snap := Snapshot{
		State:      s.state,
		Processing: s.processing.Load(),
		Replaying:  s.replaying.Load(),
		LastError:  s.lastError,
	}
	if s.visual != nil {
		visualCopy := *s.visual
		snap.Visual = &visualCopy
	}
	return snap
}

func (s *Service) publish(snap Snapshot) {
	s.subsMu.RLock()
	subs := make([]func(Snapshot), len(s.subscribers))
	copy(subs, s.subscribers)
	s.subsMu.RUnlock()

	for _, fn := range subs {
		fn(snap)
	}
}

// Initialize generates the matchup and the opening arena keyframe, then
// transitions the match to PLAYING. Failure of either generation call
// leaves the match IDLE with no partial state applied.
func (s *Service) Initialize(ctx context.Context) error {
	if !s.processing.CompareAndSwap(false, true) {
		return ErrMatchBusy
	}
	defer s.processing.Store(false)

	s.mu.Lock()
	if s.state.Status != entities.StatusIdle {
		s.mu.Unlock()
		return ErrMatchNotIdle
	}
	s.mu.Unlock()

	setup, err := s.gen.GenerateMatchSetup(ctx, s.cfg.Theme)
	if err != nil {
		s.setLastError(fmt.Sprintf("match setup failed: %v", err))
		return fmt.Errorf("match setup failed: %w", err)
	}

	arenaPrompt := fmt.Sprintf("Wide shot of futuristic sports arena, %s, crowds cheering, neon lights.", setup.Venue)
	imageURL, err := s.gen.GenerateKeyframe(ctx, arenaPrompt)
	if err != nil {
		s.setLastError(fmt.Sprintf("arena keyframe failed: %v", err))
		return fmt.Errorf("arena keyframe failed: %w", err)
	}

	// Both calls succeeded; commit everything at once
	s.mu.Lock()
	s.state.HomeTeam = setup.Home
	s.state.AwayTeam = setup.Away
	s.state.Status = entities.StatusPlaying
	s.state.Commentary = fmt.Sprintf("We are live from %s! %s taking on %s.", setup.Venue, setup.Home.Name, setup.Away.Name)
	s.visual = &entities.GeneratedVisual{Type: entities.VisualImage, URL: imageURL, Prompt: "Arena View"}
	s.lastError = ""
	snap := s.snapshotLocked()
	s.mu.Unlock()

	log.Printf("[MATCH] Initialized: %s vs %s at %s", setup.Home.Name, setup.Away.Name, setup.Venue)
	s.publish(snap)
	return nil
}

// AdvancePlay runs one turn: it requests the next play conditioned on the
// current state snapshot, commits the resulting delta atomically, then
// fans out the dependent image and audio requests concurrently. A play
// generation failure aborts the turn with no state change; media failures
// after the commit are reported in the outcome but the turn stands.
func (s *Service) AdvancePlay(ctx context.Context) (*PlayOutcome, error) {
	if !s.processing.CompareAndSwap(false, true) {
		return nil, ErrMatchBusy
	}
	defer s.processing.Store(false)

	s.mu.Lock()
	switch s.state.Status {
	case entities.StatusIdle:
		s.mu.Unlock()
		return nil, ErrMatchNotStarted
	case entities.StatusFinished:
		s.mu.Unlock()
		return nil, ErrMatchFinished
	}
	stateSnapshot := s.state
	s.mu.Unlock()

	update, err := s.gen.GenerateNextPlay(ctx, stateSnapshot)
	if err != nil {
		s.setLastError(fmt.Sprintf("play generation failed: %v", err))
		return nil, fmt.Errorf("play generation failed: %w", err)
	}

	homeDelta, awayDelta := clampDelta(update.HomeScoreDelta), clampDelta(update.AwayScoreDelta)
	if homeDelta != update.HomeScoreDelta || awayDelta != update.AwayScoreDelta {
		log.Printf("[MATCH] Clamped negative score deltas (home %d, away %d)", update.HomeScoreDelta, update.AwayScoreDelta)
	}

	// Commit the play as one atomic state replacement
	s.mu.Lock()
	newClock, err := advanceClock(s.state.TimeRemaining, update.TimeElapsedSeconds)
	if err != nil {
		// A corrupt clock means earlier state was bad; reset it rather
		// than aborting the committed turn
		log.Printf("[MATCH] Clock error: %v, resetting to %s", err, s.cfg.QuarterLength)
		newClock = s.cfg.QuarterLength
	}

	s.state.HomeScore += homeDelta
	s.state.AwayScore += awayDelta
	s.state.TimeRemaining = newClock
	s.state.LastPlayDescription = update.PlayDescription
	s.state.Commentary = update.Commentary
	s.state.Odds = update.NewOdds
	s.state.Possession = s.state.Possession.Toggle()
	if newClock == "0:00" {
		if s.state.Quarter < finalQuarter {
			s.state.Quarter++
			s.state.TimeRemaining = s.cfg.QuarterLength
			log.Printf("[MATCH] Quarter %d begins", s.state.Quarter)
		} else {
			s.state.Status = entities.StatusFinished
			log.Printf("[MATCH] Full time: %d - %d", s.state.HomeScore, s.state.AwayScore)
		}
	}
	s.playCount++
	s.lastError = ""
	record := &entities.PlayRecord{
		MatchID:         s.state.ID,
		Sequence:        s.playCount,
		Quarter:         s.state.Quarter,
		TimeRemaining:   s.state.TimeRemaining,
		HomeScore:       s.state.HomeScore,
		AwayScore:       s.state.AwayScore,
		PlayDescription: update.PlayDescription,
		Commentary:      update.Commentary,
		IsBigPlay:       update.IsBigPlay,
	}
	snap := s.snapshotLocked()
	s.mu.Unlock()

	log.Printf("[MATCH] Play %d committed: %d - %d, Q%d %s", record.Sequence, record.HomeScore, record.AwayScore, record.Quarter, record.TimeRemaining)
	s.publish(snap)

	if err := s.playLog.AppendPlay(ctx, record); err != nil {
		log.Printf("[MATCH] Error archiving play %d: %v", record.Sequence, err)
	}

	outcome := &PlayOutcome{Update: update}

	// Fan out the dependent media requests concurrently, strictly after
	// the state commit. One failing must not cancel the other.
	var wg sync.WaitGroup
	var imageURL string
	var audioData []byte

	wg.Add(2)
	go func() {
		defer wg.Done()
		imageURL, outcome.VisualErr = s.gen.GenerateKeyframe(ctx, update.VisualPrompt)
	}()
	go func() {
		defer wg.Done()
		audioData, outcome.AudioErr = s.gen.GenerateCommentaryAudio(ctx, update.Commentary)
	}()
	wg.Wait()

	if outcome.VisualErr != nil {
		log.Printf("[MATCH] Keyframe generation failed: %v", outcome.VisualErr)
		s.setLastError(fmt.Sprintf("keyframe failed: %v", outcome.VisualErr))
	} else {
		s.mu.Lock()
		s.visual = &entities.GeneratedVisual{Type: entities.VisualImage, URL: imageURL, Prompt: update.VisualPrompt}
		visualSnap := s.snapshotLocked()
		s.mu.Unlock()
		s.publish(visualSnap)
	}

	if outcome.AudioErr != nil {
		log.Printf("[MATCH] Commentary audio failed: %v", outcome.AudioErr)
	} else if s.audio != nil {
		if err := s.audio.Play(audioData); err != nil {
			log.Printf("[MATCH] Audio playback failed: %v", err)
			outcome.AudioErr = err
		}
	}

	if err := s.ledger.ResolvePending(ctx, homeDelta, awayDelta, update.NewOdds); err != nil {
		log.Printf("[MATCH] Bet resolution failed: %v", err)
	}

	return outcome, nil
}

// RequestReplay launches an asynchronous video replay derived from the
// current visual's prompt. The caller is not blocked on the poll loop;
// the replaying flag stays set until the loop terminates, success or
// failure. On success the visual is replaced wholesale by the video
// variant; on failure it is left untouched.
func (s *Service) RequestReplay(ctx context.Context) error {
	if s.processing.Load() {
		// Don't race a mid-flight play over the visual swap
		return ErrMatchBusy
	}
	if !s.replaying.CompareAndSwap(false, true) {
		return ErrReplayInProgress
	}

	s.mu.Lock()
	if s.visual == nil || s.visual.Prompt == "" {
		s.mu.Unlock()
		s.replaying.Store(false)
		return ErrNoVisual
	}
	prompt := s.visual.Prompt
	s.mu.Unlock()

	go func() {
		defer func() {
			s.replaying.Store(false)
			s.publish(s.Snapshot())
		}()

		videoURL, err := s.gen.GenerateReplay(ctx, prompt)
		if err != nil {
			log.Printf("[MATCH] Replay generation failed: %v", err)
			s.setLastError(fmt.Sprintf("replay failed: %v", err))
			return
		}

		s.mu.Lock()
		s.visual = &entities.GeneratedVisual{Type: entities.VisualVideo, URL: videoURL, Prompt: prompt}
		s.lastError = ""
		s.mu.Unlock()
		log.Printf("[MATCH] Replay ready")
	}()

	return nil
}

func (s *Service) setLastError(msg string) {
	s.mu.Lock()
	s.lastError = msg
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.publish(snap)
}

func clampDelta(delta int) int {
	if delta < 0 {
		return 0
	}
	return delta
}
