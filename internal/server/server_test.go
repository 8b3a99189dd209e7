package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chaosball/internal/broadcast"
	"chaosball/pkg/entities"
	ledgerRepo "chaosball/pkg/repositories/ledger"
	playlogRepo "chaosball/pkg/repositories/playlog"
	ledgerService "chaosball/pkg/services/ledger"
	matchService "chaosball/pkg/services/match"
)

// Stub generation client returning canned results
type stubGenClient struct{}

func (s *stubGenClient) GenerateMatchSetup(ctx context.Context, theme string) (*entities.MatchSetup, error) {
	return &entities.MatchSetup{
		Home:  entities.Team{Name: "Neon Vipers", Color: "green", Mascot: "Viper"},
		Away:  entities.Team{Name: "Iron Golems", Color: "gray", Mascot: "Golem"},
		Venue: "The Chrome Dome",
	}, nil
}

func (s *stubGenClient) GenerateNextPlay(ctx context.Context, state entities.GameState) (*entities.PlayUpdate, error) {
	return &entities.PlayUpdate{
		HomeScoreDelta:     3,
		TimeElapsedSeconds: 30,
		PlayDescription:    "three pointer",
		Commentary:         "bang",
		VisualPrompt:       "a shot",
		NewOdds:            entities.Odds{HomeWin: 1.5, AwayWin: 2.5, OverUnder: 1.8},
	}, nil
}

func (s *stubGenClient) GenerateKeyframe(ctx context.Context, prompt string) (string, error) {
	return "data:image/png;base64,AAAA", nil
}

func (s *stubGenClient) GenerateCommentaryAudio(ctx context.Context, text string) ([]byte, error) {
	return []byte{0x01}, nil
}

func (s *stubGenClient) GenerateReplay(ctx context.Context, prompt string) (string, error) {
	return "https://video.example/replay.mp4&key=test", nil
}

type discardAudio struct{}

func (discardAudio) Play(data []byte) error { return nil }

func newTestServer(t *testing.T) (*httptest.Server, *matchService.Service) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	wagers, err := ledgerService.NewService(ctx, ledgerRepo.NewMemoryRepository(),
		ledgerService.ResolverFunc(func(*entities.Bet, int, int, entities.Odds) (bool, bool) { return false, false }), 1000)
	require.NoError(t, err)

	playLog := playlogRepo.NewMemoryRepository()
	orchestrator := matchService.NewService(&stubGenClient{}, wagers, playLog, discardAudio{}, matchService.Config{
		QuarterLength: "15:00",
	})

	hub := broadcast.NewHub()
	go hub.Run(ctx)
	orchestrator.Subscribe(hub.Publish)

	srv := New(ctx, orchestrator, wagers, playLog, hub)
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts, orchestrator
}

func postJSON(t *testing.T, url string, body interface{}) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	resp, err := http.Post(url, "application/json", &buf)
	require.NoError(t, err)
	return resp
}

func decodeJSON(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func TestHealth(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestStateStartsIdle(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/state")
	require.NoError(t, err)

	var snap matchService.Snapshot
	decodeJSON(t, resp, &snap)
	assert.Equal(t, entities.StatusIdle, snap.State.Status)
	assert.Equal(t, "Cyber", snap.State.HomeTeam.Name)
}

func TestInitializeAndPlayFlow(t *testing.T) {
	ts, _ := newTestServer(t)

	resp := postJSON(t, ts.URL+"/api/match/initialize", nil)
	var snap matchService.Snapshot
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeJSON(t, resp, &snap)
	assert.Equal(t, entities.StatusPlaying, snap.State.Status)
	assert.Equal(t, "Neon Vipers", snap.State.HomeTeam.Name)

	resp = postJSON(t, ts.URL+"/api/match/play", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var playResp struct {
		Snapshot matchService.Snapshot `json:"snapshot"`
	}
	decodeJSON(t, resp, &playResp)
	assert.Equal(t, 3, playResp.Snapshot.State.HomeScore)
	assert.Equal(t, "14:30", playResp.Snapshot.State.TimeRemaining)
}

func TestPlayBeforeInitializeRejected(t *testing.T) {
	ts, _ := newTestServer(t)

	resp := postJSON(t, ts.URL+"/api/match/play", nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestReplayWithoutVisualRejected(t *testing.T) {
	ts, _ := newTestServer(t)

	resp := postJSON(t, ts.URL+"/api/match/replay", nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestPlaceBetFlow(t *testing.T) {
	ts, _ := newTestServer(t)
	postJSON(t, ts.URL+"/api/match/initialize", nil).Body.Close()

	resp := postJSON(t, ts.URL+"/api/bets", map[string]interface{}{
		"type":   "HOME_WIN",
		"amount": 100,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var bet entities.Bet
	decodeJSON(t, resp, &bet)
	assert.Equal(t, entities.BetPending, bet.Status)
	assert.Equal(t, 1.9, bet.Odds, "captures the odds in effect at placement")

	resp, err := http.Get(ts.URL + "/api/wallet")
	require.NoError(t, err)
	var wallet entities.Wallet
	decodeJSON(t, resp, &wallet)
	assert.Equal(t, int64(900), wallet.Balance)
}

func TestPlaceBetInsufficientFunds(t *testing.T) {
	ts, _ := newTestServer(t)

	resp := postJSON(t, ts.URL+"/api/bets", map[string]interface{}{
		"type":   "AWAY_WIN",
		"amount": 99999,
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusPaymentRequired, resp.StatusCode)
}

func TestPlaceBetBadRequest(t *testing.T) {
	ts, _ := newTestServer(t)

	resp := postJSON(t, ts.URL+"/api/bets", map[string]interface{}{
		"type":   "COIN_FLIP",
		"amount": 100,
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestWebSocketSeedsSnapshot(t *testing.T) {
	ts, _ := newTestServer(t)
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	// The first frame is the current snapshot, even before any intent
	conn.SetReadDeadline(time.Now().Add(time.Second))
	var snap matchService.Snapshot
	require.NoError(t, conn.ReadJSON(&snap))
	assert.Equal(t, entities.StatusIdle, snap.State.Status)
}

func TestWebSocketImmediateDisconnect(t *testing.T) {
	ts, _ := newTestServer(t)
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"

	// Viewers that connect and vanish immediately must not disturb the
	// server; later requests still work
	for i := 0; i < 5; i++ {
		conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
		require.NoError(t, err)
		conn.Close()
	}

	httpResp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer httpResp.Body.Close()
	assert.Equal(t, http.StatusOK, httpResp.StatusCode)
}

func TestPlaysArchive(t *testing.T) {
	ts, _ := newTestServer(t)
	postJSON(t, ts.URL+"/api/match/initialize", nil).Body.Close()
	postJSON(t, ts.URL+"/api/match/play", nil).Body.Close()
	postJSON(t, ts.URL+"/api/match/play", nil).Body.Close()

	resp, err := http.Get(ts.URL + "/api/plays?limit=10")
	require.NoError(t, err)
	var plays []entities.PlayRecord
	decodeJSON(t, resp, &plays)
	require.Len(t, plays, 2)
	assert.Equal(t, 2, plays[0].Sequence, "newest first")
	assert.Equal(t, 6, plays[0].HomeScore)
}
