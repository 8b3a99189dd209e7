package playlog

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chaosball/pkg/entities"
)

func appendPlays(t *testing.T, repo *MemoryRepository, matchID string, n int) {
	t.Helper()
	for i := 1; i <= n; i++ {
		err := repo.AppendPlay(context.Background(), &entities.PlayRecord{
			MatchID:         matchID,
			Sequence:        i,
			Quarter:         1,
			TimeRemaining:   "14:30",
			HomeScore:       i * 2,
			PlayDescription: fmt.Sprintf("play %d", i),
		})
		require.NoError(t, err)
	}
}

func TestGetPlaysNewestFirst(t *testing.T) {
	repo := NewMemoryRepository()
	appendPlays(t, repo, "match-1", 3)

	plays, err := repo.GetPlays(context.Background(), "match-1", 10)
	require.NoError(t, err)
	require.Len(t, plays, 3)
	assert.Equal(t, 3, plays[0].Sequence)
	assert.Equal(t, 1, plays[2].Sequence)
}

func TestGetPlaysRespectsLimit(t *testing.T) {
	repo := NewMemoryRepository()
	appendPlays(t, repo, "match-1", 5)

	plays, err := repo.GetPlays(context.Background(), "match-1", 2)
	require.NoError(t, err)
	require.Len(t, plays, 2)
	assert.Equal(t, 5, plays[0].Sequence)
	assert.Equal(t, 4, plays[1].Sequence)
}

func TestGetPlaysUnknownMatch(t *testing.T) {
	repo := NewMemoryRepository()

	plays, err := repo.GetPlays(context.Background(), "no-such-match", 10)
	require.NoError(t, err)
	assert.Empty(t, plays)
}

func TestGetPlaysIsolatesMatches(t *testing.T) {
	repo := NewMemoryRepository()
	appendPlays(t, repo, "match-1", 2)
	appendPlays(t, repo, "match-2", 1)

	plays, err := repo.GetPlays(context.Background(), "match-2", 10)
	require.NoError(t, err)
	require.Len(t, plays, 1)
	assert.Equal(t, "match-2", plays[0].MatchID)
}

func TestAppendPlayCopiesRecord(t *testing.T) {
	repo := NewMemoryRepository()

	record := &entities.PlayRecord{MatchID: "match-1", Sequence: 1, Commentary: "original"}
	require.NoError(t, repo.AppendPlay(context.Background(), record))

	// Mutating the caller's record must not reach the archive
	record.Commentary = "mutated"

	plays, err := repo.GetPlays(context.Background(), "match-1", 1)
	require.NoError(t, err)
	require.Len(t, plays, 1)
	assert.Equal(t, "original", plays[0].Commentary)
}
