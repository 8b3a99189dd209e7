package playlog

import (
	"context"
	"sync"

	"chaosball/pkg/entities"
)

// MemoryRepository implements Repository using in-memory storage
type MemoryRepository struct {
	plays map[string][]*entities.PlayRecord // matchID -> plays in commit order
	mu    sync.RWMutex
}

// NewMemoryRepository creates a new in-memory play log
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		plays: make(map[string][]*entities.PlayRecord),
	}
}

// AppendPlay archives a committed play
func (r *MemoryRepository) AppendPlay(ctx context.Context, record *entities.PlayRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	recordCopy := *record
	r.plays[record.MatchID] = append(r.plays[record.MatchID], &recordCopy)

	return nil
}

// GetPlays retrieves the most recent plays for a match, newest first
func (r *MemoryRepository) GetPlays(ctx context.Context, matchID string, limit int) ([]*entities.PlayRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	plays := r.plays[matchID]
	result := make([]*entities.PlayRecord, 0, limit)
	for i := len(plays) - 1; i >= 0 && len(result) < limit; i-- {
		playCopy := *plays[i]
		result = append(result, &playCopy)
	}

	return result, nil
}

// Close is a no-op for the in-memory repository
func (r *MemoryRepository) Close() error {
	return nil
}
