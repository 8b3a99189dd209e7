package playlog

import (
	"context"

	"chaosball/pkg/entities"
)

// Repository archives committed plays for later retrieval. One record is
// appended per completed turn; records are never mutated.
type Repository interface {
	// AppendPlay archives a committed play
	AppendPlay(ctx context.Context, record *entities.PlayRecord) error

	// GetPlays retrieves the most recent plays for a match, newest first
	GetPlays(ctx context.Context, matchID string, limit int) ([]*entities.PlayRecord, error)

	// Close releases any underlying resources
	Close() error
}
