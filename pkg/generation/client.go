package generation

import (
	"context"
	"errors"

	"chaosball/pkg/entities"
)

var (
	// ErrEmptyResponse means the upstream call succeeded but carried no usable payload
	ErrEmptyResponse = errors.New("empty response from model")
	// ErrMalformedResponse means structured output failed schema/shape validation
	ErrMalformedResponse = errors.New("malformed structured response")
	// ErrNoImage means the image model returned no inline image part
	ErrNoImage = errors.New("no image generated")
	// ErrNoAudio means the speech model returned no inline audio part
	ErrNoAudio = errors.New("no audio generated")
	// ErrNoVideo means the video operation completed without a video resource
	ErrNoVideo = errors.New("video generation failed")
	// ErrPollTimeout means the video operation did not complete within the poll budget
	ErrPollTimeout = errors.New("video generation timed out")
)

// Client wraps the generative operations that drive a broadcast.
// Every method fails with a distinguishable error when the upstream call
// errors, returns no usable payload, or returns malformed output; callers
// must not assume any of these succeed.
type Client interface {
	// GenerateMatchSetup creates two fictional teams and a venue for a theme
	GenerateMatchSetup(ctx context.Context, theme string) (*entities.MatchSetup, error)

	// GenerateNextPlay produces the next play conditioned on the full
	// current state snapshot. Narrative continuity across plays comes
	// entirely from this conditioning; the model holds no memory.
	GenerateNextPlay(ctx context.Context, state entities.GameState) (*entities.PlayUpdate, error)

	// GenerateKeyframe renders a single image for a prompt and returns it
	// as a data URL
	GenerateKeyframe(ctx context.Context, prompt string) (string, error)

	// GenerateCommentaryAudio synthesizes speech for the given text and
	// returns the raw encoded audio bytes
	GenerateCommentaryAudio(ctx context.Context, text string) ([]byte, error)

	// GenerateReplay submits a video generation job and polls it to
	// completion, returning a fetchable URL for the generated video
	GenerateReplay(ctx context.Context, prompt string) (string, error)
}
