package generation

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"google.golang.org/genai"

	"chaosball/pkg/entities"
)

// Model selection
const (
	modelLogic = "gemini-2.5-flash"
	modelImage = "gemini-2.5-flash-image"
	modelVideo = "veo-3.1-fast-generate-preview"
	modelTTS   = "gemini-2.5-flash-preview-tts"

	// Fenrir sounds deep and intense
	ttsVoice = "Fenrir"
)

// GeminiClient implements Client against the Gemini API
type GeminiClient struct {
	client *genai.Client
	apiKey string

	// Poll settings for long-running video operations
	pollInterval time.Duration
	maxPolls     int
}

// Option configures a GeminiClient
type Option func(*GeminiClient)

// WithPollInterval overrides the fixed delay between video operation polls
func WithPollInterval(d time.Duration) Option {
	return func(c *GeminiClient) { c.pollInterval = d }
}

// WithMaxPolls bounds how many times a video operation is polled before
// the replay is abandoned
func WithMaxPolls(n int) Option {
	return func(c *GeminiClient) { c.maxPolls = n }
}

// NewGeminiClient creates a client for the Gemini API using the given key
func NewGeminiClient(ctx context.Context, apiKey string, opts ...Option) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("error creating Gemini client: %w", err)
	}

	c := &GeminiClient{
		client:       client,
		apiKey:       apiKey,
		pollInterval: 5 * time.Second,
		maxPolls:     60,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

var setupSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"home": {
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"name":   {Type: genai.TypeString},
				"color":  {Type: genai.TypeString},
				"mascot": {Type: genai.TypeString},
			},
		},
		"away": {
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"name":   {Type: genai.TypeString},
				"color":  {Type: genai.TypeString},
				"mascot": {Type: genai.TypeString},
			},
		},
		"venue": {Type: genai.TypeString},
	},
}

var playSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"homeScoreDelta":     {Type: genai.TypeInteger, Description: "Points scored by home team this play"},
		"awayScoreDelta":     {Type: genai.TypeInteger, Description: "Points scored by away team this play"},
		"timeElapsedSeconds": {Type: genai.TypeInteger, Description: "Seconds elapsed during this play"},
		"playDescription":    {Type: genai.TypeString, Description: "Short technical description of the play"},
		"commentary":         {Type: genai.TypeString, Description: "Exciting color commentary, slightly unhinged"},
		"visualPrompt":       {Type: genai.TypeString, Description: "Detailed visual description for an image generator. Focus on the action, the arena, and the visual style (photorealistic, cinematic)."},
		"isBigPlay":          {Type: genai.TypeBoolean, Description: "True if this was a major scoring event or spectacular crash"},
		"newOdds": {
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"homeWin":   {Type: genai.TypeNumber},
				"awayWin":   {Type: genai.TypeNumber},
				"overUnder": {Type: genai.TypeNumber},
			},
			Required: []string{"homeWin", "awayWin", "overUnder"},
		},
	},
	Required: []string{
		"homeScoreDelta", "awayScoreDelta", "timeElapsedSeconds", "playDescription",
		"commentary", "visualPrompt", "isBigPlay", "newOdds",
	},
}

// GenerateMatchSetup creates two fictional teams and a venue for a theme
func (c *GeminiClient) GenerateMatchSetup(ctx context.Context, theme string) (*entities.MatchSetup, error) {
	prompt := fmt.Sprintf("Create two fictional sports teams and a venue based on the theme: %q. Return JSON.", theme)

	resp, err := c.client.Models.GenerateContent(ctx, modelLogic, genai.Text(prompt), &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   setupSchema,
	})
	if err != nil {
		return nil, fmt.Errorf("error generating match setup: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return nil, ErrEmptyResponse
	}

	var setup entities.MatchSetup
	if err := json.Unmarshal([]byte(text), &setup); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if setup.Home.Name == "" || setup.Away.Name == "" || setup.Venue == "" {
		return nil, fmt.Errorf("%w: incomplete matchup", ErrMalformedResponse)
	}

	return &setup, nil
}

// GenerateNextPlay produces the next play conditioned on the current state
func (c *GeminiClient) GenerateNextPlay(ctx context.Context, state entities.GameState) (*entities.PlayUpdate, error) {
	systemInstruction := fmt.Sprintf(`You are the engine for 'ChaosBall', an AI sports network.
Current Game: %s vs %s.
Score: %d - %d.
Period: %d. Time: %s.

Generate the next play. It can be normal sports action or slightly chaotic/absurd (robots, magic, unexpected events).
Update the odds based on the new game state.
Provide a visual prompt for an image generator that captures the scene.`,
		state.HomeTeam.Name, state.AwayTeam.Name,
		state.HomeScore, state.AwayScore,
		state.Quarter, state.TimeRemaining)

	resp, err := c.client.Models.GenerateContent(ctx, modelLogic, genai.Text("Simulate the next play. Return JSON."), &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: systemInstruction}}},
		ResponseMIMEType:  "application/json",
		ResponseSchema:    playSchema,
	})
	if err != nil {
		return nil, fmt.Errorf("error generating play: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return nil, ErrEmptyResponse
	}

	var update entities.PlayUpdate
	if err := json.Unmarshal([]byte(text), &update); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	return &update, nil
}

// GenerateKeyframe renders a single image and returns it as a data URL
func (c *GeminiClient) GenerateKeyframe(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.Models.GenerateContent(ctx, modelImage, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("error generating keyframe: %w", err)
	}

	for _, part := range responseParts(resp) {
		if part.InlineData != nil && strings.HasPrefix(part.InlineData.MIMEType, "image") {
			return fmt.Sprintf("data:%s;base64,%s",
				part.InlineData.MIMEType,
				base64Encode(part.InlineData.Data)), nil
		}
	}

	// The image model sometimes answers with text instead of an image
	if text := resp.Text(); text != "" {
		log.Printf("[GEMINI] Image model returned text instead of an image: %s", text)
	}

	return "", ErrNoImage
}

// GenerateCommentaryAudio synthesizes speech and returns raw PCM bytes
func (c *GeminiClient) GenerateCommentaryAudio(ctx context.Context, text string) ([]byte, error) {
	resp, err := c.client.Models.GenerateContent(ctx, modelTTS, genai.Text(text), &genai.GenerateContentConfig{
		ResponseModalities: []string{"AUDIO"},
		SpeechConfig: &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: ttsVoice},
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("error generating commentary audio: %w", err)
	}

	for _, part := range responseParts(resp) {
		if part.InlineData != nil && len(part.InlineData.Data) > 0 {
			return part.InlineData.Data, nil
		}
	}

	return nil, ErrNoAudio
}

// GenerateReplay submits a video job and polls until done or the poll
// budget is exhausted. The returned URL carries the API key needed to
// fetch the resource.
func (c *GeminiClient) GenerateReplay(ctx context.Context, prompt string) (string, error) {
	fullPrompt := fmt.Sprintf("Cinematic highlight replay of sports action: %s. High quality, dynamic camera angle.", prompt)

	op, err := c.client.Models.GenerateVideos(ctx, modelVideo, fullPrompt, nil, &genai.GenerateVideosConfig{
		NumberOfVideos: 1,
		Resolution:     "720p",
		AspectRatio:    "16:9",
	})
	if err != nil {
		return "", fmt.Errorf("error submitting video generation: %w", err)
	}

	polls := 0
	for !op.Done {
		if polls >= c.maxPolls {
			return "", ErrPollTimeout
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(c.pollInterval):
		}
		polls++

		op, err = c.client.Operations.GetVideosOperation(ctx, op, nil)
		if err != nil {
			return "", fmt.Errorf("error polling video operation: %w", err)
		}
		log.Printf("[GEMINI] Video operation poll %d/%d, done=%v", polls, c.maxPolls, op.Done)
	}

	if op.Response == nil || len(op.Response.GeneratedVideos) == 0 ||
		op.Response.GeneratedVideos[0].Video == nil ||
		op.Response.GeneratedVideos[0].Video.URI == "" {
		return "", ErrNoVideo
	}

	// Fetching the video resource requires the key appended to the URI
	return fmt.Sprintf("%s&key=%s", op.Response.GeneratedVideos[0].Video.URI, c.apiKey), nil
}

func base64Encode(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

func responseParts(resp *genai.GenerateContentResponse) []*genai.Part {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil
	}
	return resp.Candidates[0].Content.Parts
}
