package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
)

// Gemini TTS output format: 24 kHz mono signed 16-bit little-endian PCM
const (
	sampleRate   = 24000
	channelCount = 1
)

var ErrEmptyBuffer = errors.New("empty audio buffer")

// Player owns a single lazily-created, process-lifetime audio output
// context. Overlapping Play calls produce overlapping sound; there is no
// queueing and no cancellation of in-flight playback.
type Player struct {
	once    sync.Once
	otoCtx  *oto.Context
	ready   chan struct{}
	initErr error
}

// NewPlayer creates a player. The underlying audio context is not opened
// until the first Play call.
func NewPlayer() *Player {
	return &Player{}
}

func (p *Player) init() {
	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: channelCount,
		Format:       oto.FormatSignedInt16LE,
	})
	if err != nil {
		p.initErr = fmt.Errorf("error opening audio context: %w", err)
		return
	}
	p.otoCtx = ctx
	p.ready = ready
	log.Printf("[AUDIO] Audio context opened (%d Hz, %d ch)", sampleRate, channelCount)
}

// Play decodes the given encoded buffer into PCM and starts one-shot
// playback immediately. It does not wait for playback to finish.
func (p *Player) Play(data []byte) error {
	if len(data) == 0 {
		return ErrEmptyBuffer
	}

	p.once.Do(p.init)
	if p.initErr != nil {
		return p.initErr
	}
	<-p.ready

	pcm := stripWAVHeader(data)
	player := p.otoCtx.NewPlayer(bytes.NewReader(pcm))
	player.Play()

	// Release the player once the samples have drained
	go func() {
		for player.IsPlaying() {
			time.Sleep(100 * time.Millisecond)
		}
		if err := player.Close(); err != nil {
			log.Printf("[AUDIO] Error closing player: %v", err)
		}
	}()

	return nil
}

// stripWAVHeader returns the raw sample data. Buffers usually arrive as
// headerless PCM, but a RIFF container is handled too.
func stripWAVHeader(data []byte) []byte {
	if len(data) < 12 || !bytes.HasPrefix(data, []byte("RIFF")) {
		return data
	}

	// Walk the RIFF chunks looking for "data"
	offset := 12
	for offset+8 <= len(data) {
		chunkID := data[offset : offset+4]
		chunkSize := int(binary.LittleEndian.Uint32(data[offset+4 : offset+8]))
		if bytes.Equal(chunkID, []byte("data")) {
			start := offset + 8
			end := start + chunkSize
			if end > len(data) {
				end = len(data)
			}
			return data[start:end]
		}
		offset += 8 + chunkSize
	}

	return data
}
