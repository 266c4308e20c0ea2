package service

import (
	"context"
	"regexp"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"heal-engine/internal/tts"
)

// NarrationState tracks the controller through one spoken reply.
type NarrationState int

const (
	NarrationIdle NarrationState = iota
	NarrationRequesting
	NarrationPlaying
)

const (
	VoiceOptionFemale = "female"
	VoiceOptionMale   = "male"
	VoiceOptionOff    = "off"
)

// Playback is one live audio rendering owned by the controller.
type Playback interface {
	Stop()
}

// Player turns synthesized audio into sound. done must be invoked, from any
// goroutine or synchronously from Play, when playback finishes on its own.
type Player interface {
	Play(audio []byte, done func()) (Playback, error)
}

// NarrationController speaks AI replies aloud. It owns at most one audio
// resource: a new Speak supersedes and stops whatever is in flight, and a
// superseded synthesis result that still arrives is discarded, never played.
type NarrationController struct {
	logger       *zap.Logger
	ttsClient    tts.Client
	player       Player
	synthTimeout time.Duration

	mu          sync.Mutex
	voiceOption string
	state       NarrationState
	gen         uint64
	doneGen     uint64
	cancel      context.CancelFunc
	playback    Playback
}

func NewNarrationController(logger *zap.Logger, ttsClient tts.Client, player Player, synthTimeout time.Duration) *NarrationController {
	if synthTimeout <= 0 {
		synthTimeout = 30 * time.Second
	}
	return &NarrationController{
		logger:       logger,
		ttsClient:    ttsClient,
		player:       player,
		synthTimeout: synthTimeout,
		voiceOption:  VoiceOptionFemale,
	}
}

// Speak narrates text with the current voice. Any in-flight request or
// playing audio is stopped first. Synthesis errors degrade to silence.
func (c *NarrationController) Speak(text string) {
	c.mu.Lock()
	c.stopLocked()

	if c.ttsClient == nil || c.player == nil || c.voiceOption == VoiceOptionOff {
		c.mu.Unlock()
		return
	}
	text = normalizeForSpeech(text)
	if text == "" {
		c.mu.Unlock()
		return
	}

	c.gen++
	gen := c.gen
	ctx, cancel := context.WithTimeout(context.Background(), c.synthTimeout)
	c.cancel = cancel
	c.state = NarrationRequesting
	voiceID := voiceIDFor(c.voiceOption)
	c.mu.Unlock()

	go c.synthesizeAndPlay(ctx, gen, text, voiceID)
}

func (c *NarrationController) synthesizeAndPlay(ctx context.Context, gen uint64, text, voiceID string) {
	audio, err := c.ttsClient.Synthesize(ctx, text, voiceID)

	c.mu.Lock()
	if gen != c.gen {
		// Superseded while the request was in flight.
		c.mu.Unlock()
		return
	}
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	if err != nil {
		c.logger.Warn("speech synthesis failed", zap.Error(err))
		c.state = NarrationIdle
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	// Play runs outside the lock: a player may invoke done synchronously.
	playback, err := c.player.Play(audio, func() { c.playbackDone(gen) })

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		// Stopped or superseded while playback was starting.
		if playback != nil {
			playback.Stop()
		}
		return
	}
	if err != nil {
		c.logger.Warn("audio playback failed", zap.Error(err))
		c.state = NarrationIdle
		return
	}
	if c.doneGen == gen {
		// Playback already completed inside Play.
		return
	}
	c.playback = playback
	c.state = NarrationPlaying
}

func (c *NarrationController) playbackDone(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return
	}
	c.doneGen = gen
	c.playback = nil
	c.state = NarrationIdle
}

// Stop cancels any in-flight synthesis and halts playing audio. Idempotent.
func (c *NarrationController) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
}

// SetVoice switches the voice option, stopping current narration
// unconditionally, including a switch to off.
func (c *NarrationController) SetVoice(option string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
	switch option {
	case VoiceOptionFemale, VoiceOptionMale, VoiceOptionOff:
		c.voiceOption = option
	}
}

// State reports the controller's current lifecycle state.
func (c *NarrationController) State() NarrationState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// stopLocked bumps the generation so a late synthesis result is ignored.
func (c *NarrationController) stopLocked() {
	c.gen++
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	if c.playback != nil {
		c.playback.Stop()
		c.playback = nil
	}
	c.state = NarrationIdle
}

func voiceIDFor(option string) string {
	if option == VoiceOptionMale {
		return tts.VoiceMale
	}
	return tts.VoiceFemale
}

var (
	reBold   = regexp.MustCompile(`\*\*(.*?)\*\*`)
	reItalic = regexp.MustCompile(`\*(.*?)\*`)
	reCode   = regexp.MustCompile("`(.*?)`")
	reLines  = regexp.MustCompile(`\n+`)
	reSpaces = regexp.MustCompile(`\s+`)
)

// normalizeForSpeech strips markdown markers and collapses whitespace so the
// synthesizer does not read formatting aloud.
func normalizeForSpeech(text string) string {
	s := reBold.ReplaceAllString(text, "$1")
	s = reItalic.ReplaceAllString(s, "$1")
	s = reCode.ReplaceAllString(s, "$1")
	s = reLines.ReplaceAllString(s, ". ")
	s = reSpaces.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}
