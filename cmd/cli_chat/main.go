package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"heal-engine/internal/config"
	"heal-engine/internal/llm"
	"heal-engine/internal/repository"
	"heal-engine/internal/service"
	"heal-engine/internal/tts"
)

// Terminal client for exercising the full turn pipeline, including spoken
// narration: synthesized replies are written to mp3 files under a temp dir.
func main() {
	ctx := context.Background()
	reader := bufio.NewReader(os.Stdin)

	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	logger := zap.NewExample()
	defer logger.Sync()

	sessionRepo := repository.NewMemorySessionRepository()
	messageRepo := repository.NewMemoryMessageRepository()

	var llmClient llm.LLMClient
	if cfg.LLMAPIKey != "" {
		llmClient = llm.NewHTTPClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModel, service.NiaSystemPrompt, zap.NewStdLog(logger))
	}
	responder := service.NewResponder(llmClient, time.Duration(cfg.LLMTimeoutSeconds)*time.Second, logger)
	chatSvc := service.NewChatService(logger, sessionRepo, messageRepo, responder)

	var narrator *service.NarrationController
	if cfg.ElevenLabsAPIKey != "" {
		ttsClient := tts.NewHTTPClient(cfg.ElevenLabsBaseURL, cfg.ElevenLabsAPIKey)
		player := &filePlayer{dir: os.TempDir(), logger: logger}
		narrator = service.NewNarrationController(logger, ttsClient, player, 30*time.Second)
	}

	fmt.Println("===== Nia CLI =====")
	fmt.Println("Commands: /voice female|male|off, /quit")

	sessionID := ""
	for {
		fmt.Print("> ")
		line, err := reader.ReadString('\n')
		if err != nil {
			return
		}
		line = strings.TrimSpace(line)

		switch {
		case line == "":
			continue
		case line == "/quit":
			if narrator != nil {
				narrator.Stop()
			}
			return
		case strings.HasPrefix(line, "/voice "):
			if narrator == nil {
				fmt.Println("narration not configured (set ELEVENLABS_API_KEY)")
				continue
			}
			narrator.SetVoice(strings.TrimSpace(strings.TrimPrefix(line, "/voice ")))
			continue
		}

		// Any new input supersedes whatever is still being narrated.
		if narrator != nil {
			narrator.Stop()
		}

		result, err := chatSvc.SendMessage(ctx, "cli_user", sessionID, line, "")
		if err != nil {
			fmt.Printf("error: %v\n", err)
			continue
		}
		sessionID = result.Session.ID

		provider := result.AIMessage.Metadata["providerUsed"]
		fmt.Printf("\nNia [%s]: %s\n\n", provider, result.Response)

		if narrator != nil {
			narrator.Speak(result.Response)
		}
	}
}

// filePlayer "plays" audio by writing it to disk and logging the path.
type filePlayer struct {
	dir    string
	logger *zap.Logger
}

func (p *filePlayer) Play(audio []byte, done func()) (service.Playback, error) {
	path := filepath.Join(p.dir, fmt.Sprintf("nia-%d.mp3", time.Now().UnixNano()))
	if err := os.WriteFile(path, audio, 0o644); err != nil {
		return nil, err
	}
	p.logger.Info("narration audio written", zap.String("path", path))
	go done()
	return noopPlayback{}, nil
}

type noopPlayback struct{}

func (noopPlayback) Stop() {}
