package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"heal-engine/internal/domain"
	"heal-engine/internal/llm"
)

// Provider labels recorded in message metadata.
const (
	ProviderPrimary        = "primary"
	ProviderCrisis         = "crisis"
	providerFallbackPrefix = "fallback:"
)

var ErrEmptyMessage = errors.New("message content is empty")

// historyWindow bounds how many prior messages condition the provider.
const historyWindow = 10

// Responder produces a reply for every well-formed message: primary provider
// under a timeout, then the keyword-routed fallback table. Provider faults
// are absorbed here and never surface to callers.
type Responder struct {
	llmClient llm.LLMClient
	logger    *zap.Logger
	timeout   time.Duration
	rotation  atomic.Uint64
}

// NewResponder builds a responder. A nil llmClient means no provider
// credential is configured and every reply comes from the fallback table.
func NewResponder(llmClient llm.LLMClient, timeout time.Duration, logger *zap.Logger) *Responder {
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	return &Responder{
		llmClient: llmClient,
		logger:    logger,
		timeout:   timeout,
	}
}

// Generate returns the reply text and the provider label that produced it.
func (r *Responder) Generate(ctx context.Context, history []domain.Message, userText string) (string, string, error) {
	userText = strings.TrimSpace(userText)
	if userText == "" {
		return "", "", ErrEmptyMessage
	}

	if r.llmClient == nil {
		reply, rule := r.fallback(userText)
		return reply, providerFallbackPrefix + rule, nil
	}

	callCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	reply, err := r.llmClient.Generate(callCtx, r.buildPrompt(history, userText))
	if err != nil {
		// Timeouts, non-2xx and malformed payloads all land here; the turn
		// still succeeds through the fallback table.
		r.logger.Warn("primary provider failed, using fallback", zap.Error(err))
		reply, rule := r.fallback(userText)
		return reply, providerFallbackPrefix + rule, nil
	}

	reply = strings.TrimSpace(reply)
	if reply == "" {
		fallbackReply, rule := r.fallback(userText)
		return fallbackReply, providerFallbackPrefix + rule, nil
	}
	return reply, ProviderPrimary, nil
}

// buildPrompt renders the bounded history as alternating turns ahead of the
// new user message.
func (r *Responder) buildPrompt(history []domain.Message, userText string) string {
	if len(history) > historyWindow {
		history = history[len(history)-historyWindow:]
	}

	var b strings.Builder
	if len(history) > 0 {
		b.WriteString("Conversation so far:\n")
		for _, m := range history {
			role := "User"
			if m.Sender != domain.SenderUser {
				role = "Nia"
			}
			fmt.Fprintf(&b, "%s: %s\n", role, m.Content)
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "User: %s\nNia:", userText)
	return b.String()
}

// fallback picks the canned reply for the message. Topic keywords win;
// otherwise general replies rotate by an atomic counter so selection is
// deterministic under test while still varying across turns.
func (r *Responder) fallback(userText string) (reply, rule string) {
	lower := strings.ToLower(userText)
	for _, fr := range fallbackRules {
		for _, kw := range fr.keywords {
			if strings.Contains(lower, kw) {
				return fr.reply, fr.name
			}
		}
	}
	n := r.rotation.Add(1) - 1
	return generalReplies[n%uint64(len(generalReplies))], "general"
}
