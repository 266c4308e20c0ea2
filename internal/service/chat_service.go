package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"heal-engine/internal/domain"
	"heal-engine/internal/repository"
)

// ErrSessionNotFound covers both unknown sessions and sessions owned by
// someone else, so existence is never leaked across owners.
var ErrSessionNotFound = errors.New("session not found")

var ErrInvalidMessageType = errors.New("invalid message type")

const (
	defaultHistoryLimit  = 50
	defaultSessionsLimit = 20
)

// SendResult is the composed outcome of one web turn.
type SendResult struct {
	Session     domain.Session `json:"session"`
	UserMessage domain.Message `json:"user_message"`
	AIMessage   domain.Message `json:"ai_message"`
	Response    string         `json:"response"`
}

// ChatService drives the web channel: crisis interception, reply generation
// and the persisted user/ai message pair.
type ChatService struct {
	logger    *zap.Logger
	sessions  repository.SessionRepository
	messages  repository.MessageRepository
	responder *Responder
	turnLocks *keyedMutex
}

func NewChatService(
	logger *zap.Logger,
	sessions repository.SessionRepository,
	messages repository.MessageRepository,
	responder *Responder,
) *ChatService {
	return &ChatService{
		logger:    logger,
		sessions:  sessions,
		messages:  messages,
		responder: responder,
		turnLocks: newKeyedMutex(),
	}
}

// SendMessage runs one full turn. Turns on the same session are serialized;
// every well-formed message gets exactly one reply.
func (s *ChatService) SendMessage(ctx context.Context, ownerKey, sessionID, content, messageType string) (SendResult, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return SendResult{}, ErrEmptyMessage
	}
	switch messageType {
	case "":
		messageType = domain.MessageTypeText
	case domain.MessageTypeText, domain.MessageTypeAudio, domain.MessageTypeVideo:
	default:
		return SendResult{}, ErrInvalidMessageType
	}

	session, err := s.getOrCreate(ctx, ownerKey, sessionID)
	if err != nil {
		return SendResult{}, err
	}

	s.turnLocks.Lock(session.ID)
	defer s.turnLocks.Unlock(session.ID)

	var (
		reply    string
		provider string
	)
	if CrisisDetected(content) {
		// Short-circuit: the safety message goes out regardless of provider
		// availability.
		reply = CrisisMessage
		provider = ProviderCrisis
		s.logger.Info("crisis intercept", zap.String("session_id", session.ID))
	} else {
		history, err := s.messages.ListBySessionID(ctx, session.ID, 0, 0)
		if err != nil {
			s.logger.Warn("load history failed", zap.Error(err), zap.String("session_id", session.ID))
			history = nil
		}
		reply, provider, err = s.responder.Generate(ctx, history, content)
		if err != nil {
			return SendResult{}, err
		}
	}

	now := time.Now().UTC()
	userMsg := domain.Message{
		ID:          uuid.NewString(),
		SessionID:   session.ID,
		Sender:      domain.SenderUser,
		Content:     content,
		MessageType: messageType,
		CreatedAt:   now,
	}
	// The reply must sort strictly after the user message it answers.
	aiAt := time.Now().UTC()
	if !aiAt.After(now) {
		aiAt = now.Add(time.Microsecond)
	}
	aiMsg := domain.Message{
		ID:          uuid.NewString(),
		SessionID:   session.ID,
		Sender:      domain.SenderAI,
		Content:     reply,
		MessageType: domain.MessageTypeText,
		Metadata: map[string]string{
			domain.MetadataProviderKey: provider,
			"userMessageId":            userMsg.ID,
		},
		CreatedAt: aiAt,
	}

	if err := s.messages.Create(ctx, userMsg); err != nil {
		return SendResult{}, fmt.Errorf("save user message: %w", err)
	}
	if err := s.messages.Create(ctx, aiMsg); err != nil {
		return SendResult{}, fmt.Errorf("save ai message: %w", err)
	}
	if err := s.sessions.Touch(ctx, session.ID, aiMsg.CreatedAt); err != nil {
		s.logger.Warn("touch session failed", zap.Error(err), zap.String("session_id", session.ID))
	} else {
		session.UpdatedAt = aiMsg.CreatedAt
	}

	return SendResult{
		Session:     session,
		UserMessage: userMsg,
		AIMessage:   aiMsg,
		Response:    reply,
	}, nil
}

// History returns messages for an owned session in ascending creation order.
func (s *ChatService) History(ctx context.Context, ownerKey, sessionID string, limit, offset int) ([]domain.Message, error) {
	if _, err := s.ownedSession(ctx, ownerKey, sessionID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if offset < 0 {
		offset = 0
	}
	messages, err := s.messages.ListBySessionID(ctx, sessionID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return messages, nil
}

// ListSessions returns the owner's sessions, most recently active first.
func (s *ChatService) ListSessions(ctx context.Context, ownerKey string, limit, offset int) ([]domain.Session, error) {
	if limit <= 0 {
		limit = defaultSessionsLimit
	}
	if offset < 0 {
		offset = 0
	}
	sessions, err := s.sessions.ListByOwner(ctx, ownerKey, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return sessions, nil
}

// DeleteSession removes an owned session and its messages.
func (s *ChatService) DeleteSession(ctx context.Context, ownerKey, sessionID string) error {
	if _, err := s.ownedSession(ctx, ownerKey, sessionID); err != nil {
		return err
	}
	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (s *ChatService) getOrCreate(ctx context.Context, ownerKey, sessionID string) (domain.Session, error) {
	if sessionID != "" {
		return s.ownedSession(ctx, ownerKey, sessionID)
	}

	now := time.Now().UTC()
	session := domain.Session{
		ID:        uuid.NewString(),
		OwnerKey:  ownerKey,
		Channel:   domain.ChannelWeb,
		Title:     "Chat Session - " + now.Format("2006-01-02"),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return domain.Session{}, fmt.Errorf("create session: %w", err)
	}
	return session, nil
}

func (s *ChatService) ownedSession(ctx context.Context, ownerKey, sessionID string) (domain.Session, error) {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Session{}, ErrSessionNotFound
	}
	if err != nil {
		return domain.Session{}, fmt.Errorf("get session: %w", err)
	}
	if session.OwnerKey != ownerKey {
		return domain.Session{}, ErrSessionNotFound
	}
	return session, nil
}
