package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/liliang-cn/askstream/internal/domain"
	"github.com/liliang-cn/askstream/internal/metrics"
	"github.com/liliang-cn/askstream/internal/repository"
	"go.uber.org/zap"
)

// StreamService answers chat requests as a stream of protocol frames and
// records each turn against its conversation.
type StreamService struct {
	siteRepo         *repository.SiteRepository
	conversationRepo *repository.ConversationRepository
	responder        Responder
	logger           *zap.Logger
	metrics          *metrics.Metrics
}

// NewStreamService creates a new stream service
func NewStreamService(
	siteRepo *repository.SiteRepository,
	conversationRepo *repository.ConversationRepository,
	responder Responder,
	logger *zap.Logger,
	m *metrics.Metrics,
) *StreamService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StreamService{
		siteRepo:         siteRepo,
		conversationRepo: conversationRepo,
		responder:        responder,
		logger:           logger,
		metrics:          m,
	}
}

// Stream runs one turn for the site identified by token. Responder failures
// are reported to the client as an error frame; the returned error is only
// set when nothing more can be written.
func (s *StreamService) Stream(ctx context.Context, token string, req *domain.ChatRequest, emit Emit) error {
	if strings.TrimSpace(req.Message) == "" {
		return fmt.Errorf("%w: message is required", domain.ErrInvalidRequest)
	}

	site, err := s.siteRepo.Get(token)
	if err != nil {
		return fmt.Errorf("failed to load site: %w", err)
	}
	if site == nil {
		return domain.ErrNotFound
	}

	conversationID, err := s.resolveConversation(token, req.ConversationID)
	if err != nil {
		return err
	}

	if err := s.conversationRepo.CreateMessage(&domain.StoredMessage{
		ConversationID: conversationID,
		Role:           domain.RoleUser,
		Content:        req.Message,
	}); err != nil {
		return fmt.Errorf("failed to save user message: %w", err)
	}

	var (
		answer    strings.Builder
		citations []domain.Citation
	)
	send := func(frame domain.Frame) error {
		switch frame.Type {
		case domain.FrameText:
			answer.WriteString(frame.Content)
		case domain.FrameSources:
			citations = frame.Sources
		}
		if err := emit(frame); err != nil {
			return err
		}
		s.metrics.FrameSent(string(frame.Type))
		return nil
	}

	logger := s.logger.With(zap.String("token", token), zap.String("conversation_id", conversationID))

	if err := s.responder.Respond(ctx, req.Message, send); err != nil {
		if errors.Is(err, context.Canceled) || ctx.Err() != nil {
			logger.Info("Client went away during stream", zap.Int("answer_len", answer.Len()))
			s.metrics.StreamServed("cancelled")
			return ctx.Err()
		}
		logger.Error("Responder failed", zap.Error(err))
		s.metrics.StreamServed("error")
		return send(domain.ErrorFrame(err.Error()))
	}

	if err := s.conversationRepo.CreateMessage(&domain.StoredMessage{
		ConversationID: conversationID,
		Role:           domain.RoleAssistant,
		Content:        answer.String(),
		Citations:      citations,
	}); err != nil {
		logger.Error("Failed to save assistant message", zap.Error(err))
		s.metrics.StreamServed("error")
		return send(domain.ErrorFrame("failed to save answer"))
	}
	if err := s.conversationRepo.Touch(conversationID); err != nil {
		logger.Warn("Failed to update conversation", zap.Error(err))
	}

	s.metrics.StreamServed("completed")
	logger.Info("Stream completed",
		zap.Int("answer_len", answer.Len()),
		zap.Int("citations", len(citations)),
	)
	return send(domain.DoneFrame(conversationID))
}

// resolveConversation continues id when it belongs to token, otherwise it
// starts a new conversation
func (s *StreamService) resolveConversation(token, id string) (string, error) {
	if id != "" {
		conv, err := s.conversationRepo.Get(id)
		if err != nil {
			return "", fmt.Errorf("failed to load conversation: %w", err)
		}
		if conv != nil && conv.SiteToken == token {
			return conv.ID, nil
		}
		s.logger.Debug("Unknown conversation, starting a new one",
			zap.String("token", token),
			zap.String("conversation_id", id),
		)
	}

	conv := &domain.Conversation{SiteToken: token}
	if err := s.conversationRepo.Create(conv); err != nil {
		return "", fmt.Errorf("failed to create conversation: %w", err)
	}
	return conv.ID, nil
}

// History returns the stored messages of a conversation
func (s *StreamService) History(conversationID string) ([]*domain.StoredMessage, error) {
	return s.conversationRepo.GetMessages(conversationID)
}
