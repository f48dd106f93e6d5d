package service

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"squadhub/internal/domain"
	"squadhub/internal/feed"
	"squadhub/internal/repository"
	"squadhub/internal/session"
	apperrors "squadhub/pkg/errors"
)

const maxMessageLength = 2000

// ChatService appends to and reads team and match channels. System messages
// are never sent through here; they are written by the operations that
// cause them.
type ChatService struct {
	base
	posts       repository.PostRepository
	messages    repository.MessageRepository
	tournaments repository.TournamentRepository
	cache       *CacheService
}

func NewChatService(posts repository.PostRepository, messages repository.MessageRepository, tournaments repository.TournamentRepository, cache *CacheService, broker feed.Broker, logger *zap.Logger, opts ...Option) *ChatService {
	if cache == nil {
		cache = NewCacheService(nil, logger)
	}
	return &ChatService{
		base:        newBase(broker, logger, opts),
		posts:       posts,
		messages:    messages,
		tournaments: tournaments,
		cache:       cache,
	}
}

// Send appends a user message. A repeated client message id from the same
// sender is refused as a duplicate.
func (s *ChatService) Send(ctx context.Context, actor domain.Identity, channel domain.ChannelID, req *domain.SendMessageRequest) (*domain.ChatMessage, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" || utf8.RuneCountInString(text) > maxMessageLength {
		return nil, apperrors.NewValidationError(
			fmt.Sprintf("message must be between 1 and %d characters", maxMessageLength),
			map[string]interface{}{"text": "length"})
	}
	if err := s.authorize(ctx, actor, channel); err != nil {
		return nil, err
	}

	clientID := strings.TrimSpace(req.ClientMessageID)
	if !s.cache.ClaimMessageID(ctx, channel, actor.ID, clientID) {
		return nil, apperrors.NewConflictError("duplicate message")
	}

	msg := &domain.ChatMessage{
		ID:         s.newID(),
		ChannelID:  channel,
		Text:       text,
		SenderID:   actor.ID,
		SenderName: actor.DisplayName(),
		CreatedAt:  s.now(),
	}
	if err := s.messages.Append(ctx, msg); err != nil {
		s.cache.ReleaseMessageID(context.WithoutCancel(ctx), channel, actor.ID, clientID)
		return nil, storeError(err, "channel")
	}

	s.logger.Debug("Message sent",
		zap.String("channel_id", string(channel)),
		zap.String("sender_id", actor.ID),
		zap.Int64("seq", msg.Seq))

	events := []feed.Event{{Topic: feed.ChatTopic(channel), Kind: feed.KindMessageAppended, SubjectID: msg.ID}}
	if teamID, ok := channel.TeamID(); ok {
		events = append(events, feed.Event{Topic: feed.TeamTopic(teamID), Kind: feed.KindMessageAppended, SubjectID: msg.ID})
	}
	s.publish(ctx, events...)
	return msg, nil
}

// History returns the newest limit messages oldest first; limit 0 returns
// the whole channel
func (s *ChatService) History(ctx context.Context, actor domain.Identity, channel domain.ChannelID, limit int) ([]domain.ChatMessage, error) {
	if limit < 0 {
		return nil, apperrors.NewValidationError("limit must not be negative", nil)
	}
	if err := s.authorize(ctx, actor, channel); err != nil {
		return nil, err
	}

	msgs, err := s.messages.ListRecent(ctx, channel, limit)
	if err != nil {
		return nil, storeError(err, "channel")
	}
	if msgs == nil {
		msgs = []domain.ChatMessage{}
	}
	return msgs, nil
}

// Subscribe keeps onUpdate fed with the last window messages of channel.
// Access is re-checked on every push, so a kicked member's view stops.
func (s *ChatService) Subscribe(ctx context.Context, sess *session.Session, channel domain.ChannelID, window int, onUpdate func([]domain.ChatMessage)) (*feed.Subscription, error) {
	if window < 0 {
		return nil, apperrors.NewValidationError("window must not be negative", nil)
	}
	return s.watch(ctx, sess, []string{feed.ChatTopic(channel)}, nil, func(ctx context.Context) error {
		msgs, err := s.History(ctx, sess.Identity, channel, window)
		if err != nil {
			return err
		}
		onUpdate(msgs)
		return nil
	})
}

// authorize requires roster membership for team channels and an existing
// match for match channels
func (s *ChatService) authorize(ctx context.Context, actor domain.Identity, channel domain.ChannelID) error {
	if teamID, ok := channel.TeamID(); ok {
		post, err := loadTeam(ctx, s.posts, teamID)
		if err != nil {
			return err
		}
		_, err = roleIn(post, actor)
		return err
	}

	if tournamentID, matchID, ok := channel.Match(); ok {
		t, err := s.tournaments.Get(ctx, tournamentID)
		if err != nil {
			return storeError(err, "tournament")
		}
		if _, ok := t.FindMatch(matchID); !ok {
			return apperrors.NewNotFoundError("match not found")
		}
		return nil
	}

	return apperrors.NewValidationError("unknown channel", map[string]interface{}{"channel_id": string(channel)})
}
