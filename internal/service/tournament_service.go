package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"squadhub/internal/bracket"
	"squadhub/internal/domain"
	"squadhub/internal/feed"
	"squadhub/internal/repository"
	"squadhub/internal/session"
	apperrors "squadhub/pkg/errors"
)

// TournamentService administers tournaments. Every write is a whole-document
// replace guarded by the version read; a concurrent edit fails with a
// conflict and is not retried.
type TournamentService struct {
	base
	tournaments repository.TournamentRepository
	messages    repository.MessageRepository
	cache       *CacheService
	admins      map[string]struct{}
}

func NewTournamentService(tournaments repository.TournamentRepository, messages repository.MessageRepository, cache *CacheService, broker feed.Broker, logger *zap.Logger, adminIDs []string, opts ...Option) *TournamentService {
	if cache == nil {
		cache = NewCacheService(nil, logger)
	}
	admins := make(map[string]struct{}, len(adminIDs))
	for _, id := range adminIDs {
		if id = strings.TrimSpace(id); id != "" {
			admins[id] = struct{}{}
		}
	}
	return &TournamentService{
		base:        newBase(broker, logger, opts),
		tournaments: tournaments,
		messages:    messages,
		cache:       cache,
		admins:      admins,
	}
}

// IsAdmin reports whether id may administer tournaments
func (s *TournamentService) IsAdmin(id string) bool {
	_, ok := s.admins[id]
	return ok
}

func (s *TournamentService) requireAdmin(actor domain.Identity) error {
	if !s.IsAdmin(actor.ID) {
		return apperrors.NewPermissionError("tournament administration requires an admin account")
	}
	return nil
}

// Create stores a tournament and generates its bracket when at least two
// participants are registered
func (s *TournamentService) Create(ctx context.Context, actor domain.Identity, req *domain.CreateTournamentRequest) (*domain.Tournament, error) {
	if err := s.requireAdmin(actor); err != nil {
		return nil, err
	}

	details := map[string]interface{}{}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		details["name"] = "required"
	}
	format, err := domain.ParseFormat(req.Format)
	if err != nil {
		details["format"] = "must be single_elimination, double_elimination or round_robin"
	}
	participants := trimAll(req.Participants)
	if err := bracket.CheckNames(participants); err != nil {
		details["participants"] = err.Error()
	}
	if len(details) > 0 {
		return nil, apperrors.NewValidationError("invalid tournament", details)
	}

	now := s.now()
	t := &domain.Tournament{
		ID:           s.newID(),
		Name:         name,
		Game:         strings.TrimSpace(req.Game),
		Format:       format,
		Participants: participants,
		Matches:      []domain.Match{},
		CreatedBy:    actor.ID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if len(participants) >= 2 {
		if t.Matches, err = bracket.Generate(format, participants); err != nil {
			return nil, bracketError(err)
		}
	}

	if err := s.tournaments.Create(ctx, t); err != nil {
		return nil, storeError(err, "tournament")
	}

	s.logger.Info("Tournament created",
		zap.String("tournament_id", t.ID),
		zap.String("format", string(t.Format)),
		zap.Int("participants", len(participants)))
	return t, nil
}

func (s *TournamentService) Get(ctx context.Context, id string) (*domain.Tournament, error) {
	t, err := s.cache.GetTournamentWithCache(ctx, id, s.tournaments.Get)
	if err != nil {
		return nil, storeError(err, "tournament")
	}
	return t, nil
}

func (s *TournamentService) List(ctx context.Context) ([]*domain.Tournament, error) {
	list, err := s.tournaments.List(ctx)
	if err != nil {
		return nil, storeError(err, "tournament")
	}
	if list == nil {
		list = []*domain.Tournament{}
	}
	return list, nil
}

// UpdateParticipants replaces the seed list. The existing bracket is kept;
// regenerating is a separate, explicit step.
func (s *TournamentService) UpdateParticipants(ctx context.Context, actor domain.Identity, id string, participants []string) (*domain.Tournament, error) {
	cleaned := trimAll(participants)
	if err := bracket.CheckNames(cleaned); err != nil {
		return nil, bracketError(err)
	}
	return s.mutate(ctx, actor, id, func(t *domain.Tournament) error {
		t.Participants = cleaned
		return nil
	})
}

// GenerateBracket discards all results and rebuilds the match list from the
// current participants
func (s *TournamentService) GenerateBracket(ctx context.Context, actor domain.Identity, id string) (*domain.Tournament, error) {
	return s.mutate(ctx, actor, id, func(t *domain.Tournament) error {
		matches, err := bracket.Generate(t.Format, t.Participants)
		if err != nil {
			return bracketError(err)
		}
		t.Matches = matches
		return nil
	})
}

// DeclareWinner completes a match, advances the winner and announces the
// result in the match channel
func (s *TournamentService) DeclareWinner(ctx context.Context, actor domain.Identity, id, matchID, winner string) (*domain.Tournament, error) {
	winner = strings.TrimSpace(winner)
	var played domain.Match
	t, err := s.mutate(ctx, actor, id, func(t *domain.Tournament) error {
		m, ok := t.FindMatch(matchID)
		if !ok {
			return apperrors.NewNotFoundError("match not found")
		}
		played = *m

		matches, err := bracket.DeclareWinner(t.Format, t.Matches, matchID, winner)
		if err != nil {
			return bracketError(err)
		}
		t.Matches = matches
		return nil
	})
	if err != nil {
		return nil, err
	}

	channel := domain.MatchChannel(id, matchID)
	msg := domain.SystemMessage(s.newID(), channel, domain.MatchWonText(winner, played.Team1, played.Team2))
	msg.CreatedAt = t.UpdatedAt
	if err := s.messages.Append(ctx, &msg); err != nil {
		s.logger.Error("Failed to announce match result",
			zap.String("tournament_id", id),
			zap.String("match_id", matchID),
			zap.Error(err))
	} else {
		s.publish(ctx, feed.Event{Topic: feed.ChatTopic(channel), Kind: feed.KindMessageAppended, SubjectID: msg.ID})
	}
	return t, nil
}

// UpdateScores records scores without deciding the match
func (s *TournamentService) UpdateScores(ctx context.Context, actor domain.Identity, id, matchID string, req *domain.UpdateScoresRequest) (*domain.Tournament, error) {
	return s.mutate(ctx, actor, id, func(t *domain.Tournament) error {
		matches, err := bracket.UpdateScores(t.Matches, matchID, req.Score1, req.Score2)
		if err != nil {
			return bracketError(err)
		}
		t.Matches = matches
		return nil
	})
}

// ResetMatch reopens a match. Names already advanced stay in place.
func (s *TournamentService) ResetMatch(ctx context.Context, actor domain.Identity, id, matchID string) (*domain.Tournament, error) {
	return s.mutate(ctx, actor, id, func(t *domain.Tournament) error {
		matches, err := bracket.ResetMatch(t.Matches, matchID)
		if err != nil {
			return bracketError(err)
		}
		t.Matches = matches
		return nil
	})
}

// Watch pushes the tournament on every change
func (s *TournamentService) Watch(ctx context.Context, sess *session.Session, id string, onUpdate func(*domain.Tournament)) (*feed.Subscription, error) {
	return s.watch(ctx, sess, []string{feed.TournamentTopic(id)}, nil, func(ctx context.Context) error {
		t, err := s.tournaments.Get(ctx, id)
		if err != nil {
			return storeError(err, "tournament")
		}
		onUpdate(t)
		return nil
	})
}

// mutate reads the current document, applies fn and saves it against the
// version it read
func (s *TournamentService) mutate(ctx context.Context, actor domain.Identity, id string, fn func(*domain.Tournament) error) (*domain.Tournament, error) {
	if err := s.requireAdmin(actor); err != nil {
		return nil, err
	}

	t, err := s.tournaments.Get(ctx, id)
	if err != nil {
		return nil, storeError(err, "tournament")
	}
	expected := t.Version
	if err := fn(t); err != nil {
		return nil, err
	}
	t.UpdatedAt = s.now()

	if err := s.tournaments.Save(ctx, t, expected); err != nil {
		s.logger.Info("Tournament save refused",
			zap.String("tournament_id", id),
			zap.Int("version", expected),
			zap.Error(err))
		return nil, storeError(err, "tournament")
	}
	s.cache.InvalidateTournament(ctx, id)

	s.logger.Info("Tournament updated",
		zap.String("tournament_id", id),
		zap.Int("version", t.Version),
		zap.String("actor_id", actor.ID))
	s.publish(ctx, feed.Event{Topic: feed.TournamentTopic(id), Kind: feed.KindTournamentUpdated, SubjectID: id})
	return t, nil
}

func bracketError(err error) error {
	switch {
	case errors.Is(err, bracket.ErrMatchNotFound):
		return apperrors.NewNotFoundError("match not found")
	default:
		return apperrors.NewValidationError(err.Error(), nil)
	}
}

func trimAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.TrimSpace(s)
	}
	return out
}
