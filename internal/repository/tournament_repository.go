package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"squadhub/internal/domain"
	"squadhub/pkg/database"
)

var tournamentColumns = []string{
	"id", "name", "game", "format", "participants", "matches", "version",
	"created_by", "created_at", "updated_at",
}

type tournamentRepository struct {
	db *database.PostgresDB
}

func NewTournamentRepository(db *database.PostgresDB) TournamentRepository {
	return &tournamentRepository{db: db}
}

func (r *tournamentRepository) Create(ctx context.Context, t *domain.Tournament) error {
	matches, err := json.Marshal(nonNilMatches(t.Matches))
	if err != nil {
		return fmt.Errorf("failed to encode matches: %w", err)
	}

	_, err = database.Exec(ctx, r.db.Pool, database.PSQL.
		Insert("tournaments").
		Columns(tournamentColumns...).
		Values(t.ID, t.Name, t.Game, string(t.Format), nonNil(t.Participants), matches, t.Version,
			t.CreatedBy, t.CreatedAt, t.UpdatedAt))
	if err != nil {
		return fmt.Errorf("failed to create tournament: %w", err)
	}
	return nil
}

func (r *tournamentRepository) Get(ctx context.Context, id string) (*domain.Tournament, error) {
	t, err := scanTournament(database.QueryRow(ctx, r.db.Pool, database.PSQL.
		Select(tournamentColumns...).
		From("tournaments").
		Where(sq.Eq{"id": id})))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to get tournament: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get tournament: %w", err)
	}
	return t, nil
}

func (r *tournamentRepository) List(ctx context.Context) ([]*domain.Tournament, error) {
	rows, err := database.Query(ctx, r.db.Pool, database.PSQL.
		Select(tournamentColumns...).
		From("tournaments").
		OrderBy("created_at DESC"))
	if err != nil {
		return nil, fmt.Errorf("failed to list tournaments: %w", err)
	}
	defer rows.Close()

	var out []*domain.Tournament
	for rows.Next() {
		t, err := scanTournament(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan tournament: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Save is a whole-document replace guarded by the version column
func (r *tournamentRepository) Save(ctx context.Context, t *domain.Tournament, expectedVersion int) error {
	matches, err := json.Marshal(nonNilMatches(t.Matches))
	if err != nil {
		return fmt.Errorf("failed to encode matches: %w", err)
	}

	tag, err := database.Exec(ctx, r.db.Pool, database.PSQL.
		Update("tournaments").
		Set("name", t.Name).
		Set("game", t.Game).
		Set("format", string(t.Format)).
		Set("participants", nonNil(t.Participants)).
		Set("matches", matches).
		Set("version", expectedVersion+1).
		Set("updated_at", t.UpdatedAt).
		Where(sq.Eq{"id": t.ID, "version": expectedVersion}))
	if err != nil {
		return fmt.Errorf("failed to save tournament: %w", err)
	}
	if tag.RowsAffected() == 0 {
		if _, err := r.Get(ctx, t.ID); err != nil {
			return err
		}
		return fmt.Errorf("failed to save tournament: %w", domain.ErrConflict)
	}

	t.Version = expectedVersion + 1
	return nil
}

func scanTournament(row pgx.Row) (*domain.Tournament, error) {
	var t domain.Tournament
	var format string
	var matches []byte
	err := row.Scan(&t.ID, &t.Name, &t.Game, &format, &t.Participants, &matches, &t.Version,
		&t.CreatedBy, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if t.Format, err = domain.ParseFormat(format); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(matches, &t.Matches); err != nil {
		return nil, fmt.Errorf("decode matches: %w", err)
	}
	return &t, nil
}

func nonNilMatches(m []domain.Match) []domain.Match {
	if m == nil {
		return []domain.Match{}
	}
	return m
}
