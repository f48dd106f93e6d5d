package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"squadhub/internal/domain"
	"squadhub/pkg/database"
)

var postColumns = []string{
	"p.id", "p.kind", "p.game", "p.display_name", "p.description", "p.image",
	"p.contact_link", "p.is_premium", "p.author_id", "p.created_at", "p.last_active",
	"p.max_members", "p.role_tags",
}

type postRepository struct {
	db *database.PostgresDB
}

func NewPostRepository(db *database.PostgresDB) PostRepository {
	return &postRepository{db: db}
}

// Create inserts the posting and its captain in one transaction
func (r *postRepository) Create(ctx context.Context, post *domain.RecruitmentPost) error {
	err := r.db.InTx(ctx, func(tx pgx.Tx) error {
		_, err := database.Exec(ctx, tx, database.PSQL.
			Insert("recruitment_posts").
			Columns("id", "kind", "game", "display_name", "description", "image",
				"contact_link", "is_premium", "author_id", "created_at", "last_active",
				"max_members", "role_tags").
			Values(post.ID, string(post.Kind), post.Game, post.DisplayName, post.Description, post.Image,
				post.ContactLink, post.IsPremium, post.AuthorID, post.CreatedAt, post.LastActive,
				post.MaxMembers, nonNil(post.RoleTags)))
		if err != nil {
			return err
		}
		for _, m := range post.Members.Ordered() {
			if err := insertMember(ctx, tx, post.ID, m); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to create posting: %w", err)
	}
	return nil
}

// GetByID loads a posting and its roster
func (r *postRepository) GetByID(ctx context.Context, id string) (*domain.RecruitmentPost, error) {
	post, err := loadPost(ctx, r.db.Pool, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get posting: %w", err)
	}
	return post, nil
}

// List builds the filter in SQL and then attaches rosters with one extra query
func (r *postRepository) List(ctx context.Context, filter domain.PostFilter) ([]*domain.RecruitmentPost, error) {
	rows, err := database.Query(ctx, r.db.Pool, listQuery(filter))
	if err != nil {
		return nil, fmt.Errorf("failed to list postings: %w", err)
	}
	defer rows.Close()

	var posts []*domain.RecruitmentPost
	byID := map[string]*domain.RecruitmentPost{}
	var teamIDs []string
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan posting: %w", err)
		}
		posts = append(posts, post)
		if post.IsTeam() {
			byID[post.ID] = post
			teamIDs = append(teamIDs, post.ID)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list postings: %w", err)
	}

	if len(teamIDs) > 0 {
		rosters, err := loadRosters(ctx, r.db.Pool, teamIDs)
		if err != nil {
			return nil, fmt.Errorf("failed to load rosters: %w", err)
		}
		for id, roster := range rosters {
			byID[id].Members = roster
		}
	}

	return posts, nil
}

// listQuery translates a normalized filter into a select over recruitment_posts
func listQuery(f domain.PostFilter) sq.SelectBuilder {
	q := database.PSQL.Select(postColumns...).
		From("recruitment_posts p").
		Where(sq.Eq{"p.kind": string(f.View.Kind())}).
		OrderBy("p.is_premium DESC", "p.created_at DESC")

	if f.Game != "" {
		q = q.Where("lower(p.game) = lower(?)", f.Game)
	}
	if f.Search != "" {
		q = q.Where("strpos(lower(p.display_name), lower(?)) > 0", f.Search)
	}

	isMember := "EXISTS (SELECT 1 FROM team_members m WHERE m.team_id = p.id AND m.uid = ?)"
	switch f.Membership {
	case domain.MembershipMine:
		if f.View.Kind() == domain.PostKindTeam {
			q = q.Where(isMember, f.ViewerID)
		} else {
			q = q.Where(sq.Eq{"p.author_id": f.ViewerID})
		}
	case domain.MembershipAvailable:
		if f.View.Kind() == domain.PostKindTeam {
			q = q.Where("NOT "+isMember, f.ViewerID).
				Where("(SELECT count(*) FROM team_members c WHERE c.team_id = p.id) < p.max_members")
		} else {
			q = q.Where(sq.NotEq{"p.author_id": f.ViewerID})
		}
	case domain.MembershipAll:
	}
	return q
}

// ChangeRole swaps a member's role while the team row is locked
func (r *postRepository) ChangeRole(ctx context.Context, p ChangeRoleParams) (*domain.RecruitmentPost, error) {
	var post *domain.RecruitmentPost
	err := r.db.InTx(ctx, func(tx pgx.Tx) error {
		if _, err := lockTeam(ctx, tx, p.TeamID); err != nil {
			return err
		}
		role, err := memberRole(ctx, tx, p.TeamID, p.UID)
		if err != nil {
			return err
		}
		if role != p.From || role == domain.RoleCaptain || p.To == domain.RoleCaptain {
			return domain.ErrConflict
		}

		if _, err := database.Exec(ctx, tx, database.PSQL.
			Update("team_members").
			Set("role", string(p.To)).
			Where(sq.Eq{"team_id": p.TeamID, "uid": p.UID})); err != nil {
			return err
		}
		if err := bumpAndAnnounce(ctx, tx, p.TeamID, p.Message, p.At); err != nil {
			return err
		}

		post, err = loadPost(ctx, tx, p.TeamID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to change role: %w", err)
	}
	return post, nil
}

// RemoveMember deletes a non-captain member and cascades to their applications
func (r *postRepository) RemoveMember(ctx context.Context, p RemoveMemberParams) (*domain.RecruitmentPost, error) {
	var post *domain.RecruitmentPost
	err := r.db.InTx(ctx, func(tx pgx.Tx) error {
		if _, err := lockTeam(ctx, tx, p.TeamID); err != nil {
			return err
		}
		if err := checkActor(ctx, tx, p.TeamID, p.ActorID, p.ActorRole); err != nil {
			return err
		}
		role, err := memberRole(ctx, tx, p.TeamID, p.UID)
		if err != nil {
			return err
		}
		if role != p.ExpectedRole || role == domain.RoleCaptain {
			return domain.ErrConflict
		}

		if _, err := database.Exec(ctx, tx, database.PSQL.
			Delete("team_members").
			Where(sq.Eq{"team_id": p.TeamID, "uid": p.UID})); err != nil {
			return err
		}

		outstanding := sq.Eq{
			"team_id":      p.TeamID,
			"applicant_id": p.UID,
			"status":       outstandingStatuses(),
		}
		switch p.Cascade {
		case CascadeMarkKicked:
			_, err = database.Exec(ctx, tx, database.PSQL.
				Update("applications").
				Set("status", string(domain.ApplicationKicked)).
				Set("updated_at", p.At).
				Where(outstanding))
		case CascadeDelete:
			_, err = database.Exec(ctx, tx, database.PSQL.Delete("applications").Where(outstanding))
		}
		if err != nil {
			return err
		}

		if err := bumpAndAnnounce(ctx, tx, p.TeamID, p.Message, p.At); err != nil {
			return err
		}
		post, err = loadPost(ctx, tx, p.TeamID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to remove member: %w", err)
	}
	return post, nil
}

// Disband removes the team, its roster and its chat log
func (r *postRepository) Disband(ctx context.Context, p DisbandParams) ([]string, error) {
	var affected []string
	err := r.db.InTx(ctx, func(tx pgx.Tx) error {
		if _, err := lockTeam(ctx, tx, p.TeamID); err != nil {
			return err
		}
		role, err := memberRole(ctx, tx, p.TeamID, p.CaptainID)
		if errors.Is(err, domain.ErrNotFound) || (err == nil && role != domain.RoleCaptain) {
			return domain.ErrConflict
		}
		if err != nil {
			return err
		}

		rows, err := database.Query(ctx, tx, database.PSQL.
			Update("applications").
			Set("status", string(domain.ApplicationKicked)).
			Set("updated_at", p.At).
			Where(sq.Eq{"team_id": p.TeamID, "status": outstandingStatuses()}).
			Suffix("RETURNING applicant_id"))
		if err != nil {
			return err
		}
		affected, err = pgx.CollectRows(rows, pgx.RowTo[string])
		if err != nil {
			return err
		}

		if _, err := database.Exec(ctx, tx, database.PSQL.
			Delete("chat_messages").
			Where(sq.Eq{"channel_id": string(domain.TeamChannel(p.TeamID))})); err != nil {
			return err
		}
		_, err = database.Exec(ctx, tx, database.PSQL.
			Delete("recruitment_posts").
			Where(sq.Eq{"id": p.TeamID}))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to disband team: %w", err)
	}
	return affected, nil
}

func lockTeamQuery(teamID string) sq.SelectBuilder {
	return database.PSQL.
		Select("max_members").
		From("recruitment_posts").
		Where(sq.Eq{"id": teamID, "kind": string(domain.PostKindTeam)}).
		Suffix("FOR UPDATE")
}

// lockTeam takes the row lock every roster mutation serializes on
func lockTeam(ctx context.Context, tx pgx.Tx, teamID string) (int, error) {
	var maxMembers int
	err := database.QueryRow(ctx, tx, lockTeamQuery(teamID)).Scan(&maxMembers)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, domain.ErrNotFound
	}
	return maxMembers, err
}

// checkActor re-reads the actor's role under the team lock. A guard that
// passed on an earlier read no longer counts once the actor was demoted or
// removed.
func checkActor(ctx context.Context, tx pgx.Tx, teamID, actorID string, want domain.Role) error {
	if actorID == "" {
		return nil
	}
	role, err := memberRole(ctx, tx, teamID, actorID)
	if errors.Is(err, domain.ErrNotFound) || (err == nil && role != want) {
		return domain.ErrConflict
	}
	return err
}

func memberRoleQuery(teamID, uid string) sq.SelectBuilder {
	return database.PSQL.
		Select("role").
		From("team_members").
		Where(sq.Eq{"team_id": teamID, "uid": uid})
}

func memberRole(ctx context.Context, q database.Querier, teamID, uid string) (domain.Role, error) {
	var role string
	err := database.QueryRow(ctx, q, memberRoleQuery(teamID, uid)).Scan(&role)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", domain.ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return domain.ParseRole(role)
}

func insertMember(ctx context.Context, q database.Querier, teamID string, m domain.Member) error {
	_, err := database.Exec(ctx, q, database.PSQL.
		Insert("team_members").
		Columns("team_id", "uid", "name", "role", "joined_at").
		Values(teamID, m.UID, m.Name, string(m.Role), m.JoinedAt))
	return err
}

// bumpAndAnnounce advances last_active and appends the system message
func bumpAndAnnounce(ctx context.Context, tx pgx.Tx, teamID string, msg domain.ChatMessage, at time.Time) error {
	if _, err := database.Exec(ctx, tx, database.PSQL.
		Update("recruitment_posts").
		Set("last_active", at).
		Where(sq.Eq{"id": teamID})); err != nil {
		return err
	}
	msg.CreatedAt = at
	_, err := insertMessage(ctx, tx, &msg)
	return err
}

func loadPost(ctx context.Context, q database.Querier, id string) (*domain.RecruitmentPost, error) {
	row := database.QueryRow(ctx, q, database.PSQL.
		Select(postColumns...).
		From("recruitment_posts p").
		Where(sq.Eq{"p.id": id}))
	post, err := scanPost(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if post.IsTeam() {
		rosters, err := loadRosters(ctx, q, []string{id})
		if err != nil {
			return nil, err
		}
		post.Members = rosters[id]
	}
	return post, nil
}

func loadRosters(ctx context.Context, q database.Querier, teamIDs []string) (map[string]domain.Roster, error) {
	rows, err := database.Query(ctx, q, database.PSQL.
		Select("team_id", "uid", "name", "role", "joined_at").
		From("team_members").
		Where(sq.Eq{"team_id": teamIDs}))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]domain.Roster, len(teamIDs))
	for rows.Next() {
		var teamID, role string
		var m domain.Member
		if err := rows.Scan(&teamID, &m.UID, &m.Name, &role, &m.JoinedAt); err != nil {
			return nil, err
		}
		if m.Role, err = domain.ParseRole(role); err != nil {
			return nil, err
		}
		if out[teamID] == nil {
			out[teamID] = domain.Roster{}
		}
		out[teamID][m.UID] = m
	}
	return out, rows.Err()
}

func scanPost(row pgx.Row) (*domain.RecruitmentPost, error) {
	var p domain.RecruitmentPost
	var kind string
	err := row.Scan(&p.ID, &kind, &p.Game, &p.DisplayName, &p.Description, &p.Image,
		&p.ContactLink, &p.IsPremium, &p.AuthorID, &p.CreatedAt, &p.LastActive,
		&p.MaxMembers, &p.RoleTags)
	if err != nil {
		return nil, err
	}
	if p.Kind, err = domain.ParsePostKind(kind); err != nil {
		return nil, err
	}
	return &p, nil
}

func outstandingStatuses() []string {
	return []string{string(domain.ApplicationPending), string(domain.ApplicationAccepted)}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
