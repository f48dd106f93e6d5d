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

var applicationColumns = []string{
	"id", "team_id", "applicant_id", "applicant_name", "rank", "role", "note",
	"status", "applied_at", "updated_at",
}

type applicationRepository struct {
	db *database.PostgresDB
}

func NewApplicationRepository(db *database.PostgresDB) ApplicationRepository {
	return &applicationRepository{db: db}
}

// Create inserts a pending application and bumps the team's activity
func (r *applicationRepository) Create(ctx context.Context, app *domain.Application) error {
	err := r.db.InTx(ctx, func(tx pgx.Tx) error {
		tag, err := database.Exec(ctx, tx, database.PSQL.
			Update("recruitment_posts").
			Set("last_active", app.AppliedAt).
			Where(sq.Eq{"id": app.TeamID, "kind": string(domain.PostKindTeam)}))
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrNotFound
		}

		_, err = database.Exec(ctx, tx, database.PSQL.
			Insert("applications").
			Columns(applicationColumns...).
			Values(app.ID, app.TeamID, app.ApplicantID, app.ApplicantName, app.Rank, app.Role, app.Note,
				string(app.Status), app.AppliedAt, app.UpdatedAt))
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to create application: %w", err)
	}
	return nil
}

// Get returns domain.ErrNotFound when the application is missing
func (r *applicationRepository) Get(ctx context.Context, teamID, applicationID string) (*domain.Application, error) {
	app, err := getApplication(ctx, r.db.Pool, teamID, applicationID, false)
	if err != nil {
		return nil, fmt.Errorf("failed to get application: %w", err)
	}
	return app, nil
}

func (r *applicationRepository) ListByTeam(ctx context.Context, teamID string, status domain.ApplicationStatus) ([]*domain.Application, error) {
	return r.list(ctx, sq.Eq{"team_id": teamID}, status)
}

func (r *applicationRepository) ListByApplicant(ctx context.Context, applicantID string, status domain.ApplicationStatus) ([]*domain.Application, error) {
	return r.list(ctx, sq.Eq{"applicant_id": applicantID}, status)
}

func (r *applicationRepository) list(ctx context.Context, where sq.Eq, status domain.ApplicationStatus) ([]*domain.Application, error) {
	q := database.PSQL.Select(applicationColumns...).
		From("applications").
		Where(where).
		OrderBy("applied_at ASC", "id ASC")
	if status != "" {
		q = q.Where(sq.Eq{"status": string(status)})
	}

	rows, err := database.Query(ctx, r.db.Pool, q)
	if err != nil {
		return nil, fmt.Errorf("failed to list applications: %w", err)
	}
	defer rows.Close()

	var apps []*domain.Application
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan application: %w", err)
		}
		apps = append(apps, app)
	}
	return apps, rows.Err()
}

func (r *applicationRepository) CountPending(ctx context.Context, teamID string) (int, error) {
	var n int
	err := database.QueryRow(ctx, r.db.Pool, database.PSQL.
		Select("count(*)").
		From("applications").
		Where(sq.Eq{"team_id": teamID, "status": string(domain.ApplicationPending)})).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count pending applications: %w", err)
	}
	return n, nil
}

// Accept checks capacity and appends the member under the team row lock, so
// two concurrent accepts cannot both observe the last free slot.
func (r *applicationRepository) Accept(ctx context.Context, p AcceptParams) (*domain.RecruitmentPost, *domain.Application, error) {
	var post *domain.RecruitmentPost
	var app *domain.Application
	err := r.db.InTx(ctx, func(tx pgx.Tx) error {
		maxMembers, err := lockTeam(ctx, tx, p.TeamID)
		if err != nil {
			return err
		}
		if err := checkActor(ctx, tx, p.TeamID, p.ActorID, p.ActorRole); err != nil {
			return err
		}

		app, err = getApplication(ctx, tx, p.TeamID, p.ApplicationID, true)
		if err != nil {
			return err
		}
		if app.Status != domain.ApplicationPending {
			return domain.ErrConflict
		}
		if _, err := memberRole(ctx, tx, p.TeamID, p.Member.UID); err == nil {
			return domain.ErrConflict
		} else if !errors.Is(err, domain.ErrNotFound) {
			return err
		}

		var size int
		if err := database.QueryRow(ctx, tx, database.PSQL.
			Select("count(*)").
			From("team_members").
			Where(sq.Eq{"team_id": p.TeamID})).Scan(&size); err != nil {
			return err
		}
		if size >= maxMembers {
			return domain.ErrRosterFull
		}

		if err := insertMember(ctx, tx, p.TeamID, p.Member); err != nil {
			return err
		}
		if _, err := database.Exec(ctx, tx, database.PSQL.
			Update("applications").
			Set("status", string(domain.ApplicationAccepted)).
			Set("updated_at", p.At).
			Where(sq.Eq{"id": p.ApplicationID})); err != nil {
			return err
		}
		app.Status = domain.ApplicationAccepted
		app.UpdatedAt = p.At

		if err := bumpAndAnnounce(ctx, tx, p.TeamID, p.Message, p.At); err != nil {
			return err
		}
		post, err = loadPost(ctx, tx, p.TeamID)
		return err
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to accept application: %w", err)
	}
	return post, app, nil
}

// Reject is a conditional update on status = pending
func (r *applicationRepository) Reject(ctx context.Context, teamID, applicationID string, at time.Time) (*domain.Application, error) {
	row := database.QueryRow(ctx, r.db.Pool, database.PSQL.
		Update("applications").
		Set("status", string(domain.ApplicationRejected)).
		Set("updated_at", at).
		Where(sq.Eq{"id": applicationID, "team_id": teamID, "status": string(domain.ApplicationPending)}).
		Suffix("RETURNING "+joinColumns(applicationColumns)))
	app, err := scanApplication(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, r.missingOrStale(ctx, teamID, applicationID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to reject application: %w", err)
	}
	return app, nil
}

// Delete removes the application while it still has status
func (r *applicationRepository) Delete(ctx context.Context, teamID, applicationID string, status domain.ApplicationStatus) error {
	tag, err := database.Exec(ctx, r.db.Pool, database.PSQL.
		Delete("applications").
		Where(sq.Eq{"id": applicationID, "team_id": teamID, "status": string(status)}))
	if err != nil {
		return fmt.Errorf("failed to delete application: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return r.missingOrStale(ctx, teamID, applicationID)
	}
	return nil
}

// missingOrStale tells a vanished application apart from one whose status moved on
func (r *applicationRepository) missingOrStale(ctx context.Context, teamID, applicationID string) error {
	_, err := getApplication(ctx, r.db.Pool, teamID, applicationID, false)
	if err != nil {
		return err
	}
	return domain.ErrConflict
}

func applicationQuery(teamID, applicationID string, forUpdate bool) sq.SelectBuilder {
	stmt := database.PSQL.Select(applicationColumns...).
		From("applications").
		Where(sq.Eq{"id": applicationID, "team_id": teamID})
	if forUpdate {
		stmt = stmt.Suffix("FOR UPDATE")
	}
	return stmt
}

func getApplication(ctx context.Context, q database.Querier, teamID, applicationID string, forUpdate bool) (*domain.Application, error) {
	app, err := scanApplication(database.QueryRow(ctx, q, applicationQuery(teamID, applicationID, forUpdate)))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return app, err
}

func scanApplication(row pgx.Row) (*domain.Application, error) {
	var a domain.Application
	var status string
	err := row.Scan(&a.ID, &a.TeamID, &a.ApplicantID, &a.ApplicantName, &a.Rank, &a.Role, &a.Note,
		&status, &a.AppliedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if a.Status, err = domain.ParseApplicationStatus(status); err != nil {
		return nil, err
	}
	return &a, nil
}
