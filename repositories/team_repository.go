package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Rosdorosh/Crypto-Liga/models"
	"github.com/lib/pq"
)

var (
	ErrTeamNotFound = errors.New("team not found")
)

type TeamRepository interface {
	Create(ctx context.Context, team *models.Team) error
	GetByID(ctx context.Context, id int) (*models.Team, error)
	List(ctx context.Context) ([]*models.Team, error)
	// FindByMember returns the team the user currently holds a seat
	// on, or ErrTeamNotFound. A user holds at most one seat.
	FindByMember(ctx context.Context, userID string) (*models.Team, error)
	// AddMember appends the user to the member list and sets the new
	// reservation cost in one statement.
	AddMember(ctx context.Context, teamID int, userID string, newCost float64) error
	// ResetAll clears every member list and resets every team cost,
	// used when a tournament completes.
	ResetAll(ctx context.Context, cost float64) error
	Delete(ctx context.Context, id int) error
}

type postgresTeamRepository struct {
	db *sql.DB
}

func NewPostgresTeamRepository(db *sql.DB) TeamRepository {
	return &postgresTeamRepository{db: db}
}

const teamColumns = `id, symbol, is_available, team_cost, member_ids`

func scanTeam(row interface{ Scan(...interface{}) error }) (*models.Team, error) {
	t := &models.Team{}
	err := row.Scan(&t.ID, &t.Symbol, &t.IsAvailable, &t.TeamCost, pq.Array(&t.MemberIDs))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTeamNotFound
		}
		return nil, err
	}
	if t.MemberIDs == nil {
		t.MemberIDs = []string{}
	}
	return t, nil
}

func (r *postgresTeamRepository) Create(ctx context.Context, t *models.Team) error {
	query := `
		INSERT INTO teams (symbol, is_available, team_cost, member_ids)
		VALUES ($1, $2, $3, $4)
		RETURNING id`
	return r.db.QueryRowContext(ctx, query,
		t.Symbol, t.IsAvailable, t.TeamCost, pq.Array(t.MemberIDs),
	).Scan(&t.ID)
}

func (r *postgresTeamRepository) GetByID(ctx context.Context, id int) (*models.Team, error) {
	query := `SELECT ` + teamColumns + ` FROM teams WHERE id = $1`
	return scanTeam(r.db.QueryRowContext(ctx, query, id))
}

func (r *postgresTeamRepository) List(ctx context.Context) ([]*models.Team, error) {
	query := `SELECT ` + teamColumns + ` FROM teams ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var teams []*models.Team
	for rows.Next() {
		t, err := scanTeam(rows)
		if err != nil {
			return nil, err
		}
		teams = append(teams, t)
	}
	return teams, rows.Err()
}

func (r *postgresTeamRepository) FindByMember(ctx context.Context, userID string) (*models.Team, error) {
	query := `SELECT ` + teamColumns + ` FROM teams WHERE $1 = ANY(member_ids)`
	return scanTeam(r.db.QueryRowContext(ctx, query, userID))
}

func (r *postgresTeamRepository) AddMember(ctx context.Context, teamID int, userID string, newCost float64) error {
	query := `
		UPDATE teams
		SET member_ids = array_append(member_ids, $2), team_cost = $3
		WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, teamID, userID, newCost)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrTeamNotFound)
}

func (r *postgresTeamRepository) ResetAll(ctx context.Context, cost float64) error {
	query := `UPDATE teams SET member_ids = '{}', team_cost = $1`
	_, err := r.db.ExecContext(ctx, query, cost)
	return err
}

func (r *postgresTeamRepository) Delete(ctx context.Context, id int) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM teams WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrTeamNotFound)
}
