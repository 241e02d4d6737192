package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Rosdorosh/Crypto-Liga/models"
	"github.com/lib/pq"
)

var (
	ErrResultsNotFound = errors.New("tournament results not found")
)

type ResultsRepository interface {
	Create(ctx context.Context, results *models.TournamentResults) error
	GetLatest(ctx context.Context) (*models.TournamentResults, error)
}

type postgresResultsRepository struct {
	db *sql.DB
}

func NewPostgresResultsRepository(db *sql.DB) ResultsRepository {
	return &postgresResultsRepository{db: db}
}

func (r *postgresResultsRepository) Create(ctx context.Context, res *models.TournamentResults) error {
	query := `
		INSERT INTO tournament_results (
			ended_at, total_prize_fund,
			first_team_id, first_member_ids, first_prize_per_user,
			second_team_id, second_member_ids, second_prize_per_user
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`
	return r.db.QueryRowContext(ctx, query,
		res.EndedAt, res.TotalPrizeFund,
		res.FirstPlace.TeamID, pq.Array(res.FirstPlace.MemberIDs), res.FirstPlace.PrizePerUser,
		res.SecondPlace.TeamID, pq.Array(res.SecondPlace.MemberIDs), res.SecondPlace.PrizePerUser,
	).Scan(&res.ID)
}

func (r *postgresResultsRepository) GetLatest(ctx context.Context) (*models.TournamentResults, error) {
	query := `
		SELECT id, ended_at, total_prize_fund,
		       first_team_id, first_member_ids, first_prize_per_user,
		       second_team_id, second_member_ids, second_prize_per_user
		FROM tournament_results ORDER BY ended_at DESC LIMIT 1`

	res := &models.TournamentResults{}
	err := r.db.QueryRowContext(ctx, query).Scan(
		&res.ID, &res.EndedAt, &res.TotalPrizeFund,
		&res.FirstPlace.TeamID, pq.Array(&res.FirstPlace.MemberIDs), &res.FirstPlace.PrizePerUser,
		&res.SecondPlace.TeamID, pq.Array(&res.SecondPlace.MemberIDs), &res.SecondPlace.PrizePerUser,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrResultsNotFound
		}
		return nil, err
	}
	return res, nil
}
