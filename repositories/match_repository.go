package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Rosdorosh/Crypto-Liga/models"
)

var (
	ErrMatchNotFound = errors.New("match not found")
)

type MatchRepository interface {
	CreateBatch(ctx context.Context, matches []*models.Match) error
	GetByID(ctx context.Context, id string) (*models.Match, error)
	// List returns all matches ordered by round, then order in round.
	List(ctx context.Context) ([]*models.Match, error)
	ListByRound(ctx context.Context, round int) ([]*models.Match, error)
	ListByStatus(ctx context.Context, status models.MatchStatus) ([]*models.Match, error)
	// HighestRound returns 0 when no matches exist.
	HighestRound(ctx context.Context) (int, error)
	Update(ctx context.Context, match *models.Match) error
	DeleteAll(ctx context.Context) error
}

type postgresMatchRepository struct {
	db *sql.DB
}

func NewPostgresMatchRepository(db *sql.DB) MatchRepository {
	return &postgresMatchRepository{db: db}
}

const matchColumns = `
	id, team1_id, team2_id, round, order_in_round, round_name, status,
	winner_id, start_time, end_time,
	team1_start, team1_end, team1_change,
	team2_start, team2_end, team2_change`

func scanMatch(row interface{ Scan(...interface{}) error }) (*models.Match, error) {
	m := &models.Match{}
	var t1s, t1e, t1c, t2s, t2e, t2c sql.NullFloat64
	err := row.Scan(
		&m.ID, &m.Team1ID, &m.Team2ID, &m.Round, &m.OrderInRound, &m.RoundName, &m.Status,
		&m.WinnerID, &m.StartTime, &m.EndTime,
		&t1s, &t1e, &t1c, &t2s, &t2e, &t2c,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, err
	}
	if t1s.Valid {
		m.Team1Result = &models.PriceSnapshot{Start: t1s.Float64, End: t1e.Float64, ChangePercent: t1c.Float64}
	}
	if t2s.Valid {
		m.Team2Result = &models.PriceSnapshot{Start: t2s.Float64, End: t2e.Float64, ChangePercent: t2c.Float64}
	}
	return m, nil
}

func (r *postgresMatchRepository) CreateBatch(ctx context.Context, matches []*models.Match) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO matches (id, team1_id, team2_id, round, order_in_round, round_name, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	for _, m := range matches {
		if _, err := tx.ExecContext(ctx, query,
			m.ID, m.Team1ID, m.Team2ID, m.Round, m.OrderInRound, m.RoundName, m.Status,
		); err != nil {
			return fmt.Errorf("failed to insert match %s: %w", m.ID, err)
		}
	}
	return tx.Commit()
}

func (r *postgresMatchRepository) GetByID(ctx context.Context, id string) (*models.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches WHERE id = $1`
	return scanMatch(r.db.QueryRowContext(ctx, query, id))
}

func (r *postgresMatchRepository) list(ctx context.Context, where string, args ...interface{}) ([]*models.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches ` + where + ` ORDER BY round, order_in_round`
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var matches []*models.Match
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, err
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

func (r *postgresMatchRepository) List(ctx context.Context) ([]*models.Match, error) {
	return r.list(ctx, "")
}

func (r *postgresMatchRepository) ListByRound(ctx context.Context, round int) ([]*models.Match, error) {
	return r.list(ctx, "WHERE round = $1", round)
}

func (r *postgresMatchRepository) ListByStatus(ctx context.Context, status models.MatchStatus) ([]*models.Match, error) {
	return r.list(ctx, "WHERE status = $1", status)
}

func (r *postgresMatchRepository) HighestRound(ctx context.Context) (int, error) {
	var round sql.NullInt64
	err := r.db.QueryRowContext(ctx, `SELECT MAX(round) FROM matches`).Scan(&round)
	if err != nil {
		return 0, err
	}
	return int(round.Int64), nil
}

func (r *postgresMatchRepository) Update(ctx context.Context, m *models.Match) error {
	query := `
		UPDATE matches SET
			status = $2, winner_id = $3, start_time = $4, end_time = $5,
			team1_start = $6, team1_end = $7, team1_change = $8,
			team2_start = $9, team2_end = $10, team2_change = $11
		WHERE id = $1`

	var t1s, t1e, t1c, t2s, t2e, t2c interface{}
	if m.Team1Result != nil {
		t1s, t1e, t1c = m.Team1Result.Start, m.Team1Result.End, m.Team1Result.ChangePercent
	}
	if m.Team2Result != nil {
		t2s, t2e, t2c = m.Team2Result.Start, m.Team2Result.End, m.Team2Result.ChangePercent
	}

	result, err := r.db.ExecContext(ctx, query,
		m.ID, m.Status, m.WinnerID, m.StartTime, m.EndTime,
		t1s, t1e, t1c, t2s, t2e, t2c,
	)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) DeleteAll(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM matches`)
	return err
}
