package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/Rosdorosh/Crypto-Liga/models"
)

var (
	ErrSettingsNotFound = errors.New("tournament settings not found")
)

// SettingsRepository persists the singleton tournament settings row.
// The table carries a constant primary key so an upsert can never
// produce a second row.
type SettingsRepository interface {
	Get(ctx context.Context) (*models.TournamentSettings, error)
	Save(ctx context.Context, s *models.TournamentSettings) error
	UpdateStatus(ctx context.Context, status models.TournamentStatus) error
	// UpdateEconomics overwrites the accumulated income and the
	// recomputed prize fund together.
	UpdateEconomics(ctx context.Context, totalIncome, prizeFund float64) error
	// UpdateNextStart records the scheduled start of the next auto
	// tournament and moves the official start time to it.
	UpdateNextStart(ctx context.Context, next time.Time) error
}

type postgresSettingsRepository struct {
	db *sql.DB
}

func NewPostgresSettingsRepository(db *sql.DB) SettingsRepository {
	return &postgresSettingsRepository{db: db}
}

func (r *postgresSettingsRepository) Get(ctx context.Context) (*models.TournamentSettings, error) {
	query := `
		SELECT start_time, match_duration_sec, break_duration_sec, status,
		       total_reservation_income, prize_fund, auto_mode, auto_interval_min, next_start_time
		FROM tournament_settings WHERE singleton = TRUE`

	s := &models.TournamentSettings{}
	err := r.db.QueryRowContext(ctx, query).Scan(
		&s.StartTime, &s.MatchDurationSec, &s.BreakDurationSec, &s.Status,
		&s.TotalReservationIncome, &s.PrizeFund, &s.AutoMode, &s.AutoIntervalMin, &s.NextStartTime,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSettingsNotFound
		}
		return nil, err
	}
	return s, nil
}

func (r *postgresSettingsRepository) Save(ctx context.Context, s *models.TournamentSettings) error {
	query := `
		INSERT INTO tournament_settings (
			singleton, start_time, match_duration_sec, break_duration_sec, status,
			total_reservation_income, prize_fund, auto_mode, auto_interval_min, next_start_time
		) VALUES (TRUE, $1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (singleton) DO UPDATE SET
			start_time = EXCLUDED.start_time,
			match_duration_sec = EXCLUDED.match_duration_sec,
			break_duration_sec = EXCLUDED.break_duration_sec,
			status = EXCLUDED.status,
			total_reservation_income = EXCLUDED.total_reservation_income,
			prize_fund = EXCLUDED.prize_fund,
			auto_mode = EXCLUDED.auto_mode,
			auto_interval_min = EXCLUDED.auto_interval_min,
			next_start_time = EXCLUDED.next_start_time`
	_, err := r.db.ExecContext(ctx, query,
		s.StartTime, s.MatchDurationSec, s.BreakDurationSec, s.Status,
		s.TotalReservationIncome, s.PrizeFund, s.AutoMode, s.AutoIntervalMin, s.NextStartTime,
	)
	return err
}

func (r *postgresSettingsRepository) UpdateStatus(ctx context.Context, status models.TournamentStatus) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE tournament_settings SET status = $1 WHERE singleton = TRUE`, status)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrSettingsNotFound)
}

func (r *postgresSettingsRepository) UpdateEconomics(ctx context.Context, totalIncome, prizeFund float64) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE tournament_settings SET total_reservation_income = $1, prize_fund = $2 WHERE singleton = TRUE`,
		totalIncome, prizeFund)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrSettingsNotFound)
}

func (r *postgresSettingsRepository) UpdateNextStart(ctx context.Context, next time.Time) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE tournament_settings SET next_start_time = $1, start_time = $1 WHERE singleton = TRUE`, next)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrSettingsNotFound)
}
