package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Rosdorosh/Crypto-Liga/models"
)

var (
	ErrFinanceNotFound = errors.New("finance record not found")
	ErrRefCodeNotFound = errors.New("referral code not found")
)

type FinanceRepository interface {
	// Get loads the ledger record with its full transaction log,
	// newest entries last.
	Get(ctx context.Context, userID string) (*models.UserFinance, error)
	// GetOrCreate lazily creates a zero-balance record on first
	// financial interaction.
	GetOrCreate(ctx context.Context, userID string) (*models.UserFinance, error)
	// Credit atomically adjusts the cached balance by tx.Amount and
	// appends tx to the log. The record must already exist.
	Credit(ctx context.Context, userID string, tx models.Transaction) error
	SetRefCode(ctx context.Context, userID, code string) error
	SetReferrer(ctx context.Context, userID, referrerID string) error
	FindByRefCode(ctx context.Context, code string) (*models.UserFinance, error)
}

type postgresFinanceRepository struct {
	db *sql.DB
}

func NewPostgresFinanceRepository(db *sql.DB) FinanceRepository {
	return &postgresFinanceRepository{db: db}
}

func (r *postgresFinanceRepository) get(ctx context.Context, where string, arg interface{}) (*models.UserFinance, error) {
	query := `SELECT user_id, balance, ref_code, ref_id FROM user_finances WHERE ` + where

	f := &models.UserFinance{}
	err := r.db.QueryRowContext(ctx, query, arg).Scan(&f.UserID, &f.Balance, &f.RefCode, &f.RefID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrFinanceNotFound
		}
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT type, amount, description, created_at
		 FROM user_transactions WHERE user_id = $1 ORDER BY created_at, id`, f.UserID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var t models.Transaction
		if err := rows.Scan(&t.Type, &t.Amount, &t.Description, &t.Timestamp); err != nil {
			return nil, err
		}
		f.Transactions = append(f.Transactions, t)
	}
	return f, rows.Err()
}

func (r *postgresFinanceRepository) Get(ctx context.Context, userID string) (*models.UserFinance, error) {
	return r.get(ctx, "user_id = $1", userID)
}

func (r *postgresFinanceRepository) GetOrCreate(ctx context.Context, userID string) (*models.UserFinance, error) {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO user_finances (user_id, balance) VALUES ($1, 0)
		 ON CONFLICT (user_id) DO NOTHING`, userID)
	if err != nil {
		return nil, err
	}
	return r.Get(ctx, userID)
}

func (r *postgresFinanceRepository) Credit(ctx context.Context, userID string, t models.Transaction) error {
	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer dbTx.Rollback()

	result, err := dbTx.ExecContext(ctx,
		`UPDATE user_finances SET balance = balance + $2 WHERE user_id = $1`, userID, t.Amount)
	if err != nil {
		return err
	}
	if err := checkAffectedRows(result, ErrFinanceNotFound); err != nil {
		return err
	}

	_, err = dbTx.ExecContext(ctx,
		`INSERT INTO user_transactions (user_id, type, amount, description, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		userID, t.Type, t.Amount, t.Description, t.Timestamp)
	if err != nil {
		return err
	}
	return dbTx.Commit()
}

func (r *postgresFinanceRepository) SetRefCode(ctx context.Context, userID, code string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE user_finances SET ref_code = $2 WHERE user_id = $1`, userID, code)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrFinanceNotFound)
}

func (r *postgresFinanceRepository) SetReferrer(ctx context.Context, userID, referrerID string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE user_finances SET ref_id = $2 WHERE user_id = $1`, userID, referrerID)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrFinanceNotFound)
}

func (r *postgresFinanceRepository) FindByRefCode(ctx context.Context, code string) (*models.UserFinance, error) {
	f, err := r.get(ctx, "ref_code = $1", code)
	if errors.Is(err, ErrFinanceNotFound) {
		return nil, ErrRefCodeNotFound
	}
	return f, err
}
