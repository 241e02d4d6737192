package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/Rosdorosh/Crypto-Liga/models"
	"github.com/Rosdorosh/Crypto-Liga/repositories"
	"github.com/Rosdorosh/Crypto-Liga/ton"
)

const (
	// Reservation economics. The admin commission and the referral
	// share come off the top of every reservation; the prize fund is
	// recomputed from total income, never accumulated incrementally.
	commissionRate  = 0.19
	referralRate    = 0.01
	prizeFundRate   = 0.81
	reservationStep = 100.0
	initialTeamCost = 100.0
)

// roundMoney keeps all ledger amounts at one decimal place.
func roundMoney(x float64) float64 {
	return math.Round(x*10) / 10
}

type LedgerService struct {
	finances repositories.FinanceRepository
	teams    repositories.TeamRepository
	settings repositories.SettingsRepository
	gateway  ton.Gateway
	logger   *slog.Logger
}

func NewLedgerService(
	finances repositories.FinanceRepository,
	teams repositories.TeamRepository,
	settings repositories.SettingsRepository,
	gateway ton.Gateway,
	logger *slog.Logger,
) *LedgerService {
	return &LedgerService{
		finances: finances,
		teams:    teams,
		settings: settings,
		gateway:  gateway,
		logger:   logger,
	}
}

// ReservationResult is everything a successful reservation changed:
// the team joined, the buyer's ledger record and the refreshed fund.
type ReservationResult struct {
	Team      *models.Team        `json:"team"`
	Finance   *models.UserFinance `json:"finance"`
	PrizeFund float64             `json:"prize_fund"`
}

// Reserve books a slot on a team for the user. The team cost is
// debited in full; the referrer takes 1% off the top when one exists,
// the rest is tournament income, and the admin commission is 19% of
// that income share. The prize fund is then recomputed from the
// running total and the team cost steps up for the next buyer.
func (s *LedgerService) Reserve(ctx context.Context, userID string, teamID int) (*ReservationResult, error) {
	team, err := s.teams.GetByID(ctx, teamID)
	if err != nil {
		if errors.Is(err, repositories.ErrTeamNotFound) {
			return nil, ErrTeamNotFound
		}
		return nil, err
	}
	if !team.IsAvailable {
		return nil, ErrTeamNotAvailable
	}

	if _, err := s.teams.FindByMember(ctx, userID); err == nil {
		return nil, ErrUserAlreadyInTeam
	} else if !errors.Is(err, repositories.ErrTeamNotFound) {
		return nil, err
	}

	fin, err := s.finances.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}

	cost := roundMoney(team.TeamCost)
	if fin.Balance < cost {
		return nil, ErrInsufficientFunds
	}

	err = s.RecordTransaction(ctx, userID, models.TransactionReservation, -cost,
		fmt.Sprintf("reservation of team %s", team.Symbol))
	if err != nil {
		return nil, err
	}

	refShare := 0.0
	if fin.RefID != nil {
		refShare = roundMoney(cost * referralRate)
		err = s.RecordTransaction(ctx, *fin.RefID, models.TransactionReferral, refShare,
			fmt.Sprintf("referral share from %s", userID))
		if err != nil {
			// Референт мог быть удалён; резервация не откатывается.
			s.logger.Warn("failed to credit referral share",
				slog.String("referrer", *fin.RefID), slog.Any("error", err))
		}
	}

	incomeShare := roundMoney(cost - refShare)
	commission := roundMoney(incomeShare * commissionRate)
	err = s.RecordTransaction(ctx, models.AdminUserID, models.TransactionCommission, commission,
		fmt.Sprintf("commission from reservation by %s", userID))
	if err != nil {
		return nil, err
	}

	if err := s.teams.AddMember(ctx, teamID, userID, cost+reservationStep); err != nil {
		return nil, err
	}

	prizeFund, err := s.accrueIncome(ctx, incomeShare)
	if err != nil {
		return nil, err
	}

	s.logger.Info("team slot reserved",
		slog.String("user_id", userID),
		slog.String("symbol", team.Symbol),
		slog.Float64("cost", cost))

	updatedTeam, err := s.teams.GetByID(ctx, teamID)
	if err != nil {
		return nil, err
	}
	updatedFin, err := s.finances.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &ReservationResult{Team: updatedTeam, Finance: updatedFin, PrizeFund: prizeFund}, nil
}

// accrueIncome adds the income share to the running total and
// recomputes the prize fund from scratch as floor(income * 0.81).
func (s *LedgerService) accrueIncome(ctx context.Context, amount float64) (float64, error) {
	settings, err := s.settings.Get(ctx)
	if err != nil {
		if errors.Is(err, repositories.ErrSettingsNotFound) {
			return 0, ErrSettingsNotFound
		}
		return 0, err
	}
	total := roundMoney(settings.TotalReservationIncome + amount)
	fund := math.Floor(total * prizeFundRate)
	return fund, s.settings.UpdateEconomics(ctx, total, fund)
}

// RecordTransaction appends one ledger entry, creating the record on
// first touch. Amounts are rounded to one decimal place.
func (s *LedgerService) RecordTransaction(ctx context.Context, userID string, txType models.TransactionType, amount float64, description string) error {
	if _, err := s.finances.GetOrCreate(ctx, userID); err != nil {
		return err
	}
	return s.finances.Credit(ctx, userID, models.Transaction{
		Type:        txType,
		Amount:      roundMoney(amount),
		Description: description,
		Timestamp:   time.Now(),
	})
}

// DistributeRewards credits the prize to every listed member.
// Individual failures are logged and skipped so one bad record cannot
// block the payout of the rest.
func (s *LedgerService) DistributeRewards(ctx context.Context, userIDs []string, amountPerUser float64, description string) {
	for _, userID := range userIDs {
		err := s.RecordTransaction(ctx, userID, models.TransactionWin, amountPerUser, description)
		if err != nil {
			s.logger.Error("failed to credit prize",
				slog.String("user_id", userID), slog.Any("error", err))
		}
	}
}

// VerifyPayment asks the gateway whether a payment is confirmed.
func (s *LedgerService) VerifyPayment(ctx context.Context, paymentID string) (bool, error) {
	return s.gateway.Verify(ctx, paymentID)
}

// GetFinance returns the user's ledger record with its transaction
// log, creating an empty record on first access.
func (s *LedgerService) GetFinance(ctx context.Context, userID string) (*models.UserFinance, error) {
	if _, err := s.finances.GetOrCreate(ctx, userID); err != nil {
		return nil, err
	}
	return s.finances.Get(ctx, userID)
}

// WalletBalance reports the user's external wallet balance from the
// payment gateway; the tournament ledger is not consulted.
func (s *LedgerService) WalletBalance(ctx context.Context, userID string) (float64, error) {
	return s.gateway.Balance(ctx, userID)
}

// Deposit tops the balance up through the payment gateway. The credit
// lands only after the gateway confirms the payment.
func (s *LedgerService) Deposit(ctx context.Context, userID string, amount float64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	if _, err := s.finances.GetOrCreate(ctx, userID); err != nil {
		return err
	}

	paymentID, err := s.gateway.Deposit(ctx, userID, amount)
	if err != nil {
		return err
	}
	confirmed, err := s.gateway.Verify(ctx, paymentID)
	if err != nil {
		return err
	}
	if !confirmed {
		return ton.ErrPaymentRejected
	}

	return s.finances.Credit(ctx, userID, models.Transaction{
		Type:        models.TransactionDeposit,
		Amount:      roundMoney(amount),
		Description: fmt.Sprintf("deposit %s", paymentID),
		Timestamp:   time.Now(),
	})
}

// Withdraw sends funds out through the payment gateway after checking
// the balance covers the amount.
func (s *LedgerService) Withdraw(ctx context.Context, userID, wallet string, amount float64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	fin, err := s.finances.GetOrCreate(ctx, userID)
	if err != nil {
		return err
	}
	if fin.Balance < amount {
		return ErrInsufficientFunds
	}

	paymentID, err := s.gateway.Withdraw(ctx, userID, wallet, amount)
	if err != nil {
		return err
	}

	return s.finances.Credit(ctx, userID, models.Transaction{
		Type:        models.TransactionWithdrawal,
		Amount:      -roundMoney(amount),
		Description: fmt.Sprintf("withdrawal %s", paymentID),
		Timestamp:   time.Now(),
	})
}
