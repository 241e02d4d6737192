package services

import (
	"context"
	"errors"
	"strings"

	"github.com/Rosdorosh/Crypto-Liga/repositories"
	"github.com/google/uuid"
)

type ReferralService struct {
	finances repositories.FinanceRepository
}

func NewReferralService(finances repositories.FinanceRepository) *ReferralService {
	return &ReferralService{finances: finances}
}

// GetOrCreateRefCode returns the user's referral code, generating one
// on first request. Codes are stable once issued.
func (s *ReferralService) GetOrCreateRefCode(ctx context.Context, userID string) (string, error) {
	fin, err := s.finances.GetOrCreate(ctx, userID)
	if err != nil {
		return "", err
	}
	if fin.RefCode != nil {
		return *fin.RefCode, nil
	}

	code := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	if err := s.finances.SetRefCode(ctx, userID, code); err != nil {
		return "", err
	}
	return code, nil
}

// ApplyRefCode binds the user to the code's owner. The binding is
// permanent and self-referral is rejected.
func (s *ReferralService) ApplyRefCode(ctx context.Context, userID, code string) error {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return ErrInvalidRefCode
	}

	owner, err := s.finances.FindByRefCode(ctx, code)
	if err != nil {
		if errors.Is(err, repositories.ErrRefCodeNotFound) {
			return ErrInvalidRefCode
		}
		return err
	}
	if owner.UserID == userID {
		return ErrSelfReferral
	}

	fin, err := s.finances.GetOrCreate(ctx, userID)
	if err != nil {
		return err
	}
	if fin.RefID != nil {
		return ErrReferrerAlreadySet
	}

	return s.finances.SetReferrer(ctx, userID, owner.UserID)
}
