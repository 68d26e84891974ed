package services

import (
	"context"
	"database/sql"
	"time"

	"refcore/internal/config"
	"refcore/internal/models"
	"refcore/internal/util"

	"github.com/shopspring/decimal"
)

var log = config.InitLogger()

type UserService struct {
	users UserStore
}

func NewUserService(users UserStore) *UserService {
	return &UserService{
		users: users,
	}
}

// RegisterOrGet returns the existing user for the wallet, or creates one.
// An already-registered wallet is returned unchanged even if a referral
// code was supplied. For a new registration a supplied code must resolve to
// an existing user, otherwise nothing is created. The referral edge is set
// once here and never re-parented.
func (s *UserService) RegisterOrGet(ctx context.Context, walletAddress, walletType, referralCode string) (*models.RegistrationResult, error) {
	if walletAddress == "" {
		return nil, ErrWalletRequired
	}

	existing, err := s.users.FindByWallet(ctx, walletAddress)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return &models.RegistrationResult{Existing: true, User: existing}, nil
	}

	var referrer *models.User
	if referralCode != "" {
		referrer, err = s.users.FindByReferralCode(ctx, referralCode)
		if err != nil {
			return nil, err
		}
		if referrer == nil || referrer.WalletAddress == walletAddress {
			return nil, ErrInvalidReferralCode
		}
	}

	idx, err := s.users.NextReferralIndex(ctx)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		WalletAddress:     walletAddress,
		ReferralCode:      util.GenerateReferralCode(walletAddress, idx),
		ReferralIndex:     idx,
		CommissionBalance: decimal.Zero,
		CreatedAt:         time.Now(),
	}
	if walletType != "" {
		user.WalletType = sql.NullString{String: walletType, Valid: true}
	}
	if referrer != nil {
		user.ParentRef = sql.NullString{String: referralCode, Valid: true}
		user.ReferrerId = referrer.Id
	}

	if err := s.users.Save(ctx, user); err != nil {
		return nil, err
	}

	log.Infof("Registered wallet %v with referral index %d", util.ShortAddress(walletAddress), idx)

	return &models.RegistrationResult{Existing: false, User: user}, nil
}

func (s *UserService) GetByWallet(ctx context.Context, walletAddress string) (*models.User, error) {
	if walletAddress == "" {
		return nil, ErrWalletRequired
	}

	user, err := s.users.FindByWallet(ctx, walletAddress)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	return user, nil
}

// GetReferrals lists the users directly recruited by the wallet.
func (s *UserService) GetReferrals(ctx context.Context, walletAddress string) ([]models.User, error) {
	user, err := s.GetByWallet(ctx, walletAddress)
	if err != nil {
		return nil, err
	}

	return s.users.FindReferrals(ctx, user.Id.Int64)
}
