package services

import (
	"context"
	"time"

	"refcore/internal/config"
	"refcore/internal/models"

	"github.com/shopspring/decimal"
)

type VipService struct {
	users  UserStore
	vip    VipStore
	ledger LedgerStore
	team   *TeamService
}

func NewVipService(users UserStore, vip VipStore, ledger LedgerStore, team *TeamService) *VipService {
	return &VipService{
		users:  users,
		vip:    vip,
		ledger: ledger,
		team:   team,
	}
}

// Stake activates or extends VIP status for the wallet. Amounts below the
// minimum are rejected before any store access. A wallet that already has
// direct referrals may only stake while its VIP status is active; otherwise
// the eligibility error tells it to use a fresh wallet. A repeat stake
// replaces amount and date, it does not stack.
func (s *VipService) Stake(ctx context.Context, walletAddress string, amount decimal.Decimal) error {
	if walletAddress == "" {
		return ErrWalletRequired
	}
	if amount.LessThan(config.VIP_STAKE_MINIMUM) {
		return ErrStakeTooSmall
	}

	user, err := s.users.FindByWallet(ctx, walletAddress)
	if err != nil {
		return err
	}
	if user == nil {
		return ErrUserNotFound
	}

	st, err := s.vip.Find(ctx, user.Id.Int64)
	if err != nil {
		return err
	}

	if st == nil || !st.IsActive {
		count, err := s.users.CountReferrals(ctx, user.Id.Int64)
		if err != nil {
			return err
		}
		if count > 0 {
			return ErrTeamNotVip
		}
	}

	if err := s.vip.Upsert(ctx, &models.VipStatus{
		UserId:        user.Id.Int64,
		IsActive:      true,
		StakedAmount:  amount,
		LastStakeDate: time.Now(),
	}); err != nil {
		return err
	}

	log.Infof("Wallet %v staked %v for VIP", walletAddress, amount)

	return nil
}

// Summary builds the VIP dashboard view: status, team shape, team tree and
// lifetime earnings.
func (s *VipService) Summary(ctx context.Context, walletAddress string) (*models.VipSummary, error) {
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

	st, err := s.vip.Find(ctx, user.Id.Int64)
	if err != nil {
		return nil, err
	}

	count, err := s.users.CountReferrals(ctx, user.Id.Int64)
	if err != nil {
		return nil, err
	}

	tree, err := s.team.BuildTree(ctx, walletAddress)
	if err != nil {
		return nil, err
	}

	sums, err := s.ledger.SumByRole(ctx, walletAddress)
	if err != nil {
		return nil, err
	}

	return &models.VipSummary{
		IsVip:            st != nil && st.IsActive,
		HasTeam:          count > 0,
		TeamTree:         tree,
		TotalEarnings:    sums.Total(),
		BuyerCommission:  sums.BuyerCommission,
		SellerCommission: sums.SellerCommission,
		VipBonus:         sums.VipBonus,
	}, nil
}
