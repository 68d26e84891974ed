package services

import (
	"context"

	"refcore/internal/models"
	"refcore/internal/util"

	"github.com/shopspring/decimal"
)

// CommissionCalculator decides how a trade fee splits between the system,
// the seller rebate, both referrers and the VIP upline. The percentage
// policy lives behind this interface; the ledger writer only enforces that
// the five parts sum to the fee.
type CommissionCalculator interface {
	Compute(ctx context.Context, amount decimal.Decimal, buyerId, sellerId string) (*models.Distribution, error)
}

// Default split of the fee. Shares of roles without a resolved recipient
// fold back into the system share, which keeps the sum invariant regardless
// of graph shape.
var (
	buyerReferrerShare  = decimal.NewFromFloat(0.20)
	sellerReferrerShare = decimal.NewFromFloat(0.20)
	vipBonusShare       = decimal.NewFromFloat(0.10)
	sellerRebateShare   = decimal.NewFromFloat(0.10)
)

type DefaultCalculator struct {
	users UserStore
	vip   VipStore
}

func NewDefaultCalculator(users UserStore, vip VipStore) *DefaultCalculator {
	return &DefaultCalculator{
		users: users,
		vip:   vip,
	}
}

func (c *DefaultCalculator) Compute(ctx context.Context, amount decimal.Decimal, buyerId, sellerId string) (*models.Distribution, error) {
	fee := util.CalculateFee(amount)

	buyer, err := c.users.FindByWallet(ctx, buyerId)
	if err != nil {
		return nil, err
	}
	seller, err := c.users.FindByWallet(ctx, sellerId)
	if err != nil {
		return nil, err
	}

	dist := &models.Distribution{
		System:         fee,
		Seller:         decimal.Zero,
		BuyerReferrer:  decimal.Zero,
		SellerReferrer: decimal.Zero,
		VipBonus:       decimal.Zero,
	}

	if seller != nil {
		dist.Seller = fee.Mul(sellerRebateShare)
		dist.System = dist.System.Sub(dist.Seller)
	}

	buyerRef, err := c.referrerWallet(ctx, buyer)
	if err != nil {
		return nil, err
	}
	if buyerRef != "" {
		dist.BuyerReferrer = fee.Mul(buyerReferrerShare)
		dist.System = dist.System.Sub(dist.BuyerReferrer)
		dist.Recipients.BuyerReferrer = buyerRef
	}

	sellerRef, err := c.referrerWallet(ctx, seller)
	if err != nil {
		return nil, err
	}
	if sellerRef != "" {
		dist.SellerReferrer = fee.Mul(sellerReferrerShare)
		dist.System = dist.System.Sub(dist.SellerReferrer)
		dist.Recipients.SellerReferrer = sellerRef
	}

	upline, err := c.vipUpline(ctx, buyer)
	if err != nil {
		return nil, err
	}
	if upline == "" {
		upline, err = c.vipUpline(ctx, seller)
		if err != nil {
			return nil, err
		}
	}
	if upline != "" {
		dist.VipBonus = fee.Mul(vipBonusShare)
		dist.System = dist.System.Sub(dist.VipBonus)
		dist.Recipients.VipUpline = upline
	}

	return dist, nil
}

func (c *DefaultCalculator) referrerWallet(ctx context.Context, u *models.User) (string, error) {
	if u == nil || !u.ReferrerId.Valid {
		return "", nil
	}

	ref, err := c.users.FindById(ctx, u.ReferrerId.Int64)
	if err != nil {
		return "", err
	}
	if ref == nil {
		return "", nil
	}

	return ref.WalletAddress, nil
}

// vipUpline walks the ancestor chain of the user and returns the wallet of
// the nearest active VIP, searching no further than the team depth cap.
func (c *DefaultCalculator) vipUpline(ctx context.Context, u *models.User) (string, error) {
	if u == nil {
		return "", nil
	}

	current := u
	for depth := 0; depth < MaxTeamDepth && current.ReferrerId.Valid; depth++ {
		parent, err := c.users.FindById(ctx, current.ReferrerId.Int64)
		if err != nil {
			return "", err
		}
		if parent == nil {
			return "", nil
		}

		st, err := c.vip.Find(ctx, parent.Id.Int64)
		if err != nil {
			return "", err
		}
		if st != nil && st.IsActive {
			return parent.WalletAddress, nil
		}

		current = parent
	}

	return "", nil
}
