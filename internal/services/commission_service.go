package services

import (
	"context"
	"database/sql"
	"time"

	"refcore/internal/config"
	"refcore/internal/models"
	"refcore/internal/util"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type CommissionService struct {
	users      UserStore
	ledger     LedgerStore
	calculator CommissionCalculator
}

func NewCommissionService(users UserStore, ledger LedgerStore, calculator CommissionCalculator) *CommissionService {
	return &CommissionService{
		users:      users,
		ledger:     ledger,
		calculator: calculator,
	}
}

// RecordTransaction obtains the fee distribution for a completed trade,
// persists the ledger entry and credits each resolved recipient. The entry,
// the credits and the processed flag commit in one store transaction. A
// distribution that does not sum to the fee is rejected before any write.
// Credits whose recipient cannot be found come back as warnings on an
// otherwise successful result.
func (s *CommissionService) RecordTransaction(ctx context.Context, amount decimal.Decimal, buyerId, sellerId string) (*models.TransactionResult, error) {
	if buyerId == "" || sellerId == "" {
		return nil, ErrIdentifierRequired
	}
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	dist, err := s.calculator.Compute(ctx, amount, buyerId, sellerId)
	if err != nil {
		return nil, err
	}

	fee := util.CalculateFee(amount)
	if !dist.Total().Equal(fee) {
		log.Errorf("Distribution %v does not match fee %v", dist.Total(), fee)
		return nil, ErrDistributionMismatch
	}

	t := &models.Transaction{
		Id:               uuid.New(),
		Amount:           amount,
		Fee:              fee,
		BuyerId:          buyerId,
		SellerId:         sellerId,
		BuyerCommission:  dist.BuyerReferrer,
		SellerCommission: dist.SellerReferrer,
		VipBonus:         dist.VipBonus,
		SystemFee:        dist.System,
		SellerRebate:     dist.Seller,
		CreatedAt:        time.Now(),
	}
	if dist.Recipients.BuyerReferrer != "" {
		t.BuyerReferrer = sql.NullString{String: dist.Recipients.BuyerReferrer, Valid: true}
	}
	if dist.Recipients.SellerReferrer != "" {
		t.SellerReferrer = sql.NullString{String: dist.Recipients.SellerReferrer, Valid: true}
	}
	if dist.Recipients.VipUpline != "" {
		t.VipBeneficiary = sql.NullString{String: dist.Recipients.VipUpline, Valid: true}
	}

	credits := buildCredits(t)

	warnings, err := s.ledger.SaveProcessed(ctx, t, credits)
	if err != nil {
		return nil, err
	}
	for _, w := range warnings {
		log.Warnf("Commission credit skipped for transaction %v: recipient for %v not found", t.Id, w)
	}

	return &models.TransactionResult{
		Transaction: t,
		Commissions: dist,
		Warnings:    warnings,
	}, nil
}

func buildCredits(t *models.Transaction) []models.Credit {
	credits := make([]models.Credit, 0, 4)
	for _, role := range []string{
		models.RoleBuyerReferrer,
		models.RoleSellerReferrer,
		models.RoleVipBeneficiary,
		models.RoleSellerRebate,
	} {
		wallet, amount, ok := t.CreditForRole(role)
		if !ok || !amount.IsPositive() {
			continue
		}
		credits = append(credits, models.Credit{Role: role, Wallet: wallet, Amount: amount})
	}
	return credits
}

// Stats computes lifetime commission totals for a wallet plus the recent
// activity view. Lifetime totals come from the ledger scan; pending
// commissions read the current balance, which only reflects what has not
// been withdrawn yet. The two numbers differ on purpose.
func (s *CommissionService) Stats(ctx context.Context, walletAddress string) (*models.CommissionStats, error) {
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

	sums, err := s.ledger.SumByRole(ctx, walletAddress)
	if err != nil {
		return nil, err
	}

	recent, err := s.ledger.FindRecentByWallet(ctx, walletAddress, config.RECENT_ACTIVITY_LIMIT)
	if err != nil {
		return nil, err
	}

	activity := make([]models.RecentActivity, 0, len(recent))
	for i := range recent {
		activity = append(activity, maskRoles(&recent[i], walletAddress))
	}

	return &models.CommissionStats{
		TotalEarned:        sums.Total(),
		BuyerCommission:    sums.BuyerCommission,
		SellerCommission:   sums.SellerCommission,
		VipBonus:           sums.VipBonus,
		PendingCommissions: user.CommissionBalance,
		RecentTransactions: activity,
	}, nil
}

// maskRoles keeps only the commission fields for roles the wallet holds on
// this entry; the rest report zero, not absent.
func maskRoles(t *models.Transaction, walletAddress string) models.RecentActivity {
	a := models.RecentActivity{
		TransactionId:    t.Id,
		Amount:           t.Amount,
		AmountDisplay:    util.FormatAmount(t.Amount),
		BuyerCommission:  decimal.Zero,
		SellerCommission: decimal.Zero,
		VipBonus:         decimal.Zero,
		CreatedAt:        t.CreatedAt,
	}
	if t.BuyerReferrer.Valid && t.BuyerReferrer.String == walletAddress {
		a.BuyerCommission = t.BuyerCommission
	}
	if t.SellerReferrer.Valid && t.SellerReferrer.String == walletAddress {
		a.SellerCommission = t.SellerCommission
	}
	if t.VipBeneficiary.Valid && t.VipBeneficiary.String == walletAddress {
		a.VipBonus = t.VipBonus
	}
	return a
}

// RetryPendingCredits re-attempts skipped credits on processed entries,
// consumed by the scheduler sweep. Returns how many entries were fully
// settled.
func (s *CommissionService) RetryPendingCredits(ctx context.Context, limit int) (int, error) {
	pending, err := s.ledger.FindWithWarnings(ctx, limit)
	if err != nil {
		return 0, err
	}

	settled := 0
	for i := range pending {
		remaining, err := s.ledger.RetryCredits(ctx, pending[i].Id)
		if err != nil {
			log.Error("Failed to retry credits for transaction ", pending[i].Id, " ", err)
			continue
		}
		if len(remaining) == 0 {
			settled++
		}
	}

	return settled, nil
}
