package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"refcore/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatsSumsEachRoleIndependently(t *testing.T) {
	store := newFakeStore()
	users := NewUserService(store)
	cs := NewCommissionService(store, store, NewDefaultCalculator(store, store))
	ctx := context.Background()

	registerWallet(ctx, users, "EQWally", "")
	now := time.Now()
	for _, e := range []*models.Transaction{
		ledgerEntry("EQWally", models.RoleBuyerReferrer, decimal.NewFromInt(5), now.Add(-3*time.Hour)),
		ledgerEntry("EQWally", models.RoleSellerReferrer, decimal.NewFromInt(7), now.Add(-2*time.Hour)),
		ledgerEntry("EQWally", models.RoleVipBeneficiary, decimal.NewFromInt(2), now.Add(-1*time.Hour)),
	} {
		_, err := store.SaveProcessed(ctx, e, nil)
		require.NoError(t, err)
	}

	stats, err := cs.Stats(ctx, "EQWally")
	require.NoError(t, err)
	assert.True(t, stats.TotalEarned.Equal(decimal.NewFromInt(14)))
	assert.True(t, stats.BuyerCommission.Equal(decimal.NewFromInt(5)))
	assert.True(t, stats.SellerCommission.Equal(decimal.NewFromInt(7)))
	assert.True(t, stats.VipBonus.Equal(decimal.NewFromInt(2)))
	assert.True(t, stats.PendingCommissions.IsZero())
	require.Len(t, stats.RecentTransactions, 3)
	// newest first
	assert.True(t, stats.RecentTransactions[0].VipBonus.Equal(decimal.NewFromInt(2)))
}

func TestStatsMasksRolesNotHeld(t *testing.T) {
	store := newFakeStore()
	users := NewUserService(store)
	cs := NewCommissionService(store, store, NewDefaultCalculator(store, store))
	ctx := context.Background()

	registerWallet(ctx, users, "EQWally", "")
	e := ledgerEntry("EQWally", models.RoleBuyerReferrer, decimal.NewFromInt(5), time.Now())
	// another wallet holds the seller referrer role on the same entry
	e.SellerReferrer = nullString("EQOther")
	e.SellerCommission = decimal.NewFromInt(7)
	_, err := store.SaveProcessed(ctx, e, nil)
	require.NoError(t, err)

	stats, err := cs.Stats(ctx, "EQWally")
	require.NoError(t, err)
	require.Len(t, stats.RecentTransactions, 1)
	a := stats.RecentTransactions[0]
	assert.True(t, a.BuyerCommission.Equal(decimal.NewFromInt(5)))
	assert.True(t, a.SellerCommission.IsZero())
	assert.True(t, a.VipBonus.IsZero())
}

func TestStatsPendingReadsBalanceNotLedger(t *testing.T) {
	store := newFakeStore()
	users := NewUserService(store)
	cs := NewCommissionService(store, store, NewDefaultCalculator(store, store))
	ctx := context.Background()

	registerWallet(ctx, users, "EQWally", "")
	found, err := store.CreditBalance(ctx, "EQWally", decimal.NewFromInt(42))
	require.NoError(t, err)
	require.True(t, found)

	stats, err := cs.Stats(ctx, "EQWally")
	require.NoError(t, err)
	assert.True(t, stats.PendingCommissions.Equal(decimal.NewFromInt(42)))
	assert.True(t, stats.TotalEarned.IsZero())
}

func TestRecordTransactionPersistsDistribution(t *testing.T) {
	store := newFakeStore()
	users := NewUserService(store)
	team := NewTeamService(store, store, nil)
	vip := NewVipService(store, store, store, team)
	cs := NewCommissionService(store, store, NewDefaultCalculator(store, store))
	ctx := context.Background()

	upline := registerWallet(ctx, users, "EQUpline", "")
	require.NoError(t, vip.Stake(ctx, "EQUpline", decimal.NewFromInt(100000)))
	buyerRef := registerWallet(ctx, users, "EQBuyerRef", upline.ReferralCode)
	registerWallet(ctx, users, "EQBuyer", buyerRef.ReferralCode)
	sellerRef := registerWallet(ctx, users, "EQSellerRef", "")
	registerWallet(ctx, users, "EQSeller", sellerRef.ReferralCode)

	res, err := cs.RecordTransaction(ctx, decimal.NewFromInt(1000), "EQBuyer", "EQSeller")
	require.NoError(t, err)
	assert.Empty(t, res.Warnings)

	tx := res.Transaction
	assert.True(t, tx.Fee.Equal(decimal.NewFromInt(30)))
	assert.True(t, tx.DistributionTotal().Equal(tx.Fee))
	assert.True(t, tx.CommissionsProcessed)
	assert.Equal(t, "EQBuyerRef", tx.BuyerReferrer.String)
	assert.Equal(t, "EQSellerRef", tx.SellerReferrer.String)
	assert.Equal(t, "EQUpline", tx.VipBeneficiary.String)

	// recipients were credited with exactly the recorded amounts
	br, err := store.FindByWallet(ctx, "EQBuyerRef")
	require.NoError(t, err)
	assert.True(t, br.CommissionBalance.Equal(tx.BuyerCommission))
	up, err := store.FindByWallet(ctx, "EQUpline")
	require.NoError(t, err)
	assert.True(t, up.CommissionBalance.Equal(tx.VipBonus))
	seller, err := store.FindByWallet(ctx, "EQSeller")
	require.NoError(t, err)
	assert.True(t, seller.CommissionBalance.Equal(tx.SellerRebate))
}

func TestRecordTransactionRejectsBadDistribution(t *testing.T) {
	store := newFakeStore()
	users := NewUserService(store)
	ctx := context.Background()
	registerWallet(ctx, users, "EQBuyerRef", "")

	bad := &models.Distribution{
		System:        decimal.NewFromInt(10),
		BuyerReferrer: decimal.NewFromInt(5),
		Recipients:    models.Recipients{BuyerReferrer: "EQBuyerRef"},
	}
	cs := NewCommissionService(store, store, &stubCalculator{dist: bad})

	_, err := cs.RecordTransaction(ctx, decimal.NewFromInt(1000), "EQBuyer", "EQSeller")
	assert.ErrorIs(t, err, ErrDistributionMismatch)

	// nothing written, nothing credited
	assert.Empty(t, store.txs)
	u, err := store.FindByWallet(ctx, "EQBuyerRef")
	require.NoError(t, err)
	assert.True(t, u.CommissionBalance.IsZero())
}

func TestRecordTransactionWarnsOnMissingRecipient(t *testing.T) {
	store := newFakeStore()
	dist := &models.Distribution{
		System:        decimal.NewFromInt(25),
		BuyerReferrer: decimal.NewFromInt(5),
		Recipients:    models.Recipients{BuyerReferrer: "EQGhost"},
	}
	cs := NewCommissionService(store, store, &stubCalculator{dist: dist})

	res, err := cs.RecordTransaction(context.Background(), decimal.NewFromInt(1000), "EQBuyer", "EQSeller")
	require.NoError(t, err)
	assert.Equal(t, []string{models.RoleBuyerReferrer}, res.Warnings)

	// the entry is still written with the amount recorded for the audit trail
	require.Len(t, store.txs, 1)
	assert.True(t, store.txs[0].BuyerCommission.Equal(decimal.NewFromInt(5)))
	assert.Equal(t, "EQGhost", store.txs[0].BuyerReferrer.String)
}

func TestRetrySweepSettlesLateRegistrations(t *testing.T) {
	store := newFakeStore()
	users := NewUserService(store)
	dist := &models.Distribution{
		System:        decimal.NewFromInt(25),
		BuyerReferrer: decimal.NewFromInt(5),
		Recipients:    models.Recipients{BuyerReferrer: "EQLate"},
	}
	cs := NewCommissionService(store, store, &stubCalculator{dist: dist})
	ctx := context.Background()

	res, err := cs.RecordTransaction(ctx, decimal.NewFromInt(1000), "EQBuyer", "EQSeller")
	require.NoError(t, err)
	require.NotEmpty(t, res.Warnings)

	registerWallet(ctx, users, "EQLate", "")

	settled, err := cs.RetryPendingCredits(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, settled)

	u, err := store.FindByWallet(ctx, "EQLate")
	require.NoError(t, err)
	assert.True(t, u.CommissionBalance.Equal(decimal.NewFromInt(5)))
	assert.Empty(t, store.txs[0].CreditWarnings)
}

func TestConcurrentCreditsDoNotLoseUpdates(t *testing.T) {
	store := newFakeStore()
	users := NewUserService(store)
	ctx := context.Background()
	registerWallet(ctx, users, "EQWally", "")

	mk := func(amount int64) *CommissionService {
		return NewCommissionService(store, store, &stubCalculator{dist: &models.Distribution{
			System:        decimal.NewFromInt(30).Sub(decimal.NewFromInt(amount)),
			BuyerReferrer: decimal.NewFromInt(amount),
			Recipients:    models.Recipients{BuyerReferrer: "EQWally"},
		}})
	}

	var wg sync.WaitGroup
	for _, amount := range []int64{5, 7} {
		wg.Add(1)
		go func(amount int64) {
			defer wg.Done()
			if _, err := mk(amount).RecordTransaction(ctx, decimal.NewFromInt(1000), "EQBuyer", "EQSeller"); err != nil {
				t.Error(err)
			}
		}(amount)
	}
	wg.Wait()

	u, err := store.FindByWallet(ctx, "EQWally")
	require.NoError(t, err)
	assert.True(t, u.CommissionBalance.Equal(decimal.NewFromInt(12)), "balance is %v, want 12", u.CommissionBalance)
}

func TestRecordTransactionValidatesInput(t *testing.T) {
	store := newFakeStore()
	cs := NewCommissionService(store, store, NewDefaultCalculator(store, store))
	ctx := context.Background()

	_, err := cs.RecordTransaction(ctx, decimal.NewFromInt(1000), "", "EQSeller")
	assert.ErrorIs(t, err, ErrIdentifierRequired)

	_, err = cs.RecordTransaction(ctx, decimal.Zero, "EQBuyer", "EQSeller")
	assert.ErrorIs(t, err, ErrInvalidAmount)
}
