package services

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"sync"
	"time"

	"refcore/internal/models"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// fakeStore is an in-memory implementation of UserStore, VipStore and
// LedgerStore with the same atomicity guarantees the SQL store provides.
type fakeStore struct {
	mu    sync.Mutex
	seq   int64
	users []*models.User
	vip   map[int64]*models.VipStatus
	txs   []*models.Transaction
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		vip: make(map[int64]*models.VipStatus),
	}
}

func (f *fakeStore) NextReferralIndex(ctx context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	return f.seq, nil
}

func (f *fakeStore) Save(ctx context.Context, user *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.WalletAddress == user.WalletAddress {
			return errors.New("duplicate wallet address")
		}
		if u.ReferralCode == user.ReferralCode {
			return errors.New("duplicate referral code")
		}
	}
	user.Id = sql.NullInt64{Int64: int64(len(f.users) + 1), Valid: true}
	f.users = append(f.users, user)
	return nil
}

func (f *fakeStore) FindByWallet(ctx context.Context, walletAddress string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.WalletAddress == walletAddress {
			return u, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) FindByReferralCode(ctx context.Context, code string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.ReferralCode == code {
			return u, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) FindById(ctx context.Context, id int64) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Id.Int64 == id {
			return u, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) FindReferrals(ctx context.Context, referrerId int64) ([]models.User, error) {
	return f.FindReferralsOf(ctx, []int64{referrerId})
}

func (f *fakeStore) FindReferralsOf(ctx context.Context, referrerIds []int64) ([]models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	wanted := make(map[int64]bool, len(referrerIds))
	for _, id := range referrerIds {
		wanted[id] = true
	}
	res := make([]models.User, 0)
	for _, u := range f.users {
		if u.ReferrerId.Valid && wanted[u.ReferrerId.Int64] {
			res = append(res, *u)
		}
	}
	return res, nil
}

func (f *fakeStore) CountReferrals(ctx context.Context, referrerId int64) (int, error) {
	refs, err := f.FindReferrals(ctx, referrerId)
	if err != nil {
		return 0, err
	}
	return len(refs), nil
}

func (f *fakeStore) CreditBalance(ctx context.Context, walletAddress string, amount decimal.Decimal) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.creditLocked(walletAddress, amount), nil
}

func (f *fakeStore) creditLocked(walletAddress string, amount decimal.Decimal) bool {
	for _, u := range f.users {
		if u.WalletAddress == walletAddress {
			u.CommissionBalance = u.CommissionBalance.Add(amount)
			return true
		}
	}
	return false
}

func (f *fakeStore) Find(ctx context.Context, userId int64) (*models.VipStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.vip[userId], nil
}

func (f *fakeStore) Upsert(ctx context.Context, st *models.VipStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.vip[st.UserId] = st
	return nil
}

func (f *fakeStore) FindActive(ctx context.Context, userIds []int64) (map[int64]bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	active := make(map[int64]bool)
	for _, id := range userIds {
		if st, ok := f.vip[id]; ok && st.IsActive {
			active[id] = true
		}
	}
	return active, nil
}

func (f *fakeStore) SaveProcessed(ctx context.Context, t *models.Transaction, credits []models.Credit) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t.CommissionsProcessed = true
	warnings := make([]string, 0)
	for _, c := range credits {
		if !f.creditLocked(c.Wallet, c.Amount) {
			warnings = append(warnings, c.Role)
		}
	}
	t.CreditWarnings = pq.StringArray(warnings)
	f.txs = append(f.txs, t)
	return warnings, nil
}

func (f *fakeStore) SumByRole(ctx context.Context, walletAddress string) (*models.RoleSums, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sums := &models.RoleSums{
		BuyerCommission:  decimal.Zero,
		SellerCommission: decimal.Zero,
		VipBonus:         decimal.Zero,
	}
	for _, t := range f.txs {
		if t.BuyerReferrer.Valid && t.BuyerReferrer.String == walletAddress {
			sums.BuyerCommission = sums.BuyerCommission.Add(t.BuyerCommission)
		}
		if t.SellerReferrer.Valid && t.SellerReferrer.String == walletAddress {
			sums.SellerCommission = sums.SellerCommission.Add(t.SellerCommission)
		}
		if t.VipBeneficiary.Valid && t.VipBeneficiary.String == walletAddress {
			sums.VipBonus = sums.VipBonus.Add(t.VipBonus)
		}
	}
	return sums, nil
}

func (f *fakeStore) FindRecentByWallet(ctx context.Context, walletAddress string, limit int) ([]models.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	matched := make([]models.Transaction, 0)
	for _, t := range f.txs {
		if (t.BuyerReferrer.Valid && t.BuyerReferrer.String == walletAddress) ||
			(t.SellerReferrer.Valid && t.SellerReferrer.String == walletAddress) ||
			(t.VipBeneficiary.Valid && t.VipBeneficiary.String == walletAddress) {
			matched = append(matched, *t)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

func (f *fakeStore) FindWithWarnings(ctx context.Context, limit int) ([]models.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	res := make([]models.Transaction, 0)
	for _, t := range f.txs {
		if t.CommissionsProcessed && len(t.CreditWarnings) > 0 {
			res = append(res, *t)
			if len(res) == limit {
				break
			}
		}
	}
	return res, nil
}

func (f *fakeStore) RetryCredits(ctx context.Context, id uuid.UUID) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.txs {
		if t.Id != id {
			continue
		}
		remaining := make([]string, 0)
		for _, role := range t.CreditWarnings {
			wallet, amount, ok := t.CreditForRole(role)
			if !ok || amount.IsZero() {
				continue
			}
			if !f.creditLocked(wallet, amount) {
				remaining = append(remaining, role)
			}
		}
		t.CreditWarnings = pq.StringArray(remaining)
		return remaining, nil
	}
	return nil, errors.New("transaction not found")
}

// stubCalculator returns a fixed distribution for every trade.
type stubCalculator struct {
	dist *models.Distribution
}

func (c *stubCalculator) Compute(ctx context.Context, amount decimal.Decimal, buyerId, sellerId string) (*models.Distribution, error) {
	d := *c.dist
	return &d, nil
}

func nullInt64(v int64) sql.NullInt64 {
	return sql.NullInt64{Int64: v, Valid: true}
}

func nullString(v string) sql.NullString {
	return sql.NullString{String: v, Valid: true}
}

func registerWallet(ctx context.Context, s *UserService, wallet, code string) *models.User {
	res, err := s.RegisterOrGet(ctx, wallet, "ton", code)
	if err != nil {
		panic(err)
	}
	return res.User
}

func ledgerEntry(wallet, role string, amount decimal.Decimal, createdAt time.Time) *models.Transaction {
	t := &models.Transaction{
		Id:                   uuid.New(),
		Amount:               decimal.NewFromInt(1000),
		Fee:                  decimal.NewFromInt(30),
		BuyerId:              "buyer",
		SellerId:             "seller",
		CommissionsProcessed: true,
		CreatedAt:            createdAt,
	}
	switch role {
	case models.RoleBuyerReferrer:
		t.BuyerReferrer = sql.NullString{String: wallet, Valid: true}
		t.BuyerCommission = amount
	case models.RoleSellerReferrer:
		t.SellerReferrer = sql.NullString{String: wallet, Valid: true}
		t.SellerCommission = amount
	case models.RoleVipBeneficiary:
		t.VipBeneficiary = sql.NullString{String: wallet, Valid: true}
		t.VipBonus = amount
	}
	return t
}
