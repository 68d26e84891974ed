package services

import (
	"context"

	"refcore/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// UserStore is the referral graph store: users, their referral edges and
// commission balances. Lookups return (nil, nil) when no row matches.
type UserStore interface {
	NextReferralIndex(ctx context.Context) (int64, error)
	Save(ctx context.Context, user *models.User) error
	FindByWallet(ctx context.Context, walletAddress string) (*models.User, error)
	FindByReferralCode(ctx context.Context, code string) (*models.User, error)
	FindById(ctx context.Context, id int64) (*models.User, error)
	FindReferrals(ctx context.Context, referrerId int64) ([]models.User, error)
	FindReferralsOf(ctx context.Context, referrerIds []int64) ([]models.User, error)
	CountReferrals(ctx context.Context, referrerId int64) (int, error)
	CreditBalance(ctx context.Context, walletAddress string, amount decimal.Decimal) (bool, error)
}

type VipStore interface {
	Find(ctx context.Context, userId int64) (*models.VipStatus, error)
	Upsert(ctx context.Context, st *models.VipStatus) error
	FindActive(ctx context.Context, userIds []int64) (map[int64]bool, error)
}

// LedgerStore is the transaction ledger.
type LedgerStore interface {
	SaveProcessed(ctx context.Context, t *models.Transaction, credits []models.Credit) ([]string, error)
	SumByRole(ctx context.Context, walletAddress string) (*models.RoleSums, error)
	FindRecentByWallet(ctx context.Context, walletAddress string, limit int) ([]models.Transaction, error)
	FindWithWarnings(ctx context.Context, limit int) ([]models.Transaction, error)
	RetryCredits(ctx context.Context, id uuid.UUID) ([]string, error)
}
