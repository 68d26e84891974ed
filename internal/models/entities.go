package models

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

type User struct {
	Id                sql.NullInt64   `db:"id" json:"id"`
	WalletAddress     string          `db:"wallet_address" json:"wallet_address"`
	WalletType        sql.NullString  `db:"wallet_type" json:"wallet_type"`
	ReferralCode      string          `db:"referral_code" json:"referral_code"`
	ReferralIndex     int64           `db:"referral_index" json:"referral_index"`
	ParentRef         sql.NullString  `db:"parent_ref" json:"parent_ref"`
	ReferrerId        sql.NullInt64   `db:"referrer_id" json:"referrer_id"`
	CommissionBalance decimal.Decimal `db:"commission_balance" json:"commission_balance"`
	CreatedAt         time.Time       `db:"created_at" json:"created_at"`
}

type VipStatus struct {
	UserId        int64           `db:"user_id" json:"user_id"`
	IsActive      bool            `db:"is_active" json:"is_active"`
	StakedAmount  decimal.Decimal `db:"staked_amount" json:"staked_amount"`
	LastStakeDate time.Time       `db:"last_stake_date" json:"last_stake_date"`
}

// Commission role field names as stored in credit_warnings.
const (
	RoleBuyerReferrer  = "buyer_referrer"
	RoleSellerReferrer = "seller_referrer"
	RoleVipBeneficiary = "vip_beneficiary"
	RoleSellerRebate   = "seller_rebate"
)

// Transaction is a ledger entry. Rows are immutable after insert except for
// credit_warnings, which the retry sweep shrinks as skipped credits land.
type Transaction struct {
	Id                   uuid.UUID       `db:"id" json:"id"`
	Amount               decimal.Decimal `db:"amount" json:"amount"`
	Fee                  decimal.Decimal `db:"fee" json:"fee"`
	BuyerId              string          `db:"buyer_id" json:"buyer_id"`
	SellerId             string          `db:"seller_id" json:"seller_id"`
	BuyerReferrer        sql.NullString  `db:"buyer_referrer" json:"buyer_referrer"`
	SellerReferrer       sql.NullString  `db:"seller_referrer" json:"seller_referrer"`
	VipBeneficiary       sql.NullString  `db:"vip_beneficiary" json:"vip_beneficiary"`
	BuyerCommission      decimal.Decimal `db:"buyer_commission" json:"buyer_commission"`
	SellerCommission     decimal.Decimal `db:"seller_commission" json:"seller_commission"`
	VipBonus             decimal.Decimal `db:"vip_bonus" json:"vip_bonus"`
	SystemFee            decimal.Decimal `db:"system_fee" json:"system_fee"`
	SellerRebate         decimal.Decimal `db:"seller_rebate" json:"seller_rebate"`
	CommissionsProcessed bool            `db:"commissions_processed" json:"commissions_processed"`
	CreditWarnings       pq.StringArray  `db:"credit_warnings" json:"credit_warnings"`
	CreatedAt            time.Time       `db:"created_at" json:"created_at"`
}

// CreditForRole resolves the recipient wallet and amount a role field of this
// entry would credit. ok is false when the role has no recipient.
func (t *Transaction) CreditForRole(role string) (string, decimal.Decimal, bool) {
	switch role {
	case RoleBuyerReferrer:
		if t.BuyerReferrer.Valid {
			return t.BuyerReferrer.String, t.BuyerCommission, true
		}
	case RoleSellerReferrer:
		if t.SellerReferrer.Valid {
			return t.SellerReferrer.String, t.SellerCommission, true
		}
	case RoleVipBeneficiary:
		if t.VipBeneficiary.Valid {
			return t.VipBeneficiary.String, t.VipBonus, true
		}
	case RoleSellerRebate:
		return t.SellerId, t.SellerRebate, true
	}
	return "", decimal.Zero, false
}

// DistributionTotal sums the five distribution fields; the invariant is that
// this equals Fee.
func (t *Transaction) DistributionTotal() decimal.Decimal {
	return t.BuyerCommission.
		Add(t.SellerCommission).
		Add(t.VipBonus).
		Add(t.SystemFee).
		Add(t.SellerRebate)
}
