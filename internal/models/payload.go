package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type RegistrationResult struct {
	Existing bool  `json:"existing"`
	User     *User `json:"user"`
}

type TeamNode struct {
	Id       string      `json:"id"`
	Name     string      `json:"name"`
	IsVip    bool        `json:"is_vip"`
	Children []*TeamNode `json:"children"`
}

// Recipients carries the resolved wallet per referrer/VIP role. An empty
// string means the role has no recipient on this trade.
type Recipients struct {
	BuyerReferrer  string `json:"buyer_referrer,omitempty"`
	SellerReferrer string `json:"seller_referrer,omitempty"`
	VipUpline      string `json:"vip_upline,omitempty"`
}

// Distribution is the commission calculator output: how a trade fee is split.
type Distribution struct {
	System         decimal.Decimal `json:"system"`
	Seller         decimal.Decimal `json:"seller"`
	BuyerReferrer  decimal.Decimal `json:"buyer_referrer"`
	SellerReferrer decimal.Decimal `json:"seller_referrer"`
	VipBonus       decimal.Decimal `json:"vip_bonus"`
	Recipients     Recipients      `json:"recipients"`
}

func (d *Distribution) Total() decimal.Decimal {
	return d.System.
		Add(d.Seller).
		Add(d.BuyerReferrer).
		Add(d.SellerReferrer).
		Add(d.VipBonus)
}

// Credit is one additive balance update owed to a recipient wallet.
type Credit struct {
	Role   string          `json:"role"`
	Wallet string          `json:"wallet"`
	Amount decimal.Decimal `json:"amount"`
}

type TransactionResult struct {
	Transaction *Transaction  `json:"transaction"`
	Commissions *Distribution `json:"commissions"`
	Warnings    []string      `json:"warnings,omitempty"`
}

// RecentActivity is one ledger entry annotated with only the commission
// fields earned by the requesting wallet on that entry; roles the wallet does
// not hold report zero.
type RecentActivity struct {
	TransactionId    uuid.UUID       `json:"transaction_id"`
	Amount           decimal.Decimal `json:"amount"`
	AmountDisplay    string          `json:"amount_display"`
	BuyerCommission  decimal.Decimal `json:"buyer_commission"`
	SellerCommission decimal.Decimal `json:"seller_commission"`
	VipBonus         decimal.Decimal `json:"vip_bonus"`
	CreatedAt        time.Time       `json:"created_at"`
}

type CommissionStats struct {
	TotalEarned        decimal.Decimal  `json:"total_earned"`
	BuyerCommission    decimal.Decimal  `json:"buyer_commission"`
	SellerCommission   decimal.Decimal  `json:"seller_commission"`
	VipBonus           decimal.Decimal  `json:"vip_bonus"`
	PendingCommissions decimal.Decimal  `json:"pending_commissions"`
	RecentTransactions []RecentActivity `json:"recent_transactions"`
}

// RoleSums holds lifetime per-role commission totals for one wallet.
type RoleSums struct {
	BuyerCommission  decimal.Decimal `db:"buyer_commission" json:"buyer_commission"`
	SellerCommission decimal.Decimal `db:"seller_commission" json:"seller_commission"`
	VipBonus         decimal.Decimal `db:"vip_bonus" json:"vip_bonus"`
}

func (s *RoleSums) Total() decimal.Decimal {
	return s.BuyerCommission.Add(s.SellerCommission).Add(s.VipBonus)
}

type VipSummary struct {
	IsVip            bool            `json:"is_vip"`
	HasTeam          bool            `json:"has_team"`
	TeamTree         *TeamNode       `json:"team_tree"`
	TotalEarnings    decimal.Decimal `json:"total_earnings"`
	BuyerCommission  decimal.Decimal `json:"buyer_commission"`
	SellerCommission decimal.Decimal `json:"seller_commission"`
	VipBonus         decimal.Decimal `json:"vip_bonus"`
}
