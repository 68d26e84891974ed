package services

import "errors"

// Error taxonomy. Validation errors reject bad input before any store
// access, not-found errors mark well-formed input naming an absent entity,
// and eligibility errors mark operations disallowed by business state.
var (
	ErrWalletRequired      = errors.New("wallet address is required")
	ErrIdentifierRequired  = errors.New("buyer and seller identifiers are required")
	ErrInvalidAmount       = errors.New("amount must be greater than zero")
	ErrInvalidReferralCode = errors.New("invalid referral code")
	ErrStakeTooSmall       = errors.New("stake amount is below the minimum")

	ErrUserNotFound = errors.New("user not found")

	// ErrTeamNotVip rejects a stake from a wallet that already recruited a
	// team without holding active VIP status; such users must stake from a
	// fresh wallet so pre-existing downline activity never becomes
	// VIP-eligible retroactively.
	ErrTeamNotVip = errors.New("wallet already has a team; use a fresh wallet to stake")

	ErrDistributionMismatch = errors.New("commission distribution does not sum to the fee")
)
