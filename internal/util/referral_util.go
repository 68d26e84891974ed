package util

import (
	"encoding/base64"
	"errors"
	"strconv"
	"strings"
)

var ErrBadReferralCode = errors.New("malformed referral code")

// GenerateReferralCode derives the public referral code from the wallet
// address and the referral index assigned at registration. The index is
// unique across all users, so the code is too. The derivation is
// deterministic and never regenerated.
func GenerateReferralCode(walletAddress string, referralIndex int64) string {
	raw := walletAddress + ":" + strconv.FormatInt(referralIndex, 10)
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

func DecodeReferralCode(code string) (string, int64, error) {
	res, err := base64.RawURLEncoding.DecodeString(code)
	if err != nil {
		return "", 0, err
	}

	sep := strings.LastIndex(string(res), ":")
	if sep < 0 {
		return "", 0, ErrBadReferralCode
	}

	idx, err := strconv.ParseInt(string(res)[sep+1:], 10, 64)
	if err != nil {
		return "", 0, err
	}

	return string(res)[:sep], idx, nil
}
