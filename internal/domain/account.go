package domain

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// AccountID is a hex account address in EIP-55 checksum form.
type AccountID string

// ParseAccountID validates a hex address and returns its checksummed form.
func ParseAccountID(s string) (AccountID, error) {
	s = strings.TrimSpace(s)
	if !common.IsHexAddress(s) {
		return "", ErrInvalidAccount
	}
	return AccountID(common.HexToAddress(s).Hex()), nil
}

// Key is the case-folded form used to index stored locks.
func (a AccountID) Key() string {
	return strings.ToLower(string(a))
}

// Equal compares two identities case-insensitively. An empty identity equals nothing.
func (a AccountID) Equal(b AccountID) bool {
	if a == "" || b == "" {
		return false
	}
	return strings.EqualFold(string(a), string(b))
}

func (a AccountID) String() string { return string(a) }
