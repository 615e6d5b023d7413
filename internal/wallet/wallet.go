package wallet

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

var ErrBadAddress = errors.New("bad_address")

// Canonical normalizes an EVM account address to lower-case 0x-prefixed hex.
func Canonical(addr string) (string, error) {
	if !common.IsHexAddress(addr) {
		return "", ErrBadAddress
	}
	return strings.ToLower(common.HexToAddress(addr).Hex()), nil
}

// Verify reports whether signature is a valid EIP-191 personal-sign of message
// by address. Malformed input is reported as false, never as a panic.
func Verify(address, message string, signature []byte) bool {
	want, err := Canonical(address)
	if err != nil {
		return false
	}
	sig := normalizeSignature(signature)
	if sig == nil {
		return false
	}
	pub, err := crypto.SigToPub(PersonalHash([]byte(message)), sig)
	if err != nil {
		return false
	}
	return strings.ToLower(crypto.PubkeyToAddress(*pub).Hex()) == want
}

// PersonalHash applies the "\x19Ethereum Signed Message:\n" prefix and hashes
// the result, matching what wallets sign for personal_sign.
func PersonalHash(msg []byte) []byte {
	prefix := fmt.Sprintf("\x19Ethereum Signed Message:\n%d", len(msg))
	return crypto.Keccak256([]byte(prefix), msg)
}

// DecodeSignature parses a hex-encoded signature as sent by wallet clients.
func DecodeSignature(s string) ([]byte, error) {
	s = strings.TrimPrefix(s, "0x")
	return hex.DecodeString(s)
}

// normalizeSignature converts a 65-byte r||s||v signature (v in {0, 1, 27, 28})
// or an EIP-2098 64-byte compact signature into the recovery-id form that
// crypto.SigToPub expects. Returns nil for anything else.
func normalizeSignature(sig []byte) []byte {
	switch len(sig) {
	case 65:
		out := make([]byte, 65)
		copy(out, sig)
		if out[64] >= 27 {
			out[64] -= 27
		}
		if out[64] > 1 {
			return nil
		}
		return out
	case 64:
		// EIP-2098 packs yParity into the top bit of s.
		out := make([]byte, 65)
		copy(out, sig)
		out[64] = sig[32] >> 7
		out[32] &^= 0x80
		return out
	default:
		return nil
	}
}
