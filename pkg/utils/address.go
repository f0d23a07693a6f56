package utils

import (
	"crypto/rand"
	"encoding/hex"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// GenerateID generates a random hex ID
func GenerateID() (string, error) {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

// IsValidAddress checks if a string is a valid Ethereum address
func IsValidAddress(address string) bool {
	return common.IsHexAddress(address)
}

// NormalizeAddress normalizes an address to lowercase with 0x prefix.
// This is the canonical storage form for wallet addresses.
func NormalizeAddress(address string) string {
	if !strings.HasPrefix(address, "0x") {
		address = "0x" + address
	}
	return strings.ToLower(address)
}

// ChecksumAddress returns the EIP-55 checksummed form of an address,
// used when talking to the Safe Transaction Service and in messages.
func ChecksumAddress(address string) string {
	return common.HexToAddress(address).Hex()
}

// NormalizeTxHash normalizes a safe transaction hash for storage keys.
func NormalizeTxHash(hash string) string {
	if !strings.HasPrefix(hash, "0x") {
		hash = "0x" + hash
	}
	return strings.ToLower(hash)
}
