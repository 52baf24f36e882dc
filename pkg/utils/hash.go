package utils

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// HashAPIKey returns the hex encoded sha256 of an api token.
// Tokens are configured and compared in hashed form only.
func HashAPIKey(arg string) string {
	hasher := sha256.New()
	hasher.Write([]byte(arg))
	return hex.EncodeToString(hasher.Sum(nil))
}

// MatchAPIKey compares a presented token with a hashed one in constant time
func MatchAPIKey(token, hashed string) bool {
	if token == "" || hashed == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(HashAPIKey(token)), []byte(hashed)) == 1
}
