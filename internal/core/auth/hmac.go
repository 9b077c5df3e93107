package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"strings"
)

// Admin API keys look like sw-v1-<secret id>-<random>: a 32 hex char secret
// id naming the HMAC secret the key is hashed with, then 64 hex chars of
// randomness. Only the HMAC of the whole key is stored.
const (
	KeyPrefix = "sw"

	keyVersion  = "v1"
	secretIDLen = 32
	randomLen   = 64
)

// FormatAPIKey assembles a key from its secret id and random part.
func FormatAPIKey(secretID, randomData string) string {
	return KeyPrefix + "-" + keyVersion + "-" + secretID + "-" + randomData
}

// ParseAPIKey splits key into its secret id and random part.
// Returns ErrInvalidKeyFormat for anything FormatAPIKey could not produce.
func ParseAPIKey(key string) (secretID, randomData string, err error) {
	rest, ok := strings.CutPrefix(key, KeyPrefix+"-"+keyVersion+"-")
	if !ok {
		return "", "", ErrInvalidKeyFormat
	}
	secretID, randomData, ok = strings.Cut(rest, "-")
	if !ok || !isLowerHex(secretID, secretIDLen) || !isLowerHex(randomData, randomLen) {
		return "", "", ErrInvalidKeyFormat
	}
	return secretID, randomData, nil
}

func isLowerHex(s string, n int) bool {
	if len(s) != n {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

// ComputeHMAC returns the HMAC-SHA256 of apiKey under secret, the value
// stored in admin_keys.key_hash.
func ComputeHMAC(secret []byte, apiKey string) []byte {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(apiKey))
	return mac.Sum(nil)
}
