package autotrans

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// HashText computes the SHA-256 hash of the trimmed text.
func HashText(text string) string {
	return hashString(strings.TrimSpace(text))
}

// CacheKey generates the client cache key for a text and language pair.
// The text is hashed verbatim: whitespace is part of the key.
func CacheKey(text, sourceLang, targetLang string) string {
	return hashString(text) + ":" + sourceLang + ":" + targetLang
}

// ServerCacheKey generates the backend cache key from a text hash and language pair.
func ServerCacheKey(hash, sourceLang, targetLang string) string {
	return hash + ":" + sourceLang + ":" + targetLang
}

func hashString(s string) string {
	hash := sha256.Sum256([]byte(s))
	return hex.EncodeToString(hash[:])
}
