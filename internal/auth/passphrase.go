package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

const passphraseDomain = "passphrase.fungiquest.local"

// PassphraseCredentials derives a stable login email and password from a
// passphrase so that learners can sign in with a phrase alone. Case and
// spacing in the phrase do not matter.
func PassphraseCredentials(passphrase string) (email, password string) {
	norm := strings.Join(strings.Fields(strings.ToLower(passphrase)), " ")
	sum := sha256.Sum256([]byte(norm))
	return "p-" + hex.EncodeToString(sum[:])[:24] + "@" + passphraseDomain, norm
}

func IsPseudoEmail(email string) bool {
	return strings.HasSuffix(NormalizeEmail(email), "@"+passphraseDomain)
}
