package companion

import (
	"crypto/subtle"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// bcryptCost is the work factor for stored password hashes
const bcryptCost = 12

// bcryptPrefixes identify values that are already bcrypt hashes
var bcryptPrefixes = []string{"$2a$", "$2b$", "$2y$"}

// HashPassword returns a salted one-way hash of password
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// IsPasswordHash reports whether stored looks like a bcrypt hash
func IsPasswordHash(stored string) bool {
	for _, p := range bcryptPrefixes {
		if strings.HasPrefix(stored, p) {
			return true
		}
	}
	return false
}

// VerifyPassword checks plaintext against a stored value. Profiles created
// before hashing was introduced store the password as plaintext.
func VerifyPassword(stored, plaintext string) bool {
	if stored == "" || plaintext == "" {
		return false
	}
	if IsPasswordHash(stored) {
		return bcrypt.CompareHashAndPassword([]byte(stored), []byte(plaintext)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(plaintext)) == 1
}
