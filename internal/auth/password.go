package auth

import "golang.org/x/crypto/bcrypt"

// passwordCost is fixed; changing it only affects newly stored hashes.
const passwordCost = 8

// HashPassword hashes a plaintext password using bcrypt with a per-call
// random salt.
func HashPassword(pw string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(pw), passwordCost)
	return string(b), err
}

// CheckPassword reports whether the candidate plaintext matches the
// stored bcrypt hash. It never panics; any mismatch or malformed hash
// yields false.
func CheckPassword(hash, pw string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw)) == nil
}
