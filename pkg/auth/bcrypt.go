package auth

import (
	"crypto/subtle"

	"golang.org/x/crypto/bcrypt"
)

// HashPassword returns a bcrypt hash suitable for ADMIN_PASSWORD_HASH.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(hash), err
}

// CheckPassword reports whether plain matches the bcrypt hash.
func CheckPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

// BasicAuthorizer returns a credential check for fiber's basicauth middleware.
// The password is always compared so a wrong username costs the same as a wrong password.
func BasicAuthorizer(username, passwordHash string) func(user, pass string) bool {
	return func(user, pass string) bool {
		userOK := subtle.ConstantTimeCompare([]byte(user), []byte(username)) == 1
		passOK := CheckPassword(passwordHash, pass)
		return userOK && passOK
	}
}
