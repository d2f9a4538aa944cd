package auth

import (
	"regexp"

	"golang.org/x/crypto/bcrypt"
)

// HashPassword returns a bcrypt hash using the given cost.
func HashPassword(plain string, cost int) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyPassword safely compares a bcrypt hash and a plain password.
func VerifyPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

var emailFormat = regexp.MustCompile(`^[a-zA-Z0-9.!#$%&'*+/=?^_` + "`" + `{|}~-]+@[a-zA-Z0-9._-]+\.[a-zA-Z0-9]{2,}$`)

// checkEmail reports whether the address looks like a deliverable email.
func checkEmail(email string) bool {
	return emailFormat.MatchString(email)
}

var (
	hasUpper        = regexp.MustCompile(`[A-Z]`)
	hasLower        = regexp.MustCompile(`[a-z]`)
	hasNumberSymbol = regexp.MustCompile(`[0-9]|[^a-zA-Z0-9 ]`)
)

// checkPassword enforces the strength policy: at least 6 characters,
// one upper case, one lower case, and a number or symbol.
func checkPassword(password string) bool {
	return len(password) >= 6 &&
		hasUpper.MatchString(password) &&
		hasLower.MatchString(password) &&
		hasNumberSymbol.MatchString(password)
}
