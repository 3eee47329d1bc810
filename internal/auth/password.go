package auth

import (
	"crypto/subtle"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

func CheckPasswordHash(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// Operator is the single caregiver account configured through the environment.
type Operator struct {
	Username     string
	PasswordHash string
}

func (o Operator) Authenticate(username, password string) bool {
	nameOK := subtle.ConstantTimeCompare([]byte(username), []byte(o.Username)) == 1
	// always compare the hash so a wrong username costs the same
	passOK := CheckPasswordHash(password, o.PasswordHash)
	return nameOK && passOK
}
