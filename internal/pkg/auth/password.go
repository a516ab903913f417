package auth

import (
	"golang.org/x/crypto/bcrypt"
)

// BcryptCost is the hashing cost. Tests lower it to bcrypt.MinCost.
var BcryptCost = 12

// HashPassword hashes a plaintext password.
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

// CheckPassword reports whether password matches the stored hash.
// Accounts created through Google sign-in have no hash and never match.
func CheckPassword(hashedPassword *string, password string) bool {
	if hashedPassword == nil || *hashedPassword == "" {
		return false
	}
	err := bcrypt.CompareHashAndPassword([]byte(*hashedPassword), []byte(password))
	return err == nil
}
