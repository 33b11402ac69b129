package service

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// BcryptHasher — PasswordHasher на bcrypt. Cost 0 означает bcrypt.DefaultCost.
type BcryptHasher struct {
	Cost int
}

// Hash хэширует пароль с помощью bcrypt.
func (h BcryptHasher) Hash(plain string) (string, error) {
	const op = "service.password.Hash"

	cost := h.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}

	bytes, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return string(bytes), nil
}

// Compare сравнивает пароль с хэшем.
func (h BcryptHasher) Compare(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
