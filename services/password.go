package services

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const (
	passwordLen  = 12
	symbols      = "!@#$%&*"
	upperLetters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	lowerLetters = "abcdefghijklmnopqrstuvwxyz"
	digits       = "0123456789"
)

// passwordClasses must each appear at least once in a generated password.
var passwordClasses = []string{upperLetters, lowerLetters, digits, symbols}

// GenerateSecurePassword returns the one-time password that `adduser` stores
// as a bcrypt hash in user_credentials and prints once to the operator. The
// plain text is never persisted or logged.
func GenerateSecurePassword() (string, error) {
	all := upperLetters + lowerLetters + digits + symbols
	pw := make([]byte, 0, passwordLen)
	for _, class := range passwordClasses {
		c, err := randomByte(class)
		if err != nil {
			return "", fmt.Errorf("generate password: %w", err)
		}
		pw = append(pw, c)
	}
	for len(pw) < passwordLen {
		c, err := randomByte(all)
		if err != nil {
			return "", fmt.Errorf("generate password: %w", err)
		}
		pw = append(pw, c)
	}
	// Shuffle so the class picks do not always lead.
	for i := len(pw) - 1; i > 0; i-- {
		j, err := randomIndex(i + 1)
		if err != nil {
			return "", fmt.Errorf("shuffle password: %w", err)
		}
		pw[i], pw[j] = pw[j], pw[i]
	}
	return string(pw), nil
}

func randomByte(set string) (byte, error) {
	i, err := randomIndex(len(set))
	if err != nil {
		return 0, err
	}
	return set[i], nil
}

func randomIndex(n int) (int, error) {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0, err
	}
	return int(v.Int64()), nil
}
