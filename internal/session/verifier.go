package session

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// StaticVerifier checks a single admin account configured with bcrypt hashes of the password
// and of the six-digit second-factor code.
type StaticVerifier struct {
	email        string
	passwordHash []byte
	codeHash     []byte
}

// NewStaticVerifier rejects hashes that are not bcrypt.
func NewStaticVerifier(email, passwordHash, codeHash string) (*StaticVerifier, error) {
	if email == "" {
		return nil, errors.New("verifier: admin email is empty")
	}
	if _, err := bcrypt.Cost([]byte(passwordHash)); err != nil {
		return nil, fmt.Errorf("verifier: password hash: %w", err)
	}
	if _, err := bcrypt.Cost([]byte(codeHash)); err != nil {
		return nil, fmt.Errorf("verifier: second factor hash: %w", err)
	}
	return &StaticVerifier{
		email:        email,
		passwordHash: []byte(passwordHash),
		codeHash:     []byte(codeHash),
	}, nil
}

// VerifyCredentials checks email and password; both are always evaluated.
func (v *StaticVerifier) VerifyCredentials(_ context.Context, email, password string) (bool, error) {
	emailOK := subtle.ConstantTimeCompare([]byte(email), []byte(v.email)) == 1
	passOK := bcrypt.CompareHashAndPassword(v.passwordHash, []byte(password)) == nil
	return emailOK && passOK, nil
}

// VerifySecondFactor checks the six-digit code. The email is not used by a single-account verifier.
func (v *StaticVerifier) VerifySecondFactor(_ context.Context, _ string, code string) (bool, error) {
	if !IsSixDigitCode(code) {
		return false, nil
	}
	return bcrypt.CompareHashAndPassword(v.codeHash, []byte(code)) == nil, nil
}

// IsSixDigitCode reports whether code is exactly six ASCII digits.
func IsSixDigitCode(code string) bool {
	if len(code) != 6 {
		return false
	}
	for i := 0; i < len(code); i++ {
		if code[i] < '0' || code[i] > '9' {
			return false
		}
	}
	return true
}

// HashSecret returns a bcrypt hash suitable for ADMIN_PASSWORD_HASH or ADMIN_2FA_CODE_HASH.
func HashSecret(value string) (string, error) {
	if value == "" {
		return "", errors.New("empty secret")
	}
	h, err := bcrypt.GenerateFromPassword([]byte(value), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}
