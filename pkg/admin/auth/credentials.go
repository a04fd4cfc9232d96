package auth

import (
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

var ErrBadCredentials = errors.New("invalid email or password")

// CredentialChecker verifies the single operator account configured through
// the environment. The password is stored as a bcrypt hash, never plaintext.
type CredentialChecker struct {
	email        string
	passwordHash string
}

func NewCredentialChecker(email, passwordHash string) (*CredentialChecker, error) {
	if email == "" || passwordHash == "" {
		return nil, errors.New("admin email and password hash must be configured")
	}
	return &CredentialChecker{
		email:        strings.ToLower(strings.TrimSpace(email)),
		passwordHash: passwordHash,
	}, nil
}

func (c *CredentialChecker) Verify(email, password string) error {
	if strings.ToLower(strings.TrimSpace(email)) != c.email {
		// Run the hash comparison anyway so timing does not reveal
		// whether the email exists.
		bcrypt.CompareHashAndPassword([]byte(c.passwordHash), []byte(password))
		return ErrBadCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(c.passwordHash), []byte(password)); err != nil {
		return ErrBadCredentials
	}
	return nil
}

// HashPassword is used by provisioning tooling to produce the value for
// ADMIN_PASSWORD_HASH.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
