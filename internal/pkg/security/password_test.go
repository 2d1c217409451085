package security_test

import (
	"errors"
	"testing"

	"github.com/olegbrv/storefront/backend/internal/pkg/security"
)

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := security.HashPassword("secret-pw", 10)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	if hash == "secret-pw" {
		t.Fatalf("hash must not equal plaintext")
	}

	if err := security.CheckPassword(hash, "secret-pw"); err != nil {
		t.Fatalf("check password with correct secret: %v", err)
	}

	if err := security.CheckPassword(hash, "wrong-pw"); !errors.Is(err, security.ErrInvalidPassword) {
		t.Fatalf("check password with wrong secret: got err=%v", err)
	}
}

func TestHashPasswordClampsInvalidCost(t *testing.T) {
	hash, err := security.HashPassword("secret-pw", 99)
	if err != nil {
		t.Fatalf("hash password with out-of-range cost: %v", err)
	}
	if err := security.CheckPassword(hash, "secret-pw"); err != nil {
		t.Fatalf("check password: %v", err)
	}
}
