package security

import (
	"errors"
	"testing"

	zxcvbn "github.com/nbutton23/zxcvbn-go"
)

func assertViolation(t *testing.T, err error, expectedCode string) {
	t.Helper()

	if err == nil {
		t.Fatalf("expected %s violation", expectedCode)
	}
	var vErr *PasswordValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected PasswordValidationError, got %T", err)
	}
	if vErr.Code != expectedCode {
		t.Fatalf("expected %s code, got %s", expectedCode, vErr.Code)
	}
}

func TestPasswordPolicyAcceptsStrongPassword(t *testing.T) {
	policy := NewPasswordPolicy(8, 2)

	password := "C0mplex!Passphrase#2025"
	if strength := zxcvbn.PasswordStrength(password, nil); strength.Score < 2 {
		t.Fatalf("test password unexpectedly weak: score=%d", strength.Score)
	}
	if err := policy.Validate(password); err != nil {
		t.Fatalf("expected password to pass validation, got %v", err)
	}
}

func TestPasswordPolicyViolations(t *testing.T) {
	policy := NewPasswordPolicy(8, 2)

	assertViolation(t, policy.Validate("Ab1"), "min_length")
	assertViolation(t, policy.Validate("14701255"), "letter")
	assertViolation(t, policy.Validate("abcdefgh"), "digit")
	assertViolation(t, policy.Validate("password1"), "weak_password")
}

func TestPasswordPolicyUsesAccountContext(t *testing.T) {
	policy := NewPasswordPolicy(8, 2)

	// The account's own identifiers must drag the score down.
	err := policy.Validate("RinaKasim1", "RinaKasim", "rina.kasim@whitehat88.example")
	assertViolation(t, err, "weak_password")
}

func TestCustomPasswordValidator(t *testing.T) {
	validator := NewPasswordValidator(
		MinLengthRule(4),
		RequireDigitRule(),
	)

	if err := validator.Validate("abcd"); err == nil {
		t.Fatal("expected validation error for missing digit")
	}
	if err := validator.Validate("abc1"); err != nil {
		t.Fatalf("expected password to pass custom validation, got %v", err)
	}
}
