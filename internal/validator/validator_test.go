package validator

import (
	"errors"
	"testing"
)

func TestValidateEmail(t *testing.T) {
	if err := ValidateEmail("user@example.com"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, email := range []string{"", "no-at.example.com", "user@", "@example.com", "a b@example.com"} {
		if !errors.Is(ValidateEmail(email), ErrInvalidEmail) {
			t.Fatalf("expected %q to be invalid", email)
		}
	}
}

func TestValidateUsername(t *testing.T) {
	if err := ValidateUsername("user_1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, username := range []string{"", "ab", "has space", "way-too-long-username-over-thirty-chars"} {
		if !errors.Is(ValidateUsername(username), ErrInvalidUsername) {
			t.Fatalf("expected %q to be invalid", username)
		}
	}
}

func TestValidatePassword(t *testing.T) {
	if err := ValidatePassword("longenough"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !errors.Is(ValidatePassword("short"), ErrInvalidPassword) {
		t.Fatal("expected short password to be invalid")
	}
}
