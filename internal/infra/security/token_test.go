package security

import "testing"

func TestGenerateSecureTokenProducesDistinctValues(t *testing.T) {
	first, err := GenerateSecureToken(32)
	if err != nil {
		t.Fatalf("GenerateSecureToken returned error: %v", err)
	}
	second, err := GenerateSecureToken(32)
	if err != nil {
		t.Fatalf("GenerateSecureToken returned error: %v", err)
	}

	if first == "" || second == "" {
		t.Fatal("expected non-empty tokens")
	}
	if first == second {
		t.Fatal("expected distinct tokens")
	}
}

func TestGenerateSecureTokenRejectsNonPositiveLength(t *testing.T) {
	if _, err := GenerateSecureToken(0); err == nil {
		t.Fatal("expected error for zero length")
	}
}

func TestHashTokenIsDeterministic(t *testing.T) {
	first := HashToken("reset-token-value")
	second := HashToken("reset-token-value")

	if first != second {
		t.Fatal("expected stable hash for identical input")
	}
	if len(first) != 64 {
		t.Fatalf("expected 64 hex characters, got %d", len(first))
	}
	if first == HashToken("another-value") {
		t.Fatal("expected different inputs to hash differently")
	}
}
