package webpush

import (
	"encoding/base64"
	"testing"
)

func TestGenerateVAPIDKeys(t *testing.T) {
	pub, priv, err := GenerateVAPIDKeys()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	pubBytes, err := base64.RawURLEncoding.DecodeString(pub)
	if err != nil {
		t.Fatalf("decode public key: %v", err)
	}
	// Uncompressed P-256 point: 0x04 prefix plus two 32-byte coordinates.
	if len(pubBytes) != 65 {
		t.Errorf("public key length = %d, want 65", len(pubBytes))
	}
	if pubBytes[0] != 0x04 {
		t.Errorf("public key prefix = %#x, want 0x04", pubBytes[0])
	}

	if _, err := base64.RawURLEncoding.DecodeString(priv); err != nil {
		t.Fatalf("decode private key: %v", err)
	}

	pub2, _, err := GenerateVAPIDKeys()
	if err != nil {
		t.Fatalf("generate second pair: %v", err)
	}
	if pub2 == pub {
		t.Error("expected distinct key pairs")
	}
}
