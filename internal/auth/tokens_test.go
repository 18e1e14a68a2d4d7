package auth

import (
	"testing"
	"time"
)

func TestCodecSignAndVerify(t *testing.T) {
	codec, err := NewCodec("test-secret", time.Minute, time.Hour)
	if err != nil {
		t.Fatalf("new codec: %v", err)
	}

	token, expires, err := codec.Sign("user-1", TokenKindAccess)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if token == "" {
		t.Fatal("expected non-empty token")
	}
	if !expires.After(time.Now()) {
		t.Fatalf("expected future expiry, got %v", expires)
	}

	userID, err := codec.Verify(token, TokenKindAccess)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if userID != "user-1" {
		t.Fatalf("expected user-1 got %q", userID)
	}
}

func TestCodecRejectsKindMismatch(t *testing.T) {
	codec, err := NewCodec("test-secret", time.Minute, time.Hour)
	if err != nil {
		t.Fatalf("new codec: %v", err)
	}

	token, _, err := codec.Sign("user-1", TokenKindAccess)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	if _, err := codec.Verify(token, TokenKindRefresh); err != ErrInvalidToken {
		t.Fatalf("expected invalid token got %v", err)
	}
}

func TestCodecRejectsExpiredToken(t *testing.T) {
	codec, err := NewCodec("test-secret", time.Minute, time.Hour)
	if err != nil {
		t.Fatalf("new codec: %v", err)
	}

	issued := time.Now().UTC()
	codec.now = func() time.Time { return issued }

	token, _, err := codec.Sign("user-1", TokenKindAccess)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	codec.now = func() time.Time { return issued.Add(2 * time.Minute) }

	if _, err := codec.Verify(token, TokenKindAccess); err != ErrInvalidToken {
		t.Fatalf("expected invalid token got %v", err)
	}
}

func TestCodecRejectsForeignSignature(t *testing.T) {
	codec, err := NewCodec("test-secret", time.Minute, time.Hour)
	if err != nil {
		t.Fatalf("new codec: %v", err)
	}
	other, err := NewCodec("different-secret", time.Minute, time.Hour)
	if err != nil {
		t.Fatalf("new codec: %v", err)
	}

	token, _, err := other.Sign("user-1", TokenKindAccess)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	if _, err := codec.Verify(token, TokenKindAccess); err != ErrInvalidToken {
		t.Fatalf("expected invalid token got %v", err)
	}
}

func TestCodecRequiresSecret(t *testing.T) {
	if _, err := NewCodec("", time.Minute, time.Hour); err == nil {
		t.Fatal("expected error for empty secret")
	}
}
