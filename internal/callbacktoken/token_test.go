package callbacktoken

import (
	"net/http"
	"testing"
	"time"
)

func TestSignAndVerifyRoundTrip(t *testing.T) {
	signer, err := NewSigner("s3cret", 0)
	if err != nil {
		t.Fatalf("new signer: %v", err)
	}
	verifier, err := NewVerifier("s3cret", 0)
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}
	token, err := signer.Sign(42)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	recipeID, err := verifier.Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if recipeID != 42 {
		t.Fatalf("recipe id = %d, want 42", recipeID)
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	signer, _ := NewSigner("secret-a", 0)
	verifier, _ := NewVerifier("secret-b", 0)
	token, err := signer.Sign(1)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := verifier.Verify(token); err == nil {
		t.Fatalf("expected wrong secret to fail")
	}
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	signer, _ := NewSigner("s3cret", time.Millisecond)
	verifier, _ := NewVerifier("s3cret", time.Millisecond)
	token, err := signer.Sign(1)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	time.Sleep(10 * time.Millisecond)
	if _, err := verifier.Verify(token); err == nil {
		t.Fatalf("expected expired token to fail")
	}
}

func TestSignerRequiresSecretAndRecipeID(t *testing.T) {
	if _, err := NewSigner("  ", 0); err == nil {
		t.Fatalf("expected empty secret to fail")
	}
	signer, _ := NewSigner("s3cret", 0)
	if _, err := signer.Sign(0); err == nil {
		t.Fatalf("expected zero recipe id to fail")
	}
}

func TestBearerToken(t *testing.T) {
	r, _ := http.NewRequest(http.MethodPost, "/recipe/process", nil)
	if _, ok := BearerToken(r); ok {
		t.Fatalf("expected missing header to report false")
	}
	r.Header.Set("Authorization", "Bearer abc")
	token, ok := BearerToken(r)
	if !ok || token != "abc" {
		t.Fatalf("got %q ok=%v", token, ok)
	}
}
