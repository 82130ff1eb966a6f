package auth

import (
	"testing"
	"time"
)

func TestIssueAndVerifyRoundTrip(t *testing.T) {
	a := NewAuthenticator("test-secret", time.Hour)

	token, err := a.IssueToken("alice")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	userID, err := a.VerifyToken(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if userID != "alice" {
		t.Errorf("subject = %q, want alice", userID)
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	issuer := NewAuthenticator("secret-one", time.Hour)
	verifier := NewAuthenticator("secret-two", time.Hour)

	token, err := issuer.IssueToken("alice")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := verifier.VerifyToken(token); err == nil {
		t.Fatal("token signed with a different secret verified")
	}
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	a := NewAuthenticator("test-secret", -time.Minute)

	token, err := a.IssueToken("alice")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := a.VerifyToken(token); err == nil {
		t.Fatal("expired token verified")
	}
}

func TestVerifyRejectsGarbage(t *testing.T) {
	a := NewAuthenticator("test-secret", time.Hour)

	for _, token := range []string{"", "not-a-jwt", "a.b.c"} {
		if _, err := a.VerifyToken(token); err == nil {
			t.Errorf("token %q verified", token)
		}
	}
}

func TestUserIDFromEmail(t *testing.T) {
	cases := map[string]string{
		"alice@example.com": "alice",
		"bob":               "bob",
		"carol@x@y":         "carol",
	}
	for email, want := range cases {
		if got := UserIDFromEmail(email); got != want {
			t.Errorf("UserIDFromEmail(%q) = %q, want %q", email, got, want)
		}
	}
}
