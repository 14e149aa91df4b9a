package auth

import "testing"

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if hash == "correct horse battery staple" {
		t.Fatal("hash must not equal the plaintext")
	}

	if !VerifyPassword("correct horse battery staple", hash) {
		t.Error("expected password to verify against its hash")
	}
	if VerifyPassword("wrong password", hash) {
		t.Error("expected wrong password to fail verification")
	}
}

func TestHashPasswordUniqueSalts(t *testing.T) {
	h1, _ := HashPassword("password123")
	h2, _ := HashPassword("password123")
	if h1 == h2 {
		t.Error("expected different hashes for the same password")
	}
}
