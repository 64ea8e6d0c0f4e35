package auth

import "testing"

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("correct horse battery", bcryptTestCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if hash == "correct horse battery" {
		t.Fatal("hash must not equal the password")
	}
	if !CheckPassword("correct horse battery", hash) {
		t.Fatal("correct password rejected")
	}
	if CheckPassword("wrong password!", hash) {
		t.Fatal("wrong password accepted")
	}
}

func TestHashPasswordTooShort(t *testing.T) {
	if _, err := HashPassword("short", bcryptTestCost); err == nil {
		t.Fatal("expected error for short password")
	}
}

func TestGenerateTokenUnique(t *testing.T) {
	a, err := GenerateToken()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	b, err := GenerateToken()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(a) != tokenBytes*2 {
		t.Fatalf("token length = %d, want %d", len(a), tokenBytes*2)
	}
	if a == b {
		t.Fatal("two tokens should never collide")
	}
}

// low cost keeps the test fast; production cost comes from config
const bcryptTestCost = 4
