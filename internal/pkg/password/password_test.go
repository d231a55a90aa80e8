package password

import "testing"

func TestHashAndVerify(t *testing.T) {
	hash, err := Hash("secret123")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	if hash == "secret123" {
		t.Fatal("hash equals the plaintext")
	}

	if !Verify("secret123", hash) {
		t.Error("correct password rejected")
	}
	if Verify("wrong", hash) {
		t.Error("wrong password accepted")
	}
}
