package jwt

import (
	"errors"
	"testing"
)

const secret = "test-secret"

func TestAccessTokenRoundtrip(t *testing.T) {
	token, err := GenerateAccessToken(7, "alice", "STAFF", secret, 15)
	if err != nil {
		t.Fatalf("GenerateAccessToken() error = %v", err)
	}

	claims, err := ValidateAccessToken(token, secret)
	if err != nil {
		t.Fatalf("ValidateAccessToken() error = %v", err)
	}

	if claims.UserID != 7 {
		t.Errorf("UserID = %d, want 7", claims.UserID)
	}
	if claims.Username != "alice" {
		t.Errorf("Username = %s, want alice", claims.Username)
	}
	if claims.Role != "STAFF" {
		t.Errorf("Role = %s, want STAFF", claims.Role)
	}
}

func TestValidateAccessTokenFailures(t *testing.T) {
	expired, err := GenerateAccessToken(7, "alice", "USER", secret, -1)
	if err != nil {
		t.Fatalf("GenerateAccessToken() error = %v", err)
	}
	valid, err := GenerateAccessToken(7, "alice", "USER", secret, 15)
	if err != nil {
		t.Fatalf("GenerateAccessToken() error = %v", err)
	}

	tests := []struct {
		name    string
		token   string
		secret  string
		wantErr error
	}{
		{"expired token", expired, secret, ErrTokenExpired},
		{"wrong secret", valid, "other-secret", ErrTokenInvalid},
		{"garbage token", "not.a.token", secret, ErrTokenInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ValidateAccessToken(tt.token, tt.secret); !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateAccessToken() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
