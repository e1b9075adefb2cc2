package services

import (
	"context"
	"testing"

	"github.com/JumajiCa/ChatDVC/internal/models"
)

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name    string
		pw      string
		wantErr bool
	}{
		{"too short", "abc1", true},
		{"no digit", "abcdefgh", true},
		{"valid", "abcdefg1", false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := validatePassword(tc.pw)
			if (err != nil) != tc.wantErr {
				t.Errorf("validatePassword(%q) error = %v, wantErr %v", tc.pw, err, tc.wantErr)
			}
		})
	}
}

func TestRegister_ReportsAllFieldErrors(t *testing.T) {
	s := NewAuthService(nil, nil, nil)

	_, err := s.Register(context.Background(), models.RegisterRequest{
		FullName: " ",
		Email:    "not-an-email",
		Password: "short",
	})

	verr, ok := err.(*ValidationError)
	if !ok {
		t.Fatalf("expected *ValidationError, got %T", err)
	}
	for _, field := range []string{"full_name", "email", "password"} {
		if _, ok := verr.Fields[field]; !ok {
			t.Errorf("expected error for field %q", field)
		}
	}
}
