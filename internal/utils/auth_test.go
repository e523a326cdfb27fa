package utils

import (
	"context"
	"strconv"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/classpoint/classpoint-backend/internal/types"
)

func TestIsPasswordStrong(t *testing.T) {
	cases := []struct {
		password string
		want     bool
	}{
		{"Abcdef1!", true},
		{"Str0ng#Password", true},
		{"short1!", false},
		{"alllowercase1!", false},
		{"NoDigitsHere!", false},
		{"NoSpecials123", false},
		{"", false},
	}
	for _, tc := range cases {
		if got := IsPasswordStrong(tc.password); got != tc.want {
			t.Fatalf("%q: got %v, want %v", tc.password, got, tc.want)
		}
	}
}

func TestGenerateConfirmationCode(t *testing.T) {
	for i := 0; i < 50; i++ {
		code, err := GenerateConfirmationCode()
		if err != nil {
			t.Fatalf("generate: %v", err)
		}
		if len(code) != 6 {
			t.Fatalf("expected 6 digits, got %q", code)
		}
		n, err := strconv.Atoi(code)
		if err != nil {
			t.Fatalf("non-numeric code %q", code)
		}
		if n < 100000 || n > 999999 {
			t.Fatalf("code %d out of range", n)
		}
	}
}

func TestNormalizeUserFields(t *testing.T) {
	user := &types.User{Email: "  Ana@Example.COM ", Username: " AnaM "}
	NormalizeUserFields(context.Background(), user)
	if user.Email != "ana@example.com" {
		t.Fatalf("unexpected email: %q", user.Email)
	}
	if user.Username != "anam" {
		t.Fatalf("unexpected username: %q", user.Username)
	}
}

func TestHashPassword(t *testing.T) {
	user := &types.User{Password: "Abcdef1!"}
	if err := HashPassword(context.Background(), nil, user); err != nil {
		t.Fatalf("hash: %v", err)
	}
	if user.Password == "Abcdef1!" {
		t.Fatalf("password was not hashed")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte("Abcdef1!")); err != nil {
		t.Fatalf("hash does not verify: %v", err)
	}
}
