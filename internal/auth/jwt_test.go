package auth

import (
	"testing"

	"github.com/google/uuid"
)

func TestJWTRoundTrip(t *testing.T) {
	svc := NewJWTService("test-secret", 1)
	userID := uuid.New()

	token, err := svc.Generate(userID, "teacher@school.edu", "teacher")
	if err != nil {
		t.Fatal(err)
	}

	claims, err := svc.Validate(token)
	if err != nil {
		t.Fatal(err)
	}
	if claims.UserID != userID {
		t.Errorf("user id = %s, want %s", claims.UserID, userID)
	}
	if claims.Email != "teacher@school.edu" {
		t.Errorf("email = %q", claims.Email)
	}
	if claims.Role != "teacher" {
		t.Errorf("role = %q", claims.Role)
	}
}

func TestJWTWrongSecret(t *testing.T) {
	svc := NewJWTService("secret-a", 1)
	other := NewJWTService("secret-b", 1)

	token, err := svc.Generate(uuid.New(), "s@school.edu", "student")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := other.Validate(token); err == nil {
		t.Error("token signed with another secret should be rejected")
	}
}

func TestJWTExpired(t *testing.T) {
	svc := NewJWTService("test-secret", -1)
	token, err := svc.Generate(uuid.New(), "s@school.edu", "student")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Validate(token); err == nil {
		t.Error("expired token should be rejected")
	}
}

func TestJWTGarbage(t *testing.T) {
	svc := NewJWTService("test-secret", 1)
	if _, err := svc.Validate("not.a.token"); err == nil {
		t.Error("garbage token should be rejected")
	}
}
