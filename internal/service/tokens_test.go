package service_test

import (
	"errors"
	"testing"
	"time"

	"github.com/boddenberg/household-hub-bfa/internal/domain"
	"github.com/boddenberg/household-hub-bfa/internal/service"

	"github.com/golang-jwt/jwt/v5"
)

func TestTokenService_RoundTrip(t *testing.T) {
	svc := service.NewTokenService("test-secret")

	token, err := svc.Issue("alice", time.Hour)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	user, err := svc.Validate(token)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if user != "alice" {
		t.Errorf("expected alice, got %q", user)
	}
}

func TestTokenService_UsernameClaim(t *testing.T) {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"username": "bob",
		"exp":      time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatal(err)
	}

	user, err := service.NewTokenService("test-secret").Validate(token)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if user != "bob" {
		t.Errorf("expected bob, got %q", user)
	}
}

func TestTokenService_Rejects(t *testing.T) {
	svc := service.NewTokenService("test-secret")

	expired, _ := svc.Issue("alice", -time.Minute)
	foreign, _ := service.NewTokenService("other-secret").Issue("alice", time.Hour)

	for name, token := range map[string]string{"expired": expired, "wrong secret": foreign, "garbage": "not-a-jwt"} {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Validate(token)
			var unauthorized *domain.ErrUnauthorized
			if !errors.As(err, &unauthorized) {
				t.Errorf("expected ErrUnauthorized, got %v", err)
			}
		})
	}
}
