// FilePath: internal/token/token_test.go
package token

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/greenmind-iot/hub/internal/config"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	svc, err := NewService(config.AuthConfig{
		Secret:    "test-secret",
		Algorithm: "HS256",
		TokenTTL:  15 * time.Minute,
	})
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}
	return svc
}

func TestNewServiceRejectsNonHMAC(t *testing.T) {
	for _, alg := range []string{"RS256", "ES256", "none", "bogus"} {
		t.Run(alg, func(t *testing.T) {
			_, err := NewService(config.AuthConfig{Secret: "x", Algorithm: alg})
			if err == nil {
				t.Fatalf("algorithm %q must be rejected", alg)
			}
		})
	}
}

func TestIssueVerifyRoundTrip(t *testing.T) {
	svc := newTestService(t)

	issued := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return issued }

	signed, err := svc.Issue("dev-42", 15*time.Minute)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	// 14 minutes in, the token is valid and yields the original subject.
	svc.now = func() time.Time { return issued.Add(14 * time.Minute) }
	subject, err := svc.Verify(signed)
	if err != nil {
		t.Fatalf("Verify failed at t+14m: %v", err)
	}
	if subject != "dev-42" {
		t.Fatalf("subject = %q, want dev-42", subject)
	}

	// 16 minutes in, verification fails with the expiry error
	// specifically, not the generic invalid one.
	svc.now = func() time.Time { return issued.Add(16 * time.Minute) }
	_, err = svc.Verify(signed)
	if !errors.Is(err, ErrExpired) {
		t.Fatalf("Verify at t+16m = %v, want ErrExpired", err)
	}
}

func TestVerifyRejectsBadSignature(t *testing.T) {
	svc := newTestService(t)

	other, err := NewService(config.AuthConfig{
		Secret:    "different-secret",
		Algorithm: "HS256",
		TokenTTL:  15 * time.Minute,
	})
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}

	signed, err := other.Issue("dev-42", 15*time.Minute)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	_, err = svc.Verify(signed)
	if !errors.Is(err, ErrInvalid) {
		t.Fatalf("Verify = %v, want ErrInvalid", err)
	}
}

func TestVerifyRejectsMalformed(t *testing.T) {
	svc := newTestService(t)

	for _, tokenString := range []string{"", "not-a-token", "a.b.c"} {
		if _, err := svc.Verify(tokenString); !errors.Is(err, ErrInvalid) {
			t.Fatalf("Verify(%q) = %v, want ErrInvalid", tokenString, err)
		}
	}
}

func TestVerifyRejectsMissingSubject(t *testing.T) {
	svc := newTestService(t)

	// Well-signed token without a usable sub claim.
	claims := jwt.MapClaims{
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(time.Hour).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("signing failed: %v", err)
	}

	if _, err := svc.Verify(signed); !errors.Is(err, ErrInvalidSubject) {
		t.Fatalf("Verify = %v, want ErrInvalidSubject", err)
	}
}
