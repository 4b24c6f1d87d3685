package csrf

import (
	"errors"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
)

func TestIssuer_MintAndValidate(t *testing.T) {
	mock := clock.NewMock()
	iss := NewIssuer(time.Hour, mock)

	s := iss.Mint()
	if len(s.Token) != 2*tokenBytes {
		t.Fatalf("token length = %d, want %d", len(s.Token), 2*tokenBytes)
	}
	if s.ID == "" {
		t.Fatal("session id is empty")
	}
	if err := iss.Validate(s.Token); err != nil {
		t.Fatalf("Validate(fresh) = %v, want nil", err)
	}

	tests := []struct {
		name  string
		token string
		want  error
	}{
		{"empty", "", ErrMissingToken},
		{"blank", "   ", ErrMissingToken},
		{"unknown", "deadbeef", ErrInvalidToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := iss.Validate(tt.token); !errors.Is(err, tt.want) {
				t.Fatalf("Validate(%q) = %v, want %v", tt.token, err, tt.want)
			}
		})
	}
}

func TestIssuer_Expiry(t *testing.T) {
	mock := clock.NewMock()
	iss := NewIssuer(time.Minute, mock)
	s := iss.Mint()

	mock.Add(59 * time.Second)
	if err := iss.Validate(s.Token); err != nil {
		t.Fatalf("Validate before expiry = %v, want nil", err)
	}
	mock.Add(time.Second)
	if err := iss.Validate(s.Token); !errors.Is(err, ErrExpiredToken) {
		t.Fatalf("Validate at expiry = %v, want ErrExpiredToken", err)
	}
	if err := iss.Validate(s.Token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("Validate after expiry purge = %v, want ErrInvalidToken", err)
	}
}

func TestIssuer_Revoke(t *testing.T) {
	iss := NewIssuer(0, clock.NewMock())
	s := iss.Mint()
	iss.Revoke(s.Token)
	if err := iss.Validate(s.Token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("Validate after Revoke = %v, want ErrInvalidToken", err)
	}
}

func TestIssuer_SessionsAreIndependent(t *testing.T) {
	iss := NewIssuer(time.Hour, clock.NewMock())
	a := iss.Mint()
	b := iss.Mint()

	if err := iss.Validate(a.Token[:len(a.Token)-1]); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("Validate(truncated) = %v, want ErrInvalidToken", err)
	}
	iss.Revoke(a.Token)
	if err := iss.Validate(a.Token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("Validate(revoked) = %v, want ErrInvalidToken", err)
	}
	if err := iss.Validate(b.Token); err != nil {
		t.Fatalf("Validate(other session) = %v, want nil", err)
	}
}
