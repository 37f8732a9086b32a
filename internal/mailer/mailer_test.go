package mailer

import (
	"errors"
	"os"
	"testing"

	"github.com/rs/zerolog"

	"github.com/aseli4488/cyoa-stats/internal/config"
)

func TestValidateRecipient(t *testing.T) {
	cfg := &config.MailConfig{
		Host: "smtp.example.com",
		Port: 587,
		From: "noreply@example.com",
	}
	logger := zerolog.New(os.Stderr)
	m := New(cfg, logger, []string{"blocked.example"})

	cases := []struct {
		name    string
		address string
		wantErr error
	}{
		{"valid", "owner@example.com", nil},
		{"empty", "", ErrInvalidAddress},
		{"no at sign", "ownerexample.com", ErrInvalidAddress},
		{"disposable", "x@mailinator.com", ErrDisposableAddress},
		{"disposable case insensitive", "x@YOPmail.com", ErrDisposableAddress},
		{"blocklisted", "x@blocked.example", ErrBlockedAddress},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := m.ValidateRecipient(tc.address)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected %v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestValidateRecipient_NilMailer(t *testing.T) {
	var m *Mailer
	if err := m.ValidateRecipient("owner@example.com"); err != nil {
		t.Fatalf("nil mailer must still validate syntax, got %v", err)
	}
	if err := m.ValidateRecipient("x@mailinator.com"); !errors.Is(err, ErrDisposableAddress) {
		t.Fatalf("expected ErrDisposableAddress, got %v", err)
	}
}

func TestSendCredentials_NilMailerIsNoop(t *testing.T) {
	var m *Mailer
	if err := m.SendCredentials(nil, "owner@example.com", "p1", "s1"); err != nil {
		t.Fatalf("nil mailer send must be a no-op, got %v", err)
	}
}
