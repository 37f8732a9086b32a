package mailer

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/aseli4488/cyoa-stats/internal/config"
)

// Validation errors for registration email addresses.
var (
	ErrInvalidAddress    = errors.New("mailer: invalid email address")
	ErrDisposableAddress = errors.New("mailer: disposable email domains are not accepted")
	ErrBlockedAddress    = errors.New("mailer: address domain is blocked")
)

// disposableDomains are throwaway providers we refuse to mail credentials to.
var disposableDomains = map[string]struct{}{
	"mailinator.com":    {},
	"guerrillamail.com": {},
	"10minutemail.com":  {},
	"tempmail.com":      {},
	"temp-mail.org":     {},
	"throwawaymail.com": {},
	"yopmail.com":       {},
	"sharklasers.com":   {},
	"getnada.com":       {},
	"dispostable.com":   {},
	"trashmail.com":     {},
	"maildrop.cc":       {},
}

// Mailer delivers registration credentials over SMTP. A nil Mailer is valid
// and silently skips delivery, for deployments without an SMTP relay.
type Mailer struct {
	cfg      *config.MailConfig
	validate *validator.Validate
	logger   zerolog.Logger
	blocked  map[string]struct{}
	timeout  time.Duration
}

// New returns a Mailer, or nil when mail is not configured.
func New(cfg *config.MailConfig, logger zerolog.Logger, blockedDomains []string) *Mailer {
	if cfg == nil {
		return nil
	}
	blocked := make(map[string]struct{}, len(blockedDomains))
	for _, d := range blockedDomains {
		blocked[strings.ToLower(strings.TrimSpace(d))] = struct{}{}
	}
	return &Mailer{
		cfg:      cfg,
		validate: validator.New(),
		logger:   logger,
		blocked:  blocked,
		timeout:  30 * time.Second,
	}
}

// ValidateRecipient checks syntax and rejects disposable or blocklisted
// domains. Safe on a nil Mailer.
func (m *Mailer) ValidateRecipient(address string) error {
	var validate *validator.Validate
	if m != nil {
		validate = m.validate
	} else {
		validate = validator.New()
	}
	if err := validate.Var(address, "required,email"); err != nil {
		return ErrInvalidAddress
	}
	at := strings.LastIndex(address, "@")
	domain := strings.ToLower(address[at+1:])
	if _, ok := disposableDomains[domain]; ok {
		return ErrDisposableAddress
	}
	if m != nil {
		if _, ok := m.blocked[domain]; ok {
			return ErrBlockedAddress
		}
	}
	return nil
}

// SendCredentials mails the project id and secret key to the owner. The
// secret is never persisted server-side, so this mail is the owner's only
// recovery path besides their own copy.
func (m *Mailer) SendCredentials(ctx context.Context, to, projectID, secretKey string) error {
	if m == nil {
		return nil
	}
	if err := m.ValidateRecipient(to); err != nil {
		return err
	}

	var msg strings.Builder
	msg.WriteString(fmt.Sprintf("From: CYOA Stats <%s>\r\n", m.cfg.From))
	msg.WriteString(fmt.Sprintf("To: %s\r\n", to))
	msg.WriteString("Subject: Your CYOA analytics project credentials\r\n")
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	msg.WriteString("\r\n")
	msg.WriteString("Your analytics project was registered.\r\n\r\n")
	msg.WriteString(fmt.Sprintf("Project ID: %s\r\n", projectID))
	msg.WriteString(fmt.Sprintf("Secret key: %s\r\n\r\n", secretKey))
	msg.WriteString("Keep the secret key safe. It is not stored on the server and cannot be recovered.\r\n")

	if err := m.sendSMTP(ctx, to, msg.String()); err != nil {
		m.logger.Error().Err(err).Str("domain", to[strings.LastIndex(to, "@")+1:]).Msg("credential mail delivery failed")
		return err
	}
	return nil
}

// sendSMTP dials with a timeout and speaks plain SMTP, upgrading auth only
// when credentials are configured.
func (m *Mailer) sendSMTP(ctx context.Context, to, msg string) error {
	addr := net.JoinHostPort(m.cfg.Host, fmt.Sprintf("%d", m.cfg.Port))

	dialer := &net.Dialer{Timeout: m.timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("dial smtp: %w", err)
	}

	client, err := smtp.NewClient(conn, m.cfg.Host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("smtp handshake: %w", err)
	}
	defer client.Close()

	if m.cfg.Username != "" {
		auth := smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}
	if err := client.Mail(m.cfg.From); err != nil {
		return fmt.Errorf("smtp mail from: %w", err)
	}
	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("smtp rcpt to: %w", err)
	}
	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}
	if _, err := w.Write([]byte(msg)); err != nil {
		w.Close()
		return fmt.Errorf("smtp write: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("smtp close data: %w", err)
	}
	return client.Quit()
}
