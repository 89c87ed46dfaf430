package account

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/giantksiclo/new-patient-questionnarire-sub000/internal/platform/auth"
	"github.com/giantksiclo/new-patient-questionnarire-sub000/internal/platform/cache"
	"github.com/giantksiclo/new-patient-questionnarire-sub000/internal/platform/mailer"
)

const (
	resetPrefix     = "auth:reset:"
	DefaultResetTTL = 30 * time.Minute
)

// ResetConfig controls the password reset mail.
type ResetConfig struct {
	// URLBase is the page the emailed link points at; the token is appended
	// as ?token=.
	URLBase string
	TTL     time.Duration
}

type Service struct {
	repo        Repository
	issuer      *auth.TokenIssuer
	revocations *auth.RevocationStore
	kv          cache.KV
	mail        mailer.Mailer
	reset       ResetConfig
	logger      zerolog.Logger
	cost        int
}

func NewService(repo Repository, issuer *auth.TokenIssuer, revocations *auth.RevocationStore,
	kv cache.KV, mail mailer.Mailer, reset ResetConfig, logger zerolog.Logger) *Service {
	if reset.TTL <= 0 {
		reset.TTL = DefaultResetTTL
	}
	return &Service{
		repo: repo, issuer: issuer, revocations: revocations, kv: kv, mail: mail,
		reset: reset, logger: logger, cost: bcrypt.DefaultCost,
	}
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func checkPassword(pw string) error {
	if len([]rune(pw)) < MinPasswordLength {
		return invalid("password must be at least %d characters", MinPasswordLength)
	}
	return nil
}

// Create registers a staff account with the given role.
func (s *Service) Create(ctx context.Context, in NewAccount) (*Account, error) {
	email := normalizeEmail(in.Email)
	if _, err := mail.ParseAddress(email); err != nil || !strings.Contains(email, "@") {
		return nil, invalid("invalid email address")
	}
	name := strings.TrimSpace(in.DisplayName)
	if name == "" {
		return nil, invalid("display_name is required")
	}
	if in.Role == "" {
		in.Role = auth.RoleStaff
	}
	if !auth.ValidRole(in.Role) {
		return nil, invalid("unknown role %q", in.Role)
	}
	if err := checkPassword(in.Password); err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	a := &Account{Email: email, PasswordHash: string(hash), DisplayName: name, Role: in.Role}
	if err := s.repo.Create(ctx, a); err != nil {
		return nil, err
	}
	s.logger.Info().Str("account_id", a.ID.String()).Str("role", a.Role).Msg("staff account created")
	return a, nil
}

// SignUp self-registers with the least privileged role. Higher roles are
// granted from the command line.
func (s *Service) SignUp(ctx context.Context, in NewAccount) (*Account, error) {
	in.Role = auth.RoleStaff
	return s.Create(ctx, in)
}

// SignIn checks the password and issues a session token. Unknown email and
// wrong password return the same error.
func (s *Service) SignIn(ctx context.Context, email, password string) (*Session, error) {
	a, err := s.repo.GetByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(password)); err != nil {
		s.logger.Warn().Str("account_id", a.ID.String()).Msg("sign-in failed")
		return nil, ErrInvalidCredentials
	}
	token, claims, err := s.issuer.Issue(a.ID.String(), a.Email, a.DisplayName, a.Role)
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, TokenType: "Bearer", ExpiresAt: claims.ExpiresAt.Time, Account: a}, nil
}

// SignOut revokes the token behind claims.
func (s *Service) SignOut(ctx context.Context, claims *auth.Claims) error {
	if claims == nil || claims.ID == "" || claims.ExpiresAt == nil {
		return nil
	}
	return s.revocations.Revoke(ctx, claims.ID, claims.ExpiresAt.Time)
}

// Current loads the account of the signed-in user.
func (s *Service) Current(ctx context.Context, claims *auth.Claims) (*Account, error) {
	if claims == nil {
		return nil, ErrNotFound
	}
	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, ErrNotFound
	}
	return s.repo.GetByID(ctx, id)
}

// RequestPasswordReset mails a one-time reset link. It succeeds silently for
// unknown addresses.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	a, err := s.repo.GetByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	token := strings.ReplaceAll(uuid.NewString()+uuid.NewString(), "-", "")
	if err := s.kv.Set(ctx, resetPrefix+token, a.ID.String(), s.reset.TTL); err != nil {
		return fmt.Errorf("store reset token: %w", err)
	}
	link := s.reset.URLBase + "?token=" + token
	msg := mailer.Message{
		To:      a.Email,
		Subject: "비밀번호 재설정 안내",
		Text: fmt.Sprintf("%s님, 아래 링크에서 비밀번호를 재설정하세요. 링크는 %d분 동안 유효합니다.\n\n%s\n",
			a.DisplayName, int(s.reset.TTL.Minutes()), link),
	}
	if err := s.mail.Send(ctx, msg); err != nil {
		_ = s.kv.Delete(ctx, resetPrefix+token)
		return fmt.Errorf("send reset mail: %w", err)
	}
	s.logger.Info().Str("account_id", a.ID.String()).Msg("password reset requested")
	return nil
}

// ConfirmPasswordReset sets a new password. The password is checked before
// the token is consumed so a rejected password leaves the link usable. The
// token is then taken atomically; a failed update does not restore it.
func (s *Service) ConfirmPasswordReset(ctx context.Context, token, password string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrInvalidResetToken
	}
	if err := checkPassword(password); err != nil {
		return err
	}
	raw, err := s.kv.Take(ctx, resetPrefix+token)
	if errors.Is(err, cache.ErrMiss) {
		return ErrInvalidResetToken
	}
	if err != nil {
		return fmt.Errorf("consume reset token: %w", err)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return ErrInvalidResetToken
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.repo.UpdatePassword(ctx, id, string(hash)); err != nil {
		return err
	}
	s.logger.Info().Str("account_id", id.String()).Msg("password reset")
	return nil
}
