package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/zesthaus/event-booking/internal/metrics"
	"github.com/zesthaus/event-booking/internal/model"
	"github.com/zesthaus/event-booking/internal/notify"
	"github.com/zesthaus/event-booking/internal/otp"
	"github.com/zesthaus/event-booking/internal/utils"
)

// UserStore finds or registers customers.  *repository.UserRepo satisfies it.
type UserStore interface {
	FindOrCreate(ctx context.Context, email, name string) (model.User, error)
}

// AuthConfig holds the secrets and lifetimes used by AuthService.
// MaxAttempts bounds the verification attempts one code allows; the code is
// discarded once they are used up.
type AuthConfig struct {
	JWTSecret   string
	SessionTTL  time.Duration
	CodeTTL     time.Duration
	BcryptCost  int
	MaxAttempts int
}

// LoginResult is returned by a successful login.
type LoginResult struct {
	Token     string     `json:"token"`
	ExpiresAt time.Time  `json:"expires_at"`
	User      model.User `json:"user"`
}

// AuthService implements passwordless login: a six digit code is mailed to
// the customer and exchanged for a session token.
type AuthService struct {
	codes    otp.Store
	users    UserStore
	mailer   notify.Mailer
	composer *notify.Composer
	cfg      AuthConfig
	lg       zerolog.Logger
}

func NewAuthService(codes otp.Store, users UserStore, m notify.Mailer, c *notify.Composer, cfg AuthConfig, lg zerolog.Logger) *AuthService {
	if cfg.CodeTTL <= 0 {
		cfg.CodeTTL = 5 * time.Minute
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 7 * 24 * time.Hour
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	return &AuthService{
		codes:    codes,
		users:    users,
		mailer:   m,
		composer: c,
		cfg:      cfg,
		lg:       lg.With().Str("component", "auth_service").Logger(),
	}
}

// SendCode issues a new login code for email, replacing any earlier one,
// and mails it.  A delivery failure is reported as DEPENDENCY_FAILURE and
// the code is discarded.
func (s *AuthService) SendCode(ctx context.Context, email string) error {
	email = model.NormalizeEmail(email)
	if err := validate.Var(email, "required,email"); err != nil {
		return newError(KindValidation, "email required", nil, nil)
	}
	code, err := utils.NumericCode(6)
	if err != nil {
		return fmt.Errorf("generate code: %w", err)
	}
	hash, err := utils.HashSecret(code, s.cfg.BcryptCost)
	if err != nil {
		return fmt.Errorf("hash code: %w", err)
	}
	if err := s.codes.Put(ctx, email, hash, s.cfg.CodeTTL); err != nil {
		return fmt.Errorf("store code: %w", err)
	}
	msg, err := s.composer.LoginCode(email, code, s.cfg.CodeTTL)
	if err != nil {
		return err
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		_ = s.codes.Delete(ctx, email)
		s.lg.Error().Err(err).Str("email", email).Msg("login code not delivered")
		return newError(KindDependency, "failed to send login code", err, nil)
	}
	metrics.RecordLoginCode("sent")
	return nil
}

// Login exchanges a valid code for a session token.  The code is consumed;
// the user is created on first login with the email local part as name.
// Each call counts against the code's attempt budget; once MaxAttempts
// guesses have been made the code is discarded, so the right code no
// longer helps.
func (s *AuthService) Login(ctx context.Context, email, code string) (*LoginResult, error) {
	email = model.NormalizeEmail(email)
	if email == "" || code == "" {
		return nil, newError(KindValidation, "email and code required", nil, nil)
	}
	rejected := func() error {
		metrics.RecordLoginCode("rejected")
		return newError(KindUnauthorized, "invalid or expired code", nil, nil)
	}

	hash, attempts, err := s.codes.Attempt(ctx, email)
	if errors.Is(err, otp.ErrNoCode) {
		return nil, rejected()
	}
	if err != nil {
		return nil, fmt.Errorf("load code: %w", err)
	}
	if attempts > s.cfg.MaxAttempts {
		s.discard(ctx, email)
		return nil, rejected()
	}
	if !utils.VerifySecret(hash, code) {
		if attempts >= s.cfg.MaxAttempts {
			s.discard(ctx, email)
		}
		return nil, rejected()
	}
	// a concurrent login with the same code may have won the race
	err = s.codes.Consume(ctx, email, hash)
	if errors.Is(err, otp.ErrNoCode) {
		return nil, rejected()
	}
	if err != nil {
		return nil, fmt.Errorf("consume code: %w", err)
	}
	metrics.RecordLoginCode("accepted")

	user, err := s.users.FindOrCreate(ctx, email, model.Purchaser{Email: email}.DisplayName())
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	tok, err := utils.NewSessionToken(s.cfg.JWTSecret, user.ID, user.Email, s.cfg.SessionTTL)
	if err != nil {
		return nil, fmt.Errorf("sign session: %w", err)
	}
	return &LoginResult{Token: tok.Token, ExpiresAt: tok.Exp, User: user}, nil
}

func (s *AuthService) discard(ctx context.Context, email string) {
	if err := s.codes.Delete(ctx, email); err != nil {
		s.lg.Warn().Err(err).Str("email", email).Msg("discard login code")
		return
	}
	s.lg.Info().Str("email", email).Msg("login code discarded after too many attempts")
}
