package scraper

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Authenticator detects login walls and performs the login flow.
type Authenticator struct {
	creds         CredentialStore
	probeTimeout  time.Duration
	submitTimeout time.Duration
	settle        time.Duration
	sleep         sleepFunc
	logger        *zap.Logger
}

// LoginRequired probes for the login-form landmark. Platforms without a login wall never
// require it.
func (a *Authenticator) LoginRequired(ctx context.Context, s Session, cfg SelectorConfig) (bool, error) {
	if !cfg.Capabilities.LoginWall() || cfg.LoginForm == "" {
		return false, nil
	}
	found, err := s.Exists(ctx, cfg.LoginForm)
	if err != nil {
		return false, AuthError(fmt.Errorf("probe login form: %w", err))
	}
	return found, nil
}

// Login fills and submits the login form. The caller must navigate back to the target
// afterwards; the post-login page is rarely the original URL.
func (a *Authenticator) Login(ctx context.Context, s Session, cfg SelectorConfig) error {
	var (
		creds Credentials
		ok    bool
	)
	if a.creds != nil {
		creds, ok = a.creds.Lookup(cfg.Platform)
	}
	if !ok {
		return MissingCredentialsError(cfg.Platform)
	}
	a.logger.Info("login wall detected, signing in", zap.String("platform", cfg.Platform))

	if err := s.WaitVisible(ctx, cfg.UsernameField, a.probeTimeout); err != nil {
		return AuthError(fmt.Errorf("username field: %w", err))
	}
	if err := s.Type(ctx, cfg.UsernameField, creds.Username); err != nil {
		return AuthError(fmt.Errorf("type username: %w", err))
	}
	if cfg.LoginNext != "" {
		if err := s.Click(ctx, cfg.LoginNext); err != nil {
			return AuthError(fmt.Errorf("click next: %w", err))
		}
		if err := s.WaitVisible(ctx, cfg.PasswordField, a.probeTimeout); err != nil {
			return AuthError(fmt.Errorf("password field: %w", err))
		}
	}
	if err := s.Type(ctx, cfg.PasswordField, creds.Password); err != nil {
		return AuthError(fmt.Errorf("type password: %w", err))
	}
	if err := s.Submit(ctx, cfg.LoginSubmit, a.submitTimeout); err != nil {
		return AuthError(fmt.Errorf("submit: %w", err))
	}
	if err := a.sleep(ctx, a.settle); err != nil {
		return AuthError(err)
	}
	a.logger.Info("login submitted", zap.String("platform", cfg.Platform))
	return nil
}
