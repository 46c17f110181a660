// Package oauth keeps the Xero OAuth2 token set fresh and handles the
// consent flow that produces it.
package oauth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/oauth2"
)

// Xero identity endpoints.
const (
	DefaultAuthURL  = "https://login.xero.com/identity/connect/authorize"
	DefaultTokenURL = "https://identity.xero.com/connect/token"
)

var (
	// ErrNoToken indicates the consent flow has not been completed yet.
	ErrNoToken = errors.New("oauth: no token stored")
	// ErrInvalidState indicates an unknown, expired or replayed consent state.
	ErrInvalidState = errors.New("oauth: invalid state")
)

// Config describes the Xero app registration.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	AuthURL      string
	TokenURL     string
	Scopes       []string
}

// Provider refreshes and serves the stored Xero token.
type Provider struct {
	config *oauth2.Config
	store  *TokenStore
	logger *slog.Logger
	mu     sync.Mutex
}

// NewProvider constructs a Provider.
func NewProvider(cfg Config, store *TokenStore, logger *slog.Logger) *Provider {
	if cfg.AuthURL == "" {
		cfg.AuthURL = DefaultAuthURL
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = DefaultTokenURL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Provider{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       cfg.Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   cfg.AuthURL,
				TokenURL:  cfg.TokenURL,
				AuthStyle: oauth2.AuthStyleInHeader,
			},
		},
		store:  store,
		logger: logger,
	}
}

// IsExpired reports whether a usable token is missing.
func (p *Provider) IsExpired(ctx context.Context) bool {
	tok, err := p.store.Load(ctx)
	if err != nil {
		return true
	}
	return !tok.Valid()
}

// Refresh exchanges the stored refresh token for a new token set. It is a
// no-op while the stored token is still valid.
func (p *Provider) Refresh(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, err := p.refreshLocked(ctx)
	return err
}

func (p *Provider) refreshLocked(ctx context.Context) (*oauth2.Token, error) {
	current, err := p.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	if current.Valid() {
		return current, nil
	}
	next, err := p.config.TokenSource(ctx, current).Token()
	if err != nil {
		return nil, fmt.Errorf("oauth: refresh: %w", err)
	}
	if next.RefreshToken == "" {
		next.RefreshToken = current.RefreshToken
	}
	if err := p.store.Save(ctx, next); err != nil {
		return nil, err
	}
	p.logger.Info("xero token refreshed", slog.Time("expiry", next.Expiry))
	return next, nil
}

// AccessToken returns a valid bearer token, refreshing when needed.
func (p *Provider) AccessToken(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	tok, err := p.refreshLocked(ctx)
	if err != nil {
		return "", err
	}
	return tok.AccessToken, nil
}

// AuthCodeURL starts the consent flow.
func (p *Provider) AuthCodeURL(ctx context.Context) (string, error) {
	state, err := p.store.NewState(ctx)
	if err != nil {
		return "", err
	}
	return p.config.AuthCodeURL(state), nil
}

// Exchange completes the consent flow and stores the resulting token.
func (p *Provider) Exchange(ctx context.Context, state, code string) error {
	if err := p.store.ConsumeState(ctx, state); err != nil {
		return err
	}
	tok, err := p.config.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("oauth: exchange: %w", err)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.store.Save(ctx, tok)
}
