package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/oauth2"
)

const (
	tokenKey    = "cashcast:xero:token"
	statePrefix = "cashcast:xero:state:"
)

// TokenStore persists the Xero token set and pending consent states in Redis.
type TokenStore struct {
	client   *redis.Client
	stateTTL time.Duration
}

// NewTokenStore constructs a TokenStore.
func NewTokenStore(client *redis.Client, stateTTL time.Duration) *TokenStore {
	if stateTTL <= 0 {
		stateTTL = 10 * time.Minute
	}
	return &TokenStore{client: client, stateTTL: stateTTL}
}

// Load returns the stored token or ErrNoToken.
func (s *TokenStore) Load(ctx context.Context) (*oauth2.Token, error) {
	payload, err := s.client.Get(ctx, tokenKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNoToken
		}
		return nil, fmt.Errorf("oauth: load token: %w", err)
	}
	var tok oauth2.Token
	if err := json.Unmarshal(payload, &tok); err != nil {
		return nil, fmt.Errorf("oauth: decode token: %w", err)
	}
	return &tok, nil
}

// Save overwrites the stored token. The token outlives any TTL; expiry is
// tracked on the token itself.
func (s *TokenStore) Save(ctx context.Context, tok *oauth2.Token) error {
	if tok == nil {
		return errors.New("oauth: nil token")
	}
	data, err := json.Marshal(tok)
	if err != nil {
		return fmt.Errorf("oauth: encode token: %w", err)
	}
	if err := s.client.Set(ctx, tokenKey, data, 0).Err(); err != nil {
		return fmt.Errorf("oauth: save token: %w", err)
	}
	return nil
}

// Clear removes the stored token.
func (s *TokenStore) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, tokenKey).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("oauth: clear token: %w", err)
	}
	return nil
}

// NewState issues a single-use consent state.
func (s *TokenStore) NewState(ctx context.Context) (string, error) {
	state := uuid.NewString()
	if err := s.client.Set(ctx, statePrefix+state, "1", s.stateTTL).Err(); err != nil {
		return "", fmt.Errorf("oauth: save state: %w", err)
	}
	return state, nil
}

// ConsumeState deletes the state and reports ErrInvalidState when it was
// unknown or already used.
func (s *TokenStore) ConsumeState(ctx context.Context, state string) error {
	if state == "" {
		return ErrInvalidState
	}
	n, err := s.client.Del(ctx, statePrefix+state).Result()
	if err != nil {
		return fmt.Errorf("oauth: consume state: %w", err)
	}
	if n == 0 {
		return ErrInvalidState
	}
	return nil
}
