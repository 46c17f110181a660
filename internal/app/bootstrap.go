package app

import (
	"errors"
	"io/fs"
	"log/slog"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/odyssey-erp/cashcast/internal/forecast"
	"github.com/odyssey-erp/cashcast/internal/xero"
	"github.com/odyssey-erp/cashcast/internal/xero/oauth"
)

const oauthStateTTL = 10 * time.Minute

// LoadEnv merges a local .env file into the process environment. Variables
// already set take precedence; a missing file is not an error.
func LoadEnv(paths ...string) error {
	if err := godotenv.Load(paths...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// Pipeline bundles the forecast service with the Xero credentials it runs on.
type Pipeline struct {
	Service *forecast.Service
	Tokens  *oauth.Provider
	Client  *xero.Client
}

// NewPipeline wires the Xero client, token provider and forecast service.
func NewPipeline(cfg *Config, redisClient *redis.Client, logger *slog.Logger) (*Pipeline, error) {
	if cfg == nil {
		return nil, errors.New("app: config required")
	}
	policy, err := cfg.Policy()
	if err != nil {
		return nil, err
	}
	accounts, err := cfg.Accounts()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	var cache *forecast.Cache
	if redisClient != nil {
		cache = forecast.NewCache(redisClient, cfg.CacheTTL)
	}
	tokens := oauth.NewProvider(cfg.OAuth(), oauth.NewTokenStore(redisClient, oauthStateTTL), logger)
	client := xero.NewClient(cfg.APIURL(), cfg.XeroTenantID, tokens)
	service := forecast.NewService(client, tokens, forecast.ServiceConfig{
		Policy:       &policy,
		Accounts:     &accounts,
		FetchTimeout: cfg.XeroFetchTimeout,
		Cache:        cache,
		Logger:       logger,
	})
	return &Pipeline{Service: service, Tokens: tokens, Client: client}, nil
}
