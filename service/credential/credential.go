// Package credential caches broker access tokens and refreshes them on demand.
package credential

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/stuartleeks/service-bus-subscribers/service/mq"
)

const DefaultRefreshSkew = 2 * time.Minute

var ErrNoToken = errors.New("token source returned an empty token")

type Token struct {
	Value     string
	ExpiresAt time.Time
}

// TokenSource fetches a fresh token on every call.
type TokenSource interface {
	FetchToken(ctx context.Context) (Token, error)
}

// TokenSourceFunc adapts a function to TokenSource.
type TokenSourceFunc func(ctx context.Context) (Token, error)

func (fn TokenSourceFunc) FetchToken(ctx context.Context) (Token, error) { return fn(ctx) }

// Cache hands out the last fetched token until it is within RefreshSkew of
// expiring. Concurrent fetches are collapsed into one call to the source.
type Cache struct {
	source TokenSource
	skew   time.Duration
	now    func() time.Time
	logger zerolog.Logger

	group singleflight.Group
	mu    sync.RWMutex
	token Token
}

type CacheOption func(*Cache)

func WithRefreshSkew(d time.Duration) CacheOption {
	return func(c *Cache) { c.skew = d }
}

func WithLogger(logger zerolog.Logger) CacheOption {
	return func(c *Cache) { c.logger = logger.With().Str("component", "Credential").Logger() }
}

func NewCache(source TokenSource, opts ...CacheOption) *Cache {
	c := &Cache{
		source: source,
		skew:   DefaultRefreshSkew,
		now:    time.Now,
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var (
	_ mq.TokenRefresher      = (*Cache)(nil)
	_ azcore.TokenCredential = (*Cache)(nil)
)

// FetchToken returns the cached token or fetches a new one.
func (c *Cache) FetchToken(ctx context.Context) (Token, error) {
	c.mu.RLock()
	tok := c.token
	c.mu.RUnlock()
	if c.valid(tok) {
		return tok, nil
	}
	return c.fetch(ctx)
}

// Refresh discards the cached token and fetches a new one.
func (c *Cache) Refresh(ctx context.Context) error {
	c.mu.Lock()
	c.token = Token{}
	c.mu.Unlock()

	_, err := c.fetch(ctx)
	return err
}

// GetToken lets the cache be handed to Azure SDK clients. The scope is fixed
// by the underlying source.
func (c *Cache) GetToken(ctx context.Context, _ policy.TokenRequestOptions) (azcore.AccessToken, error) {
	tok, err := c.FetchToken(ctx)
	if err != nil {
		return azcore.AccessToken{}, err
	}
	return azcore.AccessToken{Token: tok.Value, ExpiresOn: tok.ExpiresAt}, nil
}

func (c *Cache) valid(tok Token) bool {
	return tok.Value != "" && c.now().Add(c.skew).Before(tok.ExpiresAt)
}

func (c *Cache) fetch(ctx context.Context) (Token, error) {
	v, err, shared := c.group.Do("token", func() (any, error) {
		tok, err := c.source.FetchToken(ctx)
		if err != nil {
			return Token{}, fmt.Errorf("fetch token: %w", err)
		}
		if tok.Value == "" {
			return Token{}, ErrNoToken
		}

		c.mu.Lock()
		c.token = tok
		c.mu.Unlock()
		c.logger.Debug().Time("expires_at", tok.ExpiresAt).Msg("Token fetched")
		return tok, nil
	})
	if err != nil {
		c.logger.Warn().Err(err).Bool("shared", shared).Msg("Token fetch failed")
		return Token{}, err
	}
	return v.(Token), nil
}
