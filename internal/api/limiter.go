package api

import (
	"sync"

	"spotbook/internal/config"

	"golang.org/x/time/rate"
)

// clientLimiters holds one token bucket per configured API client, built up
// front from the key list. Per-client rps/burst overrides fall back to the
// global rate_limit. A nil bucket means the client is unlimited.
type clientLimiters struct {
	defaults config.APIRateLimitConfig
	byName   map[string]*rate.Limiter
	// anon buckets unauthenticated callers by host when auth is off.
	anon sync.Map
}

func newClientLimiters(cfg config.APIConfig) *clientLimiters {
	l := &clientLimiters{
		defaults: cfg.RateLimit,
		byName:   make(map[string]*rate.Limiter, len(cfg.Auth.APIKeys)),
	}
	for _, client := range cfg.Auth.APIKeys {
		l.byName[clientID(client)] = newBucket(client.RPS, client.Burst, cfg.RateLimit)
	}
	return l
}

// clientID falls back to the key itself for entries configured without a name.
func clientID(client config.APIClientKey) string {
	if client.Name != "" {
		return client.Name
	}
	return client.Key
}

func newBucket(rps float64, burst int, defaults config.APIRateLimitConfig) *rate.Limiter {
	if rps <= 0 {
		rps = defaults.RPS
	}
	if burst <= 0 {
		burst = defaults.Burst
	}
	if rps <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = 5
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}

func (l *clientLimiters) forClient(client config.APIClientKey) *rate.Limiter {
	if lim, ok := l.byName[clientID(client)]; ok {
		return lim
	}
	return l.forHost(clientID(client))
}

func (l *clientLimiters) forHost(host string) *rate.Limiter {
	if v, ok := l.anon.Load(host); ok {
		return v.(*rate.Limiter)
	}

	lim := newBucket(0, 0, l.defaults)
	if lim == nil {
		return nil
	}
	if actual, loaded := l.anon.LoadOrStore(host, lim); loaded {
		return actual.(*rate.Limiter)
	}
	return lim
}
