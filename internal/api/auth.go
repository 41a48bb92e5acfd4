package api

import (
	"crypto/subtle"
	"fmt"
	"net"
	"net/http"
	"strings"

	"spotbook/internal/config"

	"golang.org/x/time/rate"
)

var errPermissionDenied = fmt.Errorf("permission denied")

// HTTPAuth provides API-key auth and per-client rate limiting.
type HTTPAuth struct {
	cfg      config.APIConfig
	clients  map[string]config.APIClientKey
	limiters *clientLimiters
}

func NewHTTPAuth(cfg config.APIConfig) *HTTPAuth {
	m := make(map[string]config.APIClientKey, len(cfg.Auth.APIKeys))
	for _, k := range cfg.Auth.APIKeys {
		m[k.Key] = k
	}
	return &HTTPAuth{
		cfg:      cfg,
		clients:  m,
		limiters: newClientLimiters(cfg),
	}
}

func (a *HTTPAuth) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var client config.APIClientKey
		authed := false
		if a.cfg.Auth.Enabled {
			c, err := a.checkAuth(r)
			if err != nil {
				statusCode := http.StatusUnauthorized
				if err == errPermissionDenied {
					statusCode = http.StatusForbidden
				}
				writeError(w, statusCode, err.Error())
				return
			}
			client = c
			authed = true
		}

		if err := a.checkRateLimit(r, client, authed); err != nil {
			writeError(w, http.StatusTooManyRequests, err.Error())
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (a *HTTPAuth) checkAuth(r *http.Request) (config.APIClientKey, error) {
	apiKey := strings.TrimSpace(r.Header.Get(a.apiKeyHeader()))
	if apiKey == "" {
		return config.APIClientKey{}, fmt.Errorf("missing api key header")
	}

	client, ok := a.lookupClient(apiKey)
	if !ok {
		return config.APIClientKey{}, fmt.Errorf("invalid api key")
	}

	return client, a.checkPermissions(client, r)
}

// lookupClient compares the presented key against every configured key so the
// comparison time does not depend on which key matched.
func (a *HTTPAuth) lookupClient(apiKey string) (config.APIClientKey, bool) {
	var match config.APIClientKey
	found := false
	for key, client := range a.clients {
		if subtle.ConstantTimeCompare([]byte(key), []byte(apiKey)) == 1 {
			match = client
			found = true
		}
	}
	return match, found
}

// checkPermissions enforces the route's required permission. A client with an
// empty permission list is unrestricted.
func (a *HTTPAuth) checkPermissions(client config.APIClientKey, r *http.Request) error {
	required := requiredPermission(r)
	if required == "" {
		return nil
	}
	if len(client.Permissions) == 0 {
		return nil
	}
	for _, p := range client.Permissions {
		if strings.TrimSpace(p) == required {
			return nil
		}
	}
	return errPermissionDenied
}

func requiredPermission(r *http.Request) string {
	path := r.URL.Path
	switch {
	case path == "/api/v1/bookings/export":
		return "export:bookings"
	case strings.HasPrefix(path, "/api/v1/bookings"):
		if r.Method == http.MethodGet {
			return "read:bookings"
		}
		return "write:bookings"
	case strings.HasPrefix(path, "/api/v1/resources"):
		if r.Method == http.MethodDelete {
			return "admin:resources"
		}
		return "read:resources"
	}
	return ""
}

func (a *HTTPAuth) checkRateLimit(r *http.Request, client config.APIClientKey, authed bool) error {
	var lim *rate.Limiter
	if authed {
		lim = a.limiters.forClient(client)
	} else {
		lim = a.limiters.forHost(clientHost(r))
	}

	if lim != nil && !lim.Allow() {
		return fmt.Errorf("rate limit exceeded")
	}
	return nil
}

func clientHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	return "unknown"
}

func (a *HTTPAuth) apiKeyHeader() string {
	header := strings.TrimSpace(strings.ToLower(a.cfg.Auth.HeaderAPIKey))
	if header == "" {
		header = "x-api-key"
	}
	return header
}
