package client

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/smallbiznis/entitle/internal/config"
	identitydomain "github.com/smallbiznis/entitle/internal/identity/domain"
	"go.uber.org/zap"
)

const defaultTimeout = 10 * time.Second

// Client resolves bearer tokens against a GoTrue-style auth endpoint
// (GET /auth/v1/user).
type Client struct {
	httpClient *http.Client
	baseURL    string
	anonKey    string
	log        *zap.Logger
}

func New(cfg config.Config, log *zap.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: defaultTimeout},
		baseURL:    strings.TrimRight(cfg.Auth.APIURL, "/"),
		anonKey:    cfg.Auth.AnonKey,
		log:        log.Named("identity.client"),
	}
}

func (c *Client) Resolve(ctx context.Context, bearerToken string) (*identitydomain.User, error) {
	token := strings.TrimSpace(bearerToken)
	if token == "" || c.baseURL == "" {
		return nil, identitydomain.ErrUnauthenticated
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/auth/v1/user", nil)
	if err != nil {
		return nil, identitydomain.ErrUnauthenticated
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if c.anonKey != "" {
		req.Header.Set("apikey", c.anonKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Warn("identity lookup failed", zap.Error(err))
		return nil, identitydomain.ErrUnauthenticated
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, identitydomain.ErrUnauthenticated
	}

	var user identitydomain.User
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		c.log.Warn("identity response decode failed", zap.Error(err))
		return nil, identitydomain.ErrUnauthenticated
	}
	if strings.TrimSpace(user.ID) == "" {
		return nil, identitydomain.ErrUnauthenticated
	}

	return &user, nil
}
