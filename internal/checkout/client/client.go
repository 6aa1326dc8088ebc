package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	checkoutdomain "github.com/smallbiznis/entitle/internal/checkout/domain"
	"github.com/smallbiznis/entitle/internal/config"
	"go.uber.org/zap"
)

const (
	defaultTimeout = 20 * time.Second
	apiVersion     = "2023-10-16"
)

// Client fetches checkout sessions from the Stripe REST API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	secretKey  string
	log        *zap.Logger
}

func New(cfg config.Config, log *zap.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: defaultTimeout},
		baseURL:    strings.TrimRight(cfg.Stripe.APIBase, "/"),
		secretKey:  cfg.Stripe.SecretKey,
		log:        log.Named("checkout.client"),
	}
}

func (c *Client) GetSession(ctx context.Context, sessionID string) (*checkoutdomain.Session, error) {
	id := strings.TrimSpace(sessionID)
	if id == "" {
		return nil, checkoutdomain.ErrSessionLookup
	}

	endpoint := c.baseURL + "/v1/checkout/sessions/" + url.PathEscape(id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, checkoutdomain.ErrSessionLookup
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Stripe-Version", apiVersion)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Warn("checkout session fetch failed", zap.String("session_id", id), zap.Error(err))
		return nil, checkoutdomain.ErrSessionLookup
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		c.log.Warn("checkout session fetch rejected",
			zap.String("session_id", id),
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", body),
		)
		return nil, checkoutdomain.ErrSessionLookup
	}

	var raw sessionPayload
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, checkoutdomain.ErrSessionLookup
	}
	if strings.TrimSpace(raw.ID) == "" {
		return nil, checkoutdomain.ErrSessionLookup
	}

	return &checkoutdomain.Session{
		ID:              raw.ID,
		Status:          strings.TrimSpace(raw.Status),
		PaymentStatus:   strings.TrimSpace(raw.PaymentStatus),
		Mode:            strings.TrimSpace(raw.Mode),
		SubscriptionRef: normalizeSubscriptionRef(raw.Subscription),
		Metadata:        raw.Metadata,
	}, nil
}

type sessionPayload struct {
	ID            string            `json:"id"`
	Status        string            `json:"status"`
	PaymentStatus string            `json:"payment_status"`
	Mode          string            `json:"mode"`
	Subscription  json.RawMessage   `json:"subscription"`
	Metadata      map[string]string `json:"metadata"`
}

// normalizeSubscriptionRef accepts the processor's two encodings of the
// recurring reference: a bare string id, or an expanded object carrying an
// "id" field.
func normalizeSubscriptionRef(raw json.RawMessage) *string {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}

	var id string
	if err := json.Unmarshal(raw, &id); err == nil {
		id = strings.TrimSpace(id)
		if id == "" {
			return nil
		}
		return &id
	}

	var obj struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil
	}
	id = strings.TrimSpace(obj.ID)
	if id == "" {
		return nil
	}
	return &id
}
