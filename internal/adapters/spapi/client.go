// Package spapi is a minimal Amazon Selling Partner API client covering the
// product pricing and catalog endpoints, plus the rate limiting and retry
// primitives used around them.
package spapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/hashicorp/go-cleanhttp"
	"golang.org/x/oauth2"
)

const (
	// DefaultEndpoint is the North America regional endpoint
	DefaultEndpoint = "https://sellingpartnerapi-na.amazon.com"
	// DefaultTokenURL is the Login with Amazon token endpoint
	DefaultTokenURL = "https://api.amazon.com/auth/o2/token"
	// DefaultMarketplaceID is amazon.com
	DefaultMarketplaceID = "ATVPDKIKX0DER"

	accessTokenHeader = "x-amz-access-token"
	userAgent         = "buybox-analyzer/1.0 (Language=Go)"
)

// Credentials are the LWA secrets of a registered SP-API application
type Credentials struct {
	RefreshToken string
	ClientID     string
	ClientSecret string
}

// Complete reports whether every secret is present
func (c Credentials) Complete() bool {
	return c.RefreshToken != "" && c.ClientID != "" && c.ClientSecret != ""
}

// Config configures a Client
type Config struct {
	Credentials Credentials
	Endpoint    string
	TokenURL    string
	Timeout     time.Duration
	// HTTPClient is used for both API and token requests. Defaults to a
	// pooled cleanhttp client.
	HTTPClient *http.Client
}

// Client calls the Selling Partner API.
// It performs a single attempt per call; callers own rate limiting and retries.
type Client struct {
	endpoint   string
	httpClient *http.Client
}

// NewClient creates a client authenticating with the LWA refresh-token grant
func NewClient(cfg Config) (*Client, error) {
	if !cfg.Credentials.Complete() {
		return nil, ErrCredentialsNotConfigured
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = DefaultTokenURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	base := cfg.HTTPClient
	if base == nil {
		base = cleanhttp.DefaultPooledClient()
	}

	oauthCfg := &oauth2.Config{
		ClientID:     cfg.Credentials.ClientID,
		ClientSecret: cfg.Credentials.ClientSecret,
		Endpoint: oauth2.Endpoint{
			TokenURL:  cfg.TokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
	tokenCtx := context.WithValue(context.Background(), oauth2.HTTPClient, base)
	source := oauthCfg.TokenSource(tokenCtx, &oauth2.Token{RefreshToken: cfg.Credentials.RefreshToken})

	transport := base.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}

	return &Client{
		endpoint: cfg.Endpoint,
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: &accessTokenTransport{source: source, base: transport},
		},
	}, nil
}

// GetItemOffers lists the offers for an ASIN in the given item condition
func (c *Client) GetItemOffers(ctx context.Context, marketplaceID, asin, itemCondition string) (*ItemOffersPayload, error) {
	query := url.Values{}
	query.Set("MarketplaceId", marketplaceID)
	query.Set("ItemCondition", itemCondition)

	var resp ItemOffersResponse
	if err := c.get(ctx, "/products/pricing/v0/items/"+url.PathEscape(asin)+"/offers", query, &resp); err != nil {
		return nil, err
	}
	if resp.Payload == nil {
		return &ItemOffersPayload{ASIN: asin}, nil
	}
	return resp.Payload, nil
}

// GetCatalogItem returns the catalog summaries for an ASIN
func (c *Client) GetCatalogItem(ctx context.Context, marketplaceID, asin string) (*CatalogItem, error) {
	query := url.Values{}
	query.Set("marketplaceIds", marketplaceID)
	query.Set("includedData", "summaries")

	var item CatalogItem
	if err := c.get(ctx, "/catalog/2022-04-01/items/"+url.PathEscape(asin), query, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+path+"?"+query.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return parseAPIError(resp.StatusCode, body)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// accessTokenTransport adds the LWA access token to every request.
// SP-API expects it in x-amz-access-token rather than Authorization.
type accessTokenTransport struct {
	source oauth2.TokenSource
	base   http.RoundTripper
}

func (t *accessTokenTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	token, err := t.source.Token()
	if err != nil {
		return nil, fmt.Errorf("failed to obtain access token: %w", err)
	}

	r := req.Clone(req.Context())
	r.Header.Set(accessTokenHeader, token.AccessToken)
	return t.base.RoundTrip(r)
}
