package aggregator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	transactionsPageSize = 500

	// apiKeyLifetime keeps cached keys refreshed well before the provider's
	// two-hour expiry.
	apiKeyLifetime = 90 * time.Minute
)

// Client talks to the open-banking aggregator. Authentication exchanges the
// client credentials for a short-lived API key, cached until expiry; an
// unauthorized response re-authenticates once and retries the failing call.
type Client struct {
	baseURL      string
	clientID     string
	clientSecret string
	httpClient   *http.Client

	mu        sync.Mutex
	apiKey    string
	keyExpiry time.Time
}

func NewClient(baseURL, clientID, clientSecret string) *Client {
	return &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		clientID:     clientID,
		clientSecret: clientSecret,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// authenticate returns a cached API key or exchanges credentials for a new one.
func (c *Client) authenticate(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.apiKey != "" && time.Now().Before(c.keyExpiry) {
		return c.apiKey, nil
	}

	payload, err := json.Marshal(map[string]string{
		"clientId":     c.clientID,
		"clientSecret": c.clientSecret,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal auth request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create auth request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("auth request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read auth response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var auth authResponse
	if err := json.Unmarshal(body, &auth); err != nil {
		return "", fmt.Errorf("failed to parse auth response: %w", err)
	}

	c.apiKey = auth.APIKey
	c.keyExpiry = time.Now().Add(apiKeyLifetime)
	return c.apiKey, nil
}

// invalidateKey drops the cached key so the next call re-authenticates.
func (c *Client) invalidateKey() {
	c.mu.Lock()
	c.apiKey = ""
	c.mu.Unlock()
}

// do performs an authenticated call, re-authenticating once on 401.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, out interface{}) error {
	for attempt := 0; ; attempt++ {
		key, err := c.authenticate(ctx)
		if err != nil {
			return err
		}

		endpoint := c.baseURL + path
		if len(query) > 0 {
			endpoint += "?" + query.Encode()
		}

		req, err := http.NewRequestWithContext(ctx, method, endpoint, nil)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("X-API-KEY", key)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("aggregator request failed: %w", err)
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return fmt.Errorf("failed to read response: %w", err)
		}

		if resp.StatusCode == http.StatusUnauthorized && attempt == 0 {
			c.invalidateKey()
			continue
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
		}

		if out != nil {
			if err := json.Unmarshal(body, out); err != nil {
				return fmt.Errorf("failed to parse response: %w", err)
			}
		}
		return nil
	}
}

// RequestUpdate asks the aggregator to refresh a connection.
func (c *Client) RequestUpdate(ctx context.Context, itemID string) error {
	return c.do(ctx, http.MethodPatch, "/items/"+itemID, nil, nil)
}

// GetItem fetches the current status of a connection.
func (c *Client) GetItem(ctx context.Context, itemID string) (*Item, error) {
	var item Item
	if err := c.do(ctx, http.MethodGet, "/items/"+itemID, nil, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// ListAccounts lists every account under a connection.
func (c *Client) ListAccounts(ctx context.Context, itemID string) ([]Account, error) {
	var resp accountsResponse
	query := url.Values{"itemId": {itemID}}
	if err := c.do(ctx, http.MethodGet, "/accounts", query, &resp); err != nil {
		return nil, err
	}
	return resp.Results, nil
}

// ListTransactions lists an account's transactions from the given date,
// walking every page.
func (c *Client) ListTransactions(ctx context.Context, accountID string, from time.Time) ([]Transaction, error) {
	var all []Transaction
	for page := 1; ; page++ {
		query := url.Values{
			"accountId": {accountID},
			"from":      {from.Format("2006-01-02")},
			"pageSize":  {strconv.Itoa(transactionsPageSize)},
			"page":      {strconv.Itoa(page)},
		}
		var resp transactionsResponse
		if err := c.do(ctx, http.MethodGet, "/transactions", query, &resp); err != nil {
			return nil, err
		}
		all = append(all, resp.Results...)
		if page >= resp.TotalPages {
			return all, nil
		}
	}
}

// GetTransaction fetches a single transaction, used by refund replays.
func (c *Client) GetTransaction(ctx context.Context, transactionID string) (*Transaction, error) {
	var tx Transaction
	if err := c.do(ctx, http.MethodGet, "/transactions/"+transactionID, nil, &tx); err != nil {
		return nil, err
	}
	return &tx, nil
}
