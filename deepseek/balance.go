package deepseek

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
)

// balanceTimeout bounds the balance probe; unlike exchanges this is a quick
// status call and should fail fast.
const balanceTimeout = 10 * time.Second

// balanceCacheTTL is how long a fetched balance stays fresh.
const balanceCacheTTL = 5 * time.Minute

// BalanceInfo is one currency bucket of the account balance.
type BalanceInfo struct {
	Currency        string `json:"currency"`
	TotalBalance    string `json:"total_balance"`
	GrantedBalance  string `json:"granted_balance"`
	ToppedUpBalance string `json:"topped_up_balance"`
}

// BalanceResponse is the /user/balance payload.
type BalanceResponse struct {
	IsAvailable  bool          `json:"is_available"`
	BalanceInfos []BalanceInfo `json:"balance_infos"`
}

// Balance fetches the account balance. It only needs a non-empty key: the
// endpoint itself is the authority on whether the key works.
func (c *Client) Balance(ctx context.Context) (*BalanceResponse, error) {
	if strings.TrimSpace(c.apiKey) == "" {
		return nil, &CredentialError{Reason: "missing - configure your DeepSeek API key first"}
	}

	ctx, cancel := context.WithTimeout(ctx, balanceTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/user/balance", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build balance request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+strings.TrimSpace(c.apiKey))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, mapStreamError(ctx, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, classifyHTTPError(resp.StatusCode, string(body))
	}

	var out BalanceResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode balance response: %w", err)
	}
	return &out, nil
}

// BalanceCache wraps Balance with a five-minute cache and single-flight
// fetching: concurrent callers during a fetch share the one in-flight result
// instead of issuing duplicate requests.
type BalanceCache struct {
	client *Client
	ttl    time.Duration

	mu        sync.Mutex
	cached    *BalanceResponse
	fetchedAt time.Time
	inflight  chan struct{}

	// now is swappable for tests.
	now func() time.Time
}

// NewBalanceCache creates a cache over client with the default TTL.
func NewBalanceCache(client *Client) *BalanceCache {
	return &BalanceCache{
		client: client,
		ttl:    balanceCacheTTL,
		now:    time.Now,
	}
}

// Get returns the cached balance when fresh, otherwise fetches. Failed
// fetches are not cached; the next call retries.
func (b *BalanceCache) Get(ctx context.Context) (*BalanceResponse, error) {
	for {
		b.mu.Lock()
		if b.cached != nil && b.now().Sub(b.fetchedAt) < b.ttl {
			cached := b.cached
			b.mu.Unlock()
			return cached, nil
		}
		if b.inflight != nil {
			wait := b.inflight
			b.mu.Unlock()
			select {
			case <-wait:
				continue
			case <-ctx.Done():
				return nil, ErrStreamAborted
			}
		}
		b.inflight = make(chan struct{})
		b.mu.Unlock()
		break
	}

	resp, err := b.client.Balance(ctx)

	b.mu.Lock()
	if err == nil {
		b.cached = resp
		b.fetchedAt = b.now()
	}
	close(b.inflight)
	b.inflight = nil
	b.mu.Unlock()

	return resp, err
}

// Invalidate drops the cached value so the next Get refetches.
func (b *BalanceCache) Invalidate() {
	b.mu.Lock()
	b.cached = nil
	b.fetchedAt = time.Time{}
	b.mu.Unlock()
}
