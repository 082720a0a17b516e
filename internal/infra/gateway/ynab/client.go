package ynab

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/budwatch/budwatch/pkg/logger"
)

const (
	defaultBaseURL = "https://api.ynab.com/v1"
	requestTimeout = 30 * time.Second
)

// Client is an HTTP client for the YNAB REST API. Every call funnels through
// the shared rate limiter before touching the network, so the local window
// never exceeds the remote quota. No retries happen here; a rate-limit
// failure carries the wait time and the caller decides.
type Client struct {
	accessToken string
	httpClient  *http.Client
	baseURL     string
	limiter     *RateLimiter
	logger      *logger.Logger
}

// NewClient creates a new YNAB API client
func NewClient(accessToken string, limiter *RateLimiter, log *logger.Logger) *Client {
	return &Client{
		accessToken: accessToken,
		httpClient: &http.Client{
			Timeout: requestTimeout,
		},
		baseURL: defaultBaseURL,
		limiter: limiter,
		logger:  log.WithField("component", "ynab"),
	}
}

// SetBaseURL overrides the default base URL (useful for testing)
func (c *Client) SetBaseURL(url string) {
	c.baseURL = url
}

// Remaining returns the number of requests still available in the current
// rate-limit window.
func (c *Client) Remaining() int {
	return c.limiter.Remaining()
}

// get performs an authenticated GET after reserving a rate-limit slot.
func (c *Client) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	if err := c.limiter.Reserve(); err != nil {
		c.logger.Warn("rate limit reached", "path", path, "remaining", c.limiter.Remaining())
		return nil, err
	}

	reqURL := c.baseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	c.logger.Debug("API request", "url", reqURL)
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode == http.StatusOK {
		c.logger.Debug("API response", "status_code", resp.StatusCode, "duration_ms", time.Since(start).Milliseconds())
		return body, nil
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		retryAfter := c.limiter.window
		if s := resp.Header.Get("Retry-After"); s != "" {
			if secs, perr := strconv.Atoi(s); perr == nil {
				retryAfter = time.Duration(secs) * time.Second
			}
		}
		c.logger.Warn("remote rate limit", "retry_after", retryAfter)
		return nil, &RateLimitError{
			RetryAfter: retryAfter,
			Message:    "YNAB API rate limit exceeded",
		}
	}

	var apiErr errorResponse
	if json.Unmarshal(body, &apiErr) == nil && apiErr.Error.Detail != "" {
		c.logger.Error("API error", "status_code", resp.StatusCode, "detail", apiErr.Error.Detail)
		return nil, fmt.Errorf("YNAB API error: status %d: %s", resp.StatusCode, apiErr.Error.Detail)
	}

	c.logger.Error("API error", "status_code", resp.StatusCode)
	return nil, fmt.Errorf("YNAB API error: status %d, body: %s", resp.StatusCode, string(body))
}

// deltaParams builds query values carrying the optional server knowledge
// cursor. nil means "full fetch".
func deltaParams(lastKnowledge *int64) url.Values {
	params := url.Values{}
	if lastKnowledge != nil {
		params.Set("last_knowledge_of_server", strconv.FormatInt(*lastKnowledge, 10))
	}
	return params
}

// GetBudgets fetches the budget list
func (c *Client) GetBudgets(ctx context.Context) ([]BudgetSummaryData, error) {
	body, err := c.get(ctx, "/budgets", nil)
	if err != nil {
		return nil, fmt.Errorf("GetBudgets failed: %w", err)
	}

	var resp budgetsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode budgets response: %w", err)
	}
	return resp.Data.Budgets, nil
}

// GetAccounts fetches accounts for a budget, optionally since a cursor.
// Returns the records plus the new server knowledge.
func (c *Client) GetAccounts(ctx context.Context, budgetID string, lastKnowledge *int64) ([]AccountData, int64, error) {
	body, err := c.get(ctx, "/budgets/"+budgetID+"/accounts", deltaParams(lastKnowledge))
	if err != nil {
		return nil, 0, fmt.Errorf("GetAccounts failed: %w", err)
	}

	var resp accountsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, 0, fmt.Errorf("failed to decode accounts response: %w", err)
	}
	return resp.Data.Accounts, resp.Data.ServerKnowledge, nil
}

// GetCategories fetches category groups (with nested categories) for a budget
func (c *Client) GetCategories(ctx context.Context, budgetID string, lastKnowledge *int64) ([]CategoryGroupData, int64, error) {
	body, err := c.get(ctx, "/budgets/"+budgetID+"/categories", deltaParams(lastKnowledge))
	if err != nil {
		return nil, 0, fmt.Errorf("GetCategories failed: %w", err)
	}

	var resp categoriesResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, 0, fmt.Errorf("failed to decode categories response: %w", err)
	}
	return resp.Data.CategoryGroups, resp.Data.ServerKnowledge, nil
}

// GetTransactions fetches transactions for a budget
func (c *Client) GetTransactions(ctx context.Context, budgetID string, lastKnowledge *int64) ([]TransactionData, int64, error) {
	body, err := c.get(ctx, "/budgets/"+budgetID+"/transactions", deltaParams(lastKnowledge))
	if err != nil {
		return nil, 0, fmt.Errorf("GetTransactions failed: %w", err)
	}

	var resp transactionsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, 0, fmt.Errorf("failed to decode transactions response: %w", err)
	}
	return resp.Data.Transactions, resp.Data.ServerKnowledge, nil
}

// GetScheduledTransactions fetches scheduled transactions for a budget
func (c *Client) GetScheduledTransactions(ctx context.Context, budgetID string, lastKnowledge *int64) ([]ScheduledTransactionData, int64, error) {
	body, err := c.get(ctx, "/budgets/"+budgetID+"/scheduled_transactions", deltaParams(lastKnowledge))
	if err != nil {
		return nil, 0, fmt.Errorf("GetScheduledTransactions failed: %w", err)
	}

	var resp scheduledResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, 0, fmt.Errorf("failed to decode scheduled transactions response: %w", err)
	}
	return resp.Data.ScheduledTransactions, resp.Data.ServerKnowledge, nil
}

// GetMonth fetches one month's category snapshot. Month is YYYY-MM-01.
// There is no delta semantics here; the snapshot is wholesale.
func (c *Client) GetMonth(ctx context.Context, budgetID, month string) (*MonthDetailData, error) {
	body, err := c.get(ctx, "/budgets/"+budgetID+"/months/"+month, nil)
	if err != nil {
		return nil, fmt.Errorf("GetMonth failed: %w", err)
	}

	var resp monthResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode month response: %w", err)
	}
	return &resp.Data.Month, nil
}

// GetUser fetches the authenticated user ID. Used as a connectivity probe.
func (c *Client) GetUser(ctx context.Context) (string, error) {
	body, err := c.get(ctx, "/user", nil)
	if err != nil {
		return "", fmt.Errorf("GetUser failed: %w", err)
	}

	var resp userResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("failed to decode user response: %w", err)
	}
	return resp.Data.User.ID, nil
}

// TestConnection reports whether the API is reachable with the configured
// token. A rate-limited response still counts as connected.
func (c *Client) TestConnection(ctx context.Context) bool {
	_, err := c.GetUser(ctx)
	if err == nil {
		return true
	}
	return IsRateLimitError(err)
}
