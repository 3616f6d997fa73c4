// Package ledger talks to the external shadow-ledger system. The raw HTTP
// transport lives in Client; ResilientLedger wraps it with a circuit
// breaker and bounded retry and is what the services consume.
package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ledgerline/receipt-backoffice/internal/apperrors"
	"github.com/ledgerline/receipt-backoffice/internal/core/domain"
)

// ClientConfig holds the shadow-ledger transport configuration.
type ClientConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration // Default: 30 seconds
}

// Client is the raw shadow-ledger HTTP transport.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// NewClient creates a shadow-ledger transport client.
func NewClient(config ClientConfig) *Client {
	timeout := config.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    config.BaseURL,
		apiKey:     config.APIKey,
	}
}

// journalRequest is the wire shape of one remote journal write. Each line
// carries an explicit side so the remote write is unambiguous: positive
// deltas become debit lines, negative deltas credit lines.
type journalRequest struct {
	TenantID string        `json:"tenantId"`
	Memo     string        `json:"memo"`
	Date     string        `json:"date"`
	Lines    []journalLine `json:"entries"`
}

type journalLine struct {
	Account string `json:"account"`
	Side    string `json:"side"` // "debit" or "credit"
	Amount  int64  `json:"amount"`
}

type journalResponse struct {
	ID           string   `json:"id"`
	Transactions []string `json:"transactions"`
}

type balanceResponse struct {
	Account string `json:"account"`
	Balance int64  `json:"balance"`
}

// RecordEntry writes one journal to the shadow ledger and returns the
// remote reference.
func (c *Client) RecordEntry(ctx context.Context, entry domain.LedgerEntry) (*domain.LedgerRef, error) {
	lines := make([]journalLine, 0, len(entry.Entries))
	for account, delta := range entry.Entries {
		line := journalLine{Account: account, Side: "debit", Amount: int64(delta)}
		if delta < 0 {
			line.Side = "credit"
			line.Amount = int64(delta.Neg())
		}
		lines = append(lines, line)
	}

	req := journalRequest{
		TenantID: entry.TenantID,
		Memo:     entry.Memo,
		Date:     entry.Date.Format("2006-01-02"),
		Lines:    lines,
	}

	var resp journalResponse
	if err := c.do(ctx, http.MethodPost, "/api/journals", req, &resp); err != nil {
		return nil, err
	}
	return &domain.LedgerRef{JournalID: resp.ID, Transactions: resp.Transactions}, nil
}

// ReverseEntry voids a previously recorded journal.
func (c *Client) ReverseEntry(ctx context.Context, journalID string) error {
	path := fmt.Sprintf("/api/journals/%s/void", journalID)
	return c.do(ctx, http.MethodPost, path, nil, nil)
}

// GetBalance reads one account's balance from the shadow ledger.
func (c *Client) GetBalance(ctx context.Context, account string) (domain.Money, error) {
	var resp balanceResponse
	path := fmt.Sprintf("/api/accounts/%s/balance", account)
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return 0, err
	}
	return domain.Money(resp.Balance), nil
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &apperrors.ExternalSyncError{Endpoint: c.baseURL + path, Retryable: true, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &apperrors.ExternalSyncError{
			Endpoint:   c.baseURL + path,
			StatusCode: resp.StatusCode,
			Body:       string(raw),
			Retryable:  resp.StatusCode == http.StatusServiceUnavailable || resp.StatusCode == http.StatusGatewayTimeout,
		}
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}
