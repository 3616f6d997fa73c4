// Package exporter talks to the external accounting system's document
// endpoint. Failures are classified retryable or not with a fixed pattern
// set so the export queue can decide between rescheduling and abandonment.
package exporter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ledgerline/receipt-backoffice/internal/apperrors"
	portssvc "github.com/ledgerline/receipt-backoffice/internal/core/ports/services"
)

// ClientConfig holds the accounting-endpoint configuration.
type ClientConfig struct {
	EndpointURL string
	APIKey      string
	Timeout     time.Duration // Default: 30 seconds
}

// Client submits posted transactions to the external accounting endpoint.
type Client struct {
	httpClient *http.Client
	endpoint   string
	apiKey     string
}

// NewClient creates an accounting export client.
func NewClient(config ClientConfig) *Client {
	timeout := config.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		endpoint:   config.EndpointURL,
		apiKey:     config.APIKey,
	}
}

var _ portssvc.AccountingExporter = (*Client)(nil)

// submitRequest is the wire shape accepted by the accounting endpoint.
type submitRequest struct {
	TransactionDate string `json:"transactionDate"`
	DebitAccount    string `json:"debitAccount"`
	CreditAccount   string `json:"creditAccount"`
	Amount          string `json:"amount"`
	Description     string `json:"description"`
	ReferenceNumber string `json:"referenceNumber"`
}

type submitResponse struct {
	DocumentID string `json:"documentId"`
}

// Endpoint reports the configured target URL.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// SubmitTransaction posts one transaction to the accounting endpoint and
// returns the external document id on 2xx.
func (c *Client) SubmitTransaction(ctx context.Context, sub portssvc.ExportSubmission) (*portssvc.ExportResult, error) {
	payload, err := json.Marshal(submitRequest{
		TransactionDate: sub.TransactionDate.Format("2006-01-02"),
		DebitAccount:    sub.DebitAccount,
		CreditAccount:   sub.CreditAccount,
		Amount:          sub.Amount,
		Description:     sub.Description,
		ReferenceNumber: sub.ReferenceNumber,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode export payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &apperrors.ExternalSyncError{
			Endpoint:  c.endpoint,
			Retryable: isRetryableTransportError(err),
			Err:       err,
		}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &apperrors.ExternalSyncError{
			Endpoint:   c.endpoint,
			StatusCode: resp.StatusCode,
			Body:       string(raw),
			Retryable:  isRetryableStatus(resp.StatusCode),
		}
	}

	var parsed submitResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &portssvc.ExportResult{
		DocumentID: parsed.DocumentID,
		StatusCode: resp.StatusCode,
		Body:       string(raw),
	}, nil
}

// retryablePatterns is the fixed transport-error pattern set: transient
// network conditions that a later attempt may outlive.
var retryablePatterns = []string{
	"connection refused",
	"timeout",
	"deadline exceeded",
	"no such host",
	"connection reset",
	"temporary failure in name resolution",
}

func isRetryableTransportError(err error) bool {
	msg := strings.ToLower(err.Error())
	for _, pattern := range retryablePatterns {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}

func isRetryableStatus(code int) bool {
	return code == http.StatusServiceUnavailable || code == http.StatusGatewayTimeout
}
