package ledger_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerline/receipt-backoffice/internal/apperrors"
	"github.com/ledgerline/receipt-backoffice/internal/core/domain"
	"github.com/ledgerline/receipt-backoffice/internal/ledger"
)

const testBaseURL = "https://ledger.test"

func newTestClient() *ledger.Client {
	return ledger.NewClient(ledger.ClientConfig{
		BaseURL: testBaseURL,
		APIKey:  "test-key",
		Timeout: 5 * time.Second,
	})
}

func sampleEntry() domain.LedgerEntry {
	return domain.LedgerEntry{
		TenantID: "tenant-1",
		Memo:     "Office supplies",
		Date:     time.Date(2026, 4, 20, 0, 0, 0, 0, time.UTC),
		Entries: map[string]domain.Money{
			"6001": domain.Money(1050),
			"1001": domain.Money(-1050),
		},
	}
}

func TestRecordEntrySubmitsSignedJournalLines(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder(http.MethodPost, testBaseURL+"/api/journals",
		func(req *http.Request) (*http.Response, error) {
			assert.Equal(t, "Bearer test-key", req.Header.Get("Authorization"))
			assert.Equal(t, "application/json", req.Header.Get("Content-Type"))

			var payload struct {
				TenantID string `json:"tenantId"`
				Memo     string `json:"memo"`
				Date     string `json:"date"`
				Lines    []struct {
					Account string `json:"account"`
					Side    string `json:"side"`
					Amount  int64  `json:"amount"`
				} `json:"entries"`
			}
			require.NoError(t, json.NewDecoder(req.Body).Decode(&payload))
			assert.Equal(t, "tenant-1", payload.TenantID)
			assert.Equal(t, "2026-04-20", payload.Date)
			require.Len(t, payload.Lines, 2)
			sides := map[string]string{}
			for _, line := range payload.Lines {
				sides[line.Account] = line.Side
				// Amounts are always positive on the wire; the side carries the sign.
				assert.Equal(t, int64(1050), line.Amount)
			}
			assert.Equal(t, "debit", sides["6001"])
			assert.Equal(t, "credit", sides["1001"])

			return httpmock.NewJsonResponse(http.StatusCreated, map[string]any{
				"id":           "jr-42",
				"transactions": []string{"rt-1"},
			})
		})

	ref, err := newTestClient().RecordEntry(context.Background(), sampleEntry())

	assert.NoError(t, err)
	assert.Equal(t, "jr-42", ref.JournalID)
	assert.Equal(t, []string{"rt-1"}, ref.Transactions)
}

func TestRecordEntryClassifies503AsRetryable(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder(http.MethodPost, testBaseURL+"/api/journals",
		httpmock.NewStringResponder(http.StatusServiceUnavailable, `{"error":"maintenance"}`))

	_, err := newTestClient().RecordEntry(context.Background(), sampleEntry())

	var syncErr *apperrors.ExternalSyncError
	require.ErrorAs(t, err, &syncErr)
	assert.True(t, syncErr.Retryable)
	assert.Equal(t, http.StatusServiceUnavailable, syncErr.StatusCode)
}

func TestRecordEntryClassifies400AsNonRetryable(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder(http.MethodPost, testBaseURL+"/api/journals",
		httpmock.NewStringResponder(http.StatusBadRequest, `{"error":"unknown account"}`))

	_, err := newTestClient().RecordEntry(context.Background(), sampleEntry())

	var syncErr *apperrors.ExternalSyncError
	require.ErrorAs(t, err, &syncErr)
	assert.False(t, syncErr.Retryable)
	assert.Contains(t, syncErr.Body, "unknown account")
}

func TestRecordEntryTransportFailureIsRetryable(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder(http.MethodPost, testBaseURL+"/api/journals",
		httpmock.NewErrorResponder(errors.New("connection refused")))

	_, err := newTestClient().RecordEntry(context.Background(), sampleEntry())

	assert.True(t, apperrors.IsRetryable(err))
}

func TestReverseEntry(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder(http.MethodPost, testBaseURL+"/api/journals/jr-42/void",
		httpmock.NewStringResponder(http.StatusNoContent, ""))

	err := newTestClient().ReverseEntry(context.Background(), "jr-42")

	assert.NoError(t, err)
	assert.Equal(t, 1, httpmock.GetTotalCallCount())
}

func TestGetBalance(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder(http.MethodGet, testBaseURL+"/api/accounts/1001/balance",
		httpmock.NewStringResponder(http.StatusOK, `{"account":"1001","balance":-250}`))

	balance, err := newTestClient().GetBalance(context.Background(), "1001")

	assert.NoError(t, err)
	assert.Equal(t, domain.Money(-250), balance)
}
