package domain_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ledgerline/receipt-backoffice/internal/core/domain"
)

var testPolicy = domain.BackoffPolicy{
	InitialInterval: time.Minute,
	MaxInterval:     time.Hour,
	Multiplier:      2,
}

func TestBackoffDelayDoubles(t *testing.T) {
	assert.Equal(t, time.Minute, testPolicy.Delay(1))
	assert.Equal(t, 2*time.Minute, testPolicy.Delay(2))
	assert.Equal(t, 4*time.Minute, testPolicy.Delay(3))
	assert.Equal(t, 32*time.Minute, testPolicy.Delay(6))
}

func TestBackoffDelayCapsAtMaxInterval(t *testing.T) {
	assert.Equal(t, time.Hour, testPolicy.Delay(7))   // 64m uncapped
	assert.Equal(t, time.Hour, testPolicy.Delay(100)) // never overflows past the cap
}

func TestBackoffDelayClampsAttemptCount(t *testing.T) {
	assert.Equal(t, time.Minute, testPolicy.Delay(0))
	assert.Equal(t, time.Minute, testPolicy.Delay(-3))
}

func newRecord() domain.ExportRecord {
	return domain.ExportRecord{
		ExportID:   "exp-1",
		Status:     domain.ExportPending,
		MaxRetries: 3,
	}
}

func TestBeginClaimsRecord(t *testing.T) {
	rec := newRecord()
	due := time.Now().UTC()
	rec.NextRetryAt = &due

	now := due.Add(time.Second)
	rec.Begin(now)

	assert.Equal(t, domain.ExportInProgress, rec.Status)
	assert.Nil(t, rec.NextRetryAt)
	assert.Equal(t, now, *rec.StartedAt)
}

func TestFailSchedulesRetry(t *testing.T) {
	rec := newRecord()
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	rec.Fail(now, domain.AttemptOutcome{
		ErrorCode:    "EXPORT_CALL_FAILED",
		ErrorMessage: "503 from accounting endpoint",
		Retryable:    true,
	}, testPolicy)

	assert.Equal(t, domain.ExportFailed, rec.Status)
	assert.Equal(t, 1, rec.AttemptCount)
	assert.Equal(t, now.Add(time.Minute), *rec.NextRetryAt)

	rec.Fail(now, domain.AttemptOutcome{Retryable: true}, testPolicy)

	assert.Equal(t, 2, rec.AttemptCount)
	assert.Equal(t, now.Add(2*time.Minute), *rec.NextRetryAt)
}

func TestFailAbandonsNonRetryable(t *testing.T) {
	rec := newRecord()
	now := time.Now().UTC()

	rec.Fail(now, domain.AttemptOutcome{
		ErrorCode:      "EXPORT_CALL_FAILED",
		ResponseStatus: 400,
		ResponseBody:   `{"error":"unknown account"}`,
		Retryable:      false,
	}, testPolicy)

	assert.Equal(t, domain.ExportAbandoned, rec.Status)
	assert.Nil(t, rec.NextRetryAt)
	assert.Equal(t, now, *rec.CompletedAt)
	assert.Equal(t, 400, *rec.ResponseStatus)
}

func TestFailAbandonsAfterMaxRetries(t *testing.T) {
	rec := newRecord()
	now := time.Now().UTC()

	rec.Fail(now, domain.AttemptOutcome{Retryable: true}, testPolicy)
	rec.Fail(now, domain.AttemptOutcome{Retryable: true}, testPolicy)
	assert.Equal(t, domain.ExportFailed, rec.Status)

	rec.Fail(now, domain.AttemptOutcome{Retryable: true}, testPolicy)

	assert.Equal(t, domain.ExportAbandoned, rec.Status)
	assert.Equal(t, 3, rec.AttemptCount)
	assert.Nil(t, rec.NextRetryAt)
}

func TestSucceedClearsErrorState(t *testing.T) {
	rec := newRecord()
	started := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	rec.Begin(started)
	rec.Fail(started, domain.AttemptOutcome{ErrorCode: "EXPORT_CALL_FAILED", ErrorMessage: "timeout", Retryable: true}, testPolicy)

	done := started.Add(90 * time.Second)
	rec.Succeed(done, domain.AttemptOutcome{
		ExternalDocID:  "ext-doc-9",
		ResponseStatus: 200,
		ResponseBody:   `{"documentId":"ext-doc-9"}`,
	})

	assert.Equal(t, domain.ExportSuccess, rec.Status)
	assert.Equal(t, 2, rec.AttemptCount)
	assert.Equal(t, "ext-doc-9", *rec.ExternalDocID)
	assert.Nil(t, rec.ErrorCode)
	assert.Nil(t, rec.ErrorMessage)
	assert.Nil(t, rec.NextRetryAt)
	assert.Equal(t, int64(90000), *rec.DurationMS)
}
