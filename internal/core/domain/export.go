package domain

import (
	"math"
	"time"
)

// ExportStatus indicates where an export record sits in its retry lifecycle.
type ExportStatus string

const (
	ExportPending    ExportStatus = "PENDING"
	ExportInProgress ExportStatus = "IN_PROGRESS"
	ExportSuccess    ExportStatus = "SUCCESS"
	ExportFailed     ExportStatus = "FAILED"
	ExportAbandoned  ExportStatus = "ABANDONED"
)

// ExportRecord is the attempt lineage for synchronizing one posted
// transaction to the external accounting system.
type ExportRecord struct {
	ExportID       string       `json:"exportID"`
	TransactionID  string       `json:"transactionID"`
	TenantID       string       `json:"tenantID"`
	Status         ExportStatus `json:"status"`
	AttemptCount   int          `json:"attemptCount"`
	MaxRetries     int          `json:"maxRetries"`
	NextRetryAt    *time.Time   `json:"nextRetryAt"` // Only set while status is PENDING or FAILED
	LastAttemptAt  *time.Time   `json:"lastAttemptAt"`
	Endpoint       string       `json:"endpoint"`
	ResponseStatus *int         `json:"responseStatus"`
	ResponseBody   *string      `json:"responseBody"`
	ExternalDocID  *string      `json:"externalDocID"` // Set on success
	ErrorCode      *string      `json:"errorCode"`
	ErrorMessage   *string      `json:"errorMessage"`
	Retryable      bool         `json:"retryable"`
	StartedAt      *time.Time   `json:"startedAt"`
	CompletedAt    *time.Time   `json:"completedAt"`
	DurationMS     *int64       `json:"durationMS"`
	AuditFields
}

// BackoffPolicy computes retry delays: initial * multiplier^(attempt-1),
// capped at the maximum interval. It is a pure function of the attempt
// number so scheduling is testable without timers.
type BackoffPolicy struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
}

// Delay returns the wait before the retry following the given failed
// attempt count (1-based). The first failure waits exactly InitialInterval.
func (p BackoffPolicy) Delay(attemptCount int) time.Duration {
	if attemptCount < 1 {
		attemptCount = 1
	}
	d := float64(p.InitialInterval) * math.Pow(p.Multiplier, float64(attemptCount-1))
	if d > float64(p.MaxInterval) {
		return p.MaxInterval
	}
	return time.Duration(d)
}

// AttemptOutcome captures the result of one remote export call.
type AttemptOutcome struct {
	ExternalDocID  string
	ResponseStatus int
	ResponseBody   string
	ErrorCode      string
	ErrorMessage   string
	Retryable      bool
}

// Begin marks the record as claimed for an attempt.
func (r *ExportRecord) Begin(now time.Time) {
	r.Status = ExportInProgress
	r.NextRetryAt = nil
	r.LastAttemptAt = &now
	if r.StartedAt == nil {
		r.StartedAt = &now
	}
}

// Succeed moves the record to its terminal SUCCESS state.
func (r *ExportRecord) Succeed(now time.Time, outcome AttemptOutcome) {
	r.Status = ExportSuccess
	r.AttemptCount++
	r.NextRetryAt = nil
	r.ExternalDocID = &outcome.ExternalDocID
	r.ResponseStatus = &outcome.ResponseStatus
	r.ResponseBody = &outcome.ResponseBody
	r.ErrorCode = nil
	r.ErrorMessage = nil
	r.CompletedAt = &now
	if r.StartedAt != nil {
		ms := now.Sub(*r.StartedAt).Milliseconds()
		r.DurationMS = &ms
	}
}

// Fail applies one failed attempt: it increments the attempt count,
// records the error, and either schedules the next retry or abandons the
// record permanently. Non-retryable errors and exhausted retries both end
// in ABANDONED with the retry timestamp cleared.
func (r *ExportRecord) Fail(now time.Time, outcome AttemptOutcome, policy BackoffPolicy) {
	r.AttemptCount++
	r.LastAttemptAt = &now
	r.Retryable = outcome.Retryable
	if outcome.ErrorCode != "" {
		r.ErrorCode = &outcome.ErrorCode
	}
	if outcome.ErrorMessage != "" {
		r.ErrorMessage = &outcome.ErrorMessage
	}
	if outcome.ResponseStatus != 0 {
		r.ResponseStatus = &outcome.ResponseStatus
		r.ResponseBody = &outcome.ResponseBody
	}

	if !outcome.Retryable || r.AttemptCount >= r.MaxRetries {
		r.Status = ExportAbandoned
		r.NextRetryAt = nil
		r.CompletedAt = &now
		if r.StartedAt != nil {
			ms := now.Sub(*r.StartedAt).Milliseconds()
			r.DurationMS = &ms
		}
		return
	}

	next := now.Add(policy.Delay(r.AttemptCount))
	r.Status = ExportFailed
	r.NextRetryAt = &next
}
