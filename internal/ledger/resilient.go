package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"

	"github.com/ledgerline/receipt-backoffice/internal/apperrors"
	"github.com/ledgerline/receipt-backoffice/internal/core/domain"
	portssvc "github.com/ledgerline/receipt-backoffice/internal/core/ports/services"
)

// ResilienceConfig tunes the breaker and retry wrapper.
type ResilienceConfig struct {
	// FailureThreshold is the consecutive-failure count that opens the breaker.
	FailureThreshold uint32
	// CoolDown is how long the breaker stays open before probing again.
	CoolDown time.Duration
	// MaxAttempts bounds the attempts per call while the breaker is closed.
	MaxAttempts int
	// RetryBaseDelay is the wait after the first failed attempt; subsequent
	// waits double (2^attempt growth).
	RetryBaseDelay time.Duration
}

// DefaultResilienceConfig matches the production tuning: trip after 5
// consecutive failures, cool down for 30s, 3 attempts per call.
func DefaultResilienceConfig() ResilienceConfig {
	return ResilienceConfig{
		FailureThreshold: 5,
		CoolDown:         30 * time.Second,
		MaxAttempts:      3,
		RetryBaseDelay:   2 * time.Second,
	}
}

// ResilientLedger wraps the raw transport with a circuit breaker and
// bounded exponential retry. While the breaker is open every call fails
// fast with ErrServiceUnavailable and no remote call is attempted; a single
// success closes it again.
type ResilientLedger struct {
	client  *Client
	breaker *gobreaker.CircuitBreaker
	cfg     ResilienceConfig
	logger  *slog.Logger
}

// NewResilientLedger creates the breaker/retry wrapper around the raw client.
func NewResilientLedger(client *Client, cfg ResilienceConfig, logger *slog.Logger) *ResilientLedger {
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.RetryBaseDelay <= 0 {
		cfg.RetryBaseDelay = 2 * time.Second
	}

	settings := gobreaker.Settings{
		Name:        "shadow-ledger",
		MaxRequests: 1,
		Timeout:     cfg.CoolDown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("Ledger circuit breaker state change",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()))
		},
	}

	return &ResilientLedger{
		client:  client,
		breaker: gobreaker.NewCircuitBreaker(settings),
		cfg:     cfg,
		logger:  logger,
	}
}

// Ensure ResilientLedger implements the service port
var _ portssvc.LedgerSvc = (*ResilientLedger)(nil)

// execute runs op through the breaker; inside one breaker execution the op
// is retried with exponential waits, and only the final failure surfaces.
func (l *ResilientLedger) execute(ctx context.Context, name string, op func() error) error {
	_, err := l.breaker.Execute(func() (interface{}, error) {
		policy := backoff.NewExponentialBackOff()
		policy.InitialInterval = l.cfg.RetryBaseDelay
		policy.Multiplier = 2
		policy.RandomizationFactor = 0
		policy.MaxInterval = l.cfg.RetryBaseDelay << uint(l.cfg.MaxAttempts)

		attempt := 0
		wrapped := func() error {
			attempt++
			if err := op(); err != nil {
				// Non-retryable remote rejections abort immediately.
				var syncErr *apperrors.ExternalSyncError
				if errors.As(err, &syncErr) && !syncErr.Retryable {
					return backoff.Permanent(err)
				}
				l.logger.Debug("Ledger call attempt failed",
					slog.String("operation", name),
					slog.Int("attempt", attempt),
					slog.String("error", err.Error()))
				return err
			}
			return nil
		}

		retries := backoff.WithMaxRetries(backoff.WithContext(policy, ctx), uint64(l.cfg.MaxAttempts-1))
		return nil, backoff.Retry(wrapped, retries)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return fmt.Errorf("%w: shadow ledger circuit open", apperrors.ErrServiceUnavailable)
		}
		return err
	}
	return nil
}

// RecordEntry writes one journal to the shadow ledger through the wrapper.
func (l *ResilientLedger) RecordEntry(ctx context.Context, entry domain.LedgerEntry) (*domain.LedgerRef, error) {
	var ref *domain.LedgerRef
	err := l.execute(ctx, "record_entry", func() error {
		var opErr error
		ref, opErr = l.client.RecordEntry(ctx, entry)
		return opErr
	})
	if err != nil {
		return nil, err
	}
	return ref, nil
}

// ReverseEntry voids a previously recorded journal through the wrapper.
func (l *ResilientLedger) ReverseEntry(ctx context.Context, journalID string) error {
	return l.execute(ctx, "reverse_entry", func() error {
		return l.client.ReverseEntry(ctx, journalID)
	})
}

// GetBalance reads an account balance through the wrapper.
func (l *ResilientLedger) GetBalance(ctx context.Context, account string) (domain.Money, error) {
	var balance domain.Money
	err := l.execute(ctx, "get_balance", func() error {
		var opErr error
		balance, opErr = l.client.GetBalance(ctx, account)
		return opErr
	})
	if err != nil {
		return 0, err
	}
	return balance, nil
}
