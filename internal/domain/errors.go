package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMalformedTicker rejects a ticker that fails the EXCHANGE:SYMBOL
	// invariant. No provider is ever contacted for such a ticker.
	ErrMalformedTicker = errors.New("malformed ticker")

	// ErrNoProviderForExchange is returned when no registered provider
	// declares capability for the ticker's exchange.
	ErrNoProviderForExchange = errors.New("no provider for exchange")

	// ErrUnsupported marks an operation a provider declares no support for,
	// e.g. prices but not financials. Failover treats it like any failure.
	ErrUnsupported = errors.New("operation not supported by provider")

	// ErrNoData marks a provider call that succeeded but carried an empty
	// payload. Failover treats it like a thrown error.
	ErrNoData = errors.New("provider returned no data")
)

// ProviderFailure records one provider's failure reason during a failover run.
type ProviderFailure struct {
	Source DataSource
	Err    error
}

// AllProvidersError is raised when every candidate provider failed for an
// operation that must not silently return empty (financials, filings). It
// keeps each provider's reason so callers see more than a generic message.
type AllProvidersError struct {
	Op       string
	Ticker   Ticker
	Failures []ProviderFailure
}

func (e *AllProvidersError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "all providers failed for %s of %s", e.Op, e.Ticker)
	for _, f := range e.Failures {
		fmt.Fprintf(&b, "; %s: %v", f.Source, f.Err)
	}
	return b.String()
}

// Reason returns the failure recorded for a source, or nil.
func (e *AllProvidersError) Reason(source DataSource) error {
	for _, f := range e.Failures {
		if f.Source == source {
			return f.Err
		}
	}
	return nil
}
