package domain

import "errors"

var (
	ErrInvalidInput          = errors.New("invalid input")
	ErrInsufficientCredits   = errors.New("insufficient credits")
	ErrAdapter               = errors.New("provider failure")
	ErrRateLimited           = errors.New("provider rate limited")
	ErrOutOfProviderCredits  = errors.New("provider out of credits")
	ErrTimeout               = errors.New("provider timeout")
	ErrCreditDeductionFailed = errors.New("credit deduction failed")
)

// ErrorKind is the stable, client-facing name of an error category.
type ErrorKind string

const (
	KindNone                  ErrorKind = ""
	KindInvalidInput          ErrorKind = "InvalidInput"
	KindInsufficientCredits   ErrorKind = "InsufficientCredits"
	KindAdapterError          ErrorKind = "AdapterError"
	KindRateLimited           ErrorKind = "RateLimited"
	KindOutOfProviderCredits  ErrorKind = "OutOfProviderCredits"
	KindTimeout               ErrorKind = "Timeout"
	KindCreditDeductionFailed ErrorKind = "CreditDeductionFailed"
)

var kinds = []struct {
	err  error
	kind ErrorKind
}{
	{ErrInvalidInput, KindInvalidInput},
	{ErrInsufficientCredits, KindInsufficientCredits},
	{ErrRateLimited, KindRateLimited},
	{ErrOutOfProviderCredits, KindOutOfProviderCredits},
	{ErrTimeout, KindTimeout},
	{ErrCreditDeductionFailed, KindCreditDeductionFailed},
	{ErrAdapter, KindAdapterError},
}

// KindOf classifies err. Unclassified non-nil errors are reported as
// adapter errors since every external failure surfaces through a provider.
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindNone
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindAdapterError
}
