package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{name: "nil", err: nil, want: KindNone},
		{name: "wrapped rate limit", err: fmt.Errorf("flux: poll: %w", ErrRateLimited), want: KindRateLimited},
		{name: "wrapped timeout", err: fmt.Errorf("flux: %w after 120 attempts", ErrTimeout), want: KindTimeout},
		{name: "insufficient credits", err: ErrInsufficientCredits, want: KindInsufficientCredits},
		{name: "out of provider credits", err: fmt.Errorf("x: %w", ErrOutOfProviderCredits), want: KindOutOfProviderCredits},
		{name: "deduction", err: ErrCreditDeductionFailed, want: KindCreditDeductionFailed},
		{name: "invalid input", err: fmt.Errorf("%w: empty image", ErrInvalidInput), want: KindInvalidInput},
		{name: "unclassified", err: errors.New("dial tcp: refused"), want: KindAdapterError},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := KindOf(tc.err); got != tc.want {
				t.Fatalf("KindOf() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestFailureCarriesBalance(t *testing.T) {
	res := Failure(fmt.Errorf("gemini: %w", ErrAdapter), 7)
	if res.Kind != ResultFailure {
		t.Fatalf("kind = %q, want failure", res.Kind)
	}
	if res.Succeeded() {
		t.Fatalf("failure must not report success")
	}
	if res.RemainingCredits != 7 || res.CreditsUsed != 0 {
		t.Fatalf("unexpected credits: %+v", res)
	}
	if res.ErrorKind != KindAdapterError {
		t.Fatalf("error kind = %q", res.ErrorKind)
	}
}
