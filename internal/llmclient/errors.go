package llmclient

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

var (
	ErrAuthentication      = errors.New("authentication failed")
	ErrProviderUnavailable = errors.New("provider unavailable")
	ErrRateLimited         = errors.New("rate limited")
)

type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindAuthentication
	KindProviderUnavailable
	KindRateLimited
)

func (k ErrorKind) String() string {
	switch k {
	case KindAuthentication:
		return "authentication"
	case KindProviderUnavailable:
		return "provider_unavailable"
	case KindRateLimited:
		return "rate_limited"
	default:
		return "unknown"
	}
}

// ProviderError is a classified vendor failure. Error returns the vendor's
// message untouched so callers can still match on its text.
type ProviderError struct {
	Provider   string
	Kind       ErrorKind
	StatusCode int
	Err        error
}

func (e *ProviderError) Error() string { return e.Err.Error() }
func (e *ProviderError) Unwrap() error { return e.Err }

// Is lets errors.Is match the kind sentinels.
func (e *ProviderError) Is(target error) bool {
	switch target {
	case ErrAuthentication:
		return e.Kind == KindAuthentication
	case ErrProviderUnavailable:
		return e.Kind == KindProviderUnavailable
	case ErrRateLimited:
		return e.Kind == KindRateLimited
	}
	return false
}

// Classify returns the kind of err. Typed provider errors win; otherwise the
// message text is matched against the phrases vendors use.
func Classify(err error) ErrorKind {
	if err == nil {
		return KindUnknown
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return classifyText(err.Error())
}

func classifyText(msg string) ErrorKind {
	msg = strings.ToLower(msg)
	switch {
	case strings.Contains(msg, "api key"):
		return KindAuthentication
	case strings.Contains(msg, "rate limit"):
		return KindRateLimited
	case strings.Contains(msg, "temporarily unavailable"):
		return KindProviderUnavailable
	}
	return KindUnknown
}

// vendorError classifies a failed vendor call. Anything that is neither an
// auth rejection nor throttling counts as the provider being unavailable.
func vendorError(provider string, status int, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return NewPermanentError(err)
	}
	kind := KindProviderUnavailable
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		kind = KindAuthentication
	case status == http.StatusTooManyRequests:
		kind = KindRateLimited
	default:
		if k := classifyText(err.Error()); k == KindAuthentication || k == KindRateLimited {
			kind = k
		}
	}
	return &ProviderError{Provider: provider, Kind: kind, StatusCode: status, Err: err}
}
