package driver

import (
	"errors"
	"fmt"
)

// ErrMalformedReply marks provider replies that came back 2xx but could not
// be decoded into the expected shape. Wrap it so callers can classify with
// errors.Is.
var ErrMalformedReply = errors.New("malformed provider reply")

// ProviderError is returned when a provider responds with a non-2xx status.
//
// Drivers should populate RawResponse with the provider response body bytes.
// RawResponse must never include API keys.
type ProviderError struct {
	Provider    string
	StatusCode  int
	Message     string
	RawResponse []byte
}

func (e *ProviderError) Error() string {
	if e == nil {
		return "provider error"
	}
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s request failed: status %d: %s", e.Provider, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s request failed: %s", e.Provider, e.Message)
}
