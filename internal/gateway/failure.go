package gateway

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"

	"bankbot/internal/pkg/httpclient"
)

// FailureKind classifies why a model call produced no answer.
type FailureKind int

const (
	Unknown FailureKind = iota + 1
	Unavailable
	Timeout
	BadResponse
)

func (k FailureKind) String() string {
	switch k {
	case Unavailable:
		return "unavailable"
	case Timeout:
		return "timeout"
	case BadResponse:
		return "bad_response"
	case Unknown:
		return "unknown"
	default:
		return "none"
	}
}

// Failure is the only error type returned by Client.Generate.
type Failure struct {
	Kind FailureKind
	Err  error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("model gateway %s: %v", f.Kind, f.Err)
}

func (f *Failure) Unwrap() error { return f.Err }

// KindOf extracts the failure kind from err. Errors that are not a *Failure
// count as Unknown; a nil error has no kind.
func KindOf(err error) FailureKind {
	if err == nil {
		return 0
	}
	var f *Failure
	if errors.As(err, &f) {
		return f.Kind
	}
	return Unknown
}

// Message is the user-facing text shown in place of an answer.
func Message(kind FailureKind) string {
	switch kind {
	case Unavailable:
		return "Unable to connect to the banking assistant service. Please ensure Ollama is running."
	case Timeout:
		return "The request took too long. Please try a simpler question."
	case BadResponse:
		return "I'm currently unable to connect to the banking knowledge base. Please try again."
	default:
		return "I encountered an error processing your request. Please try again."
	}
}

// classify maps a transport error to a failure kind. Connection failures win
// over timeouts so a dial that times out reads as the service being down.
func classify(err error) FailureKind {
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return Unavailable
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return Unavailable
	}
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) {
		return Unavailable
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return Timeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return Timeout
	}

	var httpErr *httpclient.HTTPError
	if errors.As(err, &httpErr) {
		return BadResponse
	}
	var decErr *httpclient.DecodeError
	if errors.As(err, &decErr) {
		return BadResponse
	}
	return Unknown
}
