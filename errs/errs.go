// Package errs defines the engine's error kinds (spec §7). Kinds are
// semantic, not Go types named after spec tags: callers switch on Kind,
// not on the concrete error value.
package errs

import "fmt"

type Kind int

const (
	Internal Kind = iota
	InvalidInput
	InsufficientData
	PartialData
	ProviderTransient
	RateLimited
	LLMValidationFailure
	Timeout
)

func (k Kind) String() string {
	switch k {
	case InvalidInput:
		return "invalid_input"
	case InsufficientData:
		return "insufficient_data"
	case PartialData:
		return "partial_data"
	case ProviderTransient:
		return "provider_transient"
	case RateLimited:
		return "rate_limited"
	case LLMValidationFailure:
		return "llm_validation_failure"
	case Timeout:
		return "timeout"
	default:
		return "internal"
	}
}

// EngineError wraps an underlying error with a semantic Kind and a
// Retryable hint, so the HTTP layer can map it to a status code without
// re-deriving intent from error text.
type EngineError struct {
	Kind      Kind
	Err       error
	Retryable bool
}

func (e *EngineError) Error() string {
	if e.Err == nil {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *EngineError) Unwrap() error { return e.Err }

func New(kind Kind, err error) *EngineError {
	return &EngineError{Kind: kind, Err: err}
}

func Retryable(kind Kind, err error) *EngineError {
	return &EngineError{Kind: kind, Err: err, Retryable: true}
}

// As is a small helper for call sites that want the Kind without
// importing errors.As verbosity everywhere.
func As(err error) (*EngineError, bool) {
	ee, ok := err.(*EngineError)
	if ok {
		return ee, true
	}
	type unwrapper interface{ Unwrap() error }
	if u, ok := err.(unwrapper); ok {
		return As(u.Unwrap())
	}
	return nil, false
}
