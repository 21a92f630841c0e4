package component

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// Kind classifies component failures so the host can decide whether to halt,
// skip or retry.
type Kind int

const (
	KindUnknown Kind = iota
	// KindInvalidInput is a caller or data defect. Never retried.
	KindInvalidInput
	// KindExternal is a failure reported by the wrapped service or library.
	KindExternal
	// KindConfiguration is a missing or invalid setting. Always fatal.
	KindConfiguration
)

func (k Kind) String() string {
	switch k {
	case KindInvalidInput:
		return "invalid input"
	case KindExternal:
		return "external failure"
	case KindConfiguration:
		return "configuration error"
	default:
		return "unknown"
	}
}

// Sentinel errors matched by errors.Is against any *Error of the same kind.
var (
	ErrInvalidInput    = errors.New("invalid input")
	ErrExternalFailure = errors.New("external failure")
	ErrConfiguration   = errors.New("configuration error")
)

// Error is the typed failure returned by components.
type Error struct {
	Kind      Kind
	Component string
	// Op names the input, configuration key or remote operation involved.
	Op string
	// Status is the remote status code for external failures, when known.
	Status int
	Err    error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Component != "" {
		b.WriteString(e.Component)
		b.WriteString(": ")
	}
	b.WriteString(e.Kind.String())
	if e.Op != "" {
		fmt.Fprintf(&b, " (%s)", e.Op)
	}
	if e.Status != 0 {
		fmt.Fprintf(&b, " [status %d]", e.Status)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the kind sentinels.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrInvalidInput:
		return e.Kind == KindInvalidInput
	case ErrExternalFailure:
		return e.Kind == KindExternal
	case ErrConfiguration:
		return e.Kind == KindConfiguration
	}
	return false
}

// InvalidInput returns a KindInvalidInput error for the named input.
func InvalidInput(component, input, format string, args ...any) error {
	return &Error{Kind: KindInvalidInput, Component: component, Op: input, Err: fmt.Errorf(format, args...)}
}

// External wraps err as a KindExternal failure. A nil err yields nil.
func External(component, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: KindExternal, Component: component, Op: op, Err: err}
}

// maxStatusBody bounds how much of a failure response body is kept.
const maxStatusBody = 512

// ExternalStatus reports a remote call that completed with a failure status.
func ExternalStatus(component, op string, status int, body string) error {
	body = strings.TrimSpace(body)
	if len(body) > maxStatusBody {
		cut := maxStatusBody
		for cut > 0 && !utf8.RuneStart(body[cut]) {
			cut--
		}
		body = body[:cut] + "..."
	}
	var err error
	if body != "" {
		err = errors.New(body)
	}
	return &Error{Kind: KindExternal, Component: component, Op: op, Status: status, Err: err}
}

// Configuration returns a KindConfiguration error for the named key.
func Configuration(component, key, format string, args ...any) error {
	return &Error{Kind: KindConfiguration, Component: component, Op: key, Err: fmt.Errorf(format, args...)}
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return KindUnknown
}

// StatusOf returns the remote status recorded in err's chain, or 0.
func StatusOf(err error) int {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Status
	}
	return 0
}
