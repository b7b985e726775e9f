package delegating

import (
	"errors"
	"fmt"

	"github.com/findy-network/findy-keri-agent/agent/kel"
)

// ErrValidation is the sentinel for all ValidationErrors:
// errors.Is(err, ErrValidation).
var ErrValidation = errors.New("validation error")

// ValidationError is a configuration or protocol state fault. It isn't
// retried, the caller must handle it.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return "validation error: " + e.Msg
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func validationErrorf(format string, a ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, a...)}
}

// ProxyInput is everything needed to pick the identifier which sends the
// delegation messages of the Hab.
type ProxyInput struct {
	Hab      *kel.Hab
	SN       uint64   // current sequence number of the Hab
	Explicit *kel.Hab // given by the caller, nil when running asynchronously
	Default  *kel.Hab // configured default proxy
}

// ResolveProxy returns the sender hab. The precedence is: the member hab of a
// group, the hab itself after its inception, the explicit proxy and the
// default proxy. Without any of them it's a ValidationError.
func ResolveProxy(in ProxyInput) (*kel.Hab, error) {
	switch {
	case in.Hab != nil && in.Hab.Group():
		return in.Hab.Member, nil
	case in.Hab != nil && in.SN > 0:
		return in.Hab, nil
	case in.Explicit != nil:
		return in.Explicit, nil
	case in.Default != nil:
		return in.Default, nil
	}
	return nil, validationErrorf("no proxy to send messages for delegation")
}
