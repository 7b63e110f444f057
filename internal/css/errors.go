package css

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedSelector marks a selector using an unsupported or invalid construct.
	ErrMalformedSelector = errors.New("malformed selector")
	// ErrMalformedDeclaration marks a declaration that cannot be split into name and value.
	ErrMalformedDeclaration = errors.New("malformed declaration")
	// ErrMalformedRule marks a rule without a declaration block or with an unterminated one.
	ErrMalformedRule = errors.New("malformed rule")
	// ErrUnresolvableMedia marks a media condition the engine cannot evaluate statically.
	ErrUnresolvableMedia = errors.New("unresolvable media condition")
)

// SelectorError describes why a single selector was rejected.
type SelectorError struct {
	Selector string
	Reason   string
	// Pseudo is set when the selector was rejected for using a pseudo-class or pseudo-element.
	Pseudo bool
}

func (e *SelectorError) Error() string {
	return fmt.Sprintf("%s %q: %s", ErrMalformedSelector, e.Selector, e.Reason)
}

func (e *SelectorError) Unwrap() error { return ErrMalformedSelector }

// IsPseudoSelectorError reports whether err rejected a selector because of a pseudo-class.
func IsPseudoSelectorError(err error) bool {
	var se *SelectorError
	return errors.As(err, &se) && se.Pseudo
}
