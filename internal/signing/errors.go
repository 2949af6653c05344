package signing

import (
	"errors"
	"fmt"
)

// ErrInvalidToken is the parent of every redemption failure. Callers that
// face token holders must not distinguish between its children.
var ErrInvalidToken = errors.New("invalid token")

var (
	ErrMalformedToken    = fmt.Errorf("%w: malformed", ErrInvalidToken)
	ErrSignatureMismatch = fmt.Errorf("%w: signature mismatch", ErrInvalidToken)
	ErrExpired           = fmt.Errorf("%w: expired", ErrInvalidToken)
)

// ErrUnserializablePayload signals a programming error on issuance: the
// payload holds values that have no JSON representation.
var ErrUnserializablePayload = errors.New("payload is not serializable")
