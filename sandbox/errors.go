package sandbox

import "github.com/davincci9412/Cil-core/errors"

// Error sentinels raised from inside the sandbox. Spec §7 names
// "Bad definition" explicitly as the contract-level validation
// failure string; the others are this module's own, since the
// distilled spec only requires that *some* sandbox error category
// exist for each case, not a fixed string.
var (
	ErrBadDefinition    = errors.New("Bad definition")
	ErrRunLimitExceeded = errors.New("sandbox run limit exceeded")
	ErrTimeout          = errors.New("sandbox execution timed out")
	ErrUndefined        = errors.New("undefined identifier")
	ErrNotCallable      = errors.New("value is not callable")
	ErrUnknownClass     = errors.New("unknown class")
	ErrUnknownMethod    = errors.New("unknown method")
	ErrTypeMismatch     = errors.New("type mismatch")
	ErrTooManyFields    = errors.New("too many instance fields")
	ErrStringTooLong    = errors.New("string literal exceeds maximum length")
)
