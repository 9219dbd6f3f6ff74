package tensor

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrInvalidArgument is the condition reported for every argument validation
// failure: bad dtype of an index tensor, bad segment count, axis out of range.
// Test for it with errors.Is.
var ErrInvalidArgument = errors.New("invalid argument")

// InvalidArgumentf returns an error wrapping ErrInvalidArgument whose message
// names the operator op and the violated constraint.
func InvalidArgumentf(op, format string, args ...any) error {
	return errors.Wrapf(ErrInvalidArgument, "%s: %s", op, fmt.Sprintf(format, args...))
}

// RequireIntegerDType fails with ErrInvalidArgument unless t has an integer dtype.
func RequireIntegerDType(op, name string, t *RawTensor) error {
	if !t.DType().IsInteger() {
		return InvalidArgumentf(op, "%s must be an int32 or int64 tensor, got %s", name, t.DType())
	}
	return nil
}
