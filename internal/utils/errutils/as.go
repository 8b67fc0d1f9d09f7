package errutils

import "emperror.dev/errors"

// As finds the first error in err's chain that is a T.
func As[T error](err error) (T, bool) {
	var target T
	ok := err != nil && errors.As(err, &target)
	return target, ok
}
