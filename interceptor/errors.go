package interceptor

import (
	"errors"
	"fmt"
)

// ErrInterceptor matches every *HookError through errors.Is.
var ErrInterceptor = errors.New("interceptor: hook failed")

// HookError reports a hook that failed during a phase.
type HookError struct {
	Phase       Phase
	Interceptor string
	Scope       Scope
	Err         error
}

// Error implements error.
func (e *HookError) Error() string {
	return fmt.Sprintf("interceptor: %s hook %q (%s scope) failed: %v", e.Phase, e.Interceptor, e.Scope, e.Err)
}

// Unwrap returns the hook's error.
func (e *HookError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrInterceptor.
func (e *HookError) Is(target error) bool {
	return target == ErrInterceptor
}
