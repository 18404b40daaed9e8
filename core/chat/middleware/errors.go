package middleware

import "errors"

// ErrRetryExhausted is returned by the retry middleware when every attempt
// failed with a retryable error. The last model error is wrapped alongside
// it, so both can be matched with [errors.Is].
var ErrRetryExhausted = errors.New("genchat: all retry attempts exhausted")
