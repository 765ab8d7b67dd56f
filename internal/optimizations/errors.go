package optimizations

import "errors"

var (
	// ErrInvalidRequest rejects a request before any external call is made.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrMalformedOutput indicates model output whose expected structure could
	// not be located.
	ErrMalformedOutput = errors.New("malformed model output")
	// ErrNotFound indicates a history lookup or delete miss.
	ErrNotFound = errors.New("not found")
	// ErrPersistence indicates the history store failed. The computed result
	// may still accompany this error; it was already paid for.
	ErrPersistence = errors.New("persistence failure")
)

const (
	ErrorCodeValidation          = "VALIDATION_ERROR"
	ErrorCodeUnreadableDocument  = "UNREADABLE_DOCUMENT"
	ErrorCodeEmptyInput          = "EMPTY_INPUT"
	ErrorCodeFetchBlocked        = "FETCH_BLOCKED"
	ErrorCodeFetchTimeout        = "FETCH_TIMEOUT"
	ErrorCodeProviderUnavailable = "PROVIDER_UNAVAILABLE"
	ErrorCodeProviderThrottled   = "PROVIDER_THROTTLED"
	ErrorCodeProviderRejected    = "PROVIDER_REJECTED"
	ErrorCodeProviderTimeout     = "PROVIDER_TIMEOUT"
	ErrorCodeMalformedOutput     = "MALFORMED_MODEL_OUTPUT"
	ErrorCodeStorage             = "STORAGE_ERROR"
	ErrorCodeNotFound            = "NOT_FOUND"
	ErrorCodeInternal            = "INTERNAL_ERROR"
)
