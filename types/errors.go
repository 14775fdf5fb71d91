package types

import "errors"

// Error is the single error type surfaced at operation boundaries. The code
// classifies the failure; the wrapped error keeps the transport's message.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

// Error codes
const (
	ErrConnectionFailed  = "CONNECTION_FAILED"
	ErrChainSwitchFailed = "CHAIN_SWITCH_FAILED"
	ErrTransactionFailed = "TRANSACTION_FAILED"
	ErrChainChangeFailed = "CHAIN_CHANGE_FAILED"
	ErrNoProvider        = "NO_PROVIDER"
	ErrBusy              = "BUSY"
	ErrUnknownChain      = "UNKNOWN_CHAIN"
)

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError builds a classified error wrapping an underlying cause.
func NewError(code, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// IsCode reports whether err is (or wraps) a classified error with the given code.
func IsCode(err error, code string) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == code
}
