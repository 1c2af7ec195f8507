package list

import "fmt"

// ErrorKind classifies a domain failure. Handlers map kinds to the wire
// status: Validation and NotFound to 400, Auth and ScopeMismatch to 401,
// Store to 500.
type ErrorKind int

const (
	KindValidation ErrorKind = iota
	KindAuth
	KindScopeMismatch
	KindNotFound
	KindStore
)

type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func validationf(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func notFoundf(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func authf(format string, args ...any) *Error {
	return &Error{Kind: KindAuth, Message: fmt.Sprintf(format, args...)}
}

func scopeMismatch() *Error {
	return &Error{Kind: KindScopeMismatch, Message: "list scope doesn't match your authorization"}
}

func storeErr(op string, err error) *Error {
	return &Error{Kind: KindStore, Message: op, Err: err}
}
