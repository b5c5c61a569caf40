package providers

import "fmt"

// ErrorKind classifies a vendor failure for diagnosis. Dispatch treats every
// kind the same way (the entry becomes failed); the kind and message are
// kept for operators reading the delivery log.
type ErrorKind string

const (
	KindAuth      ErrorKind = "auth"
	KindRateLimit ErrorKind = "rate_limit"
	KindNetwork   ErrorKind = "network"
	KindRejected  ErrorKind = "rejected"
)

type Error struct {
	Provider   string
	Kind       ErrorKind
	Message    string
	HTTPStatus int
	Err        error
}

func (e *Error) Error() string {
	if e.HTTPStatus != 0 {
		return fmt.Sprintf("%s: %s (%s, http %d)", e.Provider, e.Message, e.Kind, e.HTTPStatus)
	}
	return fmt.Sprintf("%s: %s (%s)", e.Provider, e.Message, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// kindForStatus maps an HTTP response code to an error kind. Network errors
// never reach here; they are classified at the transport call site.
func kindForStatus(status int) ErrorKind {
	switch {
	case status == 401 || status == 403:
		return KindAuth
	case status == 429:
		return KindRateLimit
	case status >= 500:
		return KindNetwork
	default:
		return KindRejected
	}
}
