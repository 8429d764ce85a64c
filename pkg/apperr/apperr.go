// Package apperr defines the closed error taxonomy used across erpl-adt.
// Every fallible operation in the client returns a value or an *Error; no
// error crosses a package boundary as a panic.
package apperr

import "fmt"

// Kind is the closed set of error categories the client can produce.
type Kind string

const (
	KindConnection     Kind = "connection"
	KindAuthentication Kind = "authentication"
	KindCsrfToken      Kind = "csrf_token"
	KindNotFound       Kind = "not_found"
	KindPackageError   Kind = "package"
	KindCloneError     Kind = "clone"
	KindPullError      Kind = "pull"
	KindActivationError Kind = "activation"
	KindLockConflict   Kind = "lock_conflict"
	KindTestFailure    Kind = "test_failure"
	KindCheckError     Kind = "check"
	KindTransportError Kind = "transport"
	KindTimeout        Kind = "timeout"
	KindInternal       Kind = "internal"
)

// ExitCode returns the stable process exit code for a Kind.
func (k Kind) ExitCode() int {
	switch k {
	case KindConnection, KindAuthentication, KindCsrfToken:
		return 1
	case KindNotFound, KindPackageError:
		return 2
	case KindCloneError:
		return 3
	case KindPullError:
		return 4
	case KindActivationError:
		return 5
	case KindLockConflict:
		return 6
	case KindTestFailure:
		return 7
	case KindCheckError:
		return 8
	case KindTransportError:
		return 9
	case KindTimeout:
		return 10
	default:
		return 99
	}
}

// Error is the structured error type every fallible operation returns.
type Error struct {
	Operation string `json:"operation"`
	Endpoint  string `json:"endpoint,omitempty"`
	HTTPStatus *int  `json:"http_status,omitempty"`
	Message   string `json:"message"`
	SapError  *string `json:"sap_error,omitempty"`
	Kind      Kind   `json:"kind"`
	Hint      *string `json:"hint,omitempty"`
}

// New constructs an Error with the given operation, kind, and message.
func New(operation string, kind Kind, message string) *Error {
	return &Error{Operation: operation, Kind: kind, Message: message}
}

// WithEndpoint sets the endpoint field and returns the receiver for chaining.
func (e *Error) WithEndpoint(endpoint string) *Error {
	e.Endpoint = endpoint
	return e
}

// WithHTTPStatus sets the HTTP status field.
func (e *Error) WithHTTPStatus(status int) *Error {
	e.HTTPStatus = &status
	return e
}

// WithSapError sets the SAP-extracted short text.
func (e *Error) WithSapError(sapError string) *Error {
	if sapError == "" {
		return e
	}
	e.SapError = &sapError
	return e
}

// WithHint sets the hint field.
func (e *Error) WithHint(hint string) *Error {
	e.Hint = &hint
	return e
}

// ExitCode returns the stable exit code for this error's kind.
func (e *Error) ExitCode() int { return e.Kind.ExitCode() }

// Error implements the standard error interface.
func (e *Error) Error() string {
	return e.ToString()
}

// ToString renders the human-readable form:
// "<operation> [<endpoint>] (HTTP <status>): <message> — SAP: <sap_error>"
func (e *Error) ToString() string {
	s := e.Operation
	if e.Endpoint != "" {
		s += fmt.Sprintf(" [%s]", e.Endpoint)
	}
	if e.HTTPStatus != nil {
		s += fmt.Sprintf(" (HTTP %d)", *e.HTTPStatus)
	}
	s += ": " + e.Message
	if e.SapError != nil && *e.SapError != "" {
		s += " — SAP: " + *e.SapError
	}
	return s
}

// FromHTTPStatus builds an Error for a given operation/endpoint/status using
// the per-operation kind mapping.
func FromHTTPStatus(operation, endpoint string, status int, body string) *Error {
	kind := kindForOperationAndStatus(operation, status)
	e := New(operation, kind, defaultMessageForStatus(status)).
		WithEndpoint(endpoint).
		WithHTTPStatus(status)
	if sapMsg := ExtractSapMessage(body); sapMsg != "" {
		e = e.WithSapError(sapMsg)
	}
	return e
}

func defaultMessageForStatus(status int) string {
	switch status {
	case 401:
		return "authentication required or credentials rejected"
	case 403:
		return "forbidden (CSRF token missing or expired)"
	case 404:
		return "object not found"
	case 409, 423:
		return "resource is locked by another session"
	default:
		return fmt.Sprintf("unexpected HTTP status %d", status)
	}
}

func kindForOperationAndStatus(operation string, status int) Kind {
	switch status {
	case 401:
		return KindAuthentication
	case 403:
		return KindCsrfToken
	case 404:
		return KindNotFound
	case 409, 423:
		return KindLockConflict
	}
	switch operation {
	case "CloneRepo":
		return KindCloneError
	case "PullRepo":
		return KindPullError
	case "Activate", "BwActivate":
		return KindActivationError
	case "RunTests":
		return KindTestFailure
	case "RunCheck", "RunAtcCheck", "CheckSyntax":
		return KindCheckError
	case "CreateTransport", "ReleaseTransport", "ListTransports":
		return KindTransportError
	case "LockObject", "UnlockObject":
		return KindLockConflict
	}
	return KindInternal
}
