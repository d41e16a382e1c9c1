package auth

import "github.com/go-faster/errors"

// ErrorKind identifies an authentication failure.
type ErrorKind string

const (
	KindEmailAlreadyInUse ErrorKind = "email-already-in-use"
	KindInvalidEmail      ErrorKind = "invalid-email"
	KindWeakPassword      ErrorKind = "weak-password"
	KindUserNotFound      ErrorKind = "user-not-found"
	KindWrongPassword     ErrorKind = "wrong-password"
	KindInvalidCredential ErrorKind = "invalid-credential"
)

// Form fields an error can be attached to.
const (
	FieldEmail    = "email"
	FieldPassword = "password"
)

// GenericMessage is shown for failures that have no specific mapping.
const GenericMessage = "Something went wrong. Please try again."

type kindInfo struct {
	field   string
	message string
}

var kinds = map[ErrorKind]kindInfo{
	KindEmailAlreadyInUse: {FieldEmail, "This email is already registered."},
	KindInvalidEmail:      {FieldEmail, "Enter a valid email address."},
	KindWeakPassword:      {FieldPassword, "Password is too weak. Use at least 6 characters and avoid common passwords."},
	KindUserNotFound:      {FieldEmail, "No account found for this email."},
	KindWrongPassword:     {FieldPassword, "Incorrect password."},
	KindInvalidCredential: {FieldPassword, "Invalid credentials. Sign in again."},
}

// Error is an authentication failure reported by the identity service.
type Error struct {
	Kind ErrorKind
}

func (e *Error) Error() string {
	return "auth: " + string(e.Kind)
}

// Field returns the form field the failure belongs to, or "".
func (e *Error) Field() string {
	return kinds[e.Kind].field
}

// Message returns the user-facing message for the failure.
func (e *Error) Message() string {
	if info, ok := kinds[e.Kind]; ok {
		return info.message
	}
	return GenericMessage
}

// ValidationError is a local input check that failed before any storage
// call was made.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

func invalid(kind ErrorKind) *ValidationError {
	info := kinds[kind]
	return &ValidationError{Field: info.field, Message: info.message}
}

// Describe maps err to a form field and user-facing message. Unmapped
// errors produce an empty field and GenericMessage.
func Describe(err error) (field, message string) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Field, ve.Message
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Field(), ae.Message()
	}
	return "", GenericMessage
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var ae *Error
	return errors.As(err, &ae) && ae.Kind == kind
}
