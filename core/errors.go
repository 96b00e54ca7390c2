package core

import "github.com/pkg/errors"

// FieldError reports a problem with one field of a request payload,
// such as a missing child_id or an unknown subject.
type FieldError struct {
	Field string
	Error string
}

// ValidationError is returned by the services when a request is well formed
// but semantically invalid. The API layer renders it as a 400 response,
// with per-field detail when Fields is populated.
type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{Err: err, Fields: flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		return ""
	}
	return err.Err.Error()
}

// FieldMap flattens the field errors into the field -> message form the API
// responds with. It returns nil when there is no per-field detail.
func (err ValidationError) FieldMap() map[string]string {
	if len(err.Fields) == 0 {
		return nil
	}
	flds := make(map[string]string, len(err.Fields))
	for _, fErr := range err.Fields {
		flds[fErr.Field] = fErr.Error
	}
	return flds
}

// shutdown signals an unrecoverable integrity problem. The API error handler
// reacts to it by triggering a graceful shutdown of the server.
type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

// IsShutdown checks if an error of type shutdown is hiding anywhere inside err.
func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
