package core

// Logger reports application events. Error args may include an error,
// a map[string]interface{} of extra context, or an identity value to
// attach the acting user to the report.
type Logger interface {
	Enable(enabled bool)
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Error(msg string, args ...interface{})
}
