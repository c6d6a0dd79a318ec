package gateway

// ErrorOptions lets a call site tell the error reporter how a terminal
// failure should surface to the user.
type ErrorOptions struct {
	// Silent suppresses user-facing notification; the error is still returned.
	Silent bool
	// Blocking asks for a confirmation dialog instead of a transient notice.
	Blocking bool
	// Context is a short label for where the failure happened ("login",
	// "assign ticket") used in the notification text.
	Context string
}

// ErrorReporter receives every terminal request failure when registered on a
// Client. The returned error is what the caller of Do observes, so a reporter
// can pass the failure through, wrap it, or swallow it by returning nil.
type ErrorReporter interface {
	HandleAPIError(err error, opts ErrorOptions) error
}

// ErrorReporterFunc adapts a function to the ErrorReporter interface.
type ErrorReporterFunc func(err error, opts ErrorOptions) error

func (f ErrorReporterFunc) HandleAPIError(err error, opts ErrorOptions) error {
	return f(err, opts)
}
