package event

// ValidationError reports a malformed or incomplete payload. It is surfaced
// to the webhook caller as a client-side rejection; no external call is made
// once one is raised.
type ValidationError struct {
	Reason string
	cause  error
}

func (e *ValidationError) Error() string {
	if e.cause != nil {
		return e.Reason + ": " + e.cause.Error()
	}
	return e.Reason
}

func (e *ValidationError) Unwrap() error { return e.cause }
