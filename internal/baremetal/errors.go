package baremetal

import "fmt"

// DependencyError reports a failed call against the cluster API. The
// request's job was to initiate a transition, so these surface to the
// webhook caller as a server-side failure.
type DependencyError struct {
	Op       string
	Resource string
	Err      error
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("%s %q: %v", e.Op, e.Resource, e.Err)
}

func (e *DependencyError) Unwrap() error { return e.Err }
