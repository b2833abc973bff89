package baremetal

// State is the observed provisioning state of a host, read from
// status.provisioning.state.
type State string

const (
	StateUnprovisioned  State = "unprovisioned"
	StatePreparing      State = "preparing"
	StateInspecting     State = "inspecting"
	StateProvisioning   State = "provisioning"
	StateProvisioned    State = "provisioned"
	StateDeprovisioning State = "deprovisioning"
	StateError          State = "error"
	StateFailed         State = "failed"
)

// Succeeded reports whether s is the success-terminal state.
func (s State) Succeeded() bool { return s == StateProvisioned }

// Failed reports whether s is a failure-terminal state.
func (s State) Failed() bool { return s == StateError || s == StateFailed }

// Terminal reports whether a host in state s is expected to change again
// without a new intent.
func (s State) Terminal() bool { return s.Succeeded() || s.Failed() }
