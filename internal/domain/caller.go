package domain

// Caller is the opaque identity of whoever invokes the core. Only
// privileged callers may write to shared persistent state.
type Caller struct {
	ID         string `json:"id,omitempty"`
	Privileged bool   `json:"privileged"`
}

func Anonymous() Caller { return Caller{} }
