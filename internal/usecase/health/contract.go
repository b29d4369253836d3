package health

import "context"

// DBPinger checks database availability.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// LLMStatus is the language model diagnostic snapshot.
type LLMStatus struct {
	Reachable   bool
	ModelLoaded bool
	Model       string
	Error       string
}

// LLMChecker reports language model availability. Diagnostics only — the
// request hot path never calls this.
type LLMChecker interface {
	HealthCheck(ctx context.Context) LLMStatus
}
