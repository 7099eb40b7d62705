package response

const (
	// DefaultRegion is reported when the deployment region is unknown.
	DefaultRegion = "Unknown"
	// NoContextRequestID is reported when the invocation has no identity,
	// e.g. a local run outside the hosting runtime.
	NoContextRequestID = "no-context"
)

// InvocationResult is the body returned for every benchmark invocation.
type InvocationResult struct {
	Region         string   `json:"region"`
	RequestID      string   `json:"requestId"`
	TimestampChain []string `json:"timestampChain"`
}

// Build assembles an InvocationResult, substituting defaults for empty
// identity fields.
func Build(regionLabel, requestID string, measurements ...string) InvocationResult {
	if regionLabel == "" {
		regionLabel = DefaultRegion
	}
	if requestID == "" {
		requestID = NoContextRequestID
	}
	chain := make([]string, len(measurements))
	copy(chain, measurements)
	return InvocationResult{
		Region:         regionLabel,
		RequestID:      requestID,
		TimestampChain: chain,
	}
}
