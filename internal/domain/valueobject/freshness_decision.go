package valueobject

// FreshnessDecision is the outcome of checking a cached prediction set
// against the request options and the current calendar day.
type FreshnessDecision struct {
	value string
}

var (
	DecisionCompute      = FreshnessDecision{value: "COMPUTE"}
	DecisionReturnCached = FreshnessDecision{value: "RETURN_CACHED"}
	DecisionNotFound     = FreshnessDecision{value: "NOT_FOUND"}
)

// String returns the string representation.
func (d FreshnessDecision) String() string {
	return d.value
}

// IsZero returns true if the decision has not been set.
func (d FreshnessDecision) IsZero() bool {
	return d.value == ""
}

// Equal checks equality with another FreshnessDecision.
func (d FreshnessDecision) Equal(other FreshnessDecision) bool {
	return d.value == other.value
}
