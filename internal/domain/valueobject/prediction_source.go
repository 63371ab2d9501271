package valueobject

import "fmt"

// PredictionSource records where a risk prediction came from. It decides how
// much the ranker trusts the entry.
type PredictionSource struct {
	value string
}

var (
	SourceModel             = PredictionSource{value: "model"}
	SourceRuleBased         = PredictionSource{value: "rule_based"}
	SourceUserReported      = PredictionSource{value: "user_reported"}
	SourceExistingCondition = PredictionSource{value: "existing_condition"}
	SourceCustomPrediction  = PredictionSource{value: "custom_prediction"}
)

// PredictionSourceFromString reconstructs a PredictionSource from its string representation.
func PredictionSourceFromString(s string) (PredictionSource, error) {
	switch s {
	case "model":
		return SourceModel, nil
	case "rule_based":
		return SourceRuleBased, nil
	case "user_reported":
		return SourceUserReported, nil
	case "existing_condition":
		return SourceExistingCondition, nil
	case "custom_prediction":
		return SourceCustomPrediction, nil
	default:
		return PredictionSource{}, fmt.Errorf("invalid prediction source: %q", s)
	}
}

// String returns the string representation.
func (s PredictionSource) String() string {
	return s.value
}

// IsTrusted reports whether entries with this source are shown regardless of
// their probability. Everything except raw model output is trusted.
func (s PredictionSource) IsTrusted() bool {
	switch s {
	case SourceRuleBased, SourceUserReported, SourceExistingCondition, SourceCustomPrediction:
		return true
	default:
		return false
	}
}

// IsZero returns true if the source has not been set.
func (s PredictionSource) IsZero() bool {
	return s.value == ""
}

// Equal checks equality with another PredictionSource.
func (s PredictionSource) Equal(other PredictionSource) bool {
	return s.value == other.value
}

// MarshalText implements encoding.TextMarshaler.
func (s PredictionSource) MarshalText() ([]byte, error) {
	return []byte(s.value), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. An empty value decodes
// to the zero source so callers can apply their own default.
func (s *PredictionSource) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*s = PredictionSource{}
		return nil
	}
	parsed, err := PredictionSourceFromString(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
