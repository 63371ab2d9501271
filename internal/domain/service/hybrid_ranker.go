package service

import (
	"cmp"
	"math"
	"slices"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/thenielthevis/capstone-project-sub006/internal/domain/model"
	"github.com/thenielthevis/capstone-project-sub006/internal/domain/valueobject"
)

var hundred = decimal.NewFromInt(100)

// HybridRanker orders predictions and hides low-confidence model output while
// always keeping entries from trusted sources.
type HybridRanker struct{}

// NewHybridRanker creates a new HybridRanker.
func NewHybridRanker() *HybridRanker {
	return &HybridRanker{}
}

// Rank returns a new slice sorted by probability descending. Ties keep their
// input order. Model entries whose percentage rounds to 0 are removed. The
// result is never nil.
func (r *HybridRanker) Rank(predictions []model.RiskPrediction) []model.RiskPrediction {
	out := make([]model.RiskPrediction, 0, len(predictions))
	for _, p := range predictions {
		if p.Source.IsTrusted() || displayable(p.Probability) {
			out = append(out, p)
		}
	}
	return r.Order(out)
}

// Order stable-sorts predictions by probability, highest first, in place and
// returns them. Nothing is filtered.
func (r *HybridRanker) Order(predictions []model.RiskPrediction) []model.RiskPrediction {
	slices.SortStableFunc(predictions, func(a, b model.RiskPrediction) int {
		return cmp.Compare(b.Probability, a.Probability)
	})
	return predictions
}

// displayable reports whether p shows as at least 1% once rounded half-up.
func displayable(p float64) bool {
	if math.IsNaN(p) || math.IsInf(p, 0) {
		return false
	}
	return decimal.NewFromFloat(p).Mul(hundred).Round(0).IsPositive()
}

// MergeReportedConditions folds the user's declared current conditions into
// the model output. A model entry naming a reported condition is re-tagged
// existing_condition and keeps its probability. A reported condition the
// model did not mention is appended with probability 1.
func (r *HybridRanker) MergeReportedConditions(predictions []model.RiskPrediction, conditions []string) []model.RiskPrediction {
	out := append([]model.RiskPrediction(nil), predictions...)
	if len(conditions) == 0 {
		return out
	}

	index := make(map[string]int, len(out))
	for i, p := range out {
		key := strings.ToLower(strings.TrimSpace(p.Name))
		if _, seen := index[key]; !seen {
			index[key] = i
		}
	}

	for _, c := range conditions {
		name := strings.TrimSpace(c)
		if name == "" {
			continue
		}
		key := strings.ToLower(name)
		if i, ok := index[key]; ok {
			if out[i].Source.Equal(valueobject.SourceModel) {
				out[i].Source = valueobject.SourceExistingCondition
			}
			continue
		}
		index[key] = len(out)
		out = append(out, model.RiskPrediction{
			Name:        name,
			Probability: 1,
			Source:      valueobject.SourceExistingCondition,
			Percentage:  100,
		})
	}
	return out
}
