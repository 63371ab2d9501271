package llm

import (
	"context"

	"github.com/thenielthevis/capstone-project-sub006/internal/domain/port"
)

var _ port.DescriptionGenerator = NopGenerator{}

// NopGenerator is used when no API key is configured. It describes nothing,
// so enrichment finishes as skipped.
type NopGenerator struct{}

// Describe returns an empty map.
func (NopGenerator) Describe(context.Context, []string) (map[string]string, error) {
	return map[string]string{}, nil
}
