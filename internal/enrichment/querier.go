// Package enrichment turns model replies into scene descriptions, claim
// verdicts and metadata alignments.
package enrichment

import (
	"context"

	"github.com/rentshield/rentshield/internal/inference"
)

// Querier sends one request to a generative model.
type Querier interface {
	Query(ctx context.Context, req inference.Request) (inference.Payload, error)
}

// Operation names reported to the call log and metrics.
const (
	OperationVision    = "vision"
	OperationReasoning = "reasoning"
	OperationAlignment = "alignment"
)
