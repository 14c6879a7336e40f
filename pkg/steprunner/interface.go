package steprunner

import (
	"context"

	"github.com/arnavsurve/specrun/pkg/types"
)

// StepRunner runs one action. Validate decodes and checks the payload and
// must succeed before Run is called; Run never returns an error, failures
// are reported in the result.
type StepRunner interface {
	Validate() error
	Run(ctx context.Context) types.StepResult
}
