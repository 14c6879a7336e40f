package core

import "github.com/arnavsurve/specrun/pkg/types"

// StepResultsContext holds the results of the steps already run in the
// current context, keyed by step id.
type StepResultsContext = map[string]types.StepResult
