package core

import "github.com/arnavsurve/specrun/pkg/types"

// Rollup reduces child statuses to the parent status. FAIL beats WARNING,
// WARNING beats everything else, and the parent is SKIPPED only when every
// child was skipped. No children counts as skipped.
func Rollup(statuses ...types.Status) types.Status {
	var warned bool
	allSkipped := true
	for _, s := range statuses {
		switch s {
		case types.StatusFail:
			return types.StatusFail
		case types.StatusWarning:
			warned = true
		}
		if s != types.StatusSkipped {
			allSkipped = false
		}
	}

	switch {
	case warned:
		return types.StatusWarning
	case allSkipped:
		return types.StatusSkipped
	default:
		return types.StatusPass
	}
}

func rollupSteps(steps []types.StepReport) types.Status {
	statuses := make([]types.Status, len(steps))
	for i, s := range steps {
		statuses[i] = s.Status
	}
	return Rollup(statuses...)
}

func rollupContexts(contexts []types.ContextResult) types.Status {
	statuses := make([]types.Status, len(contexts))
	for i, c := range contexts {
		statuses[i] = c.Status
	}
	return Rollup(statuses...)
}

func rollupTests(tests []types.TestResult) types.Status {
	statuses := make([]types.Status, len(tests))
	for i, t := range tests {
		statuses[i] = t.Status
	}
	return Rollup(statuses...)
}

func rollupSpecs(specs []types.SpecResult) types.Status {
	statuses := make([]types.Status, len(specs))
	for i, s := range specs {
		statuses[i] = s.Status
	}
	return Rollup(statuses...)
}
