package types

// Status is the outcome of a step, or the rolled-up outcome of a context,
// test, spec or run.
type Status string

const (
	StatusPass    Status = "PASS"
	StatusFail    Status = "FAIL"
	StatusWarning Status = "WARNING"
	StatusSkipped Status = "SKIPPED"
)

// Valid reports whether s is one of the four known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPass, StatusFail, StatusWarning, StatusSkipped:
		return true
	default:
		return false
	}
}

func (s Status) String() string {
	return string(s)
}
