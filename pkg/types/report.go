package types

// StepReport is a StepResult tagged with the step that produced it.
type StepReport struct {
	StepID string `json:"stepId"`
	Action string `json:"action"`
	StepResult
}

type ContextResult struct {
	App         string       `json:"app,omitempty"`
	Platform    string       `json:"platform,omitempty"`
	Status      Status       `json:"status"`
	Description string       `json:"description,omitempty"`
	Steps       []StepReport `json:"steps"`
}

type TestResult struct {
	TestID      string          `json:"testId"`
	Description string          `json:"description,omitempty"`
	Status      Status          `json:"status"`
	Contexts    []ContextResult `json:"contexts"`
}

type SpecResult struct {
	SpecID      string       `json:"specId"`
	Description string       `json:"description,omitempty"`
	File        string       `json:"file,omitempty"`
	Status      Status       `json:"status"`
	Tests       []TestResult `json:"tests"`
}

// Counter tallies results of one level by status.
type Counter struct {
	Pass    int `json:"pass"`
	Fail    int `json:"fail"`
	Warning int `json:"warning"`
	Skipped int `json:"skipped"`
}

func (c *Counter) Add(s Status) {
	switch s {
	case StatusPass:
		c.Pass++
	case StatusFail:
		c.Fail++
	case StatusWarning:
		c.Warning++
	case StatusSkipped:
		c.Skipped++
	}
}

func (c Counter) Total() int {
	return c.Pass + c.Fail + c.Warning + c.Skipped
}

type Summary struct {
	Specs    Counter `json:"specs"`
	Tests    Counter `json:"tests"`
	Contexts Counter `json:"contexts"`
	Steps    Counter `json:"steps"`
}

// RunReport is the complete result of a run.
type RunReport struct {
	RunID   string       `json:"runId"`
	Status  Status       `json:"status"`
	Summary Summary      `json:"summary"`
	Specs   []SpecResult `json:"specs"`
}
