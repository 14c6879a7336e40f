package types

import (
	"context"
	"sync"
)

// ExecutionContext contains the context needed for step execution
type ExecutionContext struct {
	Step    Step
	Logger  Logger
	Session Session // nil when the context has no application
	Vars    Variables
	Results map[string]StepResult // earlier results in the same context, keyed by step id
	Config  *RunConfig
	Spec    *Spec
	SpecDir string
	State   *ContextState
}

// Variables is the run-scoped key-value store steps use to pass values to
// later steps.
type Variables interface {
	Get(name string) (string, bool)
	Set(name, value string)
}

// Locator strategies understood by Session.FindElements.
const (
	ByCSSSelector = "css selector"
	ByXPath       = "xpath"
)

// Session is a live connection to one automated application instance.
type Session interface {
	ID() string
	Navigate(ctx context.Context, url string) error
	CurrentURL(ctx context.Context) (string, error)
	ExecuteScript(ctx context.Context, script string, args ...any) (any, error)
	// FindElementsByScript runs script and returns the elements in its result.
	FindElementsByScript(ctx context.Context, script string, args ...any) ([]Element, error)
	FindElements(ctx context.Context, using, value string) ([]Element, error)
	ActiveElement(ctx context.Context) (Element, error)
	Screenshot(ctx context.Context) ([]byte, error)
	WindowRect(ctx context.Context) (Rect, error)
	SetWindowRect(ctx context.Context, rect Rect) error
	Delete(ctx context.Context) error
}

// Element is a reference to a DOM element inside a Session.
type Element interface {
	ID() string
	Click(ctx context.Context) error
	SendKeys(ctx context.Context, keys string) error
	Text(ctx context.Context) (string, error)
	MoveTo(ctx context.Context) error
}

type Rect struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Recorder is a running capture that can be finished exactly once.
type Recorder interface {
	Stop(ctx context.Context) (string, error)
}

// ContextState holds state that lives for one context iteration, shared by
// the steps that run in it.
type ContextState struct {
	mu       sync.Mutex
	recorder Recorder
}

// SetRecorder stores r unless a recording is already running.
func (s *ContextState) SetRecorder(r Recorder) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.recorder != nil {
		return false
	}
	s.recorder = r
	return true
}

// TakeRecorder removes and returns the running recorder, if any.
func (s *ContextState) TakeRecorder() Recorder {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.recorder
	s.recorder = nil
	return r
}
