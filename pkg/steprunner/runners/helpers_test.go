package runners_test

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"sync"
	"testing"

	"github.com/arnavsurve/specrun/pkg/core"
	"github.com/arnavsurve/specrun/pkg/log"
	"github.com/arnavsurve/specrun/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStepCtx(action string, payload map[string]any) types.ExecutionContext {
	cfg := &types.RunConfig{}
	cfg.ApplyDefaults()
	return types.ExecutionContext{
		Step:    types.Step{ID: "step_1", Action: action, Payload: payload},
		Logger:  log.NewNopLogger(),
		Vars:    core.NewVarStore(nil),
		Results: core.StepResultsContext{},
		Config:  cfg,
		State:   &types.ContextState{},
	}
}

// fakeSession is an in-memory types.Session.
type fakeSession struct {
	mu sync.Mutex

	url        string
	readyState string
	bySelector map[string][]types.Element
	byText     map[string][]types.Element // keyed by text, then "text@selector"
	active     *fakeElement
	screenshot []byte
	navErr     error
}

func newFakeSession() *fakeSession {
	return &fakeSession{
		readyState: "complete",
		bySelector: map[string][]types.Element{},
		byText:     map[string][]types.Element{},
		active:     &fakeElement{id: "active"},
	}
}

func (s *fakeSession) ID() string { return "fake" }

func (s *fakeSession) Navigate(_ context.Context, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.navErr != nil {
		return s.navErr
	}
	s.url = url
	return nil
}

func (s *fakeSession) CurrentURL(context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.url, nil
}

func (s *fakeSession) ExecuteScript(_ context.Context, script string, _ ...any) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if script == "return document.readyState" {
		return s.readyState, nil
	}
	return nil, nil
}

func (s *fakeSession) FindElementsByScript(_ context.Context, _ string, args ...any) ([]types.Element, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	text, _ := args[0].(string)
	selector, _ := args[2].(string)
	key := text
	if selector != "" {
		key = text + "@" + selector
	}
	return s.byText[key], nil
}

func (s *fakeSession) FindElements(_ context.Context, _ string, value string) ([]types.Element, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bySelector[value], nil
}

func (s *fakeSession) ActiveElement(context.Context) (types.Element, error) {
	return s.active, nil
}

func (s *fakeSession) Screenshot(context.Context) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.screenshot, nil
}

func (s *fakeSession) WindowRect(context.Context) (types.Rect, error) {
	return types.Rect{Width: 800, Height: 600}, nil
}

func (s *fakeSession) SetWindowRect(context.Context, types.Rect) error { return nil }

func (s *fakeSession) Delete(context.Context) error { return nil }

type fakeElement struct {
	mu     sync.Mutex
	id     string
	text   string
	clicks int
	moved  bool
	typed  []string
}

func (e *fakeElement) ID() string { return e.id }

func (e *fakeElement) Click(context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.clicks++
	return nil
}

func (e *fakeElement) SendKeys(_ context.Context, keys string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.typed = append(e.typed, keys)
	return nil
}

func (e *fakeElement) Text(context.Context) (string, error) { return e.text, nil }

func (e *fakeElement) MoveTo(context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.moved = true
	return nil
}

// solidPNG encodes a w×h image where the first n pixels are black and the
// rest white.
func solidPNG(t *testing.T, w, h, n int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	i := 0
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := color.RGBA{255, 255, 255, 255}
			if i < n {
				c = color.RGBA{0, 0, 0, 255}
			}
			img.Set(x, y, c)
			i++
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func assertFileContains(t *testing.T, path, want string) {
	t.Helper()
	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(got), want)
}
