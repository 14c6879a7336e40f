package runners_test

import (
	"context"
	"errors"
	"image/gif"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/arnavsurve/specrun/pkg/steprunner"
	"github.com/arnavsurve/specrun/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withSession(ctx types.ExecutionContext, s types.Session) types.ExecutionContext {
	ctx.Session = s
	return ctx
}

func TestDispatch_DriverActionWithoutSession(t *testing.T) {
	for _, action := range []string{"goTo", "find", "click", "type", "saveScreenshot", "startRecording", "stopRecording"} {
		t.Run(action, func(t *testing.T) {
			assert.True(t, steprunner.RequiresSession(action))
			result := steprunner.Dispatch(context.Background(), newStepCtx(action, map[string]any{"url": "https://a.test"}))
			assert.Equal(t, types.StatusFail, result.Status)
			assert.Contains(t, result.Description, "requires an application session")
		})
	}
}

func TestDispatch_UnknownAction(t *testing.T) {
	result := steprunner.Dispatch(context.Background(), newStepCtx("teleport", nil))
	assert.Equal(t, types.StatusFail, result.Status)
	assert.Equal(t, "Unsupported action: teleport", result.Description)
}

type panickingSession struct {
	*fakeSession
}

func (panickingSession) Navigate(context.Context, string) error {
	panic("driver went away")
}

func TestDispatch_RecoversFromPanic(t *testing.T) {
	ctx := withSession(newStepCtx("goTo", map[string]any{"url": "https://a.test"}), panickingSession{newFakeSession()})

	var result types.StepResult
	require.NotPanics(t, func() {
		result = steprunner.Dispatch(context.Background(), ctx)
	})
	assert.Equal(t, types.StatusFail, result.Status)
	assert.Equal(t, "Action goTo panicked: driver went away", result.Description)
}

func TestDispatch_RegistersAllActions(t *testing.T) {
	assert.ElementsMatch(t, []string{
		"checkLink", "click", "find", "goTo", "httpRequest", "loadVariables", "runCode",
		"runShell", "saveScreenshot", "startRecording", "stopRecording", "type", "wait",
	}, steprunner.Actions())
}

func TestGoTo(t *testing.T) {
	t.Run("navigates to normalized url", func(t *testing.T) {
		sess := newFakeSession()
		ctx := withSession(newStepCtx("goTo", map[string]any{"url": "/start"}), sess)
		ctx.Config.Origin = "docs.example.com"

		result := steprunner.Dispatch(context.Background(), ctx)
		assert.Equal(t, types.StatusPass, result.Status, result.Description)
		assert.Equal(t, "https://docs.example.com/start", sess.url)
	})

	t.Run("page that never loads warns", func(t *testing.T) {
		sess := newFakeSession()
		sess.readyState = "loading"
		ctx := withSession(newStepCtx("goTo", map[string]any{"url": "https://a.test", "timeout": 150}), sess)

		result := steprunner.Dispatch(context.Background(), ctx)
		assert.Equal(t, types.StatusWarning, result.Status, result.Description)
	})

	t.Run("navigation error fails", func(t *testing.T) {
		sess := newFakeSession()
		sess.navErr = errors.New("boom")
		ctx := withSession(newStepCtx("goTo", map[string]any{"url": "https://a.test"}), sess)

		result := steprunner.Dispatch(context.Background(), ctx)
		assert.Equal(t, types.StatusFail, result.Status)
		assert.Contains(t, result.Description, "boom")
	})
}

func TestFind(t *testing.T) {
	tests := []struct {
		name         string
		setup        func(s *fakeSession) *fakeElement
		payload      map[string]any
		wantStatus   types.Status
		wantStrategy string
	}{
		{
			name: "selector match must carry the text",
			setup: func(s *fakeSession) *fakeElement {
				ok := &fakeElement{id: "ok", text: " Go "}
				s.bySelector["#go"] = []types.Element{&fakeElement{id: "other", text: "Stop"}, ok}
				s.byText["Go"] = []types.Element{&fakeElement{id: "txt"}}
				s.byText["Go@#go"] = []types.Element{ok}
				return ok
			},
			payload:      map[string]any{"selector": "#go", "elementText": "Go"},
			wantStatus:   types.StatusPass,
			wantStrategy: "selector",
		},
		{
			name: "combined beats text alone",
			setup: func(s *fakeSession) *fakeElement {
				both := &fakeElement{id: "both"}
				s.byText["Go"] = []types.Element{&fakeElement{id: "txt"}}
				s.byText["Go@button"] = []types.Element{both}
				return both
			},
			payload:      map[string]any{"selector": "button", "elementText": "Go"},
			wantStatus:   types.StatusPass,
			wantStrategy: "selector and text",
		},
		{
			name: "regex text strips slashes",
			setup: func(s *fakeSession) *fakeElement {
				el := &fakeElement{id: "re"}
				s.byText["^Sign (in|up)$"] = []types.Element{el}
				return el
			},
			payload:      map[string]any{"elementText": "/^Sign (in|up)$/"},
			wantStatus:   types.StatusPass,
			wantStrategy: "text",
		},
		{
			name: "text alone does not satisfy selector and text",
			setup: func(s *fakeSession) *fakeElement {
				s.bySelector["button"] = []types.Element{&fakeElement{id: "b", text: "Cancel"}}
				s.byText["Nonexistent"] = []types.Element{&fakeElement{id: "span", text: "Nonexistent"}}
				return nil
			},
			payload:    map[string]any{"selector": "button", "elementText": "Nonexistent", "timeout": 300},
			wantStatus: types.StatusFail,
		},
		{
			name:       "nothing found fails after timeout",
			setup:      func(s *fakeSession) *fakeElement { return nil },
			payload:    map[string]any{"selector": "#nope", "timeout": 300},
			wantStatus: types.StatusFail,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sess := newFakeSession()
			want := tt.setup(sess)

			result := steprunner.Dispatch(context.Background(), withSession(newStepCtx("find", tt.payload), sess))
			require.Equal(t, tt.wantStatus, result.Status, result.Description)
			if want != nil {
				assert.Equal(t, tt.wantStrategy, result.Outputs["strategy"])
			}
		})
	}
}

func TestFind_SelectorAndTextPicksMatchingElement(t *testing.T) {
	sess := newFakeSession()
	cancel := &fakeElement{id: "cancel", text: "Cancel"}
	del := &fakeElement{id: "delete", text: "Delete"}
	sess.bySelector["button"] = []types.Element{cancel, del}

	result := steprunner.Dispatch(context.Background(), withSession(newStepCtx("find", map[string]any{
		"selector":    "button",
		"elementText": "Delete",
		"click":       true,
	}), sess))

	require.Equal(t, types.StatusPass, result.Status, result.Description)
	assert.Equal(t, "Delete", result.Outputs["text"])
	assert.Equal(t, 0, cancel.clicks)
	assert.Equal(t, 1, del.clicks)
}

func TestFind_ChainsActions(t *testing.T) {
	sess := newFakeSession()
	el := &fakeElement{id: "q", text: "Search"}
	sess.bySelector["input[name=q]"] = []types.Element{el}

	result := steprunner.Dispatch(context.Background(), withSession(newStepCtx("find", map[string]any{
		"selector": "input[name=q]",
		"moveTo":   true,
		"click":    true,
		"type":     []any{"hello", "$ENTER$"},
	}), sess))

	require.Equal(t, types.StatusPass, result.Status, result.Description)
	assert.True(t, el.moved)
	assert.Equal(t, 1, el.clicks)
	assert.Equal(t, []string{"hello\uE007"}, el.typed)
	assert.Equal(t, "Search", result.Outputs["text"])
}

func TestClickAndType(t *testing.T) {
	sess := newFakeSession()
	btn := &fakeElement{id: "btn"}
	sess.bySelector["button.submit"] = []types.Element{btn}

	click := steprunner.Dispatch(context.Background(), withSession(newStepCtx("click", map[string]any{"selector": "button.submit"}), sess))
	require.Equal(t, types.StatusPass, click.Status, click.Description)
	assert.Equal(t, 1, btn.clicks)

	typed := steprunner.Dispatch(context.Background(), withSession(newStepCtx("type", map[string]any{"keys": "abc$TAB$"}), sess))
	require.Equal(t, types.StatusPass, typed.Status, typed.Description)
	assert.Equal(t, []string{"abc\uE004"}, sess.active.typed)

	missing := steprunner.Dispatch(context.Background(), withSession(newStepCtx("type", map[string]any{}), sess))
	assert.Equal(t, types.StatusFail, missing.Status)
	assert.Contains(t, missing.Description, "must define 'keys'")
}

func TestSaveScreenshot(t *testing.T) {
	dir := t.TempDir()
	sess := newFakeSession()

	shoot := func(extra map[string]any) types.StepResult {
		payload := map[string]any{"path": "home.png", "directory": dir}
		for k, v := range extra {
			payload[k] = v
		}
		return steprunner.Dispatch(context.Background(), withSession(newStepCtx("saveScreenshot", payload), sess))
	}

	sess.screenshot = solidPNG(t, 10, 10, 0)
	first := shoot(nil)
	require.Equal(t, types.StatusPass, first.Status, first.Description)
	assert.FileExists(t, filepath.Join(dir, "home.png"))

	// 3 of 100 pixels differ: inside the default 5%.
	sess.screenshot = solidPNG(t, 10, 10, 3)
	within := shoot(nil)
	assert.Equal(t, types.StatusPass, within.Status, within.Description)
	assert.InDelta(t, 0.03, within.Outputs["variation"], 1e-9)

	sess.screenshot = solidPNG(t, 10, 10, 50)
	beyond := shoot(map[string]any{"overwrite": "byVariation"})
	assert.Equal(t, types.StatusWarning, beyond.Status, beyond.Description)

	saved, err := os.ReadFile(filepath.Join(dir, "home.png"))
	require.NoError(t, err)
	assert.Equal(t, sess.screenshot, saved)
}

func TestRecording(t *testing.T) {
	dir := t.TempDir()
	sess := newFakeSession()
	sess.screenshot = solidPNG(t, 4, 4, 2)

	ctx := withSession(newStepCtx("startRecording", map[string]any{
		"path":      "demo.gif",
		"directory": dir,
		"interval":  20,
	}), sess)
	state := ctx.State

	start := steprunner.Dispatch(context.Background(), ctx)
	require.Equal(t, types.StatusPass, start.Status, start.Description)

	again := steprunner.Dispatch(context.Background(), ctx)
	assert.Equal(t, types.StatusFail, again.Status)
	assert.Contains(t, again.Description, "already running")

	time.Sleep(100 * time.Millisecond)

	stopCtx := withSession(newStepCtx("stopRecording", nil), sess)
	stopCtx.State = state
	stop := steprunner.Dispatch(context.Background(), stopCtx)
	require.Equal(t, types.StatusPass, stop.Status, stop.Description)

	f, err := os.Open(filepath.Join(dir, "demo.gif"))
	require.NoError(t, err)
	defer f.Close()
	anim, err := gif.DecodeAll(f)
	require.NoError(t, err)
	assert.NotEmpty(t, anim.Image)

	none := steprunner.Dispatch(context.Background(), stopCtx)
	assert.Equal(t, types.StatusFail, none.Status)
	assert.Contains(t, none.Description, "No recording is running")
}

func TestLoadVariables(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "test.env"), []byte("USER=grace\nPASS=\"s3cret\"\n"), 0644))

	ctx := newStepCtx("loadVariables", map[string]any{"loadVariables": "test.env"})
	ctx.SpecDir = dir

	result := steprunner.Dispatch(context.Background(), ctx)
	require.Equal(t, types.StatusPass, result.Status, result.Description)
	assert.Equal(t, []string{"PASS", "USER"}, result.Outputs["variables"])

	user, _ := ctx.Vars.Get("USER")
	pass, _ := ctx.Vars.Get("PASS")
	assert.Equal(t, "grace", user)
	assert.Equal(t, "s3cret", pass)

	missing := newStepCtx("loadVariables", map[string]any{"loadVariables": "nope.env"})
	missing.SpecDir = dir
	assert.Equal(t, types.StatusFail, steprunner.Dispatch(context.Background(), missing).Status)
}
