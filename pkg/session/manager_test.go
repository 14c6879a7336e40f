package session_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/arnavsurve/specrun/pkg/log"
	"github.com/arnavsurve/specrun/pkg/session"
	"github.com/arnavsurve/specrun/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSession struct {
	rect      types.Rect
	setRect   *types.Rect
	deleteErr error
	deleted   bool
}

func (s *stubSession) ID() string { return "sess-1" }
func (s *stubSession) Navigate(context.Context, string) error { return nil }
func (s *stubSession) CurrentURL(context.Context) (string, error) { return "", nil }
func (s *stubSession) ActiveElement(context.Context) (types.Element, error) { return nil, nil }
func (s *stubSession) Screenshot(context.Context) ([]byte, error) { return nil, nil }
func (s *stubSession) ExecuteScript(context.Context, string, ...any) (any, error) {
	return nil, nil
}
func (s *stubSession) FindElementsByScript(context.Context, string, ...any) ([]types.Element, error) {
	return nil, nil
}
func (s *stubSession) FindElements(context.Context, string, string) ([]types.Element, error) {
	return nil, nil
}
func (s *stubSession) WindowRect(context.Context) (types.Rect, error) { return s.rect, nil }
func (s *stubSession) SetWindowRect(_ context.Context, r types.Rect) error {
	s.setRect = &r
	return nil
}
func (s *stubSession) Delete(context.Context) error {
	s.deleted = true
	return s.deleteErr
}

// scriptedDriver fails the first failures calls, then hands out sess.
type scriptedDriver struct {
	failures int
	sess     *stubSession
	seen     []session.Capabilities
}

func (d *scriptedDriver) NewSession(_ context.Context, caps session.Capabilities) (types.Session, error) {
	d.seen = append(d.seen, caps)
	if len(d.seen) <= d.failures {
		return nil, errors.New("session not created")
	}
	return d.sess, nil
}

type stubServer struct {
	ensureErr error
	ensured   int
	stopped   int
}

func (s *stubServer) Ensure(context.Context) error {
	s.ensured++
	return s.ensureErr
}

func (s *stubServer) Stop() error {
	s.stopped++
	return nil
}

func chromeContext(opts types.AppOptions) types.Context {
	return types.Context{App: types.AppDescriptor{Name: "chrome", Options: opts}, Platforms: []string{"linux"}}
}

func TestManager_Start(t *testing.T) {
	tests := []struct {
		name         string
		failures     int
		wantErr      bool
		wantAttempts int
	}{
		{name: "first attempt succeeds", failures: 0, wantAttempts: 1},
		{name: "retry succeeds headless", failures: 1, wantAttempts: 2},
		{name: "both attempts fail", failures: 2, wantErr: true, wantAttempts: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			driver := &scriptedDriver{failures: tt.failures, sess: &stubSession{}}
			mgr := session.NewManager(driver, &stubServer{}, log.NewNopLogger())

			sess, err := mgr.Start(context.Background(), chromeContext(types.AppOptions{}))
			assert.Len(t, driver.seen, tt.wantAttempts)
			if tt.wantErr {
				require.ErrorIs(t, err, session.ErrSessionUnavailable)
				assert.Nil(t, sess)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "sess-1", sess.ID())
		})
	}
}

func TestManager_RetryForcesHeadless(t *testing.T) {
	driver := &scriptedDriver{failures: 1, sess: &stubSession{}}
	mgr := session.NewManager(driver, &stubServer{}, log.NewNopLogger())

	ctx := chromeContext(types.AppOptions{Args: []string{"--lang=en"}})
	_, err := mgr.Start(context.Background(), ctx)
	require.NoError(t, err)
	require.Len(t, driver.seen, 2)

	first := driver.seen[0]["goog:chromeOptions"].(map[string]any)["args"]
	second := driver.seen[1]["goog:chromeOptions"].(map[string]any)["args"]
	assert.Equal(t, []any{"--lang=en"}, first)
	assert.Equal(t, []any{"--headless=new", "--lang=en"}, second)
	assert.False(t, ctx.App.Options.Headless)
}

func TestManager_ServerNotReady(t *testing.T) {
	driver := &scriptedDriver{sess: &stubSession{}}
	server := &stubServer{ensureErr: session.ErrServerNotReady}
	mgr := session.NewManager(driver, server, log.NewNopLogger())

	_, err := mgr.Start(context.Background(), chromeContext(types.AppOptions{}))
	require.ErrorIs(t, err, session.ErrSessionUnavailable)
	assert.Empty(t, driver.seen)

	require.NoError(t, mgr.Close())
	assert.Equal(t, 1, server.stopped)
}

func TestManager_Resize(t *testing.T) {
	tests := []struct {
		name string
		opts types.AppOptions
		want *types.Rect
	}{
		{name: "no dimensions", opts: types.AppOptions{}, want: nil},
		{name: "width only keeps height", opts: types.AppOptions{Width: 1024}, want: &types.Rect{Width: 1024, Height: 600}},
		{name: "both", opts: types.AppOptions{Width: 1280, Height: 720}, want: &types.Rect{Width: 1280, Height: 720}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sess := &stubSession{rect: types.Rect{Width: 800, Height: 600}}
			mgr := session.NewManager(&scriptedDriver{sess: sess}, nil, log.NewNopLogger())

			_, err := mgr.Start(context.Background(), chromeContext(tt.opts))
			require.NoError(t, err)
			assert.Equal(t, tt.want, sess.setRect)
		})
	}
}

func TestManager_StopSwallowsErrors(t *testing.T) {
	sess := &stubSession{deleteErr: errors.New("gone")}
	mgr := session.NewManager(&scriptedDriver{sess: sess}, nil, log.NewNopLogger())

	mgr.Stop(context.Background(), sess)
	assert.True(t, sess.deleted)
	mgr.Stop(context.Background(), nil)
	assert.NoError(t, mgr.Close())
}

func TestAttempt_DoesNotAliasArgs(t *testing.T) {
	app := types.AppDescriptor{Name: "firefox", Options: types.AppOptions{Args: []string{"-private"}}}
	opts := session.Attempt{App: app, Number: 2}.Options()
	opts.Args[0] = "changed"

	assert.True(t, opts.Headless)
	assert.Equal(t, "-private", app.Options.Args[0])
}

func TestBuild(t *testing.T) {
	tests := []struct {
		name   string
		app    string
		binary string
		opts   types.AppOptions
		want   session.Capabilities
	}{
		{
			name:   "chrome headless sized",
			app:    "Chrome",
			binary: "/opt/chrome",
			opts:   types.AppOptions{Headless: true, Width: 800, Height: 600, Args: []string{"--no-sandbox"}},
			want: session.Capabilities{
				"browserName": "chrome",
				"goog:chromeOptions": map[string]any{
					"args":   []any{"--headless=new", "--window-size=800,600", "--no-sandbox"},
					"binary": "/opt/chrome",
				},
			},
		},
		{
			name: "firefox",
			app:  "firefox",
			opts: types.AppOptions{Headless: true, Width: 1024},
			want: session.Capabilities{
				"browserName":        "firefox",
				"moz:firefoxOptions": map[string]any{"args": []any{"-headless", "-width=1024"}},
			},
		},
		{
			name: "edge",
			app:  "edge",
			want: session.Capabilities{
				"browserName":    "MicrosoftEdge",
				"ms:edgeOptions": map[string]any{"args": []any{}},
			},
		},
		{
			name: "safari ignores options",
			app:  "safari",
			opts: types.AppOptions{Headless: true},
			want: session.Capabilities{"browserName": "safari"},
		},
		{
			name: "unknown app",
			app:  "lynx",
			want: session.Capabilities{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := session.Build(tt.app, tt.binary, tt.opts)
			assert.Equal(t, tt.want, got)

			first, err := json.Marshal(got)
			require.NoError(t, err)
			second, err := json.Marshal(session.Build(tt.app, tt.binary, tt.opts))
			require.NoError(t, err)
			assert.Equal(t, string(first), string(second))
		})
	}
}
