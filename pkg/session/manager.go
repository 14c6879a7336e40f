package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/arnavsurve/specrun/pkg/types"
)

var ErrSessionUnavailable = errors.New("session unavailable")

const maxAttempts = 2

// Driver opens sessions against an automation server.
type Driver interface {
	NewSession(ctx context.Context, caps Capabilities) (types.Session, error)
}

// Server is the automation server sessions are opened against.
type Server interface {
	Ensure(ctx context.Context) error
	Stop() error
}

// Attempt describes one try at opening a session. Later attempts degrade
// to headless; the application descriptor itself is never modified.
type Attempt struct {
	App    types.AppDescriptor
	Number int
}

func (a Attempt) Options() types.AppOptions {
	opts := a.App.Options
	opts.Args = append([]string(nil), opts.Args...)
	if a.Number > 1 {
		opts.Headless = true
	}
	return opts
}

func (a Attempt) Capabilities() Capabilities {
	return Build(a.App.Name, a.App.Path, a.Options())
}

// Manager opens and closes one session per context.
type Manager struct {
	driver Driver
	server Server
	logger types.Logger
}

func NewManager(driver Driver, server Server, logger types.Logger) *Manager {
	return &Manager{driver: driver, server: server, logger: logger}
}

// Start opens a session for c. A failed first attempt is retried once in
// headless mode.
func (m *Manager) Start(ctx context.Context, c types.Context) (types.Session, error) {
	if m.server != nil {
		if err := m.server.Ensure(ctx); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrSessionUnavailable, err)
		}
	}

	var lastErr error
	for n := 1; n <= maxAttempts; n++ {
		attempt := Attempt{App: c.App, Number: n}
		sess, err := m.driver.NewSession(ctx, attempt.Capabilities())
		if err == nil {
			m.logger.Debug().
				Str("app", c.App.Name).
				Str("session_id", sess.ID()).
				Int("attempt", n).
				Msg("Session started")
			m.resize(ctx, sess, c.App.Options)
			return sess, nil
		}
		lastErr = err
		if n < maxAttempts {
			m.logger.Warn().Err(err).Str("app", c.App.Name).Msg("Session start failed, retrying headless")
		}
	}
	return nil, fmt.Errorf("%w: starting %s: %v", ErrSessionUnavailable, c.App.Name, lastErr)
}

// resize applies explicit window dimensions. An axis left unset keeps the
// window's current size on that axis.
func (m *Manager) resize(ctx context.Context, sess types.Session, opts types.AppOptions) {
	if opts.Width <= 0 && opts.Height <= 0 {
		return
	}

	rect, err := sess.WindowRect(ctx)
	if err != nil {
		m.logger.Warn().Err(err).Msg("Couldn't read window size")
		return
	}
	if opts.Width > 0 {
		rect.Width = opts.Width
	}
	if opts.Height > 0 {
		rect.Height = opts.Height
	}
	if err := sess.SetWindowRect(ctx, rect); err != nil {
		m.logger.Warn().Err(err).Int("width", rect.Width).Int("height", rect.Height).Msg("Couldn't resize window")
	}
}

// Stop ends the session. Failures are logged and otherwise ignored.
func (m *Manager) Stop(ctx context.Context, sess types.Session) {
	if sess == nil {
		return
	}
	if err := sess.Delete(ctx); err != nil {
		m.logger.Warn().Err(err).Str("session_id", sess.ID()).Msg("Couldn't end session")
	}
}

func (m *Manager) Close() error {
	if m.server == nil {
		return nil
	}
	return m.server.Stop()
}
