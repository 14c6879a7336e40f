package session

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/arnavsurve/specrun/internal/procutil"
	"github.com/arnavsurve/specrun/pkg/types"
)

var ErrServerNotReady = errors.New("automation server not ready")

const stopTimeout = 5 * time.Second

// ReadinessProbe reports whether the automation server accepts sessions.
type ReadinessProbe interface {
	Probe(ctx context.Context) error
}

// HTTPProbe succeeds when GET URL returns a 2xx status.
type HTTPProbe struct {
	URL    string
	Client *http.Client
}

func (p *HTTPProbe) Probe(ctx context.Context) error {
	client := p.Client
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.URL, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("health check %s returned %d", p.URL, resp.StatusCode)
	}
	return nil
}

// WaitForReady polls probe every interval until it succeeds, ctx ends or
// timeout passes. A zero timeout polls until ctx ends.
func WaitForReady(ctx context.Context, probe ReadinessProbe, interval, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var lastErr error
	for {
		if lastErr = probe.Probe(ctx); lastErr == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %v (last probe error: %v)", ErrServerNotReady, ctx.Err(), lastErr)
		case <-ticker.C:
		}
	}
}

// ServerManager owns the run's single automation server. With a command
// configured it spawns the server on first use and kills its process tree on
// Stop; without one it only waits for the configured URL to be ready.
type ServerManager struct {
	cfg    types.ServerConfig
	logger types.Logger
	probe  ReadinessProbe

	once     sync.Once
	startErr error

	mu      sync.Mutex
	cmd     *exec.Cmd
	exited  chan struct{}
	stopped bool
}

func NewServerManager(cfg types.ServerConfig, logger types.Logger) *ServerManager {
	healthURL := strings.TrimRight(cfg.URL, "/") + cfg.HealthPath
	return &ServerManager{
		cfg:    cfg,
		logger: logger,
		probe:  &HTTPProbe{URL: healthURL},
	}
}

// WithProbe replaces the readiness check.
func (s *ServerManager) WithProbe(p ReadinessProbe) *ServerManager {
	s.probe = p
	return s
}

// Ensure starts the server on the first call and waits for it to be ready.
// Later calls return the first call's outcome without retrying.
func (s *ServerManager) Ensure(ctx context.Context) error {
	s.once.Do(func() {
		s.startErr = s.start(ctx)
	})
	return s.startErr
}

func (s *ServerManager) start(ctx context.Context) error {
	readyCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	if len(s.cfg.Command) > 0 {
		if err := s.spawn(); err != nil {
			return err
		}
		go func() {
			select {
			case <-s.exited:
				cancel()
			case <-readyCtx.Done():
			}
		}()
	} else {
		s.logger.Info().Str("url", s.cfg.URL).Msg("Using existing automation server")
	}

	var timeout time.Duration
	if s.cfg.ReadyTimeout != nil {
		timeout = *s.cfg.ReadyTimeout
	}
	interval := s.cfg.PollInterval
	if interval <= 0 {
		interval = types.DefaultPollInterval
	}

	if err := WaitForReady(readyCtx, s.probe, interval, timeout); err != nil {
		if s.exited != nil {
			select {
			case <-s.exited:
				return fmt.Errorf("%w: server process exited before becoming ready", ErrServerNotReady)
			default:
			}
		}
		return err
	}
	s.logger.Info().Str("url", s.cfg.URL).Msg("Automation server is ready")
	return nil
}

func (s *ServerManager) spawn() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// #nosec G204
	cmd := exec.Command(s.cfg.Command[0], s.cfg.Command[1:]...)
	procutil.ConfigureProcessGroup(cmd)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("attaching to automation server stdout: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("attaching to automation server stderr: %w", err)
	}

	s.logger.Info().Str("command", strings.Join(s.cfg.Command, " ")).Msg("Starting automation server")
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("starting automation server %q: %w", s.cfg.Command[0], err)
	}
	s.cmd = cmd
	s.exited = make(chan struct{})

	var pumps sync.WaitGroup
	pumps.Add(2)
	go s.pump(&pumps, stdout, "STDOUT")
	go s.pump(&pumps, stderr, "STDERR")
	go func() {
		pumps.Wait()
		err := cmd.Wait()
		s.logger.Debug().Err(err).Msg("Automation server exited")
		close(s.exited)
	}()
	return nil
}

func (s *ServerManager) pump(wg *sync.WaitGroup, r io.Reader, source string) {
	defer wg.Done()
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		s.logger.Debug().
			Str("source", source).
			Str("server_line", scanner.Text()).
			Msg("Automation server output")
	}
}

// Stop kills the spawned server's process tree. Only the first call acts.
func (s *ServerManager) Stop() error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.stopped = true
	cmd, exited := s.cmd, s.exited
	s.mu.Unlock()

	if cmd == nil || cmd.Process == nil {
		return nil
	}
	select {
	case <-exited:
		return nil
	default:
	}

	s.logger.Info().Int("pid", cmd.Process.Pid).Msg("Stopping automation server")
	err := procutil.KillProcessTree(cmd.Process.Pid)
	select {
	case <-exited:
	case <-time.After(stopTimeout):
		return fmt.Errorf("automation server %d did not exit after kill", cmd.Process.Pid)
	}
	if err != nil {
		return fmt.Errorf("stopping automation server: %w", err)
	}
	return nil
}
