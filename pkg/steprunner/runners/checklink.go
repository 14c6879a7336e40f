package runners

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"slices"
	"time"

	"github.com/arnavsurve/specrun/pkg/steprunner"
	"github.com/arnavsurve/specrun/pkg/types"
)

const defaultHTTPTimeout = 30 * time.Second

var defaultStatusCodes = []int{200, 301, 302, 307, 308}

type CheckLinkRunner struct {
	StepCtx types.ExecutionContext

	payload checkLinkPayload
	url     string
}

type checkLinkPayload struct {
	URL         string `yaml:"url"`
	Origin      string `yaml:"origin,omitempty"`
	StatusCodes []int  `yaml:"statusCodes,omitempty"`
	Timeout     int    `yaml:"timeout,omitempty"`
}

func init() {
	steprunner.RegisterRunnerFactory("checkLink", func(ctx types.ExecutionContext) (steprunner.StepRunner, error) {
		return &CheckLinkRunner{StepCtx: ctx}, nil
	})
}

func (cr *CheckLinkRunner) Validate() error {
	step := cr.StepCtx.Step

	if err := step.DecodePayload(&cr.payload); err != nil {
		return err
	}
	if cr.payload.URL == "" {
		return fmt.Errorf("checkLink step %q must define 'url'", step.ID)
	}
	if cr.payload.Timeout < 0 {
		return fmt.Errorf("checkLink step %q: 'timeout' must not be negative", step.ID)
	}
	if len(cr.payload.StatusCodes) == 0 {
		cr.payload.StatusCodes = defaultStatusCodes
	}

	u, err := NormalizeURL(cr.payload.URL, originFor(cr.StepCtx, cr.payload.Origin, ""))
	if err != nil {
		return fmt.Errorf("checkLink step %q: %w", step.ID, err)
	}
	cr.url = u
	return nil
}

func (cr *CheckLinkRunner) Run(ctx context.Context) types.StepResult {
	logger := cr.StepCtx.Logger

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, cr.url, nil)
	if err != nil {
		return types.Fail("Couldn't create request for %s: %v", cr.url, err)
	}
	req.Header.Set("User-Agent", userAgent)

	logger.Info().Str("url", cr.url).Msg("Checking link")
	resp, err := newHTTPClient(cr.payload.Timeout).Do(req)
	if err != nil {
		return types.Fail("Couldn't reach %s: %v", cr.url, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	outputs := map[string]any{"url": cr.url, "statusCode": resp.StatusCode}
	if !slices.Contains(cr.payload.StatusCodes, resp.StatusCode) {
		return types.Fail("Returned %d. Expected one of %v.", resp.StatusCode, cr.payload.StatusCodes).WithOutputs(outputs)
	}
	return types.Pass("Returned %d.", resp.StatusCode).WithOutputs(outputs)
}

// URL is the normalized URL resolved by Validate.
func (cr *CheckLinkRunner) URL() string {
	return cr.url
}

const userAgent = "specrun/1.0"

// newHTTPClient returns a client that reports redirects instead of following
// them, so 3xx codes can be checked.
func newHTTPClient(timeoutMs int) *http.Client {
	timeout := defaultHTTPTimeout
	if timeoutMs > 0 {
		timeout = time.Duration(timeoutMs) * time.Millisecond
	}
	return &http.Client{
		Timeout: timeout,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}
