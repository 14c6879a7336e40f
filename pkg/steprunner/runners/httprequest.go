package runners

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strings"

	"github.com/arnavsurve/specrun/pkg/steprunner"
	"github.com/arnavsurve/specrun/pkg/types"
	"github.com/google/go-cmp/cmp"
)

type HTTPRequestRunner struct {
	StepCtx types.ExecutionContext

	payload httpRequestPayload
	url     string
	headers map[string]string
}

type httpRequestPayload struct {
	URL                   string            `yaml:"url"`
	Origin                string            `yaml:"origin,omitempty"`
	API                   string            `yaml:"api,omitempty"`
	Method                string            `yaml:"method,omitempty"`
	Request               httpRequestSpec   `yaml:"request,omitempty"`
	Response              httpResponseSpec  `yaml:"response,omitempty"`
	StatusCodes           []int             `yaml:"statusCodes,omitempty"`
	AllowAdditionalFields *bool             `yaml:"allowAdditionalFields,omitempty"`
	Timeout               int               `yaml:"timeout,omitempty"`
	SetVariables          []variableCapture `yaml:"setVariables,omitempty"`
	persistOptions        `yaml:",inline"`
}

type httpRequestSpec struct {
	Headers    map[string]string `yaml:"headers,omitempty"`
	Parameters map[string]string `yaml:"parameters,omitempty"`
	Body       any               `yaml:"body,omitempty"`
}

type httpResponseSpec struct {
	Headers map[string]string `yaml:"headers,omitempty"`
	Body    any               `yaml:"body,omitempty"`
}

func init() {
	steprunner.RegisterRunnerFactory("httpRequest", func(ctx types.ExecutionContext) (steprunner.StepRunner, error) {
		return &HTTPRequestRunner{StepCtx: ctx}, nil
	})
}

func (hr *HTTPRequestRunner) Validate() error {
	step := hr.StepCtx.Step
	logger := hr.StepCtx.Logger

	if err := step.DecodePayload(&hr.payload); err != nil {
		return err
	}
	p := &hr.payload
	if p.URL == "" {
		return fmt.Errorf("httpRequest step %q must define 'url'", step.ID)
	}
	if p.Timeout < 0 {
		return fmt.Errorf("httpRequest step %q: 'timeout' must not be negative", step.ID)
	}

	p.Method = strings.ToUpper(p.Method)
	if p.Method == "" {
		p.Method = http.MethodGet
	}
	validMethods := map[string]bool{
		"GET": true, "POST": true, "PUT": true, "DELETE": true, "PATCH": true, "HEAD": true, "OPTIONS": true,
	}
	if !validMethods[p.Method] {
		logger.Warn().Str("method", p.Method).Msg("Non-standard HTTP method specified. Proceeding, but ensure server supports it.")
	}

	if len(p.StatusCodes) == 0 {
		p.StatusCodes = defaultStatusCodes
	}

	var api types.APIDefinition
	if p.API != "" {
		var ok bool
		if api, ok = hr.StepCtx.Spec.API(p.API); !ok && hr.StepCtx.Config != nil {
			api, ok = hr.StepCtx.Config.API(p.API)
		}
		if !ok {
			return fmt.Errorf("httpRequest step %q references api %q, which is not defined", step.ID, p.API)
		}
	}

	u, err := NormalizeURL(p.URL, originFor(hr.StepCtx, p.Origin, p.API))
	if err != nil {
		return fmt.Errorf("httpRequest step %q: %w", step.ID, err)
	}
	if len(p.Request.Parameters) > 0 {
		parsed, err := url.Parse(u)
		if err != nil {
			return fmt.Errorf("httpRequest step %q: parsing url %q: %w", step.ID, u, err)
		}
		q := parsed.Query()
		for k, v := range p.Request.Parameters {
			q.Set(k, v)
		}
		parsed.RawQuery = q.Encode()
		u = parsed.String()
	}
	hr.url = u

	hr.headers = make(map[string]string, len(api.Headers)+len(p.Request.Headers))
	for k, v := range api.Headers {
		hr.headers[k] = v
	}
	for k, v := range p.Request.Headers {
		hr.headers[k] = v
	}

	if err := validateCaptures("httpRequest", step.ID, p.SetVariables); err != nil {
		return err
	}
	for _, c := range p.SetVariables {
		if c.Regex != "" {
			return fmt.Errorf("httpRequest step %q: setVariables %q must use 'path', not 'regex'", step.ID, c.Name)
		}
	}
	return p.persistOptions.validate("httpRequest", step.ID)
}

func (hr *HTTPRequestRunner) Run(ctx context.Context) types.StepResult {
	logger := hr.StepCtx.Logger
	p := hr.payload

	var reqBody io.Reader
	var reqBodyBytes []byte
	isJSONBody := false
	switch body := p.Request.Body.(type) {
	case nil:
	case string:
		reqBodyBytes = []byte(body)
	default:
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return types.Fail("Couldn't encode request body as JSON: %v", err)
		}
		reqBodyBytes = jsonBody
		isJSONBody = true
	}
	if reqBodyBytes != nil {
		reqBody = bytes.NewReader(reqBodyBytes)
	}

	req, err := http.NewRequestWithContext(ctx, p.Method, hr.url, reqBody)
	if err != nil {
		return types.Fail("Couldn't create request for %s: %v", hr.url, err)
	}

	hasContentType := false
	for key, value := range hr.headers {
		req.Header.Set(key, value)
		if strings.EqualFold(key, "content-type") {
			hasContentType = true
		}
	}
	if isJSONBody && !hasContentType {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("User-Agent", userAgent)

	// Secrets in headers and body are masked by the log router.
	logger.Info().
		Str("method", p.Method).
		Str("url", hr.url).
		Interface("headers", hr.headers).
		Msg("Making HTTP request")
	if len(reqBodyBytes) > 0 {
		logger.Debug().Str("body_preview", preview(reqBodyBytes)).Msg("Request body")
	}

	resp, err := newHTTPClient(p.Timeout).Do(req)
	if err != nil {
		return types.Fail("HTTP request to %s failed: %v", hr.url, err)
	}
	defer resp.Body.Close()

	respBodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return types.Fail("Couldn't read response body: %v", err)
	}

	logger.Info().
		Int("status_code", resp.StatusCode).
		Interface("response_headers", resp.Header).
		Msg("Received HTTP response")
	if len(respBodyBytes) > 0 {
		logger.Debug().Str("body_preview", preview(respBodyBytes)).Msg("Response body")
	}

	respHeaders := make(map[string]string, len(resp.Header))
	for k, v := range resp.Header {
		respHeaders[k] = strings.Join(v, ", ")
	}
	respBody := decodeBody(respBodyBytes)
	outputs := map[string]any{
		"statusCode": resp.StatusCode,
		"headers":    respHeaders,
		"body":       respBody,
	}

	var failures []string
	if !slices.Contains(p.StatusCodes, resp.StatusCode) {
		failures = append(failures, fmt.Sprintf("Returned %d. Expected one of %v.", resp.StatusCode, p.StatusCodes))
	}
	if len(p.Response.Headers) > 0 {
		if ok, name := headersMatch(p.Response.Headers, respHeaders); !ok {
			failures = append(failures, fmt.Sprintf("Response header %q didn't match the expected value.", name))
		}
	}
	if p.Response.Body != nil {
		allowAdditional := p.AllowAdditionalFields == nil || *p.AllowAdditionalFields
		if ok, at := matchSubset(p.Response.Body, respBody, allowAdditional); !ok {
			failures = append(failures, fmt.Sprintf("Response body didn't match at %s (-expected +actual):\n%s",
				at, cmp.Diff(p.Response.Body, respBody)))
		}
	}
	if len(failures) > 0 {
		return types.StepResult{
			Status:      types.StatusFail,
			Description: strings.Join(failures, " "),
			Outputs:     outputs,
		}
	}

	result := types.Pass("Returned %d.", resp.StatusCode)
	if missing := applyCaptures(p.SetVariables, "", outputs, hr.StepCtx.Vars); len(missing) > 0 {
		result = withWarning(result, "Couldn't set variables %v from the response.", missing)
	}

	if p.enabled() {
		content := respBodyBytes
		if _, isText := respBody.(string); !isText {
			if pretty, err := json.MarshalIndent(respBody, "", "  "); err == nil {
				content = pretty
			}
		}
		policy, _ := p.policy()
		path := p.target(hr.StepCtx.SpecDir, ".")
		saved, err := persist(path, content, p.maxVariation(0), policy, textVariation)
		if err != nil {
			return types.Fail("Couldn't save response: %v", err).WithOutputs(outputs)
		}
		outputs["path"] = path
		if saved.Status == types.StatusWarning {
			result = withWarning(result, "%s", saved.Description)
		} else {
			result.Description += " " + saved.Description
		}
	}

	return result.WithOutputs(outputs)
}

// decodeBody returns JSON bodies decoded, text as a string and anything else
// base64-encoded.
func decodeBody(b []byte) any {
	if len(b) == 0 {
		return ""
	}
	var parsed any
	if err := json.Unmarshal(b, &parsed); err == nil {
		return parsed
	}
	if s := string(b); strings.ToValidUTF8(s, "") == s {
		return s
	}
	return base64.StdEncoding.EncodeToString(b)
}

func preview(b []byte) string {
	s := string(b)
	if len(s) > 256 {
		s = s[:256] + "..."
	}
	return s
}
