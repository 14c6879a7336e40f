package runners

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/arnavsurve/specrun/pkg/types"
	"golang.org/x/sync/errgroup"
)

const (
	defaultFindTimeout = 5000
	findPollInterval   = 250 * time.Millisecond
)

// elementQuery locates one element by CSS selector, by text (literal or
// /regex/), or both.
type elementQuery struct {
	Selector    string `yaml:"selector,omitempty"`
	ElementText string `yaml:"elementText,omitempty"`
	Timeout     int    `yaml:"timeout,omitempty"`
}

func (q elementQuery) validate(action, stepID string) error {
	if q.Selector == "" && q.ElementText == "" {
		return fmt.Errorf("%s step %q must define 'selector' or 'elementText'", action, stepID)
	}
	if q.Timeout < 0 {
		return fmt.Errorf("%s step %q: 'timeout' must not be negative", action, stepID)
	}
	if isRegexPattern(q.ElementText) {
		if _, err := compileMatcher(q.ElementText); err != nil {
			return fmt.Errorf("%s step %q: 'elementText': %w", action, stepID, err)
		}
	}
	return nil
}

func (q elementQuery) describe() string {
	switch {
	case q.Selector != "" && q.ElementText != "":
		return fmt.Sprintf("selector %q with text %q", q.Selector, q.ElementText)
	case q.Selector != "":
		return fmt.Sprintf("selector %q", q.Selector)
	default:
		return fmt.Sprintf("text %q", q.ElementText)
	}
}

// textFinderScript returns the innermost elements under the selector (or
// anywhere) whose trimmed text equals the literal or matches the pattern.
const textFinderScript = `
const [text, isRegex, selector] = arguments;
const re = isRegex ? new RegExp(text) : null;
const matches = (el) => {
  const t = (el.innerText || el.textContent || "").trim();
  return isRegex ? re.test(t) : t === text;
};
const candidates = Array.from(document.querySelectorAll(selector || "*")).filter(matches);
return candidates.filter((el) => !candidates.some((o) => o !== el && el.contains(o)));
`

// findElement polls until a strategy finds an element satisfying the whole
// query or the timeout passes. With only a selector or only text there is
// one strategy. With both, each poll races filtering the selector matches by
// their text against the in-page selector+text script; on a tie the
// selector-filtered match wins.
func findElement(ctx context.Context, sess types.Session, q elementQuery) (types.Element, string, error) {
	timeout := q.Timeout
	if timeout == 0 {
		timeout = defaultFindTimeout
	}
	deadline := time.Now().Add(time.Duration(timeout) * time.Millisecond)

	var lastErr error
	for {
		el, strategy, err := raceStrategies(ctx, sess, q)
		if el != nil {
			return el, strategy, nil
		}
		if err != nil {
			lastErr = err
		}

		if time.Now().Add(findPollInterval).After(deadline) {
			if lastErr != nil {
				return nil, "", fmt.Errorf("couldn't find element with %s within %dms: %w", q.describe(), timeout, lastErr)
			}
			return nil, "", fmt.Errorf("couldn't find element with %s within %dms", q.describe(), timeout)
		}

		select {
		case <-ctx.Done():
			return nil, "", ctx.Err()
		case <-time.After(findPollInterval):
		}
	}
}

// textMatcher mirrors textFinderScript: trimmed text equals the literal or
// matches the /pattern/.
func textMatcher(expected string) func(string) bool {
	if isRegexPattern(expected) {
		re, err := regexp.Compile(expected[1 : len(expected)-1])
		if err != nil {
			return func(string) bool { return false }
		}
		return func(s string) bool { return re.MatchString(strings.TrimSpace(s)) }
	}
	return func(s string) bool { return strings.TrimSpace(s) == expected }
}

func raceStrategies(ctx context.Context, sess types.Session, q elementQuery) (types.Element, string, error) {
	isRegex := isRegexPattern(q.ElementText)
	text := q.ElementText
	if isRegex {
		text = text[1 : len(text)-1]
	}

	switch {
	case q.ElementText == "":
		el, err := first(sess.FindElements(ctx, types.ByCSSSelector, q.Selector))
		return el, "selector", err
	case q.Selector == "":
		el, err := first(sess.FindElementsByScript(ctx, textFinderScript, text, isRegex, ""))
		return el, "text", err
	}

	var (
		bySelector, byBoth   types.Element
		selectorErr, bothErr error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		bySelector, selectorErr = firstWithText(gctx, sess, q.Selector, textMatcher(q.ElementText))
		return nil
	})
	g.Go(func() error {
		byBoth, bothErr = first(sess.FindElementsByScript(gctx, textFinderScript, text, isRegex, q.Selector))
		return nil
	})
	_ = g.Wait()

	switch {
	case bySelector != nil:
		return bySelector, "selector", nil
	case byBoth != nil:
		return byBoth, "selector and text", nil
	case selectorErr != nil:
		return nil, "", selectorErr
	}
	return nil, "", bothErr
}

// firstWithText returns the first selector match whose text satisfies match.
// Elements that go stale while being read are skipped.
func firstWithText(ctx context.Context, sess types.Session, selector string, match func(string) bool) (types.Element, error) {
	els, err := sess.FindElements(ctx, types.ByCSSSelector, selector)
	if err != nil {
		return nil, err
	}
	for _, el := range els {
		t, err := el.Text(ctx)
		if err != nil {
			continue
		}
		if match(t) {
			return el, nil
		}
	}
	return nil, nil
}

func first(els []types.Element, err error) (types.Element, error) {
	if err != nil || len(els) == 0 {
		return nil, err
	}
	return els[0], nil
}
