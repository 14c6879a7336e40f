package webdriver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/arnavsurve/specrun/pkg/types"
	"github.com/tebeka/selenium"
)

// Session is a live WebDriver session. The library has no context support,
// so ctx is checked before each command is sent.
type Session struct {
	wd     selenium.WebDriver
	logger types.Logger
}

func (s *Session) ID() string {
	return s.wd.SessionID()
}

func (s *Session) call(ctx context.Context, command string, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.logger.Debug().Str("session_id", s.wd.SessionID()).Str("command", command).Msg("WebDriver command")
	return wrapErr(fn())
}

func (s *Session) Navigate(ctx context.Context, target string) error {
	return s.call(ctx, "navigate", func() error { return s.wd.Get(target) })
}

func (s *Session) CurrentURL(ctx context.Context) (string, error) {
	var current string
	err := s.call(ctx, "current url", func() (err error) {
		current, err = s.wd.CurrentURL()
		return err
	})
	return current, err
}

// ExecuteScript runs script synchronously. Element arguments are sent as
// web element references.
func (s *Session) ExecuteScript(ctx context.Context, script string, args ...any) (any, error) {
	var result any
	err := s.call(ctx, "execute script", func() (err error) {
		result, err = s.wd.ExecuteScript(script, scriptArgs(args))
		return err
	})
	return result, err
}

func (s *Session) FindElementsByScript(ctx context.Context, script string, args ...any) ([]types.Element, error) {
	var raw []byte
	err := s.call(ctx, "execute script", func() (err error) {
		raw, err = s.wd.ExecuteScriptRaw(script, scriptArgs(args))
		return err
	})
	if err != nil {
		return nil, err
	}

	var reply struct {
		Value any `json:"value"`
	}
	if err := json.Unmarshal(raw, &reply); err != nil {
		return nil, fmt.Errorf("decoding script result: %w", err)
	}

	var refs []map[string]any
	switch v := reply.Value.(type) {
	case nil:
		return nil, nil
	case map[string]any:
		refs = append(refs, v)
	case []any:
		for _, item := range v {
			if ref, ok := item.(map[string]any); ok {
				refs = append(refs, ref)
			}
		}
	default:
		return nil, fmt.Errorf("script returned %T, not elements", reply.Value)
	}

	out := make([]types.Element, 0, len(refs))
	for _, ref := range refs {
		id, ok := ref[elementKey].(string)
		if !ok {
			continue
		}
		data, err := json.Marshal(map[string]any{"value": map[string]string{elementKey: id}})
		if err != nil {
			return nil, err
		}
		we, err := s.wd.DecodeElement(data)
		if err != nil {
			return nil, fmt.Errorf("decoding element %q: %w", id, err)
		}
		out = append(out, &Element{session: s, we: we, id: id})
	}
	return out, nil
}

func (s *Session) FindElements(ctx context.Context, using, value string) ([]types.Element, error) {
	var found []selenium.WebElement
	err := s.call(ctx, "find elements", func() (err error) {
		found, err = s.wd.FindElements(using, value)
		return err
	})
	if err != nil {
		return nil, err
	}
	out := make([]types.Element, 0, len(found))
	for _, we := range found {
		out = append(out, s.element(we))
	}
	return out, nil
}

func (s *Session) ActiveElement(ctx context.Context) (types.Element, error) {
	var we selenium.WebElement
	err := s.call(ctx, "active element", func() (err error) {
		we, err = s.wd.ActiveElement()
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.element(we), nil
}

func (s *Session) Screenshot(ctx context.Context) ([]byte, error) {
	var data []byte
	err := s.call(ctx, "screenshot", func() (err error) {
		data, err = s.wd.Screenshot()
		return err
	})
	return data, err
}

const windowRectScript = `return {x: window.screenX, y: window.screenY, width: window.outerWidth, height: window.outerHeight};`

// WindowRect reads the outer window geometry from the page, the library has
// no getter for it.
func (s *Session) WindowRect(ctx context.Context) (types.Rect, error) {
	var rect types.Rect
	err := s.call(ctx, "window rect", func() error {
		raw, err := s.wd.ExecuteScriptRaw(windowRectScript, nil)
		if err != nil {
			return err
		}
		var reply struct {
			Value types.Rect `json:"value"`
		}
		if err := json.Unmarshal(raw, &reply); err != nil {
			return fmt.Errorf("decoding window rect: %w", err)
		}
		rect = reply.Value
		return nil
	})
	return rect, err
}

// SetWindowRect resizes the current window. Position is left alone.
func (s *Session) SetWindowRect(ctx context.Context, rect types.Rect) error {
	return s.call(ctx, "set window rect", func() error {
		return s.wd.ResizeWindow("", rect.Width, rect.Height)
	})
}

func (s *Session) Delete(ctx context.Context) error {
	return s.call(ctx, "delete session", s.wd.Quit)
}

func (s *Session) element(we selenium.WebElement) *Element {
	return &Element{session: s, we: we, id: elementID(we)}
}

// elementID reads the reference id a library element serializes to.
func elementID(we selenium.WebElement) string {
	data, err := json.Marshal(we)
	if err != nil {
		return ""
	}
	var ref map[string]string
	if json.Unmarshal(data, &ref) != nil {
		return ""
	}
	if id := ref[elementKey]; id != "" {
		return id
	}
	return ref["ELEMENT"]
}

// scriptArgs replaces *Element arguments with the library element, which
// serializes as a web element reference.
func scriptArgs(args []any) []any {
	out := make([]any, len(args))
	for i, a := range args {
		if el, ok := a.(*Element); ok {
			out[i] = el.we
			continue
		}
		out[i] = a
	}
	return out
}

// Element is a web element reference inside a Session.
type Element struct {
	session *Session
	we      selenium.WebElement
	id      string
}

func (e *Element) ID() string {
	return e.id
}

func (e *Element) Click(ctx context.Context) error {
	return e.session.call(ctx, "click", e.we.Click)
}

func (e *Element) SendKeys(ctx context.Context, keys string) error {
	return e.session.call(ctx, "send keys", func() error { return e.we.SendKeys(keys) })
}

func (e *Element) Text(ctx context.Context) (string, error) {
	var text string
	err := e.session.call(ctx, "element text", func() (err error) {
		text, err = e.we.Text()
		return err
	})
	return text, err
}

// MoveTo moves the pointer onto the element.
func (e *Element) MoveTo(ctx context.Context) error {
	return e.session.call(ctx, "move to", func() error { return e.we.MoveTo(0, 0) })
}
