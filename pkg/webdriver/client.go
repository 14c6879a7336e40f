// Package webdriver opens automation sessions on a WebDriver remote end and
// adapts them to types.Session.
package webdriver

import (
	"context"
	"errors"
	"fmt"
	"maps"

	"github.com/arnavsurve/specrun/pkg/types"
	"github.com/tebeka/selenium"
)

// elementKey is the W3C web element identifier.
const elementKey = "element-6066-11e4-a52e-4f735466cecf"

var ErrNoSuchElement = errors.New("no such element")

// Client opens sessions on the remote end at baseURL.
type Client struct {
	baseURL string
	logger  types.Logger
}

func NewClient(baseURL string, logger types.Logger) *Client {
	return &Client{baseURL: baseURL, logger: logger}
}

// NewSession opens a session matching caps. caps is copied because the
// library fills in defaults on the map it is given.
func (c *Client) NewSession(ctx context.Context, caps map[string]any) (types.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.logger.Debug().Str("url", c.baseURL).Interface("capabilities", caps).Msg("Opening WebDriver session")

	wd, err := selenium.NewRemote(selenium.Capabilities(maps.Clone(caps)), c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("creating session: %w", wrapErr(err))
	}
	return &Session{wd: wd, logger: c.logger}, nil
}

// wrapErr maps the remote end's "no such element" onto ErrNoSuchElement and
// keeps the *selenium.Error in the chain.
func wrapErr(err error) error {
	var serr *selenium.Error
	if errors.As(err, &serr) && serr.Err == "no such element" {
		return fmt.Errorf("%w: %w", ErrNoSuchElement, err)
	}
	return err
}
