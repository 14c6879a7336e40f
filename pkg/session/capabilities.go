package session

import (
	"fmt"

	"github.com/arnavsurve/specrun/pkg/types"
)

// Capabilities is the W3C alwaysMatch body sent when opening a session.
type Capabilities = map[string]any

// Build maps an application and its options to session capabilities. It is
// pure: the same inputs always give the same descriptor, encoded to the same
// JSON. Unknown applications get an empty descriptor.
func Build(appName, binary string, opts types.AppOptions) Capabilities {
	switch types.AppFamily(appName) {
	case "chrome":
		return chromiumCapabilities("chrome", "goog:chromeOptions", binary, opts)
	case "edge":
		return chromiumCapabilities("MicrosoftEdge", "ms:edgeOptions", binary, opts)
	case "firefox":
		return firefoxCapabilities(binary, opts)
	case "safari":
		// Safari has no headless mode and takes no launch arguments.
		return Capabilities{"browserName": "safari"}
	default:
		return Capabilities{}
	}
}

func chromiumCapabilities(browserName, optionsKey, binary string, opts types.AppOptions) Capabilities {
	args := make([]any, 0, len(opts.Args)+2)
	if opts.Headless {
		args = append(args, "--headless=new")
	}
	if opts.Width > 0 && opts.Height > 0 {
		args = append(args, fmt.Sprintf("--window-size=%d,%d", opts.Width, opts.Height))
	}
	for _, a := range opts.Args {
		args = append(args, a)
	}

	browserOpts := map[string]any{"args": args}
	if binary != "" {
		browserOpts["binary"] = binary
	}
	return Capabilities{
		"browserName": browserName,
		optionsKey:    browserOpts,
	}
}

func firefoxCapabilities(binary string, opts types.AppOptions) Capabilities {
	args := make([]any, 0, len(opts.Args)+3)
	if opts.Headless {
		args = append(args, "-headless")
	}
	if opts.Width > 0 {
		args = append(args, fmt.Sprintf("-width=%d", opts.Width))
	}
	if opts.Height > 0 {
		args = append(args, fmt.Sprintf("-height=%d", opts.Height))
	}
	for _, a := range opts.Args {
		args = append(args, a)
	}

	browserOpts := map[string]any{"args": args}
	if binary != "" {
		browserOpts["binary"] = binary
	}
	return Capabilities{
		"browserName":        "firefox",
		"moz:firefoxOptions": browserOpts,
	}
}
