package core

import (
	"os"
	"slices"
	"strings"

	"github.com/arnavsurve/specrun/pkg/types"
)

// fallbackApps is the order application families are tried in when a test has no
// explicit context that can run here.
var fallbackApps = []string{"chrome", "firefox", "safari", "edge"}

// SelectContexts applies context precedence: the test's own contexts, else
// the spec's, else the run config's.
func SelectContexts(test *types.Test, spec *types.Spec, cfg *types.RunConfig) []types.Context {
	if test != nil && len(test.Contexts) > 0 {
		return test.Contexts
	}
	if spec != nil && len(spec.Contexts) > 0 {
		return spec.Contexts
	}
	if cfg != nil {
		return cfg.Contexts
	}
	return nil
}

// ResolveContexts returns the contexts that can run on platform, in the order
// they were configured. When none can, the first available application from
// the fallback list is used on the current platform. An empty result means
// the test cannot run here.
func ResolveContexts(configured []types.Context, apps []types.App, platform string) []types.Context {
	var resolved []types.Context
	for _, c := range configured {
		if !c.Supports(platform) {
			continue
		}
		app, ok := availableApp(c.App, apps)
		if !ok {
			continue
		}
		rc := c
		if rc.App.Path == "" {
			rc.App.Path = app.Path
		}
		rc.App.Options.Args = slices.Clone(c.App.Options.Args)
		if len(rc.Platforms) == 0 {
			rc.Platforms = []string{platform}
		} else {
			rc.Platforms = slices.Clone(c.Platforms)
		}
		resolved = append(resolved, rc)
	}
	if len(resolved) > 0 {
		return resolved
	}

	for _, family := range fallbackApps {
		if app, ok := findApp(family, apps); ok {
			return []types.Context{{
				App:       types.AppDescriptor{Name: app.Name, Path: app.Path},
				Platforms: []string{platform},
			}}
		}
	}
	return nil
}

// availableApp reports whether desc names an installed application or points
// at a binary that exists.
func availableApp(desc types.AppDescriptor, apps []types.App) (types.App, bool) {
	if app, ok := findApp(desc.Name, apps); ok {
		return app, true
	}
	if desc.Path != "" {
		if _, err := os.Stat(desc.Path); err == nil {
			return types.App{Name: desc.Name, Path: desc.Path}, true
		}
	}
	return types.App{}, false
}

// findApp prefers an exact name match, then any app of the same family, so
// "chromium" serves a chrome context and "msedge" an edge one.
func findApp(name string, apps []types.App) (types.App, bool) {
	for _, app := range apps {
		if strings.EqualFold(app.Name, name) {
			return app, true
		}
	}
	family := types.AppFamily(name)
	if family == "" {
		return types.App{}, false
	}
	for _, app := range apps {
		if types.AppFamily(app.Name) == family {
			return app, true
		}
	}
	return types.App{}, false
}
