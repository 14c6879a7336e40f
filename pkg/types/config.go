package types

import (
	"runtime"
	"slices"
	"strings"
	"time"
)

const (
	PlatformLinux   = "linux"
	PlatformMac     = "mac"
	PlatformWindows = "windows"

	DefaultHealthPath   = "/status"
	DefaultPollInterval = time.Second
	DefaultReadyTimeout = 120 * time.Second
	DefaultServerURL    = "http://127.0.0.1:4444"
)

// RunConfig is the environment snapshot a run executes against.
type RunConfig struct {
	Environment        Environment     `yaml:"environment" json:"environment"`
	Contexts           []Context       `yaml:"contexts,omitempty" json:"contexts,omitempty"`
	Origin             string          `yaml:"origin,omitempty" json:"origin,omitempty"`
	RecordingDirectory string          `yaml:"recordingDirectory,omitempty" json:"recordingDirectory,omitempty"`
	MediaDirectory     string          `yaml:"mediaDirectory,omitempty" json:"mediaDirectory,omitempty"`
	AutomationServer   ServerConfig    `yaml:"automationServer,omitempty" json:"automationServer,omitempty"`
	EnvFile            string          `yaml:"envFile,omitempty" json:"envFile,omitempty"`
	Secrets            []string        `yaml:"secrets,omitempty" json:"secrets,omitempty"`
	APIs               []APIDefinition `yaml:"apis,omitempty" json:"apis,omitempty"`
}

type Environment struct {
	Platform string `yaml:"platform" json:"platform"`
	Apps     []App  `yaml:"apps" json:"apps"`
}

// App is an application installed in the environment. Driver names the
// WebDriver binary that serves it and is informational.
type App struct {
	Name   string `yaml:"name" json:"name"`
	Path   string `yaml:"path,omitempty" json:"path,omitempty"`
	Driver string `yaml:"driver,omitempty" json:"driver,omitempty"`
}

// appFamilies maps application aliases onto the family they are driven as.
var appFamilies = map[string]string{
	"chrome":        "chrome",
	"chromium":      "chrome",
	"edge":          "edge",
	"msedge":        "edge",
	"microsoftedge": "edge",
	"firefox":       "firefox",
	"safari":        "safari",
}

// AppFamily returns the family an application name belongs to, or the
// lowercased name when it is not a known alias.
func AppFamily(name string) string {
	name = strings.ToLower(name)
	if family, ok := appFamilies[name]; ok {
		return family
	}
	return name
}

// Context is an (application, platform set) pair a test can execute in.
type Context struct {
	App       AppDescriptor `yaml:"app" json:"app"`
	Platforms []string      `yaml:"platforms,omitempty" json:"platforms,omitempty"`
}

// Supports reports whether the context targets platform. An empty platform
// set targets every platform.
func (c Context) Supports(platform string) bool {
	return len(c.Platforms) == 0 || slices.Contains(c.Platforms, platform)
}

type AppDescriptor struct {
	Name    string     `yaml:"name" json:"name"`
	Path    string     `yaml:"path,omitempty" json:"path,omitempty"`
	Options AppOptions `yaml:"options,omitempty" json:"options,omitempty"`
}

type AppOptions struct {
	Width    int      `yaml:"width,omitempty" json:"width,omitempty"`
	Height   int      `yaml:"height,omitempty" json:"height,omitempty"`
	Headless bool     `yaml:"headless,omitempty" json:"headless,omitempty"`
	Args     []string `yaml:"args,omitempty" json:"args,omitempty"`
}

// ServerConfig describes the automation server. With Command set the server
// is spawned by the run; with only URL set an existing server is used.
type ServerConfig struct {
	Command      []string       `yaml:"command,omitempty" json:"command,omitempty"`
	URL          string         `yaml:"url,omitempty" json:"url,omitempty"`
	HealthPath   string         `yaml:"healthPath,omitempty" json:"healthPath,omitempty"`
	PollInterval time.Duration  `yaml:"pollInterval,omitempty" json:"pollInterval,omitempty"`
	ReadyTimeout *time.Duration `yaml:"readyTimeout,omitempty" json:"readyTimeout,omitempty"` // 0 waits forever
}

// APIDefinition names an HTTP API a spec talks to.
type APIDefinition struct {
	Name    string            `yaml:"name" json:"name"`
	Origin  string            `yaml:"origin" json:"origin"`
	Headers map[string]string `yaml:"headers,omitempty" json:"headers,omitempty"`
}

// ApplyDefaults fills in unset fields.
func (c *RunConfig) ApplyDefaults() {
	if c.Environment.Platform == "" {
		c.Environment.Platform = CurrentPlatform()
	}
	if c.MediaDirectory == "" {
		c.MediaDirectory = "."
	}
	if c.RecordingDirectory == "" {
		c.RecordingDirectory = c.MediaDirectory
	}

	srv := &c.AutomationServer
	if srv.URL == "" {
		srv.URL = DefaultServerURL
	}
	if srv.HealthPath == "" {
		srv.HealthPath = DefaultHealthPath
	}
	if srv.PollInterval <= 0 {
		srv.PollInterval = DefaultPollInterval
	}
	if srv.ReadyTimeout == nil {
		d := DefaultReadyTimeout
		srv.ReadyTimeout = &d
	}
}

// API returns the definition called name from the config.
func (c *RunConfig) API(name string) (APIDefinition, bool) {
	for _, api := range c.APIs {
		if api.Name == name {
			return api, true
		}
	}
	return APIDefinition{}, false
}

// CurrentPlatform maps runtime.GOOS onto the platform names used in contexts.
func CurrentPlatform() string {
	switch runtime.GOOS {
	case "darwin":
		return PlatformMac
	case "windows":
		return PlatformWindows
	default:
		return PlatformLinux
	}
}
