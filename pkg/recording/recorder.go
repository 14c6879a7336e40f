// Package recording captures a session as an animated GIF by polling
// screenshots.
package recording

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color/palette"
	"image/draw"
	"image/gif"
	_ "image/png"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/arnavsurve/specrun/pkg/types"
)

const (
	DefaultInterval = 500 * time.Millisecond
	// maxFrames bounds memory for recordings left running for a long time.
	maxFrames = 1200
)

var ErrNoFrames = errors.New("no frames captured")

// Screenshotter is the part of a session a recording needs.
type Screenshotter interface {
	Screenshot(ctx context.Context) ([]byte, error)
}

// Recorder captures frames in the background until Stop is called.
type Recorder struct {
	source   Screenshotter
	path     string
	interval time.Duration
	logger   types.Logger

	mu     sync.Mutex
	frames []*image.Paletted
	delays []int

	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// New prepares a recording of source written to path when stopped. Nothing
// is captured until Start.
func New(source Screenshotter, path string, interval time.Duration, logger types.Logger) *Recorder {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Recorder{
		source:   source,
		path:     path,
		interval: interval,
		logger:   logger,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start begins capturing every interval in the background. The capture
// outlives ctx's cancellation and ends only with Stop.
func (r *Recorder) Start(ctx context.Context) {
	go r.loop(context.WithoutCancel(ctx))
}

// Path is where the recording is written.
func (r *Recorder) Path() string {
	return r.path
}

func (r *Recorder) loop(ctx context.Context) {
	defer close(r.done)
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.capture(ctx)
	for {
		select {
		case <-r.stop:
			return
		case <-ticker.C:
			r.capture(ctx)
		}
	}
}

func (r *Recorder) capture(ctx context.Context) {
	r.mu.Lock()
	full := len(r.frames) >= maxFrames
	r.mu.Unlock()
	if full {
		return
	}

	png, err := r.source.Screenshot(ctx)
	if err != nil {
		r.logger.Debug().Err(err).Msg("Skipping recording frame")
		return
	}
	img, _, err := image.Decode(bytes.NewReader(png))
	if err != nil {
		r.logger.Debug().Err(err).Msg("Skipping undecodable recording frame")
		return
	}

	frame := image.NewPaletted(img.Bounds(), palette.Plan9)
	draw.FloydSteinberg.Draw(frame, img.Bounds(), img, img.Bounds().Min)

	r.mu.Lock()
	defer r.mu.Unlock()
	// GIF frames must fit the first frame; skip frames taken after a resize.
	if len(r.frames) > 0 && !frame.Bounds().Eq(r.frames[0].Bounds()) {
		return
	}
	r.frames = append(r.frames, frame)
	r.delays = append(r.delays, int(r.interval/(10*time.Millisecond)))
}

// Frames is the number of frames captured so far.
func (r *Recorder) Frames() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.frames)
}

// Stop ends the capture and writes the GIF. Only the first call writes.
func (r *Recorder) Stop(ctx context.Context) (string, error) {
	first := false
	r.stopOnce.Do(func() {
		first = true
		close(r.stop)
	})
	if !first {
		return "", fmt.Errorf("recording %q already stopped", r.path)
	}

	select {
	case <-r.done:
	case <-ctx.Done():
		return "", ctx.Err()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.frames) == 0 {
		return "", fmt.Errorf("writing recording %q: %w", r.path, ErrNoFrames)
	}

	if err := os.MkdirAll(filepath.Dir(r.path), 0755); err != nil {
		return "", fmt.Errorf("creating recording directory for %q: %w", r.path, err)
	}
	f, err := os.Create(r.path)
	if err != nil {
		return "", fmt.Errorf("creating recording %q: %w", r.path, err)
	}
	defer f.Close()

	anim := &gif.GIF{Image: r.frames, Delay: r.delays}
	if err := gif.EncodeAll(f, anim); err != nil {
		return "", fmt.Errorf("encoding recording %q: %w", r.path, err)
	}
	return r.path, nil
}
