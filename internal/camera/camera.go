package camera

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"time"

	"edgecam/internal/config"
)

// Camera produces one encoded JPEG frame per call.
type Camera interface {
	Capture(ctx context.Context) ([]byte, error)
}

const captureBinary = "libcamera-still"

// StillCamera shells out to the platform still-capture tool and reads the
// encoded frame from stdout.
type StillCamera struct {
	width   int
	height  int
	quality int
	timeout time.Duration
}

func NewStillCamera(cfg config.Camera) *StillCamera {
	return &StillCamera{
		width:   cfg.Width,
		height:  cfg.Height,
		quality: cfg.Quality,
		timeout: cfg.CaptureTimeout,
	}
}

// Capture grabs a single frame. The capture tool owns sensor start-up,
// autofocus and encoding; a hung sensor is bounded by the timeout.
func (c *StillCamera) Capture(ctx context.Context) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	args := []string{
		"--nopreview",
		"--width", strconv.Itoa(c.width),
		"--height", strconv.Itoa(c.height),
		"--quality", strconv.Itoa(c.quality),
		"--autofocus-mode", "continuous",
		"--encoding", "jpg",
		"--output", "-",
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, captureBinary, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("capture %dx%d: %w (%s)", c.width, c.height, err, stderr.String())
	}
	if stdout.Len() == 0 {
		return nil, fmt.Errorf("capture %dx%d: empty frame", c.width, c.height)
	}
	return stdout.Bytes(), nil
}
