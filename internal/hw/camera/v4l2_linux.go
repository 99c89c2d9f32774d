//go:build linux

package camera

import (
	"context"
	"fmt"
	"time"

	"github.com/vladimirvivien/go4vl/device"
	"github.com/vladimirvivien/go4vl/v4l2"

	"github.com/cjeanneret/SenseCam/internal/debug"
)

const (
	defaultFPS            = 15
	defaultCaptureTimeout = 2 * time.Second
)

// V4L2 captures from a Video4Linux device. The device streams continuously;
// Framebuffer hands out the newest frame and drops older ones.
type V4L2 struct {
	dev     *device.Device
	cancel  context.CancelFunc
	frames  <-chan []byte
	size    FrameSize
	format  PixelFormat
	timeout time.Duration
}

func v4l2PixelFormat(p PixelFormat) (v4l2.FourCCType, error) {
	switch p {
	case PixelFormatJPEG:
		return v4l2.PixelFmtMJPEG, nil
	case PixelFormatYUV422:
		return v4l2.PixelFmtYUYV, nil
	case PixelFormatRGB888:
		return v4l2.PixelFmtRGB24, nil
	default:
		return 0, fmt.Errorf("pixel format %v: %w", p, ErrUnsupported)
	}
}

func openV4L2(cfg Config) (Camera, error) {
	fourcc, err := v4l2PixelFormat(cfg.PixelFormat)
	if err != nil {
		return nil, err
	}
	fps := cfg.FPS
	if fps <= 0 {
		fps = defaultFPS
	}
	timeout := cfg.CaptureTimeout
	if timeout <= 0 {
		timeout = defaultCaptureTimeout
	}

	debug.Verbose("Camera: opening %s (%v, %v, %d fps)", cfg.Device, cfg.FrameSize, cfg.PixelFormat, fps)
	dev, err := device.Open(
		cfg.Device,
		device.WithPixFormat(v4l2.PixFormat{
			Width:       uint32(cfg.FrameSize.Width),
			Height:      uint32(cfg.FrameSize.Height),
			PixelFormat: fourcc,
			Field:       v4l2.FieldNone,
		}),
		device.WithFPS(uint32(fps)),
	)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Device, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	if err := dev.Start(ctx); err != nil {
		cancel()
		_ = dev.Close()
		return nil, fmt.Errorf("start %s: %w", cfg.Device, err)
	}

	return &V4L2{
		dev:     dev,
		cancel:  cancel,
		frames:  dev.GetOutput(),
		size:    cfg.FrameSize,
		format:  cfg.PixelFormat,
		timeout: timeout,
	}, nil
}

func (v *V4L2) Framebuffer() (Frame, bool) {
	timer := time.NewTimer(v.timeout)
	defer timer.Stop()

	var data []byte
	select {
	case d, ok := <-v.frames:
		if !ok {
			debug.Warn("Camera: device stream closed")
			return Frame{}, false
		}
		data = d
	case <-timer.C:
		debug.Warn("Camera: no frame within %v", v.timeout)
		return Frame{}, false
	}

	// Skip anything that queued up while nobody was asking.
drain:
	for {
		select {
		case d, ok := <-v.frames:
			if !ok {
				break drain
			}
			data = d
		default:
			break drain
		}
	}

	if len(data) == 0 {
		return Frame{}, false
	}
	return Frame{
		Data:   data,
		Width:  v.size.Width,
		Height: v.size.Height,
		Format: v.format,
	}, true
}

func (v *V4L2) Close() error {
	v.cancel()
	return v.dev.Close()
}
