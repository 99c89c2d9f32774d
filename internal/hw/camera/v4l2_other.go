//go:build !linux

package camera

import "fmt"

func openV4L2(cfg Config) (Camera, error) {
	return nil, fmt.Errorf("v4l2 on this platform: %w", ErrUnsupported)
}
